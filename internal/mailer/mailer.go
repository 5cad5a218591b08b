package mailer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/pkg/logger"
	"gopkg.in/gomail.v2"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Dialer opens an SMTP connection. gomail.Dialer satisfies it; tests stub it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

// SendRequest carries one outgoing email.
type SendRequest struct {
	Channel       model.Channel
	Address       string
	RecipientName string
	SenderName    string
	Body          string
	IsCustom      bool
}

// SendResult is the structured outcome of a send attempt. Reason is set only
// when Success is false.
type SendResult struct {
	Success bool
	Reason  string
}

func failure(format string, args ...interface{}) SendResult {
	return SendResult{Reason: fmt.Sprintf(format, args...)}
}

type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	FromAddress   string
	FromName      string
	OperatorEmail string
}

// Mailer delivers greetings over SMTP. Input is validated and the connection
// is probed before any message is handed to the server, so a malformed
// request or a dead SMTP host surfaces as a distinct reason.
type Mailer struct {
	dialer Dialer
	config Config
}

func New(config Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		config: config,
	}
}

// NewWithDialer constructs a mailer with a caller-supplied dialer.
func NewWithDialer(dialer Dialer, config Config) *Mailer {
	return &Mailer{
		dialer: dialer,
		config: config,
	}
}

// Send validates the request, probes SMTP connectivity and delivers the
// message. It never returns an error: every failure mode is reported through
// the result so callers can record it as a diagnostic.
func (m *Mailer) Send(ctx context.Context, req SendRequest) SendResult {
	if reason := validate(req); reason != "" {
		return failure("%s", reason)
	}

	subject := fmt.Sprintf("A special greeting for you, %s!", req.RecipientName)

	sc, err := m.dialer.Dial()
	if err != nil {
		logger.Warn("smtp connection failed", "host", m.config.Host, "error", err)
		return failure("SMTP connection failed: %v", err)
	}
	defer sc.Close()

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.config.FromAddress, m.config.FromName)
	msg.SetHeader("To", req.Address)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", req.Body)

	if err := gomail.Send(sc, msg); err != nil {
		logger.Warn("email send failed", "to", req.Address, "error", err)
		return failure("failed to send email: %v", err)
	}

	logger.Info("email sent", "to", req.Address, "is_custom", req.IsCustom)
	return SendResult{Success: true}
}

// NotifyOperator emails the configured operator address. Failures are
// returned, not recorded on any greeting; callers treat this as best effort.
func (m *Mailer) NotifyOperator(ctx context.Context, subject, body string) error {
	if m.config.OperatorEmail == "" {
		return fmt.Errorf("operator email is not configured")
	}
	if containsCRLF(subject) {
		return fmt.Errorf("subject contains header injection characters")
	}

	sc, err := m.dialer.Dial()
	if err != nil {
		return fmt.Errorf("SMTP connection failed: %w", err)
	}
	defer sc.Close()

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.config.FromAddress, m.config.FromName)
	msg.SetHeader("To", m.config.OperatorEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := gomail.Send(sc, msg); err != nil {
		return fmt.Errorf("failed to notify operator: %w", err)
	}

	logger.Info("operator notified", "subject", subject)
	return nil
}

func validate(req SendRequest) string {
	if req.Channel != model.ChannelEmail && req.Channel != model.ChannelEmailWhatsapp {
		return fmt.Sprintf("channel %q is not deliverable by email", req.Channel)
	}
	if req.Address == "" {
		return "recipient address is empty"
	}
	if !emailPattern.MatchString(req.Address) {
		return fmt.Sprintf("recipient address %q is not a valid email", req.Address)
	}
	if req.RecipientName == "" {
		return "recipient name is empty"
	}
	// Names are interpolated into the Subject header.
	if containsCRLF(req.RecipientName) {
		return "recipient name contains header injection characters"
	}
	if req.Body == "" {
		return "message body is empty"
	}
	return ""
}

func containsCRLF(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}
