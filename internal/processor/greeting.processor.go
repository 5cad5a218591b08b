package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/mailer"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/internal/queue"
	"github.com/heartpost/greeting-gateway/internal/repository"
	"github.com/heartpost/greeting-gateway/pkg/logger"
	"github.com/heartpost/greeting-gateway/pkg/prom"
)

// GreetingStore is the slice of the repository the worker needs.
type GreetingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Greeting, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, d *model.Diagnostic) error
}

// EmailSender delivers one email and reports the outcome.
type EmailSender interface {
	Send(ctx context.Context, req mailer.SendRequest) mailer.SendResult
}

// GreetingProcessor runs one delivery end to end: refetch, guard, validate,
// send, finalize. Every exit path leaves the greeting in a terminal state or
// untouched; nothing stays stuck in processing.
type GreetingProcessor struct {
	store  GreetingStore
	sender EmailSender
	clock  func() time.Time
}

func NewGreetingProcessor(store GreetingStore, sender EmailSender) *GreetingProcessor {
	return &GreetingProcessor{
		store:  store,
		sender: sender,
		clock:  time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (p *GreetingProcessor) SetClock(clock func() time.Time) {
	p.clock = clock
}

func (p *GreetingProcessor) GetType() string {
	return "greeting"
}

// Process handles a single delivery task. It always returns nil so the task
// is acked: every failure mode is recorded on the greeting itself, and a
// retry would act on a row that is no longer in processing.
func (p *GreetingProcessor) Process(ctx context.Context, task *queue.Task) error {
	var dt queue.DeliveryTask
	if err := json.Unmarshal(task.Data, &dt); err != nil {
		logger.Error("Failed to unmarshal delivery task", "task_id", task.ID, "error", err)
		return nil
	}

	id, err := uuid.Parse(dt.GreetingID)
	if err != nil {
		logger.Error("Delivery task carries malformed greeting id", "greeting_id", dt.GreetingID, "error", err)
		return nil
	}

	g, err := p.store.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			logger.Warn("Greeting no longer exists, skipping", "greeting_id", id)
			return nil
		}
		p.finalizeFault(ctx, id, err, "")
		return nil
	}

	// Status guard: only a claimed greeting is delivered. A sent or failed
	// row here means a duplicate or stale task.
	if g.Status != model.GreetingStatusProcessing {
		logger.Warn("Greeting is not in processing state, skipping", "greeting_id", id, "status", g.Status)
		return nil
	}

	p.deliver(ctx, g)
	return nil
}

// deliver runs the guarded section. A panic anywhere inside is converted to
// a failed state with a processing-stage diagnostic.
func (p *GreetingProcessor) deliver(ctx context.Context, g *model.Greeting) {
	defer func() {
		if r := recover(); r != nil {
			p.finalizeFault(ctx, g.ID, fmt.Errorf("%v", r), fmt.Sprintf("%T: %v\n%s", r, r, debug.Stack()))
		}
	}()

	if err := g.ValidateContacts(); err != nil {
		logger.Warn("Greeting failed contact validation", "greeting_id", g.ID, "error", err)
		p.finalizeFailed(ctx, g.ID, &model.Diagnostic{
			Error:     err.Error(),
			Stage:     model.StageValidation,
			Timestamp: p.clock().UTC().Format(time.RFC3339),
		})
		return
	}

	// The whatsapp channel is declared in the data model but has no real
	// transport yet. A whatsapp-only greeting cannot be delivered.
	if !g.WantsEmail() {
		p.finalizeFailed(ctx, g.ID, &model.Diagnostic{
			Error:     fmt.Sprintf("channel %q has no delivery transport", g.Channel),
			Stage:     model.StageDelivery,
			Timestamp: p.clock().UTC().Format(time.RFC3339),
		})
		return
	}

	start := p.clock()
	result := p.sender.Send(ctx, mailer.SendRequest{
		Channel:       g.Channel,
		Address:       g.RecipientEmail,
		RecipientName: g.RecipientName,
		SenderName:    g.SenderName,
		Body:          g.Body(),
		IsCustom:      g.ContentMode == model.ContentModeCustom,
	})

	if !result.Success {
		logger.Warn("Greeting delivery failed", "greeting_id", g.ID, "reason", result.Reason)
		p.finalizeFailed(ctx, g.ID, &model.Diagnostic{
			Error:     result.Reason,
			Stage:     model.StageDelivery,
			Timestamp: p.clock().UTC().Format(time.RFC3339),
		})
		return
	}

	if err := p.store.MarkSent(ctx, g.ID); err != nil {
		// The email went out; the row must still leave processing, so the
		// store fault is recorded as a failure rather than retrying the send.
		p.finalizeFault(ctx, g.ID, err, "")
		return
	}

	prom.IncGreetingDelivered()
	prom.AddGreetingDeliveryDuration(time.Since(start).Seconds())
	logger.Info("Greeting delivered", "greeting_id", g.ID, "recipient", g.RecipientName)
}

func (p *GreetingProcessor) finalizeFailed(ctx context.Context, id uuid.UUID, d *model.Diagnostic) {
	prom.IncGreetingFailed(d.Stage)
	if err := p.store.MarkFailed(ctx, id, d); err != nil {
		logger.Error("Failed to finalize failed greeting", "greeting_id", id, "stage", d.Stage, "error", err)
	}
}

// finalizeFault converts an unexpected fault into a failed state with a
// processing-stage diagnostic.
func (p *GreetingProcessor) finalizeFault(ctx context.Context, id uuid.UUID, cause error, trace string) {
	logger.Error("Unexpected fault while processing greeting", "greeting_id", id, "error", cause)
	p.finalizeFailed(ctx, id, &model.Diagnostic{
		Error:     cause.Error(),
		Stage:     model.StageProcessing,
		Timestamp: p.clock().UTC().Format(time.RFC3339),
		Trace:     trace,
		ErrorType: fmt.Sprintf("%T", cause),
	})
}
