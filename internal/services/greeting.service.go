package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
)

type GreetingRepository interface {
	Create(ctx context.Context, g *model.Greeting) (*model.Greeting, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Greeting, error)
	List(ctx context.Context, f model.GreetingFilter) ([]*model.Greeting, int64, error) // results, totalCount
}

// Generator renders a greeting body. Never fails; a degraded composer falls
// back to a deterministic fragment.
type Generator interface {
	Generate(ctx context.Context, sender, recipient string, relationship model.Relationship, description string) string
}

type GreetingService struct {
	greetingRepo     GreetingRepository
	generator        Generator
	defaultDeliverAt time.Time
	clock            func() time.Time
}

// NewGreetingService wires the submission path. defaultDeliverAt is used
// when a request carries no delivery time; the zero value means deliver
// immediately.
func NewGreetingService(greetingRepo GreetingRepository, generator Generator, defaultDeliverAt time.Time) *GreetingService {
	return &GreetingService{
		greetingRepo:     greetingRepo,
		generator:        generator,
		defaultDeliverAt: defaultDeliverAt,
		clock:            time.Now,
	}
}

// Submit validates the request, renders the message body synchronously so
// the caller gets a preview, and stores a pending greeting for the
// dispatcher to pick up once its delivery time passes.
func (s *GreetingService) Submit(ctx context.Context, p model.GreetingCreateRequest) (*model.Greeting, error) {
	p.SenderName = strings.TrimSpace(p.SenderName)
	p.RecipientName = strings.TrimSpace(p.RecipientName)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	deliverAt := s.resolveDeliverAt(p.DeliverAt)

	g := &model.Greeting{
		SenderName:     p.SenderName,
		RecipientName:  p.RecipientName,
		Relationship:   p.Relationship,
		ContentMode:    p.ContentMode,
		Description:    p.Description,
		CustomMessage:  p.CustomMessage,
		Channel:        p.Channel,
		RecipientEmail: p.RecipientEmail,
		RecipientPhone: p.RecipientPhone,
		DeliverAt:      deliverAt,
		Status:         model.GreetingStatusPending,
	}

	if p.ContentMode == model.ContentModeCustom {
		g.RenderedMessage = p.CustomMessage
	} else {
		g.RenderedMessage = s.generator.Generate(ctx, p.SenderName, p.RecipientName, p.Relationship, p.Description)
	}

	return s.greetingRepo.Create(ctx, g)
}

func (s *GreetingService) resolveDeliverAt(requested *time.Time) time.Time {
	if requested != nil {
		return *requested
	}
	if !s.defaultDeliverAt.IsZero() {
		return s.defaultDeliverAt
	}
	return s.clock()
}

func (s *GreetingService) Get(ctx context.Context, id uuid.UUID) (*model.Greeting, error) {
	return s.greetingRepo.GetByID(ctx, id)
}

func (s *GreetingService) List(ctx context.Context, f model.GreetingFilter) ([]*model.Greeting, int64, error) {
	return s.greetingRepo.List(ctx, f)
}
