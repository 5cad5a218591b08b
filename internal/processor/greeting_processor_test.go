package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/mailer"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/internal/queue"
	"github.com/heartpost/greeting-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGreetingStore struct {
	mock.Mock
}

func (m *MockGreetingStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Greeting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Greeting), args.Error(1)
}

func (m *MockGreetingStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGreetingStore) MarkFailed(ctx context.Context, id uuid.UUID, d *model.Diagnostic) error {
	args := m.Called(ctx, id, d)
	return args.Error(0)
}

// stubSender records every send and returns a canned result.
type stubSender struct {
	result   mailer.SendResult
	requests []mailer.SendRequest
	panicMsg string
}

func (s *stubSender) Send(ctx context.Context, req mailer.SendRequest) mailer.SendResult {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.requests = append(s.requests, req)
	return s.result
}

func deliveryTask(t *testing.T, greetingID string) *queue.Task {
	t.Helper()
	data, err := json.Marshal(queue.DeliveryTask{GreetingID: greetingID, EnqueuedAt: time.Now().Unix()})
	require.NoError(t, err)
	return &queue.Task{ID: "1-0", Data: data}
}

func processingGreeting() *model.Greeting {
	return &model.Greeting{
		ID:              uuid.New(),
		SenderName:      "Alice",
		RecipientName:   "Bob",
		Relationship:    model.RelationshipFriend,
		ContentMode:     model.ContentModeGenerated,
		Description:     "his sense of humor",
		Channel:         model.ChannelEmail,
		RecipientEmail:  "bob@x.com",
		RenderedMessage: "Hey Bob! Just a note to say you're a fantastic friend. I love how his sense of humor. Cheers, Alice.",
		DeliverAt:       time.Now().Add(-time.Hour),
		Status:          model.GreetingStatusProcessing,
	}
}

func TestGreetingProcessor_Process_Success(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Success: true}}
	ctx := context.Background()

	g := processingGreeting()
	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkSent", ctx, g.ID).Return(nil)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	require.NoError(t, err)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, sender.requests, 1)
	assert.Equal(t, "bob@x.com", sender.requests[0].Address)
	assert.Equal(t, g.RenderedMessage, sender.requests[0].Body)
}

func TestGreetingProcessor_Process_TransportFailure(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Reason: "SMTP timeout"}}
	ctx := context.Background()

	g := processingGreeting()
	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkFailed", ctx, g.ID, mock.MatchedBy(func(d *model.Diagnostic) bool {
		return d.Error == "SMTP timeout" && d.Stage == model.StageDelivery && d.Timestamp != ""
	})).Return(nil)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	require.NoError(t, err)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestGreetingProcessor_Process_MissingEmailFailsValidation(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Success: true}}
	ctx := context.Background()

	g := processingGreeting()
	g.RecipientEmail = ""

	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkFailed", ctx, g.ID, mock.MatchedBy(func(d *model.Diagnostic) bool {
		return d.Stage == model.StageValidation
	})).Return(nil)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	require.NoError(t, err)
	store.AssertExpectations(t)
	// The transport is never invoked on a validation failure.
	assert.Len(t, sender.requests, 0)
}

func TestGreetingProcessor_Process_CustomBodyRoundTrip(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Success: true}}
	ctx := context.Background()

	g := processingGreeting()
	g.ContentMode = model.ContentModeCustom
	g.Description = ""
	g.CustomMessage = "Bob, meet me at the old bridge at sunset. - A"
	g.RenderedMessage = ""

	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkSent", ctx, g.ID).Return(nil)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	require.NoError(t, err)
	require.Len(t, sender.requests, 1)
	assert.Equal(t, "Bob, meet me at the old bridge at sunset. - A", sender.requests[0].Body)
	assert.True(t, sender.requests[0].IsCustom)
}

func TestGreetingProcessor_Process_StatusGuard(t *testing.T) {
	for _, status := range []model.GreetingStatus{
		model.GreetingStatusPending,
		model.GreetingStatusSent,
		model.GreetingStatusFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := new(MockGreetingStore)
			sender := &stubSender{result: mailer.SendResult{Success: true}}
			ctx := context.Background()

			g := processingGreeting()
			g.Status = status
			store.On("GetByID", ctx, g.ID).Return(g, nil)

			p := NewGreetingProcessor(store, sender)
			err := p.Process(ctx, deliveryTask(t, g.ID.String()))

			require.NoError(t, err)
			assert.Len(t, sender.requests, 0)
			store.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGreetingProcessor_Process_GreetingGone(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Success: true}}
	ctx := context.Background()

	id := uuid.New()
	store.On("GetByID", ctx, id).Return(nil, repository.ErrNotFound)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, id.String()))

	// Acked: a vanished greeting will not reappear on retry.
	require.NoError(t, err)
	assert.Len(t, sender.requests, 0)
}

func TestGreetingProcessor_Process_MalformedTask(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Success: true}}

	p := NewGreetingProcessor(store, sender)

	err := p.Process(context.Background(), &queue.Task{ID: "1-0", Data: []byte("{not json")})
	require.NoError(t, err)

	err = p.Process(context.Background(), deliveryTask(t, "not-a-uuid"))
	require.NoError(t, err)

	assert.Len(t, sender.requests, 0)
}

func TestGreetingProcessor_Process_WhatsappOnlyHasNoTransport(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Success: true}}
	ctx := context.Background()

	g := processingGreeting()
	g.Channel = model.ChannelWhatsapp
	g.RecipientEmail = ""
	g.RecipientPhone = "+31612345678"

	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkFailed", ctx, g.ID, mock.MatchedBy(func(d *model.Diagnostic) bool {
		return d.Stage == model.StageDelivery
	})).Return(nil)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	require.NoError(t, err)
	store.AssertExpectations(t)
	assert.Len(t, sender.requests, 0)
}

func TestGreetingProcessor_Process_PanicBecomesProcessingFailure(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{panicMsg: "nil pointer dereference"}
	ctx := context.Background()

	g := processingGreeting()
	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkFailed", ctx, g.ID, mock.MatchedBy(func(d *model.Diagnostic) bool {
		return d.Stage == model.StageProcessing && d.Trace != "" && d.ErrorType != ""
	})).Return(nil)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	// The fault is recorded on the greeting, not propagated.
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestGreetingProcessor_Process_MarkSentFailureRecordsFault(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Success: true}}
	ctx := context.Background()

	g := processingGreeting()
	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkSent", ctx, g.ID).Return(errors.New("pg: connection reset"))
	store.On("MarkFailed", ctx, g.ID, mock.MatchedBy(func(d *model.Diagnostic) bool {
		return d.Stage == model.StageProcessing && d.Error == "pg: connection reset"
	})).Return(nil)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	// The email went out, but the greeting must not stay in processing: the
	// store fault lands on the row as a processing-stage failure.
	require.NoError(t, err)
	store.AssertExpectations(t)
	require.Len(t, sender.requests, 1)
}

func TestGreetingProcessor_Process_FinalSaveFailureDoesNotPropagate(t *testing.T) {
	store := new(MockGreetingStore)
	sender := &stubSender{result: mailer.SendResult{Reason: "SMTP timeout"}}
	ctx := context.Background()

	g := processingGreeting()
	store.On("GetByID", ctx, g.ID).Return(g, nil)
	store.On("MarkFailed", ctx, g.ID, mock.Anything).Return(assert.AnError)

	p := NewGreetingProcessor(store, sender)
	err := p.Process(ctx, deliveryTask(t, g.ID.String()))

	require.NoError(t, err)
	store.AssertExpectations(t)
}
