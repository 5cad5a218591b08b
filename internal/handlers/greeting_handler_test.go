package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/internal/repository"
	xhttp "github.com/heartpost/greeting-gateway/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockGreetingService struct {
	mock.Mock
}

func (m *MockGreetingService) Submit(ctx context.Context, p model.GreetingCreateRequest) (*model.Greeting, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Greeting), args.Error(1)
}

func (m *MockGreetingService) Get(ctx context.Context, id uuid.UUID) (*model.Greeting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Greeting), args.Error(1)
}

func (m *MockGreetingService) List(ctx context.Context, f model.GreetingFilter) ([]*model.Greeting, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Greeting), args.Get(1).(int64), args.Error(2)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestGreetingHandler_SubmitGreeting(t *testing.T) {
	t.Run("successful submission", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		reqBody := submitGreetingRequest{
			SenderName:     "Alice",
			RecipientName:  "Bob",
			Relationship:   "friend",
			ContentMode:    "generated",
			Description:    "his sense of humor",
			Channel:        "email",
			RecipientEmail: "bob@x.com",
		}
		bodyBytes, _ := json.Marshal(reqBody)

		expected := &model.Greeting{
			ID:     uuid.New(),
			Status: model.GreetingStatusPending,
		}

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(p model.GreetingCreateRequest) bool {
			return p.SenderName == "Alice" &&
				p.Relationship == model.RelationshipFriend &&
				p.Channel == model.ChannelEmail &&
				p.DeliverAt == nil
		})).Return(expected, nil)

		ctx := setupTestContext("POST", "/api/v1/greetings", bodyBytes)
		handler.SubmitGreeting(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.Greeting
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, response.ID)
		assert.Equal(t, model.GreetingStatusPending, response.Status)
	})

	t.Run("deliver_at is parsed", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		reqBody := submitGreetingRequest{
			SenderName:     "Alice",
			RecipientName:  "Bob",
			Relationship:   "friend",
			ContentMode:    "generated",
			Description:    "his sense of humor",
			Channel:        "email",
			RecipientEmail: "bob@x.com",
			DeliverAt:      "2026-02-14T12:00:00Z",
		}
		bodyBytes, _ := json.Marshal(reqBody)

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(p model.GreetingCreateRequest) bool {
			return p.DeliverAt != nil && p.DeliverAt.Year() == 2026 && p.DeliverAt.Month() == 2
		})).Return(&model.Greeting{ID: uuid.New()}, nil)

		ctx := setupTestContext("POST", "/api/v1/greetings", bodyBytes)
		handler.SubmitGreeting(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		ctx := setupTestContext("POST", "/api/v1/greetings", []byte("{not json"))
		handler.SubmitGreeting(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("malformed deliver_at", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		reqBody := submitGreetingRequest{SenderName: "Alice", DeliverAt: "next friday"}
		bodyBytes, _ := json.Marshal(reqBody)

		ctx := setupTestContext("POST", "/api/v1/greetings", bodyBytes)
		handler.SubmitGreeting(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("service validation error", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		svc.On("Submit", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		ctx := setupTestContext("POST", "/api/v1/greetings", []byte("{}"))
		handler.SubmitGreeting(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestGreetingHandler_GetGreeting(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		id := uuid.New()
		svc.On("Get", mock.Anything, id).Return(&model.Greeting{ID: id, Status: model.GreetingStatusSent}, nil)

		ctx := setupTestContext("GET", "/api/v1/greetings/"+id.String(), nil)
		ctx.SetUserValue("id", id.String())
		handler.GetGreeting(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response model.Greeting
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Equal(t, model.GreetingStatusSent, response.Status)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		id := uuid.New()
		svc.On("Get", mock.Anything, id).Return(nil, repository.ErrNotFound)

		ctx := setupTestContext("GET", "/api/v1/greetings/"+id.String(), nil)
		ctx.SetUserValue("id", id.String())
		handler.GetGreeting(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		ctx := setupTestContext("GET", "/api/v1/greetings/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetGreeting(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestGreetingHandler_ListGreetings(t *testing.T) {
	t.Run("filters parsed from query", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.GreetingFilter) bool {
			return len(f.Statuses) == 2 &&
				f.Statuses[0] == model.GreetingStatusPending &&
				f.Statuses[1] == model.GreetingStatusFailed &&
				f.Limit == 10 && f.Desc
		})).Return([]*model.Greeting{}, int64(0), nil)

		ctx := setupTestContext("GET", "/api/v1/greetings?status=pending,failed&limit=10&order=desc", nil)
		handler.ListGreetings(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		svc := new(MockGreetingService)
		handler := NewGreetingHandler(svc)

		svc.On("List", mock.Anything, mock.Anything).Return(nil, int64(0), assert.AnError)

		ctx := setupTestContext("GET", "/api/v1/greetings", nil)
		handler.ListGreetings(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}
