package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/internal/repository"
	xhttp "github.com/heartpost/greeting-gateway/pkg/http"
)

type GreetingService interface {
	Submit(ctx context.Context, p model.GreetingCreateRequest) (*model.Greeting, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Greeting, error)
	List(ctx context.Context, f model.GreetingFilter) ([]*model.Greeting, int64, error)
}

type GreetingHandler struct {
	svc GreetingService
}

func RegisterGreetingRoutes(e *router.Group, h *GreetingHandler) {
	e.POST("/greetings", h.SubmitGreeting)
	e.GET("/greetings", h.ListGreetings)
	e.GET("/greetings/{id}", h.GetGreeting)
}

func NewGreetingHandler(greetingService GreetingService) *GreetingHandler {
	return &GreetingHandler{
		svc: greetingService,
	}
}

type submitGreetingRequest struct {
	SenderName     string `json:"sender_name"`
	RecipientName  string `json:"recipient_name"`
	Relationship   string `json:"relationship"`
	ContentMode    string `json:"content_mode"`
	Description    string `json:"description"`
	CustomMessage  string `json:"custom_message"`
	Channel        string `json:"channel"`
	RecipientEmail string `json:"recipient_email"`
	RecipientPhone string `json:"recipient_phone"`
	DeliverAt      string `json:"deliver_at"`
}

type greetingListResponse struct {
	Items []*model.Greeting `json:"items"`
	Total int64             `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *GreetingHandler) SubmitGreeting(ctx *xhttp.RequestCtx) {
	var req submitGreetingRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.GreetingCreateRequest{
		SenderName:     req.SenderName,
		RecipientName:  req.RecipientName,
		Relationship:   model.Relationship(req.Relationship),
		ContentMode:    model.ContentMode(req.ContentMode),
		Description:    req.Description,
		CustomMessage:  req.CustomMessage,
		Channel:        model.Channel(req.Channel),
		RecipientEmail: req.RecipientEmail,
		RecipientPhone: req.RecipientPhone,
	}

	if req.DeliverAt != "" {
		t, err := parseTime(req.DeliverAt)
		if err != nil {
			writeError(ctx, 400, "deliver_at must be RFC3339 or YYYY-MM-DD")
			return
		}
		p.DeliverAt = &t
	}

	g, err := h.svc.Submit(ctx, p)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, g)
}

func (h *GreetingHandler) GetGreeting(ctx *xhttp.RequestCtx) {
	idStr, _ := ctx.UserValue("id").(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(ctx, 400, "id must be a UUID")
		return
	}

	g, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(ctx, 404, "greeting not found")
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, g)
}

func (h *GreetingHandler) ListGreetings(ctx *xhttp.RequestCtx) {
	var f model.GreetingFilter

	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.GreetingStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "channel"); v != "" {
		ch := model.Channel(v)
		f.Channel = &ch
	}
	if v := query(ctx, "relationship"); v != "" {
		rel := model.Relationship(v)
		f.Relationship = &rel
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, greetingListResponse{Items: items, Total: total})
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
