package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/internal/repository"
	xhttp "github.com/heartpost/greeting-gateway/pkg/http"
)

type ServiceRequestService interface {
	Create(ctx context.Context, p model.ServiceRequestCreateRequest) (*model.ServiceRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	List(ctx context.Context, limit, offset int) ([]*model.ServiceRequest, int64, error)
	Update(ctx context.Context, id uuid.UUID, p model.ServiceRequestUpdateRequest) error
}

type ServiceRequestHandler struct {
	svc ServiceRequestService
}

func RegisterServiceRequestRoutes(e *router.Group, h *ServiceRequestHandler) {
	e.POST("/service-requests", h.CreateServiceRequest)
	e.GET("/service-requests", h.ListServiceRequests)
	e.GET("/service-requests/{id}", h.GetServiceRequest)
	e.PATCH("/service-requests/{id}", h.UpdateServiceRequest)
}

func NewServiceRequestHandler(svc ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{
		svc: svc,
	}
}

type createServiceRequestRequest struct {
	Description   string `json:"description"`
	ContactNumber string `json:"contact_number"`
}

type updateServiceRequestRequest struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

type serviceRequestListResponse struct {
	Items []*model.ServiceRequest `json:"items"`
	Total int64                   `json:"total"`
}

func (h *ServiceRequestHandler) CreateServiceRequest(ctx *xhttp.RequestCtx) {
	var req createServiceRequestRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	sr, err := h.svc.Create(ctx, model.ServiceRequestCreateRequest{
		Description:   req.Description,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, sr)
}

func (h *ServiceRequestHandler) GetServiceRequest(ctx *xhttp.RequestCtx) {
	idStr, _ := ctx.UserValue("id").(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(ctx, 400, "id must be a UUID")
		return
	}

	sr, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrServiceRequestNotFound) {
			writeError(ctx, 404, "service request not found")
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, sr)
}

func (h *ServiceRequestHandler) ListServiceRequests(ctx *xhttp.RequestCtx) {
	limit := 0
	offset := 0
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			offset = n
		}
	}

	items, total, err := h.svc.List(ctx, limit, offset)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, serviceRequestListResponse{Items: items, Total: total})
}

func (h *ServiceRequestHandler) UpdateServiceRequest(ctx *xhttp.RequestCtx) {
	idStr, _ := ctx.UserValue("id").(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(ctx, 400, "id must be a UUID")
		return
	}

	var req updateServiceRequestRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	update := model.ServiceRequestUpdateRequest{AdminNotes: req.AdminNotes}
	if req.Status != nil {
		status := model.ServiceRequestStatus(*req.Status)
		update.Status = &status
	}

	if err := h.svc.Update(ctx, id, update); err != nil {
		if errors.Is(err, repository.ErrServiceRequestNotFound) {
			writeError(ctx, 404, "service request not found")
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"result": "updated"})
}
