package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/pkg/logger"
)

type ServiceRequestRepository interface {
	Create(ctx context.Context, sr *model.ServiceRequest) (*model.ServiceRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	List(ctx context.Context, limit, offset int) ([]*model.ServiceRequest, int64, error)
	Update(ctx context.Context, id uuid.UUID, p model.ServiceRequestUpdateRequest) error
}

// OperatorNotifier alerts the operator about a new request.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, subject, body string) error
}

type ServiceRequestService struct {
	requestRepo ServiceRequestRepository
	notifier    OperatorNotifier
}

func NewServiceRequestService(requestRepo ServiceRequestRepository, notifier OperatorNotifier) *ServiceRequestService {
	return &ServiceRequestService{
		requestRepo: requestRepo,
		notifier:    notifier,
	}
}

// Create stores the request and alerts the operator. The notification is
// best effort: a dead SMTP host never loses the stored request.
func (s *ServiceRequestService) Create(ctx context.Context, p model.ServiceRequestCreateRequest) (*model.ServiceRequest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	created, err := s.requestRepo.Create(ctx, &model.ServiceRequest{
		Description:   p.Description,
		ContactNumber: p.ContactNumber,
		Status:        model.ServiceRequestStatusNew,
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		subject := fmt.Sprintf("New Premium Service Request %s", created.ID)
		body := fmt.Sprintf(
			"A new premium service request has been received:\n\n"+
				"Contact Number: %s\n"+
				"Request Description:\n%s\n\n"+
				"Please check the admin panel for more details and to process this request.",
			created.ContactNumber, created.Description)
		if err := s.notifier.NotifyOperator(ctx, subject, body); err != nil {
			logger.Warn("failed to notify operator about service request", "request_id", created.ID, "error", err)
		}
	}

	return created, nil
}

func (s *ServiceRequestService) Get(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	return s.requestRepo.GetByID(ctx, id)
}

func (s *ServiceRequestService) List(ctx context.Context, limit, offset int) ([]*model.ServiceRequest, int64, error) {
	return s.requestRepo.List(ctx, limit, offset)
}

// Update applies an operator status/notes change.
func (s *ServiceRequestService) Update(ctx context.Context, id uuid.UUID, p model.ServiceRequestUpdateRequest) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.requestRepo.Update(ctx, id, p)
}
