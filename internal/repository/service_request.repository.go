package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/pkg/pg"
	"gorm.io/gorm"
)

// ErrServiceRequestNotFound is returned when a service request does not exist.
var ErrServiceRequestNotFound = errors.New("service request not found")

type ServiceRequestRepository struct {
	*pg.DB
}

func NewServiceRequestRepository(db *pg.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{
		db,
	}
}

func (r *ServiceRequestRepository) Create(ctx context.Context, sr *model.ServiceRequest) (*model.ServiceRequest, error) {
	if sr.ID == uuid.Nil {
		sr.ID = uuid.New()
	}
	if sr.Status == "" {
		sr.Status = model.ServiceRequestStatusNew
	}
	entity := toServiceRequestEntity(sr)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toServiceRequestModel(entity), nil
}

func (r *ServiceRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var entity ServiceRequestEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return toServiceRequestModel(&entity), nil
}

func (r *ServiceRequestRepository) List(ctx context.Context, limit, offset int) ([]*model.ServiceRequest, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&ServiceRequestEntity{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entities []*ServiceRequestEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toServiceRequestModels(entities), total, nil
}

// Update applies an operator update; nil fields stay untouched. Status and
// notes land in a single UPDATE.
func (r *ServiceRequestRepository) Update(ctx context.Context, id uuid.UUID, p model.ServiceRequestUpdateRequest) error {
	fields := map[string]interface{}{}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
	}
	if p.AdminNotes != nil {
		fields["admin_notes"] = *p.AdminNotes
	}

	res := r.Write(ctx).WithContext(ctx).
		Model(&ServiceRequestEntity{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrServiceRequestNotFound
	}
	return nil
}
