package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
)

type ServiceRequestEntity struct {
	ID            uuid.UUID `db:"id"             gorm:"primaryKey;column:id;type:uuid"`
	Description   string    `db:"description"    gorm:"column:description;not null"`
	ContactNumber string    `db:"contact_number" gorm:"column:contact_number;not null"`
	AdminNotes    string    `db:"admin_notes"    gorm:"column:admin_notes"`
	Status        string    `db:"status"         gorm:"column:status;not null;default:new;index"`
	CreatedAt     time.Time `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `db:"updated_at"     gorm:"column:updated_at;autoUpdateTime"`
}

func (ServiceRequestEntity) TableName() string {
	return "service_requests"
}

func toServiceRequestEntity(sr *model.ServiceRequest) *ServiceRequestEntity {
	if sr == nil {
		return nil
	}
	return &ServiceRequestEntity{
		ID:            sr.ID,
		Description:   sr.Description,
		ContactNumber: sr.ContactNumber,
		AdminNotes:    sr.AdminNotes,
		Status:        string(sr.Status),
		CreatedAt:     sr.CreatedAt,
		UpdatedAt:     sr.UpdatedAt,
	}
}

func toServiceRequestModel(e *ServiceRequestEntity) *model.ServiceRequest {
	if e == nil {
		return nil
	}
	return &model.ServiceRequest{
		ID:            e.ID,
		Description:   e.Description,
		ContactNumber: e.ContactNumber,
		AdminNotes:    e.AdminNotes,
		Status:        model.ServiceRequestStatus(e.Status),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toServiceRequestModels(entities []*ServiceRequestEntity) []*model.ServiceRequest {
	if entities == nil {
		return nil
	}
	models := make([]*model.ServiceRequest, len(entities))
	for i, e := range entities {
		models[i] = toServiceRequestModel(e)
	}
	return models
}
