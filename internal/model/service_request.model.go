package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ServiceRequestStatus string

const (
	ServiceRequestStatusNew        ServiceRequestStatus = "new"
	ServiceRequestStatusInProgress ServiceRequestStatus = "in_progress"
	ServiceRequestStatusCompleted  ServiceRequestStatus = "completed"
	ServiceRequestStatusCancelled  ServiceRequestStatus = "cancelled"
)

// ServiceRequest is a free-form premium assistance ticket handled by an
// operator outside the delivery pipeline.
type ServiceRequest struct {
	ID            uuid.UUID            `json:"id"             db:"id"             gorm:"primaryKey;column:id;type:uuid"`
	Description   string               `json:"description"    db:"description"    gorm:"column:description;not null"`
	ContactNumber string               `json:"contact_number" db:"contact_number" gorm:"column:contact_number;not null"`
	AdminNotes    string               `json:"admin_notes"    db:"admin_notes"    gorm:"column:admin_notes"`
	Status        ServiceRequestStatus `json:"status"         db:"status"         gorm:"column:status;not null;index;default:new"`
	CreatedAt     time.Time            `json:"created_at"     db:"created_at"     gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `json:"updated_at"     db:"updated_at"     gorm:"column:updated_at;autoUpdateTime"`
}

func (ServiceRequest) TableName() string { return "service_requests" }

type ServiceRequestCreateRequest struct {
	Description   string `json:"description"`
	ContactNumber string `json:"contact_number"`
}

func (p ServiceRequestCreateRequest) Validate() error {
	if strings.TrimSpace(p.Description) == "" {
		return errors.New("description is required")
	}
	if p.ContactNumber == "" {
		return errors.New("contact_number is required")
	}
	if len(p.ContactNumber) > 20 {
		return errors.New("contact_number must be at most 20 characters")
	}
	return nil
}

// ServiceRequestUpdateRequest carries an operator update. Nil fields are left
// unchanged.
type ServiceRequestUpdateRequest struct {
	Status     *ServiceRequestStatus `json:"status"`
	AdminNotes *string               `json:"admin_notes"`
}

func (p ServiceRequestUpdateRequest) Validate() error {
	if p.Status == nil && p.AdminNotes == nil {
		return errors.New("nothing to update")
	}
	if p.Status != nil && !ValidServiceRequestStatus(*p.Status) {
		return errors.New("status is not a valid value")
	}
	return nil
}

func ValidServiceRequestStatus(s ServiceRequestStatus) bool {
	switch s {
	case ServiceRequestStatusNew, ServiceRequestStatusInProgress,
		ServiceRequestStatusCompleted, ServiceRequestStatusCancelled:
		return true
	}
	return false
}
