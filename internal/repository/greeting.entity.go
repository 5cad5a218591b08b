package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
)

type GreetingEntity struct {
	ID              uuid.UUID `db:"id"               gorm:"primaryKey;column:id;type:uuid"`
	SenderName      string    `db:"sender_name"      gorm:"column:sender_name;not null"`
	RecipientName   string    `db:"recipient_name"   gorm:"column:recipient_name;not null"`
	Relationship    string    `db:"relationship"     gorm:"column:relationship;not null"`
	ContentMode     string    `db:"content_mode"     gorm:"column:content_mode;not null"`
	Description     string    `db:"description"      gorm:"column:description"`
	CustomMessage   string    `db:"custom_message"   gorm:"column:custom_message"`
	Channel         string    `db:"channel"          gorm:"column:channel;not null;index"`
	RecipientEmail  string    `db:"recipient_email"  gorm:"column:recipient_email"`
	RecipientPhone  string    `db:"recipient_phone"  gorm:"column:recipient_phone"`
	RenderedMessage string    `db:"rendered_message" gorm:"column:rendered_message"`
	DeliverAt       time.Time `db:"deliver_at"       gorm:"column:deliver_at;not null;index:idx_greetings_due"`
	Status          string    `db:"status"           gorm:"column:status;not null;default:pending;index:idx_greetings_due"`
	Diagnostic      string    `db:"diagnostic"       gorm:"column:diagnostic"` // JSON text, empty when clear
	CreatedAt       time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (GreetingEntity) TableName() string {
	return "greetings"
}

func toGreetingEntity(g *model.Greeting) *GreetingEntity {
	if g == nil {
		return nil
	}
	return &GreetingEntity{
		ID:              g.ID,
		SenderName:      g.SenderName,
		RecipientName:   g.RecipientName,
		Relationship:    string(g.Relationship),
		ContentMode:     string(g.ContentMode),
		Description:     g.Description,
		CustomMessage:   g.CustomMessage,
		Channel:         string(g.Channel),
		RecipientEmail:  g.RecipientEmail,
		RecipientPhone:  g.RecipientPhone,
		RenderedMessage: g.RenderedMessage,
		DeliverAt:       g.DeliverAt,
		Status:          string(g.Status),
		Diagnostic:      marshalDiagnostic(g.Diagnostic),
		CreatedAt:       g.CreatedAt,
	}
}

func toGreetingModel(e *GreetingEntity) *model.Greeting {
	if e == nil {
		return nil
	}
	return &model.Greeting{
		ID:              e.ID,
		SenderName:      e.SenderName,
		RecipientName:   e.RecipientName,
		Relationship:    model.Relationship(e.Relationship),
		ContentMode:     model.ContentMode(e.ContentMode),
		Description:     e.Description,
		CustomMessage:   e.CustomMessage,
		Channel:         model.Channel(e.Channel),
		RecipientEmail:  e.RecipientEmail,
		RecipientPhone:  e.RecipientPhone,
		RenderedMessage: e.RenderedMessage,
		DeliverAt:       e.DeliverAt,
		Status:          model.GreetingStatus(e.Status),
		Diagnostic:      unmarshalDiagnostic(e.Diagnostic),
		CreatedAt:       e.CreatedAt,
	}
}

func toGreetingModels(entities []*GreetingEntity) []*model.Greeting {
	if entities == nil {
		return nil
	}
	models := make([]*model.Greeting, len(entities))
	for i, e := range entities {
		models[i] = toGreetingModel(e)
	}
	return models
}

func marshalDiagnostic(d *model.Diagnostic) string {
	if d == nil {
		return ""
	}
	b, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalDiagnostic(s string) *model.Diagnostic {
	if s == "" {
		return nil
	}
	d := &model.Diagnostic{}
	if err := json.Unmarshal([]byte(s), d); err != nil {
		return nil
	}
	return d
}
