package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GreetingStatus is the lifecycle state of a greeting. Transitions are
// monotonic: pending -> processing -> sent | failed.
type GreetingStatus string

const (
	GreetingStatusPending    GreetingStatus = "pending"
	GreetingStatusProcessing GreetingStatus = "processing"
	GreetingStatusSent       GreetingStatus = "sent"
	GreetingStatusFailed     GreetingStatus = "failed"
)

// Relationship is a closed set; unknown values are rejected at the input
// boundary and the template pool falls back to friend.
type Relationship string

const (
	RelationshipSpouse     Relationship = "spouse"
	RelationshipGirlfriend Relationship = "girlfriend"
	RelationshipBoyfriend  Relationship = "boyfriend"
	RelationshipCrush      Relationship = "crush"
	RelationshipFriend     Relationship = "friend"
	RelationshipColleague  Relationship = "colleague"
	RelationshipBoss       Relationship = "boss"
)

type ContentMode string

const (
	ContentModeGenerated ContentMode = "generated"
	ContentModeCustom    ContentMode = "custom"
)

// Channel selects the delivery transports for a greeting.
type Channel string

const (
	ChannelEmail         Channel = "email"
	ChannelWhatsapp      Channel = "whatsapp"
	ChannelEmailWhatsapp Channel = "email_whatsapp"
)

// Failure stages recorded in the diagnostic payload.
const (
	StageQueueing   = "queueing"
	StageValidation = "validation"
	StageDelivery   = "delivery"
	StageProcessing = "processing"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Greeting struct {
	ID              uuid.UUID      `json:"id"               db:"id"               gorm:"primaryKey;column:id;type:uuid"`
	SenderName      string         `json:"sender_name"      db:"sender_name"      gorm:"column:sender_name;not null"`
	RecipientName   string         `json:"recipient_name"   db:"recipient_name"   gorm:"column:recipient_name;not null"`
	Relationship    Relationship   `json:"relationship"     db:"relationship"     gorm:"column:relationship;not null"`
	ContentMode     ContentMode    `json:"content_mode"     db:"content_mode"     gorm:"column:content_mode;not null"`
	Description     string         `json:"description"      db:"description"      gorm:"column:description"`
	CustomMessage   string         `json:"custom_message"   db:"custom_message"   gorm:"column:custom_message"`
	Channel         Channel        `json:"channel"          db:"channel"          gorm:"column:channel;not null;index"`
	RecipientEmail  string         `json:"recipient_email"  db:"recipient_email"  gorm:"column:recipient_email"`
	RecipientPhone  string         `json:"recipient_phone"  db:"recipient_phone"  gorm:"column:recipient_phone"`
	RenderedMessage string         `json:"rendered_message" db:"rendered_message" gorm:"column:rendered_message"`
	DeliverAt       time.Time      `json:"deliver_at"       db:"deliver_at"       gorm:"column:deliver_at;not null;index"`
	Status          GreetingStatus `json:"status"           db:"status"           gorm:"column:status;not null;index;default:pending"`
	Diagnostic      *Diagnostic    `json:"diagnostic"       db:"diagnostic"       gorm:"column:diagnostic;serializer:json"`
	CreatedAt       time.Time      `json:"created_at"       db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (Greeting) TableName() string { return "greetings" }

// Diagnostic is the structured failure detail attached when a greeting ends
// up failed. Cleared on success.
type Diagnostic struct {
	Error     string `json:"error"`
	Stage     string `json:"stage"`
	Timestamp string `json:"timestamp"`
	Trace     string `json:"trace,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// WantsEmail reports whether the email transport is selected.
func (g *Greeting) WantsEmail() bool {
	return g.Channel == ChannelEmail || g.Channel == ChannelEmailWhatsapp
}

// WantsWhatsapp reports whether the whatsapp transport is selected.
func (g *Greeting) WantsWhatsapp() bool {
	return g.Channel == ChannelWhatsapp || g.Channel == ChannelEmailWhatsapp
}

// Body returns the text to deliver: the literal custom message when the
// content mode is custom, the rendered message otherwise.
func (g *Greeting) Body() string {
	if g.ContentMode == ContentModeCustom {
		return g.CustomMessage
	}
	return g.RenderedMessage
}

// ValidateContacts checks that every selected channel has its contact field
// filled. Runs again in the worker before any send is attempted.
func (g *Greeting) ValidateContacts() error {
	if g.WantsEmail() && g.RecipientEmail == "" {
		return errors.New("email channel selected but recipient_email is empty")
	}
	if g.WantsWhatsapp() && g.RecipientPhone == "" {
		return errors.New("whatsapp channel selected but recipient_phone is empty")
	}
	return nil
}

// GreetingCreateRequest is the input for submitting a greeting.
type GreetingCreateRequest struct {
	SenderName     string       `json:"sender_name"`
	RecipientName  string       `json:"recipient_name"`
	Relationship   Relationship `json:"relationship"`
	ContentMode    ContentMode  `json:"content_mode"`
	Description    string       `json:"description"`
	CustomMessage  string       `json:"custom_message"`
	Channel        Channel      `json:"channel"`
	RecipientEmail string       `json:"recipient_email"`
	RecipientPhone string       `json:"recipient_phone"`
	DeliverAt      *time.Time   `json:"deliver_at"`
}

func (p GreetingCreateRequest) Validate() error {
	if p.SenderName == "" {
		return errors.New("sender_name is required")
	}
	if p.RecipientName == "" {
		return errors.New("recipient_name is required")
	}
	if !ValidRelationship(p.Relationship) {
		return errors.New("relationship is not a valid category")
	}
	switch p.ContentMode {
	case ContentModeGenerated:
		if p.Description == "" {
			return errors.New("description is required for generated content")
		}
		if p.CustomMessage != "" {
			return errors.New("custom_message must be empty for generated content")
		}
	case ContentModeCustom:
		if p.CustomMessage == "" {
			return errors.New("custom_message is required for custom content")
		}
		if p.Description != "" {
			return errors.New("description must be empty for custom content")
		}
	default:
		return errors.New("content_mode must be generated or custom")
	}
	switch p.Channel {
	case ChannelEmail, ChannelWhatsapp, ChannelEmailWhatsapp:
	default:
		return errors.New("channel must be email, whatsapp or email_whatsapp")
	}
	if p.Channel == ChannelEmail || p.Channel == ChannelEmailWhatsapp {
		if p.RecipientEmail == "" {
			return errors.New("recipient_email is required for the email channel")
		}
		if !emailPattern.MatchString(p.RecipientEmail) {
			return errors.New("recipient_email is not a valid address")
		}
	}
	if p.Channel == ChannelWhatsapp || p.Channel == ChannelEmailWhatsapp {
		if p.RecipientPhone == "" {
			return errors.New("recipient_phone is required for the whatsapp channel")
		}
		if !strings.HasPrefix(p.RecipientPhone, "+") {
			return errors.New("recipient_phone must include an international dial prefix")
		}
	}
	return nil
}

func ValidRelationship(r Relationship) bool {
	switch r {
	case RelationshipSpouse, RelationshipGirlfriend, RelationshipBoyfriend,
		RelationshipCrush, RelationshipFriend, RelationshipColleague, RelationshipBoss:
		return true
	}
	return false
}

// GreetingFilter controls List queries.
type GreetingFilter struct {
	Statuses     []GreetingStatus // IN (...)
	Channel      *Channel         // equals
	Relationship *Relationship    // equals
	From         *time.Time
	To           *time.Time
	Limit        int  // default 50
	Offset       int  // for pagination
	Desc         bool // order by created_at
}
