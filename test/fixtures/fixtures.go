package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
)

func NewTestGreeting(sender, recipient string, relationship model.Relationship, email string) *model.Greeting {
	return &model.Greeting{
		ID:              uuid.New(),
		SenderName:      sender,
		RecipientName:   recipient,
		Relationship:    relationship,
		ContentMode:     model.ContentModeGenerated,
		Description:     "the way they laugh",
		Channel:         model.ChannelEmail,
		RecipientEmail:  email,
		RenderedMessage: "Test greeting body",
		DeliverAt:       time.Now(),
		Status:          model.GreetingStatusPending,
		CreatedAt:       time.Now(),
	}
}

func NewTestGreetingCreateRequest(sender, recipient string, relationship model.Relationship, email string) model.GreetingCreateRequest {
	return model.GreetingCreateRequest{
		SenderName:     sender,
		RecipientName:  recipient,
		Relationship:   relationship,
		ContentMode:    model.ContentModeGenerated,
		Description:    "the way they laugh",
		Channel:        model.ChannelEmail,
		RecipientEmail: email,
	}
}

var (
	ValidEmailAddresses = []string{
		"alice@example.com",
		"bob.smith@mail.co.uk",
		"carol+tag@domain.io",
	}

	InvalidEmailAddresses = []string{
		"",
		"plainaddress",
		"@no-local-part.com",
		"spaces in@address.com",
	}

	ValidPhoneNumbers = []string{
		"+1234567890",
		"+4412345678",
		"+33123456789",
	}

	InvalidPhoneNumbers = []string{
		"",
		"1234567890",
		"phone",
	}
)

func GreetingCreateRequestGenerated() model.GreetingCreateRequest {
	return NewTestGreetingCreateRequest("Alice", "Bob", model.RelationshipFriend, "bob@example.com")
}

func GreetingCreateRequestCustom() model.GreetingCreateRequest {
	return model.GreetingCreateRequest{
		SenderName:     "Alice",
		RecipientName:  "Bob",
		Relationship:   model.RelationshipFriend,
		ContentMode:    model.ContentModeCustom,
		CustomMessage:  "Happy Valentine's Day, written by hand.",
		Channel:        model.ChannelEmail,
		RecipientEmail: "bob@example.com",
	}
}

func GreetingCreateRequestMissingEmail() model.GreetingCreateRequest {
	req := GreetingCreateRequestGenerated()
	req.RecipientEmail = ""
	return req
}

func GreetingCreateRequestWhatsapp() model.GreetingCreateRequest {
	req := GreetingCreateRequestGenerated()
	req.Channel = model.ChannelWhatsapp
	req.RecipientEmail = ""
	req.RecipientPhone = "+1234567890"
	return req
}

func GreetingFilterByStatus(statuses ...model.GreetingStatus) model.GreetingFilter {
	return model.GreetingFilter{
		Statuses: statuses,
		Limit:    50,
		Offset:   0,
		Desc:     false,
	}
}

func GreetingFilterWithPagination(limit, offset int) model.GreetingFilter {
	return model.GreetingFilter{
		Limit:  limit,
		Offset: offset,
		Desc:   false,
	}
}

func GreetingFilterByTimeRange(from, to time.Time) model.GreetingFilter {
	return model.GreetingFilter{
		From:   &from,
		To:     &to,
		Limit:  50,
		Offset: 0,
		Desc:   false,
	}
}

func NewTestServiceRequest(description, contactNumber string) *model.ServiceRequest {
	return &model.ServiceRequest{
		ID:            uuid.New(),
		Description:   description,
		ContactNumber: contactNumber,
		Status:        model.ServiceRequestStatusNew,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}
