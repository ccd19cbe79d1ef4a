package dto

import (
	"time"

	"github.com/spec-kit/support-orchestrator/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerEmail    string `json:"customer_email"`
	Description      string `json:"description"`
	ProductPurchased string `json:"product_purchased"`
}

// CreateTicketResponse reports the new ticket.
type CreateTicketResponse struct {
	TicketID      int64               `json:"ticket_id"`
	CustomerEmail string              `json:"customer_email"`
	CustomerName  string              `json:"customer_name"`
	Status        domain.TicketStatus `json:"status"`
}

// ClassifyResponse reports the persisted label.
type ClassifyResponse struct {
	TicketID  int64  `json:"ticket_id"`
	IssueType string `json:"issue_type,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OpenIssueResponse reports the tracker key, sentinel or real.
type OpenIssueResponse struct {
	TicketID   int64  `json:"ticket_id"`
	TrackerKey string `json:"tracker_key,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NotifyResponse reports the channel alert outcome.
type NotifyResponse struct {
	TicketID         int64  `json:"ticket_id"`
	NotificationSent bool   `json:"notification_sent"`
	Error            string `json:"error,omitempty"`
}

// DraftResponse reports the generated reply body.
type DraftResponse struct {
	TicketID   int64  `json:"ticket_id"`
	DraftEmail string `json:"draft_email,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SendEmailResponse reports the delivery outcome.
type SendEmailResponse struct {
	TicketID  int64  `json:"ticket_id"`
	EmailSent bool   `json:"email_sent"`
	Error     string `json:"error,omitempty"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketID         int64               `json:"ticket_id"`
	CustomerEmail    string              `json:"customer_email"`
	Description      string              `json:"description"`
	ProductPurchased string              `json:"product_purchased"`
	IssueType        *string             `json:"issue_type"`
	TrackerKey       *string             `json:"tracker_key"`
	EmailDraft       *string             `json:"email_draft"`
	Status           domain.TicketStatus `json:"status"`
	NotificationSent bool                `json:"notification_sent"`
	EmailSent        bool                `json:"email_sent"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}
