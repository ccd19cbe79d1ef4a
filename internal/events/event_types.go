package events

import (
	"time"

	"github.com/spec-kit/support-orchestrator/internal/domain"
)

// EventType enumerates supported event identifiers, one per pipeline step.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketClassified EventType = "ticket_classified"
	EventIssueOpened      EventType = "issue_opened"
	EventNotificationSent EventType = "notification_sent"
	EventEmailDrafted     EventType = "email_drafted"
	EventEmailSent        EventType = "email_sent"
)

// Event represents a pipeline transition emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerEmail string              `json:"customer_email"`
	CustomerName  string              `json:"customer_name"`
	Product       string              `json:"product"`
	Status        domain.TicketStatus `json:"status"`
}

// TicketClassifiedPayload payload.
type TicketClassifiedPayload struct {
	IssueType string `json:"issue_type"`
}

// IssueOpenedPayload payload.
type IssueOpenedPayload struct {
	TrackerKey string `json:"tracker_key"`
	Outcome    string `json:"outcome"`
}

// NotificationSentPayload payload.
type NotificationSentPayload struct {
	CustomerName string `json:"customer_name"`
}

// EmailDraftedPayload payload.
type EmailDraftedPayload struct {
	DraftLength int `json:"draft_length"`
}

// EmailSentPayload payload.
type EmailSentPayload struct {
	Subject string `json:"subject"`
	To      string `json:"to"`
}
