package dto

import "time"

// RunBatchRequest payload.
type RunBatchRequest struct {
	Count int `json:"count"`
}

// BatchRowResponse aggregates one row's step outputs. The customer_email
// and email fields are intentionally separate: one is the address, the
// other the send-step outcome.
type BatchRowResponse struct {
	CustomerEmail  string             `json:"customer_email"`
	TicketID       int64              `json:"ticket_id,omitempty"`
	Error          string             `json:"error,omitempty"`
	Classification *ClassifyResponse  `json:"classification,omitempty"`
	Issue          *OpenIssueResponse `json:"issue,omitempty"`
	Notification   *NotifyResponse    `json:"notification,omitempty"`
	Draft          *DraftResponse     `json:"draft,omitempty"`
	Email          *SendEmailResponse `json:"email,omitempty"`
}

// BatchRunResponse summarizes one batch invocation.
type BatchRunResponse struct {
	ID         string             `json:"id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Processed  []BatchRowResponse `json:"processed"`
}
