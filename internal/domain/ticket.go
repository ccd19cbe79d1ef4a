package domain

import (
	"strings"
	"time"
)

// TicketStatus tags how far a ticket has advanced through the pipeline.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "Open"
	TicketStatusClassified  TicketStatus = "Classified"
	TicketStatusIssueOpened TicketStatus = "IssueOpened"
	TicketStatusNotified    TicketStatus = "Notified"
	TicketStatusDrafted     TicketStatus = "Drafted"
	TicketStatusSent        TicketStatus = "Sent"
)

// ProductPlaceholder is the literal token substituted in ticket descriptions
// before they leave the system.
const ProductPlaceholder = "{product_purchased}"

var statusRank = map[TicketStatus]int{
	TicketStatusOpen:        0,
	TicketStatusClassified:  1,
	TicketStatusIssueOpened: 2,
	TicketStatusNotified:    3,
	TicketStatusDrafted:     4,
	TicketStatusSent:        5,
}

// Ticket is the central mutable entity. Optional fields stay nil until their
// step succeeds; re-running a step overwrites, never accumulates.
type Ticket struct {
	ID               int64
	CustomerEmail    string
	Description      string
	ProductPurchased string
	IssueType        *string
	TrackerKey       *string
	EmailDraft       *string
	Status           TicketStatus
	NotificationSent bool
	EmailSent        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Advance moves status forward to next if next outranks the current value.
// Steps may run in any order; status never moves backwards.
func (t *Ticket) Advance(next TicketStatus) {
	if statusRank[next] > statusRank[t.Status] {
		t.Status = next
	}
}

// ResolvedProduct returns the product name with the empty-value fallback
// applied.
func (t *Ticket) ResolvedProduct(fallback string) string {
	if strings.TrimSpace(t.ProductPurchased) == "" {
		return fallback
	}
	return t.ProductPurchased
}

// SubstitutedDescription replaces the product placeholder in the description
// with the given product name.
func (t *Ticket) SubstitutedDescription(product string) string {
	return strings.ReplaceAll(t.Description, ProductPlaceholder, product)
}

// ResolvedIssueType returns the classified issue type or the fallback when
// classification has not run.
func (t *Ticket) ResolvedIssueType(fallback string) string {
	if t.IssueType == nil || strings.TrimSpace(*t.IssueType) == "" {
		return fallback
	}
	return *t.IssueType
}

// ResolvedTrackerKey returns the tracker key or the fallback when no issue
// has been opened.
func (t *Ticket) ResolvedTrackerKey(fallback string) string {
	if t.TrackerKey == nil || strings.TrimSpace(*t.TrackerKey) == "" {
		return fallback
	}
	return *t.TrackerKey
}
