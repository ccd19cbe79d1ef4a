package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/clients/jira"
	"github.com/spec-kit/support-orchestrator/internal/clients/llm"
	"github.com/spec-kit/support-orchestrator/internal/clients/slack"
	"github.com/spec-kit/support-orchestrator/internal/domain"
	"github.com/spec-kit/support-orchestrator/internal/events"
	"github.com/spec-kit/support-orchestrator/internal/mailer"
	"github.com/spec-kit/support-orchestrator/internal/observability"
	"github.com/spec-kit/support-orchestrator/internal/repository"
	apperrors "github.com/spec-kit/support-orchestrator/pkg/util/errorutil"
)

// Classifier maps a description to a label; it never fails, falling back to
// the catch-all label instead.
type Classifier interface {
	Classify(ctx context.Context, description string) string
}

// Drafter produces a reply email body.
type Drafter interface {
	Draft(ctx context.Context, in llm.DraftInput) (string, error)
}

// IssueTracker opens a tracking issue, reporting failure through the tagged
// result rather than an error.
type IssueTracker interface {
	CreateIssue(ctx context.Context, in jira.IssueInput) jira.IssueResult
}

// Notifier posts a channel alert; nil means delivered.
type Notifier interface {
	Send(ctx context.Context, n slack.Notification) error
}

// MailSender delivers a two-part email; nil means sent.
type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Fallback values applied when an upstream step has not run or reference
// data is missing. They mirror what downstream consumers already expect.
const (
	guestName            = "Guest"
	unknownName          = "Unknown"
	defaultProduct       = "the product"
	unclassifiedIssue    = "Unclassified"
	draftIssueFallback   = "technical"
	draftTrackerFallback = "CUS-XXXX"
	sendIssueFallback    = "Support"
	sendProductFallback  = "your product"
	sendTrackerFallback  = "N/A"
	sendNameFallback     = "Customer"
)

// PipelineService runs the six ticket steps. Every operation is
// independently callable and idempotently re-invocable; failed Notify and
// SendEmail attempts persist nothing, so a retry looks like a first attempt.
type PipelineService struct {
	tickets    repository.TicketRepository
	customers  repository.CustomerRepository
	classifier Classifier
	tracker    IssueTracker
	notifier   Notifier
	drafter    Drafter
	mail       MailSender
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// PipelineDependencies bundles collaborators for the pipeline service.
type PipelineDependencies struct {
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	Classifier   Classifier
	IssueTracker IssueTracker
	Notifier     Notifier
	Drafter      Drafter
	Mailer       MailSender
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewPipelineService constructs the service.
func NewPipelineService(deps PipelineDependencies) *PipelineService {
	return &PipelineService{
		tickets:    deps.TicketRepo,
		customers:  deps.CustomerRepo,
		classifier: deps.Classifier,
		tracker:    deps.IssueTracker,
		notifier:   deps.Notifier,
		drafter:    deps.Drafter,
		mail:       deps.Mailer,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// CreateTicketInput describes ticket creation parameters.
type CreateTicketInput struct {
	CustomerEmail    string
	Description      string
	ProductPurchased string
}

// CreateTicketResult reports the created ticket.
type CreateTicketResult struct {
	TicketID      int64               `json:"ticket_id"`
	CustomerEmail string              `json:"customer_email"`
	CustomerName  string              `json:"customer_name"`
	Status        domain.TicketStatus `json:"status"`
}

// ClassifyResult reports the persisted label.
type ClassifyResult struct {
	TicketID  int64  `json:"ticket_id"`
	IssueType string `json:"issue_type,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OpenIssueResult reports the persisted tracker key, sentinel or real.
type OpenIssueResult struct {
	TicketID   int64  `json:"ticket_id"`
	TrackerKey string `json:"tracker_key,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NotifyResult reports whether the channel alert went out.
type NotifyResult struct {
	TicketID         int64  `json:"ticket_id"`
	NotificationSent bool   `json:"notification_sent"`
	Error            string `json:"error,omitempty"`
}

// DraftResult reports the generated reply body.
type DraftResult struct {
	TicketID   int64  `json:"ticket_id"`
	DraftEmail string `json:"draft_email,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SendEmailResult reports whether the reply email was delivered.
type SendEmailResult struct {
	TicketID  int64  `json:"ticket_id"`
	EmailSent bool   `json:"email_sent"`
	Error     string `json:"error,omitempty"`
}

// CreateTicket opens a new ticket. A missing directory profile is not an
// error; the customer is recorded as a guest.
func (s *PipelineService) CreateTicket(ctx context.Context, input CreateTicketInput) (*CreateTicketResult, error) {
	product := strings.TrimSpace(input.ProductPurchased)
	if product == "" {
		product = "Unknown"
	}

	customerName := s.lookupCustomerName(ctx, input.CustomerEmail, guestName)

	ticket := &domain.Ticket{
		CustomerEmail:    input.CustomerEmail,
		Description:      input.Description,
		ProductPurchased: product,
		Status:           domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.metrics.RecordStep("create", false)
		return nil, err
	}
	s.metrics.RecordStep("create", true)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			CustomerEmail: ticket.CustomerEmail,
			CustomerName:  customerName,
			Product:       ticket.ProductPurchased,
			Status:        ticket.Status,
		},
	})

	return &CreateTicketResult{
		TicketID:      ticket.ID,
		CustomerEmail: ticket.CustomerEmail,
		CustomerName:  customerName,
		Status:        ticket.Status,
	}, nil
}

// Classify labels the ticket description and persists the label. The
// classifier absorbs upstream failure, so this step only fails on a missing
// ticket or storage trouble.
func (s *PipelineService) Classify(ctx context.Context, ticketID int64) (*ClassifyResult, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("classifying ticket",
		zap.Int64("ticket_id", ticketID),
		zap.String("description", ticket.Description))

	label := s.classifier.Classify(ctx, ticket.Description)
	ticket.IssueType = &label
	ticket.Advance(domain.TicketStatusClassified)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.metrics.RecordStep("classify", false)
		return nil, err
	}
	s.metrics.RecordStep("classify", true)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClassified,
		TicketID: ticket.ID,
		Payload:  events.TicketClassifiedPayload{IssueType: label},
	})

	return &ClassifyResult{TicketID: ticket.ID, IssueType: label}, nil
}

// OpenIssue opens a tracking issue and persists the resulting key
// unconditionally; a sentinel key is stored on failure so downstream steps
// always have something to reference. Status advances only when a real
// issue was created.
func (s *PipelineService) OpenIssue(ctx context.Context, ticketID int64) (*OpenIssueResult, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	product := ticket.ResolvedProduct(defaultProduct)
	result := s.tracker.CreateIssue(ctx, jira.IssueInput{
		Description:   ticket.SubstitutedDescription(product),
		IssueType:     ticket.ResolvedIssueType(unclassifiedIssue),
		TicketID:      ticket.ID,
		Product:       product,
		CustomerEmail: ticket.CustomerEmail,
	})

	key := result.Key
	ticket.TrackerKey = &key
	if result.Created() {
		ticket.Advance(domain.TicketStatusIssueOpened)
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.metrics.RecordStep("open_issue", false)
		return nil, err
	}
	s.metrics.RecordStep("open_issue", result.Created())

	s.publishEvent(ctx, events.Event{
		Type:     events.EventIssueOpened,
		TicketID: ticket.ID,
		Payload:  events.IssueOpenedPayload{TrackerKey: key, Outcome: string(result.Outcome)},
	})

	return &OpenIssueResult{
		TicketID:   ticket.ID,
		TrackerKey: key,
		Outcome:    string(result.Outcome),
	}, nil
}

// Notify posts the channel alert. Success is persisted; failure persists
// nothing and is reported through the result only.
func (s *PipelineService) Notify(ctx context.Context, ticketID int64) (*NotifyResult, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	customerName := s.lookupCustomerName(ctx, ticket.CustomerEmail, unknownName)
	product := ticket.ResolvedProduct(defaultProduct)

	sendErr := s.notifier.Send(ctx, slack.Notification{
		CustomerName:  customerName,
		CustomerEmail: ticket.CustomerEmail,
		IssueType:     ticket.ResolvedIssueType(unclassifiedIssue),
		TrackerKey:    ticket.ResolvedTrackerKey(sendTrackerFallback),
		TicketID:      ticket.ID,
		Description:   ticket.SubstitutedDescription(product),
		Product:       product,
	})
	if sendErr != nil {
		s.metrics.RecordStep("notify", false)
		return &NotifyResult{TicketID: ticket.ID, NotificationSent: false, Error: sendErr.Error()}, nil
	}

	ticket.NotificationSent = true
	ticket.Advance(domain.TicketStatusNotified)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.metrics.RecordStep("notify", false)
		return nil, err
	}
	s.metrics.RecordStep("notify", true)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventNotificationSent,
		TicketID: ticket.ID,
		Payload:  events.NotificationSentPayload{CustomerName: customerName},
	})

	return &NotifyResult{TicketID: ticket.ID, NotificationSent: true}, nil
}

// Draft generates the reply email body and persists it. A drafting failure
// leaves the stored draft untouched and is reported through the result.
func (s *PipelineService) Draft(ctx context.Context, ticketID int64) (*DraftResult, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	body, draftErr := s.drafter.Draft(ctx, llm.DraftInput{
		CustomerName: s.lookupCustomerName(ctx, ticket.CustomerEmail, sendNameFallback),
		IssueType:    ticket.ResolvedIssueType(draftIssueFallback),
		Product:      ticket.ResolvedProduct(defaultProduct),
		TrackerKey:   ticket.ResolvedTrackerKey(draftTrackerFallback),
	})
	if draftErr != nil || strings.TrimSpace(body) == "" {
		s.metrics.RecordStep("draft", false)
		detail := "failed to generate email draft"
		if draftErr != nil {
			detail = draftErr.Error()
		}
		return &DraftResult{TicketID: ticket.ID, Error: detail}, nil
	}

	ticket.EmailDraft = &body
	ticket.Advance(domain.TicketStatusDrafted)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.metrics.RecordStep("draft", false)
		return nil, err
	}
	s.metrics.RecordStep("draft", true)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventEmailDrafted,
		TicketID: ticket.ID,
		Payload:  events.EmailDraftedPayload{DraftLength: len(body)},
	})

	return &DraftResult{TicketID: ticket.ID, DraftEmail: body}, nil
}

// SendEmail delivers the templated reply. As with Notify, only success is
// persisted.
func (s *PipelineService) SendEmail(ctx context.Context, ticketID int64) (*SendEmailResult, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	firstName := s.lookupCustomerFirstName(ctx, ticket.CustomerEmail)
	issueType := ticket.ResolvedIssueType(sendIssueFallback)
	product := ticket.ResolvedProduct(sendProductFallback)
	trackerKey := ticket.ResolvedTrackerKey(sendTrackerFallback)

	subject := fmt.Sprintf("%s Issue with %s", issueType, product)
	sendErr := s.mail.Send(ctx, mailer.Message{
		To:        ticket.CustomerEmail,
		Subject:   subject,
		PlainBody: plainReplyBody(firstName, issueType, product, trackerKey),
		HTMLBody:  htmlReplyBody(firstName, issueType, product, trackerKey),
	})
	if sendErr != nil {
		s.metrics.RecordStep("send_email", false)
		return &SendEmailResult{TicketID: ticket.ID, EmailSent: false, Error: sendErr.Error()}, nil
	}

	ticket.EmailSent = true
	ticket.Advance(domain.TicketStatusSent)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.metrics.RecordStep("send_email", false)
		return nil, err
	}
	s.metrics.RecordStep("send_email", true)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventEmailSent,
		TicketID: ticket.ID,
		Payload:  events.EmailSentPayload{Subject: subject, To: ticket.CustomerEmail},
	})

	return &SendEmailResult{TicketID: ticket.ID, EmailSent: true}, nil
}

// GetTicket fetches one ticket for read-only inspection.
func (s *PipelineService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.getTicket(ctx, ticketID)
}

func (s *PipelineService) getTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// lookupCustomerName resolves a directory name; any lookup failure yields
// the fallback, it is never an error.
func (s *PipelineService) lookupCustomerName(ctx context.Context, email, fallback string) string {
	profile, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("customer lookup failed", zap.String("email", email), zap.Error(err))
		}
		return fallback
	}
	if strings.TrimSpace(profile.Name) == "" {
		return fallback
	}
	return profile.Name
}

func (s *PipelineService) lookupCustomerFirstName(ctx context.Context, email string) string {
	profile, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("customer lookup failed", zap.String("email", email), zap.Error(err))
		}
		return sendNameFallback
	}
	return profile.FirstName(sendNameFallback)
}

func (s *PipelineService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func plainReplyBody(firstName, issueType, product, trackerKey string) string {
	return fmt.Sprintf(`Hi %s,

Thank you for reaching out regarding the %s issue with your %s. We've created a support ticket with the ID %s for easy tracking.

Our team is reviewing your concern and will get back to you within 24 hours. We appreciate your patience and apologize for any inconvenience.

If you have any additional details to share, feel free to reply to this email.

Best regards,
AI-Orchestrator
`, firstName, issueType, product, trackerKey)
}

func htmlReplyBody(firstName, issueType, product, trackerKey string) string {
	return fmt.Sprintf(`<html>
  <body>
    <p>Hi <strong>%s</strong>,</p>

    <p>
      Thank you for reaching out regarding the <strong>%s</strong> issue with your
      <strong>%s</strong>. We've created a support ticket with the ID
      <strong>%s</strong> for easy tracking.
    </p>

    <p>
      Our team is reviewing your concern and will get back to you within <strong>24 hours</strong>.
      We appreciate your patience and apologize for any inconvenience.
    </p>

    <p>If you have any additional details to share, feel free to reply to this email.</p>

    <p>Best regards,<br><strong>AI-Orchestrator</strong></p>
  </body>
</html>
`, firstName, issueType, product, trackerKey)
}
