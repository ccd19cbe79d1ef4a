package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/clients/jira"
	"github.com/spec-kit/support-orchestrator/internal/clients/llm"
	"github.com/spec-kit/support-orchestrator/internal/clients/slack"
	"github.com/spec-kit/support-orchestrator/internal/domain"
	"github.com/spec-kit/support-orchestrator/internal/events"
	"github.com/spec-kit/support-orchestrator/internal/mailer"
	"github.com/spec-kit/support-orchestrator/internal/observability"
	apperrors "github.com/spec-kit/support-orchestrator/pkg/util/errorutil"
)

type fakeTicketRepo struct {
	tickets map[int64]*domain.Ticket
	nextID  int64

	// Create fails for this address when set.
	failEmail string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if r.failEmail != "" && ticket.CustomerEmail == r.failEmail {
		return errors.New("insert failed")
	}
	r.nextID++
	ticket.ID = r.nextID
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

type fakeCustomerRepo struct {
	profiles map[string]*domain.CustomerProfile
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{profiles: map[string]*domain.CustomerProfile{}}
}

func (r *fakeCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.CustomerProfile, error) {
	profile, ok := r.profiles[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return profile, nil
}

func (r *fakeCustomerRepo) Truncate(context.Context) error { return nil }

func (r *fakeCustomerRepo) Create(_ context.Context, profile *domain.CustomerProfile) error {
	r.profiles[profile.Email] = profile
	return nil
}

type stubClassifier struct{ label string }

func (s *stubClassifier) Classify(context.Context, string) string { return s.label }

type stubTracker struct {
	result jira.IssueResult
	last   jira.IssueInput
}

func (s *stubTracker) CreateIssue(_ context.Context, in jira.IssueInput) jira.IssueResult {
	s.last = in
	return s.result
}

type stubNotifier struct {
	err   error
	last  slack.Notification
	calls int
}

func (s *stubNotifier) Send(_ context.Context, n slack.Notification) error {
	s.calls++
	s.last = n
	return s.err
}

type stubDrafter struct {
	body string
	err  error
}

func (s *stubDrafter) Draft(context.Context, llm.DraftInput) (string, error) {
	return s.body, s.err
}

type stubMailer struct {
	err  error
	last mailer.Message
}

func (s *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	s.last = msg
	return s.err
}

type pipelineFixture struct {
	service   *PipelineService
	tickets   *fakeTicketRepo
	customers *fakeCustomerRepo
	tracker   *stubTracker
	notifier  *stubNotifier
	drafter   *stubDrafter
	mailer    *stubMailer
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		tickets:   newFakeTicketRepo(),
		customers: newFakeCustomerRepo(),
		tracker:   &stubTracker{result: jira.IssueResult{Key: "CUS-1", Outcome: jira.OutcomeCreated}},
		notifier:  &stubNotifier{},
		drafter:   &stubDrafter{body: "Hi,\n\nWe are on it.\n\nAI-Orchestrator"},
		mailer:    &stubMailer{},
	}
	f.service = NewPipelineService(PipelineDependencies{
		TicketRepo:   f.tickets,
		CustomerRepo: f.customers,
		Classifier:   &stubClassifier{label: "Technical"},
		IssueTracker: f.tracker,
		Notifier:     f.notifier,
		Drafter:      f.drafter,
		Mailer:       f.mailer,
		Dispatcher:   events.NewInMemoryDispatcher(),
		Metrics:      observability.NewMetrics(),
		Logger:       zap.NewNop(),
	})
	return f
}

func (f *pipelineFixture) stored(t *testing.T, id int64) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketDefaultsForUnknownCustomer(t *testing.T) {
	f := newPipelineFixture()

	result, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "nobody@example.com",
		Description:   "it broke",
	})
	require.NoError(t, err)

	assert.Equal(t, "Guest", result.CustomerName)
	assert.Equal(t, domain.TicketStatusOpen, result.Status)

	stored := f.stored(t, result.TicketID)
	assert.Equal(t, "Unknown", stored.ProductPurchased)
	assert.Nil(t, stored.IssueType)
	assert.Nil(t, stored.TrackerKey)
	assert.Nil(t, stored.EmailDraft)
}

func TestCreateTicketUsesDirectoryName(t *testing.T) {
	f := newPipelineFixture()
	f.customers.profiles["ada@example.com"] = &domain.CustomerProfile{Email: "ada@example.com", Name: "Ada Lovelace"}

	result, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail:    "ada@example.com",
		Description:      "broken",
		ProductPurchased: "ToasterX",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", result.CustomerName)
	assert.Equal(t, "ToasterX", f.stored(t, result.TicketID).ProductPurchased)
}

func TestClassifyPersistsLabelAndAdvances(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "screen flickers",
	})
	require.NoError(t, err)

	result, err := f.service.Classify(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "Technical", result.IssueType)

	stored := f.stored(t, created.TicketID)
	require.NotNil(t, stored.IssueType)
	assert.Equal(t, "Technical", *stored.IssueType)
	assert.Equal(t, domain.TicketStatusClassified, stored.Status)
}

func TestClassifyOverwritesOnRerun(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "refund please",
	})
	require.NoError(t, err)

	_, err = f.service.Classify(context.Background(), created.TicketID)
	require.NoError(t, err)

	f.service.classifier = &stubClassifier{label: "Refund"}
	result, err := f.service.Classify(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "Refund", result.IssueType)
	assert.Equal(t, "Refund", *f.stored(t, created.TicketID).IssueType)
}

func TestOpenIssuePersistsKeyAndAdvances(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken", ProductPurchased: "ToasterX",
	})
	require.NoError(t, err)

	result, err := f.service.OpenIssue(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "CUS-1", result.TrackerKey)
	assert.Equal(t, "created", result.Outcome)

	stored := f.stored(t, created.TicketID)
	require.NotNil(t, stored.TrackerKey)
	assert.Equal(t, "CUS-1", *stored.TrackerKey)
	assert.Equal(t, domain.TicketStatusIssueOpened, stored.Status)
}

func TestOpenIssuePersistsSentinelWithoutAdvance(t *testing.T) {
	f := newPipelineFixture()
	f.tracker.result = jira.IssueResult{Key: "JIRA-CONFIG-ERROR", Outcome: jira.OutcomeConfigMissing}

	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken",
	})
	require.NoError(t, err)

	result, err := f.service.OpenIssue(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "JIRA-CONFIG-ERROR", result.TrackerKey)

	stored := f.stored(t, created.TicketID)
	require.NotNil(t, stored.TrackerKey)
	assert.Equal(t, "JIRA-CONFIG-ERROR", *stored.TrackerKey)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status, "sentinel keys must not advance status")
}

func TestOpenIssueSubstitutesProductPlaceholder(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail:    "a@example.com",
		Description:      "My {product_purchased} stopped working",
		ProductPurchased: "ToasterX",
	})
	require.NoError(t, err)

	_, err = f.service.OpenIssue(context.Background(), created.TicketID)
	require.NoError(t, err)

	assert.Equal(t, "My ToasterX stopped working", f.tracker.last.Description)
	assert.NotContains(t, f.tracker.last.Description, "{product_purchased}")
}

func TestNotifySuccessPersistsFlagAndStatus(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail:    "a@example.com",
		Description:      "the {product_purchased} smells of smoke",
		ProductPurchased: "ToasterX",
	})
	require.NoError(t, err)

	result, err := f.service.Notify(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.True(t, result.NotificationSent)
	assert.Empty(t, result.Error)

	stored := f.stored(t, created.TicketID)
	assert.True(t, stored.NotificationSent)
	assert.Equal(t, domain.TicketStatusNotified, stored.Status)

	assert.Contains(t, f.notifier.last.Description, "ToasterX")
	assert.NotContains(t, f.notifier.last.Description, "{product_purchased}")
	assert.Equal(t, "Unknown", f.notifier.last.CustomerName)
	assert.Equal(t, "Unclassified", f.notifier.last.IssueType)
	assert.Equal(t, "N/A", f.notifier.last.TrackerKey)
}

func TestNotifyFailurePersistsNothing(t *testing.T) {
	f := newPipelineFixture()
	f.notifier.err = errors.New("slack: status 500")

	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken",
	})
	require.NoError(t, err)

	result, err := f.service.Notify(context.Background(), created.TicketID)
	require.NoError(t, err, "delivery failure is reported in the result, not as an error")
	assert.False(t, result.NotificationSent)
	assert.Contains(t, result.Error, "status 500")

	stored := f.stored(t, created.TicketID)
	assert.False(t, stored.NotificationSent)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)

	// a retry after the outage looks like a first attempt
	f.notifier.err = nil
	result, err = f.service.Notify(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.True(t, result.NotificationSent)
	assert.True(t, f.stored(t, created.TicketID).NotificationSent)
}

func TestDraftPersistsBody(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken",
	})
	require.NoError(t, err)

	result, err := f.service.Draft(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.DraftEmail)

	stored := f.stored(t, created.TicketID)
	require.NotNil(t, stored.EmailDraft)
	assert.Equal(t, result.DraftEmail, *stored.EmailDraft)
	assert.Equal(t, domain.TicketStatusDrafted, stored.Status)
}

func TestDraftFailureLeavesTicketUntouched(t *testing.T) {
	f := newPipelineFixture()
	f.drafter.body = ""
	f.drafter.err = errors.New("llm draft: blank body")

	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken",
	})
	require.NoError(t, err)

	result, err := f.service.Draft(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.Empty(t, result.DraftEmail)
	assert.Contains(t, result.Error, "blank body")

	stored := f.stored(t, created.TicketID)
	assert.Nil(t, stored.EmailDraft)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestSendEmailUsesFallbacksWhenStepsSkipped(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken",
	})
	require.NoError(t, err)

	result, err := f.service.SendEmail(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.True(t, result.EmailSent)

	assert.Equal(t, "a@example.com", f.mailer.last.To)
	assert.Equal(t, "Support Issue with Unknown", f.mailer.last.Subject)
	assert.Contains(t, f.mailer.last.PlainBody, "Hi Customer,")
	assert.Contains(t, f.mailer.last.PlainBody, "N/A")
	assert.Contains(t, f.mailer.last.PlainBody, "AI-Orchestrator")
	assert.Contains(t, f.mailer.last.HTMLBody, "<strong>Customer</strong>")

	stored := f.stored(t, created.TicketID)
	assert.True(t, stored.EmailSent)
	assert.Equal(t, domain.TicketStatusSent, stored.Status)
}

func TestSendEmailSubjectUsesClassification(t *testing.T) {
	f := newPipelineFixture()
	f.customers.profiles["ada@example.com"] = &domain.CustomerProfile{Email: "ada@example.com", Name: "Ada Lovelace"}

	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "ada@example.com", Description: "broken", ProductPurchased: "ToasterX",
	})
	require.NoError(t, err)
	_, err = f.service.Classify(context.Background(), created.TicketID)
	require.NoError(t, err)
	_, err = f.service.OpenIssue(context.Background(), created.TicketID)
	require.NoError(t, err)

	_, err = f.service.SendEmail(context.Background(), created.TicketID)
	require.NoError(t, err)

	assert.Equal(t, "Technical Issue with ToasterX", f.mailer.last.Subject)
	assert.Contains(t, f.mailer.last.PlainBody, "Hi Ada,")
	assert.Contains(t, f.mailer.last.PlainBody, "CUS-1")
}

func TestSendEmailFailurePersistsNothing(t *testing.T) {
	f := newPipelineFixture()
	f.mailer.err = errors.New("mailer: relay not configured")

	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken",
	})
	require.NoError(t, err)

	result, err := f.service.SendEmail(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.Contains(t, result.Error, "relay not configured")

	stored := f.stored(t, created.TicketID)
	assert.False(t, stored.EmailSent)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestStatusNeverRegressesAcrossOutOfOrderSteps(t *testing.T) {
	f := newPipelineFixture()
	created, err := f.service.CreateTicket(context.Background(), CreateTicketInput{
		CustomerEmail: "a@example.com", Description: "broken",
	})
	require.NoError(t, err)

	_, err = f.service.SendEmail(context.Background(), created.TicketID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusSent, f.stored(t, created.TicketID).Status)

	_, err = f.service.Classify(context.Background(), created.TicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusSent, f.stored(t, created.TicketID).Status)
}

func TestStepOnMissingTicketReturnsNotFound(t *testing.T) {
	f := newPipelineFixture()

	for name, call := range map[string]func() error{
		"classify":  func() error { _, err := f.service.Classify(context.Background(), 404); return err },
		"issue":     func() error { _, err := f.service.OpenIssue(context.Background(), 404); return err },
		"notify":    func() error { _, err := f.service.Notify(context.Background(), 404); return err },
		"draft":     func() error { _, err := f.service.Draft(context.Background(), 404); return err },
		"email":     func() error { _, err := f.service.SendEmail(context.Background(), 404); return err },
		"getTicket": func() error { _, err := f.service.GetTicket(context.Background(), 404); return err },
	} {
		err := call()
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr, "step %s", name)
		assert.Equal(t, "NOT_FOUND", domainErr.Code, "step %s", name)
	}
}
