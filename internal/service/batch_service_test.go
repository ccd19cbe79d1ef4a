package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/dataset"
	"github.com/spec-kit/support-orchestrator/internal/retry"
	apperrors "github.com/spec-kit/support-orchestrator/pkg/util/errorutil"
)

type stubSource struct {
	rows    []dataset.QueryRow
	err     error
	failFor int
	calls   int
}

func (s *stubSource) Sample(n int) ([]dataset.QueryRow, error) {
	s.calls++
	if s.err != nil && s.calls <= s.failFor {
		return nil, s.err
	}
	if n > len(s.rows) {
		return nil, errors.New("sample too large")
	}
	return s.rows[:n], nil
}

func newBatchFixture(source dataset.Source) (*BatchService, *pipelineFixture) {
	f := newPipelineFixture()
	batch := NewBatchService(f.service, source, nil, retry.Policy{Attempts: 3, Delay: time.Millisecond}, zap.NewNop())
	return batch, f
}

func TestRunBatchProcessesEveryRow(t *testing.T) {
	source := &stubSource{rows: []dataset.QueryRow{
		{CustomerEmail: "a@example.com", Description: "broken {product_purchased}", Product: "ToasterX"},
		{CustomerEmail: "b@example.com", Description: "refund please", Product: "WidgetY"},
		{CustomerEmail: "c@example.com", Description: "cannot log in", Product: "AppZ"},
	}}
	batch, f := newBatchFixture(source)

	run, err := batch.RunBatch(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, run.Processed, 3)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	for i, row := range run.Processed {
		assert.Equal(t, source.rows[i].CustomerEmail, row.CustomerEmail)
		assert.Empty(t, row.Error)
		require.NotNil(t, row.Classification, "row %d", i)
		require.NotNil(t, row.Issue, "row %d", i)
		require.NotNil(t, row.Notification, "row %d", i)
		require.NotNil(t, row.Draft, "row %d", i)
		require.NotNil(t, row.Email, "row %d", i)
		assert.Equal(t, "Technical", row.Classification.IssueType)
		assert.True(t, row.Email.EmailSent)
	}

	// each row got its own ticket
	seen := map[int64]bool{}
	for _, row := range run.Processed {
		assert.False(t, seen[row.TicketID])
		seen[row.TicketID] = true
	}
	assert.Len(t, f.tickets.tickets, 3)
}

func TestRunBatchStepFailureDoesNotAbortRow(t *testing.T) {
	source := &stubSource{rows: []dataset.QueryRow{
		{CustomerEmail: "a@example.com", Description: "broken", Product: "ToasterX"},
	}}
	batch, f := newBatchFixture(source)
	f.notifier.err = errors.New("slack: status 500")

	run, err := batch.RunBatch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, run.Processed, 1)

	row := run.Processed[0]
	assert.Empty(t, row.Error)
	require.NotNil(t, row.Notification)
	assert.False(t, row.Notification.NotificationSent)
	assert.Contains(t, row.Notification.Error, "status 500")

	// the later steps still ran
	require.NotNil(t, row.Email)
	assert.True(t, row.Email.EmailSent)
}

func TestRunBatchIsolatesCreateFailures(t *testing.T) {
	source := &stubSource{rows: []dataset.QueryRow{
		{CustomerEmail: "bad@example.com", Description: "broken"},
		{CustomerEmail: "good@example.com", Description: "broken"},
	}}
	batch, f := newBatchFixture(source)
	f.tickets.failEmail = "bad@example.com"

	run, err := batch.RunBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, run.Processed, 2)

	failed := run.Processed[0]
	assert.Equal(t, "bad@example.com", failed.CustomerEmail)
	assert.Equal(t, "ticket creation failed", failed.Error)
	assert.Nil(t, failed.Classification)
	assert.Nil(t, failed.Email)

	ok := run.Processed[1]
	assert.Equal(t, "good@example.com", ok.CustomerEmail)
	assert.Empty(t, ok.Error)
	require.NotNil(t, ok.Email)
	assert.True(t, ok.Email.EmailSent)
}

func TestRunBatchRetriesSampleFailures(t *testing.T) {
	source := &stubSource{
		rows:    []dataset.QueryRow{{CustomerEmail: "a@example.com", Description: "broken"}},
		err:     errors.New("open dataset: no such file"),
		failFor: 2,
	}
	batch, _ := newBatchFixture(source)

	run, err := batch.RunBatch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, source.calls)
	require.Len(t, run.Processed, 1)
}

func TestRunBatchGivesUpAfterExhaustedRetries(t *testing.T) {
	source := &stubSource{
		err:     errors.New("open dataset: no such file"),
		failFor: 10,
	}
	batch, _ := newBatchFixture(source)

	_, err := batch.RunBatch(context.Background(), 1)
	assert.ErrorContains(t, err, "no such file")
	assert.Equal(t, 3, source.calls)
}

func TestRunBatchRejectsNonPositiveCount(t *testing.T) {
	batch, _ := newBatchFixture(&stubSource{})

	_, err := batch.RunBatch(context.Background(), 0)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestGetRunWithoutStoreReportsNotFound(t *testing.T) {
	batch, _ := newBatchFixture(&stubSource{})

	_, err := batch.GetRun(context.Background(), "some-run")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
