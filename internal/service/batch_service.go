package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/dataset"
	"github.com/spec-kit/support-orchestrator/internal/persistence"
	"github.com/spec-kit/support-orchestrator/internal/retry"
	apperrors "github.com/spec-kit/support-orchestrator/pkg/util/errorutil"
)

// RowResult aggregates the step outputs for one sampled query. Email holds
// the send-step outcome; the address itself lives in CustomerEmail — the
// two are deliberately distinct fields.
type RowResult struct {
	CustomerEmail  string           `json:"customer_email"`
	TicketID       int64            `json:"ticket_id,omitempty"`
	Error          string           `json:"error,omitempty"`
	Classification *ClassifyResult  `json:"classification,omitempty"`
	Issue          *OpenIssueResult `json:"issue,omitempty"`
	Notification   *NotifyResult    `json:"notification,omitempty"`
	Draft          *DraftResult     `json:"draft,omitempty"`
	Email          *SendEmailResult `json:"email,omitempty"`
}

// BatchRun is the summary of one batch invocation.
type BatchRun struct {
	ID         string      `json:"id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Processed  []RowResult `json:"processed"`
}

// BatchService samples queries from the dataset and drives each one through
// the full pipeline, sequentially and synchronously.
type BatchService struct {
	pipeline *PipelineService
	source   dataset.Source
	store    *persistence.BatchRunStore
	policy   retry.Policy
	logger   *zap.Logger
}

// NewBatchService constructs the service.
func NewBatchService(pipeline *PipelineService, source dataset.Source, store *persistence.BatchRunStore, policy retry.Policy, logger *zap.Logger) *BatchService {
	return &BatchService{
		pipeline: pipeline,
		source:   source,
		store:    store,
		policy:   policy,
		logger:   logger,
	}
}

// RunBatch draws count rows without replacement and runs the six-step
// sequence for each. A row whose ticket creation fails is recorded and
// skipped; later rows still run. The whole batch is retried on an
// unexpected fault, per the bounded fixed-delay policy.
func (s *BatchService) RunBatch(ctx context.Context, count int) (*BatchRun, error) {
	if count <= 0 {
		return nil, apperrors.NewValidationError("count must be positive", map[string]any{"count": count})
	}

	var run *BatchRun
	err := s.policy.Do(ctx, func() error {
		attempt, err := s.runOnce(ctx, count)
		if err != nil {
			s.logger.Error("batch run failed", zap.Error(err))
			return err
		}
		run = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.storeRun(ctx, run)
	return run, nil
}

// GetRun fetches a stored run summary by id.
func (s *BatchService) GetRun(ctx context.Context, runID string) (*BatchRun, error) {
	if s.store == nil {
		return nil, apperrors.NewNotFound("batch run", map[string]any{"run_id": runID})
	}
	payload, err := s.store.Get(ctx, runID)
	if err == persistence.ErrRunNotFound {
		return nil, apperrors.NewNotFound("batch run", map[string]any{"run_id": runID})
	}
	if err != nil {
		return nil, err
	}
	var run BatchRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *BatchService) runOnce(ctx context.Context, count int) (*BatchRun, error) {
	rows, err := s.source.Sample(count)
	if err != nil {
		return nil, err
	}

	run := &BatchRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Processed: make([]RowResult, 0, len(rows)),
	}

	for _, row := range rows {
		s.logger.Info("starting pipeline for query", zap.String("customer_email", row.CustomerEmail))
		run.Processed = append(run.Processed, s.processRow(ctx, row))
	}

	run.FinishedAt = time.Now()
	s.logger.Info("batch run complete",
		zap.String("run_id", run.ID),
		zap.Int("processed", len(run.Processed)))
	return run, nil
}

func (s *BatchService) processRow(ctx context.Context, row dataset.QueryRow) RowResult {
	result := RowResult{CustomerEmail: row.CustomerEmail}

	created, err := s.pipeline.CreateTicket(ctx, CreateTicketInput{
		CustomerEmail:    row.CustomerEmail,
		Description:      row.Description,
		ProductPurchased: row.Product,
	})
	if err != nil || created == nil || created.TicketID == 0 {
		s.logger.Error("ticket creation failed", zap.String("customer_email", row.CustomerEmail), zap.Error(err))
		result.Error = "ticket creation failed"
		return result
	}
	result.TicketID = created.TicketID

	if classification, err := s.pipeline.Classify(ctx, created.TicketID); err != nil {
		result.Classification = &ClassifyResult{TicketID: created.TicketID, Error: err.Error()}
	} else {
		result.Classification = classification
	}

	if issue, err := s.pipeline.OpenIssue(ctx, created.TicketID); err != nil {
		result.Issue = &OpenIssueResult{TicketID: created.TicketID, Error: err.Error()}
	} else {
		result.Issue = issue
	}

	if notification, err := s.pipeline.Notify(ctx, created.TicketID); err != nil {
		result.Notification = &NotifyResult{TicketID: created.TicketID, Error: err.Error()}
	} else {
		result.Notification = notification
	}

	if draft, err := s.pipeline.Draft(ctx, created.TicketID); err != nil {
		result.Draft = &DraftResult{TicketID: created.TicketID, Error: err.Error()}
	} else {
		result.Draft = draft
	}

	if email, err := s.pipeline.SendEmail(ctx, created.TicketID); err != nil {
		result.Email = &SendEmailResult{TicketID: created.TicketID, Error: err.Error()}
	} else {
		result.Email = email
	}

	return result
}

func (s *BatchService) storeRun(ctx context.Context, run *BatchRun) {
	if s.store == nil || run == nil {
		return
	}
	payload, err := json.Marshal(run)
	if err != nil {
		s.logger.Warn("encode batch run", zap.Error(err))
		return
	}
	if err := s.store.Save(ctx, run.ID, payload); err != nil {
		s.logger.Warn("store batch run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
