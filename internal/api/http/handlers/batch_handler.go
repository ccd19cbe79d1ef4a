package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-orchestrator/internal/api/dto"
	"github.com/spec-kit/support-orchestrator/internal/service"
	apperrors "github.com/spec-kit/support-orchestrator/pkg/util/errorutil"
)

// BatchHandler exposes the batch pipeline driver.
type BatchHandler struct {
	batch *service.BatchService
}

// NewBatchHandler constructs handler.
func NewBatchHandler(batch *service.BatchService) *BatchHandler {
	return &BatchHandler{batch: batch}
}

// RunBatch POST /batch/runs.
func (h *BatchHandler) RunBatch(c *fiber.Ctx) error {
	var req dto.RunBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Count <= 0 {
		return apperrors.NewValidationError("count must be positive", map[string]any{"count": req.Count})
	}

	run, err := h.batch.RunBatch(c.UserContext(), req.Count)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": batchRunResponse(run)})
}

// GetRun GET /batch/runs/:id.
func (h *BatchHandler) GetRun(c *fiber.Ctx) error {
	run, err := h.batch.GetRun(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": batchRunResponse(run)})
}

func batchRunResponse(run *service.BatchRun) dto.BatchRunResponse {
	rows := make([]dto.BatchRowResponse, 0, len(run.Processed))
	for i := range run.Processed {
		rows = append(rows, batchRowResponse(&run.Processed[i]))
	}
	return dto.BatchRunResponse{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Processed:  rows,
	}
}

func batchRowResponse(row *service.RowResult) dto.BatchRowResponse {
	resp := dto.BatchRowResponse{
		CustomerEmail: row.CustomerEmail,
		TicketID:      row.TicketID,
		Error:         row.Error,
	}
	if row.Classification != nil {
		classification := classifyResponse(row.Classification)
		resp.Classification = &classification
	}
	if row.Issue != nil {
		issue := openIssueResponse(row.Issue)
		resp.Issue = &issue
	}
	if row.Notification != nil {
		notification := notifyResponse(row.Notification)
		resp.Notification = &notification
	}
	if row.Draft != nil {
		draft := draftResponse(row.Draft)
		resp.Draft = &draft
	}
	if row.Email != nil {
		email := sendEmailResponse(row.Email)
		resp.Email = &email
	}
	return resp
}
