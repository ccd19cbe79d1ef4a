package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-orchestrator/internal/api/dto"
	"github.com/spec-kit/support-orchestrator/internal/domain"
	"github.com/spec-kit/support-orchestrator/internal/service"
	apperrors "github.com/spec-kit/support-orchestrator/pkg/util/errorutil"
)

// PipelineHandler exposes each pipeline step as an endpoint so a single
// failed step can be retried without re-running the sequence.
type PipelineHandler struct {
	pipeline *service.PipelineService
}

// NewPipelineHandler constructs handler.
func NewPipelineHandler(pipeline *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

// CreateTicket POST /tickets.
func (h *PipelineHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.CustomerEmail) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("customer_email and description required", nil)
	}

	result, err := h.pipeline.CreateTicket(c.UserContext(), service.CreateTicketInput{
		CustomerEmail:    req.CustomerEmail,
		Description:      req.Description,
		ProductPurchased: req.ProductPurchased,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		TicketID:      result.TicketID,
		CustomerEmail: result.CustomerEmail,
		CustomerName:  result.CustomerName,
		Status:        result.Status,
	}})
}

// GetTicket GET /tickets/:id.
func (h *PipelineHandler) GetTicket(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.pipeline.GetTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Classify POST /tickets/:id/classify.
func (h *PipelineHandler) Classify(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	result, err := h.pipeline.Classify(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": classifyResponse(result)})
}

// OpenIssue POST /tickets/:id/issue.
func (h *PipelineHandler) OpenIssue(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	result, err := h.pipeline.OpenIssue(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": openIssueResponse(result)})
}

// Notify POST /tickets/:id/notify.
func (h *PipelineHandler) Notify(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	result, err := h.pipeline.Notify(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notifyResponse(result)})
}

// Draft POST /tickets/:id/draft.
func (h *PipelineHandler) Draft(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	result, err := h.pipeline.Draft(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": draftResponse(result)})
}

// SendEmail POST /tickets/:id/email.
func (h *PipelineHandler) SendEmail(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	result, err := h.pipeline.SendEmail(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sendEmailResponse(result)})
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func classifyResponse(result *service.ClassifyResult) dto.ClassifyResponse {
	return dto.ClassifyResponse{
		TicketID:  result.TicketID,
		IssueType: result.IssueType,
		Error:     result.Error,
	}
}

func openIssueResponse(result *service.OpenIssueResult) dto.OpenIssueResponse {
	return dto.OpenIssueResponse{
		TicketID:   result.TicketID,
		TrackerKey: result.TrackerKey,
		Outcome:    result.Outcome,
		Error:      result.Error,
	}
}

func notifyResponse(result *service.NotifyResult) dto.NotifyResponse {
	return dto.NotifyResponse{
		TicketID:         result.TicketID,
		NotificationSent: result.NotificationSent,
		Error:            result.Error,
	}
}

func draftResponse(result *service.DraftResult) dto.DraftResponse {
	return dto.DraftResponse{
		TicketID:   result.TicketID,
		DraftEmail: result.DraftEmail,
		Error:      result.Error,
	}
}

func sendEmailResponse(result *service.SendEmailResult) dto.SendEmailResponse {
	return dto.SendEmailResponse{
		TicketID:  result.TicketID,
		EmailSent: result.EmailSent,
		Error:     result.Error,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketID:         ticket.ID,
		CustomerEmail:    ticket.CustomerEmail,
		Description:      ticket.Description,
		ProductPurchased: ticket.ProductPurchased,
		IssueType:        ticket.IssueType,
		TrackerKey:       ticket.TrackerKey,
		EmailDraft:       ticket.EmailDraft,
		Status:           ticket.Status,
		NotificationSent: ticket.NotificationSent,
		EmailSent:        ticket.EmailSent,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}
