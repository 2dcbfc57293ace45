package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/servicedesk/internal/api/dto"
	"github.com/helpdesk-kit/servicedesk/internal/auth"
	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/service"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

// WorkflowHandler exposes the ticket lifecycle command surface.
type WorkflowHandler struct {
	workflow   *service.WorkflowService
	escalation *service.EscalationService
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(workflow *service.WorkflowService, escalation *service.EscalationService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow, escalation: escalation}
}

// Transition POST /tickets/:id/transition.
func (h *WorkflowHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cmd := service.TransitionCommand{
		TicketID:   c.Params("id"),
		From:       domain.TicketStatus(req.From),
		To:         domain.TicketStatus(req.To),
		ActorID:    principal.User.ID,
		AssigneeID: req.AssigneeID,
		Resolution: req.Resolution,
		Note:       req.Note,
	}
	for _, item := range req.Evidence {
		cmd.Evidence = append(cmd.Evidence, service.EvidenceInput{
			StorageKey: item.StorageKey,
			FileName:   item.FileName,
			MimeType:   item.MimeType,
			SizeBytes:  item.SizeBytes,
		})
	}

	ticket, err := h.workflow.ApplyTransition(c.Context(), cmd)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Reopen POST /tickets/:id/reopen. Operators and the original requester take
// different precondition paths.
func (h *WorkflowHandler) Reopen(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReopenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var (
		ticket *domain.Ticket
		err    error
	)
	if principal.Role.IsOperator() {
		ticket, err = h.workflow.ReopenAsOperator(c.Context(), c.Params("id"), principal.User.ID, req.Reason)
	} else {
		ticket, err = h.workflow.ReopenAsRequester(c.Context(), c.Params("id"), principal.User.ID, req.Reason)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Escalate POST /tickets/:id/escalate.
func (h *WorkflowHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.escalation.Escalate(c.Context(), c.Params("id"), req.TargetAgentID, principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// RequestEscalation POST /tickets/:id/escalation-requests.
func (h *WorkflowHandler) RequestEscalation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RequestEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.escalation.RequestEscalation(c.Context(), c.Params("id"), principal.User.ID, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":         request.ID,
		"ticket_id":  request.TicketID,
		"status":     request.Status,
		"reason":     request.Reason,
		"created_at": request.CreatedAt,
	}})
}

// SoftDelete DELETE /tickets/:id.
func (h *WorkflowHandler) SoftDelete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SoftDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.workflow.SoftDelete(c.Context(), c.Params("id"), principal.User.ID, req.Reason); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
