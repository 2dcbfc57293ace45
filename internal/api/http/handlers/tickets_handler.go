package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/servicedesk/internal/api/dto"
	"github.com/helpdesk-kit/servicedesk/internal/auth"
	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/service"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

// TicketsHandler manages ticket intake, reads, and the comment thread.
type TicketsHandler struct {
	tickets  *service.TicketService
	workflow *service.WorkflowService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, workflow *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, workflow: workflow}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CreateTicket(c.Context(), principal.User.ID, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTicketQuery(c)

	var (
		tickets []domain.Ticket
		err     error
	)
	if principal.Role.IsOperator() {
		tickets, err = h.tickets.ListForOperator(c.Context(), principal.User.ID, filter)
	} else {
		tickets, err = h.tickets.ListForRequester(c.Context(), principal.User.ID, filter)
	}
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var (
		ticket   *domain.Ticket
		comments []domain.Comment
		err      error
	)
	if principal.Role.IsOperator() {
		ticket, comments, err = h.tickets.GetTicketForOperator(c.Context(), principal.User.ID, c.Params("id"))
	} else {
		ticket, comments, err = h.tickets.GetTicketForRequester(c.Context(), principal.User.ID, c.Params("id"))
	}
	if err != nil {
		return err
	}

	detail := ticketDetail(ticket, comments)
	if principal.Role.IsOperator() {
		history, err := h.workflow.History(c.Context(), ticket.ID, principal.User.ID)
		if err == nil {
			detail.History = historyPayload(history)
		}
	}
	return c.JSON(fiber.Map{"data": detail})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	visibility := domain.VisibilityPublic
	if strings.EqualFold(req.Visibility, string(domain.VisibilityInternal)) {
		visibility = domain.VisibilityInternal
	}
	comment, err := h.tickets.AddComment(c.Context(), principal.User.ID, c.Params("id"), req.Body, visibility)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentPayload(comment)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, raw := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(raw))))
		}
	}
	if from := c.Query("created_from"); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			filter.CreatedFrom = &ts
		}
	}
	if to := c.Query("created_to"); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			filter.CreatedTo = &ts
		}
	}
	return filter
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		Number:          ticket.Number,
		Title:           ticket.Title,
		Status:          string(ticket.Status),
		Priority:        ticket.Priority,
		SupportLevel:    ticket.SupportLevel,
		LocationID:      ticket.LocationID,
		AssignedAgentID: ticket.AssignedAgentID,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		ClosedAt:        ticket.ClosedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, comments []domain.Comment) dto.TicketDetail {
	detail := dto.TicketDetail{
		TicketSummary:  ticketSummary(ticket),
		Description:    ticket.Description,
		RequesterID:    ticket.RequesterID,
		ResolutionText: ticket.ResolutionText,
		Comments:       make([]dto.CommentPayload, 0, len(comments)),
	}
	for i := range comments {
		detail.Comments = append(detail.Comments, commentPayload(&comments[i]))
	}
	return detail
}

func commentPayload(comment *domain.Comment) dto.CommentPayload {
	payload := dto.CommentPayload{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		Visibility: string(comment.Visibility),
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
	}
	for _, att := range comment.Attachments {
		payload.Attachments = append(payload.Attachments, dto.AttachmentPayload{
			ID:        att.ID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}
	return payload
}

func historyPayload(entries []domain.StatusHistoryEntry) []dto.HistoryPayload {
	result := make([]dto.HistoryPayload, 0, len(entries))
	for _, entry := range entries {
		result = append(result, dto.HistoryPayload{
			FromStatus: string(entry.FromStatus),
			ToStatus:   string(entry.ToStatus),
			ActorID:    entry.ActorID,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return result
}
