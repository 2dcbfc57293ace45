package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/servicedesk/internal/api/dto"
	"github.com/helpdesk-kit/servicedesk/internal/auth"
	"github.com/helpdesk-kit/servicedesk/internal/service"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

// NotificationsHandler serves the in-app inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List GET /notifications. Always scoped to the authenticated user.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	unreadOnly := c.Query("unread") == "true"
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	items, err := h.notifications.ListForRecipient(c.Context(), principal.User.ID, unreadOnly, limit, offset)
	if err != nil {
		return err
	}

	payload := make([]dto.NotificationPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, dto.NotificationPayload{
			ID:        item.ID,
			Type:      string(item.Type),
			Title:     item.Title,
			Message:   item.Message,
			TicketID:  item.TicketID,
			IsRead:    item.IsRead,
			ReadAt:    item.ReadAt,
			CreatedAt: item.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": payload})
}

// MarkRead PATCH /notifications/:id/read. Recipients can only touch their own rows.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.notifications.MarkRead(c.Context(), c.Params("id"), principal.User.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
