package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/mailer"
	"github.com/helpdesk-kit/servicedesk/internal/observability"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

// operatorRoles are the co-located site staff notified on ticket activity.
var operatorRoles = []domain.Role{domain.RoleAgentTier1, domain.RoleAgentTier2, domain.RoleSupervisor}

// NotificationService computes the audience for a workflow event, records an
// in-app notification row per recipient, and hands each one a rendering job
// to the mail collaborator. Every recipient is attempted independently: one
// failure never aborts the rest.
type NotificationService struct {
	tickets       repository.TicketRepository
	notifications repository.NotificationRepository
	directory     Directory
	mail          mailer.Mailer
	metrics       *observability.Metrics
	logger        *zap.Logger
	baseURL       string
}

// NotificationDependencies bundles collaborators for the dispatcher.
type NotificationDependencies struct {
	TicketRepo       repository.TicketRepository
	NotificationRepo repository.NotificationRepository
	Directory        Directory
	Mailer           mailer.Mailer
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	BaseURL          string
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		tickets:       deps.TicketRepo,
		notifications: deps.NotificationRepo,
		directory:     deps.Directory,
		mail:          deps.Mailer,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		baseURL:       deps.BaseURL,
	}
}

type recipient struct {
	userID string
	kind   domain.NotificationType
	title  string
	body   string
}

// Dispatch fans a workflow event out to its audience. An error is returned
// only when the event cannot be processed at all (ticket lookup failure);
// per-recipient failures are logged and skipped.
func (s *NotificationService) Dispatch(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Deleted since the event was enqueued; nothing to notify.
			s.logger.Info("dropping event for missing ticket", zap.String("ticket_id", event.TicketID))
			return nil
		}
		return err
	}

	recipients, err := s.audience(ctx, ticket, event)
	if err != nil {
		return err
	}

	actorName := s.displayName(ctx, event.ActorID)
	for _, rcp := range recipients {
		s.deliverTo(ctx, ticket, event, rcp, actorName)
	}
	return nil
}

func (s *NotificationService) audience(ctx context.Context, ticket *domain.Ticket, event events.Event) ([]recipient, error) {
	title := fmt.Sprintf("Ticket #%d", ticket.Number)
	seen := map[string]struct{}{}
	var out []recipient

	add := func(userID string, kind domain.NotificationType, body string) {
		if userID == "" {
			return
		}
		if _, dup := seen[userID]; dup {
			return
		}
		seen[userID] = struct{}{}
		out = append(out, recipient{userID: userID, kind: kind, title: title, body: body})
	}

	switch event.Kind {
	case events.KindTicketCreated:
		add(ticket.RequesterID, domain.NotificationTicketCreated,
			fmt.Sprintf("Your ticket #%d (%s) has been filed.", ticket.Number, ticket.Title))
		staff, err := s.directory.ListByLocationAndRole(ctx, ticket.LocationID, operatorRoles)
		if err != nil {
			return nil, err
		}
		for _, profile := range staff {
			if profile.UserID == event.ActorID {
				continue
			}
			add(profile.UserID, domain.NotificationTicketCreated,
				fmt.Sprintf("New ticket #%d (%s) at your site.", ticket.Number, ticket.Title))
		}

	case events.KindTicketAssigned:
		if event.AssigneeID != nil {
			add(*event.AssigneeID, domain.NotificationTicketAssigned,
				fmt.Sprintf("Ticket #%d (%s) was assigned to you.", ticket.Number, ticket.Title))
		}
		add(ticket.RequesterID, domain.NotificationTicketAssigned,
			fmt.Sprintf("Ticket #%d (%s) was assigned to an agent.", ticket.Number, ticket.Title))

	case events.KindTicketClosed:
		add(ticket.RequesterID, domain.NotificationTicketClosed,
			fmt.Sprintf("Ticket #%d (%s) has been closed.", ticket.Number, ticket.Title))

	case events.KindTicketEscalated:
		if event.AssigneeID != nil {
			add(*event.AssigneeID, domain.NotificationTicketEscalated,
				fmt.Sprintf("Escalated ticket #%d (%s) was assigned to you.", ticket.Number, ticket.Title))
		}
		add(ticket.RequesterID, domain.NotificationTicketEscalated,
			fmt.Sprintf("Ticket #%d (%s) was escalated to specialist support.", ticket.Number, ticket.Title))
		if event.PreviousAssigneeID != nil {
			add(*event.PreviousAssigneeID, domain.NotificationEscalationApproved,
				fmt.Sprintf("Your escalation of ticket #%d (%s) was approved.", ticket.Number, ticket.Title))
		}

	case events.KindEscalationRequested:
		// Supervisors co-located with the requesting agent, not the ticket site.
		actor, err := s.directory.GetProfile(ctx, event.ActorID)
		if err != nil {
			return nil, err
		}
		supervisors, err := s.directory.ListByLocationAndRole(ctx, actor.LocationID, []domain.Role{domain.RoleSupervisor})
		if err != nil {
			return nil, err
		}
		for _, profile := range supervisors {
			add(profile.UserID, domain.NotificationEscalationRequested,
				fmt.Sprintf("Escalation requested for ticket #%d (%s).", ticket.Number, ticket.Title))
		}

	default: // generic status change
		add(ticket.RequesterID, domain.NotificationStatusChanged,
			fmt.Sprintf("Ticket #%d (%s) is now %s.", ticket.Number, ticket.Title, statusLabel(event.ToStatus)))
		if ticket.AssignedAgentID != nil && *ticket.AssignedAgentID != ticket.RequesterID {
			add(*ticket.AssignedAgentID, domain.NotificationStatusChanged,
				fmt.Sprintf("Ticket #%d (%s) is now %s.", ticket.Number, ticket.Title, statusLabel(event.ToStatus)))
		}
		staff, err := s.directory.ListByLocationAndRole(ctx, ticket.LocationID, operatorRoles)
		if err != nil {
			return nil, err
		}
		for _, profile := range staff {
			if profile.UserID == event.ActorID {
				continue
			}
			add(profile.UserID, domain.NotificationStatusChanged,
				fmt.Sprintf("Ticket #%d (%s) moved to %s.", ticket.Number, ticket.Title, statusLabel(event.ToStatus)))
		}
	}

	// The acting user never needs a notification about their own action.
	filtered := out[:0]
	for _, rcp := range out {
		if rcp.userID == event.ActorID && rcp.kind != domain.NotificationEscalationApproved {
			continue
		}
		filtered = append(filtered, rcp)
	}
	return filtered, nil
}

func (s *NotificationService) deliverTo(ctx context.Context, ticket *domain.Ticket, event events.Event, rcp recipient, actorName string) {
	actorID := event.ActorID
	row := &domain.Notification{
		RecipientID: rcp.userID,
		Type:        rcp.kind,
		Title:       rcp.title,
		Message:     rcp.body,
		TicketID:    ticket.ID,
		ActorID:     &actorID,
	}
	if err := s.notifications.Create(ctx, row); err != nil {
		s.logger.Warn("notification row create failed",
			zap.String("recipient_id", rcp.userID),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}

	email, err := s.directory.GetEmail(ctx, rcp.userID)
	if err != nil || email == nil {
		s.logger.Warn("recipient has no deliverable address",
			zap.String("recipient_id", rcp.userID), zap.Error(err))
		s.metrics.RecordDelivery(string(event.Kind), false)
		return
	}

	profile, err := s.directory.GetProfile(ctx, rcp.userID)
	recipientName := rcp.userID
	if err == nil {
		recipientName = profile.DisplayName
	}

	msg := mailer.Message{
		To:            *email,
		RecipientName: recipientName,
		Kind:          kindLabel(event.Kind, rcp.kind),
		TicketNumber:  ticket.Number,
		TicketTitle:   ticket.Title,
		Priority:      ticket.Priority,
		FromStatus:    statusLabel(event.FromStatus),
		ToStatus:      statusLabel(event.ToStatus),
		ActorName:     actorName,
		TicketURL:     fmt.Sprintf("%s/tickets/%s", s.baseURL, ticket.ID),
	}
	if err := s.mail.Deliver(ctx, msg); err != nil {
		s.logger.Warn("mail delivery failed",
			zap.String("recipient_id", rcp.userID),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		s.metrics.RecordDelivery(string(event.Kind), false)
		return
	}
	s.metrics.RecordDelivery(string(event.Kind), true)
}

// ListForRecipient returns a user's in-app notifications.
func (s *NotificationService) ListForRecipient(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	notifications, err := s.notifications.ListByRecipient(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notifications, nil
}

// MarkRead flips the read flag; only the recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	if err := s.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *NotificationService) displayName(ctx context.Context, userID string) string {
	if userID == "" {
		return "system"
	}
	profile, err := s.directory.GetProfile(ctx, userID)
	if err != nil {
		return userID
	}
	return profile.DisplayName
}

// kindLabel picks the mail variant: a previous assignee on an escalation gets
// the dedicated approval message rather than the generic one.
func kindLabel(eventKind events.Kind, notifType domain.NotificationType) string {
	if notifType == domain.NotificationEscalationApproved {
		return "escalation_approved"
	}
	return string(eventKind)
}

var statusLabels = map[domain.TicketStatus]string{
	domain.TicketStatusNew:               "New",
	domain.TicketStatusAssigned:          "Assigned",
	domain.TicketStatusInProgress:        "In Progress",
	domain.TicketStatusNeedsInfo:         "Needs Info",
	domain.TicketStatusWaitingThirdParty: "Waiting on Third Party",
	domain.TicketStatusResolved:          "Resolved",
	domain.TicketStatusClosed:            "Closed",
}

func statusLabel(status domain.TicketStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}
