package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

// EscalationMarker tags the audit comment written for an escalation request.
// The comment is history only; the escalation_requests row is the source of truth.
const EscalationMarker = "[ESCALATION-REQUEST]"

// EscalationService manages the level-1 to level-2 handoff: direct escalation
// by tier-2+ roles and the request/approval subflow initiated by tier-1 agents.
type EscalationService struct {
	tickets   repository.TicketRepository
	comments  repository.CommentRepository
	requests  repository.EscalationRequestRepository
	history   repository.StatusHistoryRepository
	authz     Authorizer
	directory Directory
	publisher events.Publisher
	logger    *zap.Logger
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	RequestRepo repository.EscalationRequestRepository
	HistoryRepo repository.StatusHistoryRepository
	Authorizer  Authorizer
	Directory   Directory
	Publisher   events.Publisher
	Logger      *zap.Logger
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		tickets:   deps.TicketRepo,
		comments:  deps.CommentRepo,
		requests:  deps.RequestRepo,
		history:   deps.HistoryRepo,
		authz:     deps.Authorizer,
		directory: deps.Directory,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}
}

// Escalate hands a ticket to a named tier-2 agent. Support level only ever
// moves 1 to 2; a ticket already at level 2 is rejected without mutation.
func (s *EscalationService) Escalate(ctx context.Context, ticketID, targetAgentID, actorID string) (*domain.Ticket, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanPerform(actor.Role, OpEscalate) {
		return nil, apperrors.NewForbidden("role cannot escalate tickets")
	}
	if strings.TrimSpace(targetAgentID) == "" {
		return nil, apperrors.NewMissingTarget()
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	// CLOSED is left only through reopen; escalation must not clear a closure.
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusAssigned))
	}
	if ticket.SupportLevel == domain.SupportLevel2 {
		return nil, apperrors.NewAlreadyEscalated(ticket.ID)
	}

	target, err := s.directory.GetProfile(ctx, targetAgentID)
	if err != nil {
		return nil, err
	}
	if !target.Role.IsTier2OrAbove() {
		return nil, apperrors.NewInvalidTarget(targetAgentID)
	}

	// Previous agent for the approval notification: the on-record assignee,
	// or the author of the latest pending request when none is recorded.
	previousAgent := ticket.AssignedAgentID
	pending, err := s.requests.LatestPending(ctx, ticket.ID)
	if err != nil && !errors.Is(err, repository.ErrNoPendingRequest) {
		s.logger.Warn("pending escalation request lookup failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	if previousAgent == nil && pending != nil {
		requestedBy := pending.RequestedBy
		previousAgent = &requestedBy
	}

	fromStatus := ticket.Status
	ticket.SupportLevel = domain.SupportLevel2
	ticket.AssignedAgentID = &targetAgentID
	ticket.Status = domain.TicketStatusAssigned

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if pending != nil {
		if err := s.requests.Resolve(ctx, pending.ID, domain.EscalationApproved, actorID); err != nil {
			s.logger.Warn("escalation request resolution failed",
				zap.String("request_id", pending.ID), zap.Error(err))
		}
	}

	s.writeComment(ctx, ticket.ID, actorID, fmt.Sprintf(
		"Escalated to level 2 by %s; now assigned to %s.", actor.DisplayName, target.DisplayName))
	s.recordHistory(ctx, ticket.ID, fromStatus, domain.TicketStatusAssigned, actorID, "escalated to level 2")

	s.publish(ctx, events.Event{
		Kind:               events.KindTicketEscalated,
		TicketID:           ticket.ID,
		ActorID:            actorID,
		FromStatus:         fromStatus,
		ToStatus:           domain.TicketStatusAssigned,
		AssigneeID:         &targetAgentID,
		PreviousAssigneeID: previousAgent,
	})
	return ticket, nil
}

// RequestEscalation records a tier-1 agent asking for a level-2 handoff.
// Supervisors are resolved first: when the location has none, the call fails
// before anything is written.
func (s *EscalationService) RequestEscalation(ctx context.Context, ticketID, actorID, reason string) (*domain.EscalationRequest, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanPerform(actor.Role, OpRequestEscalation) {
		return nil, apperrors.NewForbidden("only tier-1 agents may request escalation")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("escalation reason required", nil)
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.SupportLevel != domain.SupportLevel1 {
		return nil, apperrors.NewAlreadyEscalated(ticket.ID)
	}

	supervisors, err := s.directory.ListByLocationAndRole(ctx, actor.LocationID, []domain.Role{domain.RoleSupervisor})
	if err != nil {
		return nil, err
	}
	if len(supervisors) == 0 {
		return nil, apperrors.NewNoSupervisorAvailable(actor.LocationID)
	}

	request := &domain.EscalationRequest{
		TicketID:    ticket.ID,
		RequestedBy: actorID,
		Reason:      reason,
		Status:      domain.EscalationPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.writeComment(ctx, ticket.ID, actorID, EscalationMarker+" "+reason)

	s.publish(ctx, events.Event{
		Kind:     events.KindEscalationRequested,
		TicketID: ticket.ID,
		ActorID:  actorID,
	})
	return request, nil
}

func (s *EscalationService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *EscalationService) writeComment(ctx context.Context, ticketID, actorID, body string) {
	comment := &domain.Comment{
		TicketID:   ticketID,
		AuthorID:   &actorID,
		Visibility: domain.VisibilityPublic,
		Body:       body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Warn("escalation comment write failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *EscalationService) recordHistory(ctx context.Context, ticketID string, from, to domain.TicketStatus, actorID, note string) {
	entry := &domain.StatusHistoryEntry{
		TicketID:   ticketID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    &actorID,
		Note:       note,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("status history append failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *EscalationService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
	}
}
