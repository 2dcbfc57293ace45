package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

const (
	minResolutionLength   = 20
	minReopenReasonLength = 10
)

// WorkflowService orchestrates single-ticket mutations: status transitions,
// reopen, and soft delete. The ticket row update is the primary effect;
// history, comments and attachments are best-effort secondary effects, and
// notification dispatch is decoupled through the outbox publisher.
type WorkflowService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	history     repository.StatusHistoryRepository
	authz       Authorizer
	directory   Directory
	publisher   events.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.StatusHistoryRepository
	Authorizer     Authorizer
	Directory      Directory
	Publisher      events.Publisher
	Logger         *zap.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		authz:       deps.Authorizer,
		directory:   deps.Directory,
		publisher:   deps.Publisher,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// EvidenceInput describes an attachment supplied with a closure.
type EvidenceInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// TransitionCommand describes a requested status move.
type TransitionCommand struct {
	TicketID   string
	From       domain.TicketStatus
	To         domain.TicketStatus
	ActorID    string
	AssigneeID *string
	Resolution string
	Note       string
	Evidence   []EvidenceInput
}

// ApplyTransition validates and applies a single status transition.
func (s *WorkflowService) ApplyTransition(ctx context.Context, cmd TransitionCommand) (*domain.Ticket, error) {
	actor, err := s.directory.GetProfile(ctx, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanPerform(actor.Role, OpApplyTransition) {
		return nil, apperrors.NewForbidden("role cannot apply ticket transitions")
	}

	ticket, err := s.getTicket(ctx, cmd.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != cmd.From {
		return nil, apperrors.NewConflict("ticket status changed since read",
			map[string]any{"current": ticket.Status, "expected": cmd.From})
	}

	reassignment := cmd.From == cmd.To &&
		cmd.To == domain.TicketStatusAssigned &&
		cmd.AssigneeID != nil &&
		(ticket.AssignedAgentID == nil || *ticket.AssignedAgentID != *cmd.AssigneeID)
	if cmd.From == cmd.To && !reassignment {
		return nil, apperrors.NewValidationError("transition is a no-op", nil)
	}
	if !reassignment && !IsAllowedTransition(cmd.From, cmd.To) {
		return nil, apperrors.NewInvalidTransition(string(cmd.From), string(cmd.To))
	}
	if cmd.To == domain.TicketStatusAssigned && cmd.AssigneeID == nil {
		return nil, apperrors.NewMissingAssignee()
	}

	resolution := strings.TrimSpace(cmd.Resolution)
	if cmd.To == domain.TicketStatusClosed && len(resolution) < minResolutionLength {
		return nil, apperrors.NewResolutionRequired(minResolutionLength)
	}

	previousAssignee := ticket.AssignedAgentID
	ticket.Status = cmd.To
	if cmd.To == domain.TicketStatusAssigned {
		ticket.AssignedAgentID = cmd.AssigneeID
	}
	if cmd.To == domain.TicketStatusClosed {
		now := s.now()
		actorID := cmd.ActorID
		ticket.ClosedAt = &now
		ticket.ClosedBy = &actorID
		ticket.ResolutionText = &resolution
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordHistory(ctx, ticket.ID, cmd.From, cmd.To, cmd.ActorID, cmd.Note)
	if cmd.To == domain.TicketStatusClosed {
		s.writeClosureComment(ctx, ticket, cmd.ActorID, resolution, cmd.Evidence)
	}

	s.publish(ctx, events.Event{
		Kind:               kindForTransition(cmd.To),
		TicketID:           ticket.ID,
		ActorID:            cmd.ActorID,
		FromStatus:         cmd.From,
		ToStatus:           cmd.To,
		AssigneeID:         ticket.AssignedAgentID,
		PreviousAssigneeID: previousAssignee,
	})
	return ticket, nil
}

// ReopenAsOperator moves a closed ticket back to IN_PROGRESS and takes ownership.
func (s *WorkflowService) ReopenAsOperator(ctx context.Context, ticketID, actorID, reason string) (*domain.Ticket, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanPerform(actor.Role, OpReopen) {
		return nil, apperrors.NewForbidden("role cannot reopen tickets")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) < minReopenReasonLength {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("reopen reason must be at least %d characters", minReopenReasonLength), nil)
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusInProgress))
	}

	return s.reopen(ctx, ticket, actorID, reason, &actorID)
}

// ReopenAsRequester is the narrower self-service path: only the original
// requester, only on the calendar day the ticket was closed.
func (s *WorkflowService) ReopenAsRequester(ctx context.Context, ticketID, actorID, reason string) (*domain.Ticket, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanPerform(actor.Role, OpReopenSelfService) {
		return nil, apperrors.NewForbidden("self-service reopen is requester-only")
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != actorID {
		return nil, apperrors.NewForbidden("only the original requester may reopen")
	}
	if ticket.Status != domain.TicketStatusClosed || ticket.ClosedAt == nil {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusInProgress))
	}
	if !sameCalendarDay(*ticket.ClosedAt, s.now()) {
		return nil, apperrors.NewForbidden("self-service reopen is only available on the closure day")
	}

	// The previous assignee keeps ownership on the self-service path.
	return s.reopen(ctx, ticket, actorID, strings.TrimSpace(reason), ticket.AssignedAgentID)
}

func (s *WorkflowService) reopen(ctx context.Context, ticket *domain.Ticket, actorID, reason string, assignee *string) (*domain.Ticket, error) {
	ticket.Status = domain.TicketStatusInProgress
	ticket.AssignedAgentID = assignee
	ticket.ClosedAt = nil
	ticket.ClosedBy = nil

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordHistory(ctx, ticket.ID, domain.TicketStatusClosed, domain.TicketStatusInProgress, actorID, reason)
	if reason != "" {
		s.writeComment(ctx, ticket.ID, actorID, domain.VisibilityInternal, "Reopened: "+reason)
	}

	s.publish(ctx, events.Event{
		Kind:       events.KindStatusChanged,
		TicketID:   ticket.ID,
		ActorID:    actorID,
		FromStatus: domain.TicketStatusClosed,
		ToStatus:   domain.TicketStatusInProgress,
		AssigneeID: ticket.AssignedAgentID,
	})
	return ticket, nil
}

// SoftDelete marks a ticket deleted. Unconditional for operator roles,
// outside the transition policy; no notification is dispatched.
func (s *WorkflowService) SoftDelete(ctx context.Context, ticketID, actorID, reason string) error {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return err
	}
	if !s.authz.CanPerform(actor.Role, OpSoftDelete) {
		return apperrors.NewForbidden("role cannot delete tickets")
	}
	if strings.TrimSpace(reason) == "" {
		return apperrors.NewValidationError("deletion reason required", nil)
	}

	if err := s.tickets.SoftDelete(ctx, ticketID, actorID, strings.TrimSpace(reason)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// History returns the audit trail for a ticket, operator-only.
func (s *WorkflowService) History(ctx context.Context, ticketID, actorID string) ([]domain.StatusHistoryEntry, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanPerform(actor.Role, OpViewHistory) {
		return nil, apperrors.NewForbidden("role cannot view ticket history")
	}
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *WorkflowService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *WorkflowService) writeClosureComment(ctx context.Context, ticket *domain.Ticket, actorID, resolution string, evidence []EvidenceInput) {
	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   &actorID,
		Visibility: domain.VisibilityPublic,
		Body:       "Resolution: " + resolution,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("closure comment write failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	for _, item := range evidence {
		record := &domain.EvidenceAttachment{
			CommentID:  comment.ID,
			StorageKey: item.StorageKey,
			FileName:   item.FileName,
			MimeType:   item.MimeType,
			SizeBytes:  item.SizeBytes,
		}
		if err := s.attachments.Create(ctx, record); err != nil {
			s.logger.Warn("evidence attachment skipped",
				zap.String("ticket_id", ticket.ID),
				zap.String("file_name", item.FileName),
				zap.Error(err))
		}
	}
}

func (s *WorkflowService) writeComment(ctx context.Context, ticketID, actorID string, visibility domain.CommentVisibility, body string) {
	comment := &domain.Comment{
		TicketID:   ticketID,
		AuthorID:   &actorID,
		Visibility: visibility,
		Body:       body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Warn("comment write failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *WorkflowService) recordHistory(ctx context.Context, ticketID string, from, to domain.TicketStatus, actorID, note string) {
	entry := &domain.StatusHistoryEntry{
		TicketID:   ticketID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    &actorID,
		Note:       note,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("status history append failed",
			zap.String("ticket_id", ticketID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
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

func kindForTransition(to domain.TicketStatus) events.Kind {
	switch to {
	case domain.TicketStatusAssigned:
		return events.KindTicketAssigned
	case domain.TicketStatusClosed:
		return events.KindTicketClosed
	default:
		return events.KindStatusChanged
	}
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
