package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

// TicketService covers ticket intake, reads, and the comment thread.
// Lifecycle mutations live in WorkflowService and EscalationService.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	directory   Directory
	publisher   events.Publisher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	Directory      Directory
	Publisher      events.Publisher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    int
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		directory:   deps.Directory,
		publisher:   deps.Publisher,
		logger:      deps.Logger,
	}
}

// CreateTicket files a new ticket in status NEW at the requester's site.
func (s *TicketService) CreateTicket(ctx context.Context, requesterID string, input TicketCreateInput) (*domain.Ticket, error) {
	requester, err := s.directory.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	priority := input.Priority
	if priority < domain.PriorityCritical || priority > domain.PriorityLow {
		priority = domain.PriorityMedium
	}

	ticket := &domain.Ticket{
		RequesterID:  requesterID,
		LocationID:   requester.LocationID,
		Title:        title,
		Description:  description,
		Status:       domain.TicketStatusNew,
		Priority:     priority,
		SupportLevel: domain.SupportLevel1,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, events.Event{
			Kind:     events.KindTicketCreated,
			TicketID: ticket.ID,
			ActorID:  requesterID,
			ToStatus: domain.TicketStatusNew,
		})
		if err != nil {
			s.logger.Error("event publish failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return ticket, nil
}

// GetTicketForRequester fetches a ticket ensuring ownership; internal
// comments are filtered out.
func (s *TicketService) GetTicketForRequester(ctx context.Context, userID, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.RequesterID != userID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	all, err := s.commentsWithAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	visible := make([]domain.Comment, 0, len(all))
	for _, comment := range all {
		if comment.Visibility == domain.VisibilityInternal {
			continue
		}
		visible = append(visible, comment)
	}
	return ticket, visible, nil
}

// GetTicketForOperator fetches a ticket with the full comment thread.
func (s *TicketService) GetTicketForOperator(ctx context.Context, actorID, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Role.IsOperator() {
		return nil, nil, apperrors.NewForbidden("operator role required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.commentsWithAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, comments, nil
}

// ListForRequester returns the requester's own tickets.
func (s *TicketService) ListForRequester(ctx context.Context, userID string, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		RequesterID: &userID,
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListForOperator returns tickets scoped to the operator's site; admins see
// every site.
func (s *TicketService) ListForOperator(ctx context.Context, actorID string, filter TicketListFilter) ([]domain.Ticket, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsOperator() {
		return nil, apperrors.NewForbidden("operator role required")
	}
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if actor.Role != domain.RoleAdmin {
		locationID := actor.LocationID
		repoFilter.LocationID = &locationID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddComment appends a comment. Requesters may only post public comments on
// their own tickets; operators may also post internal notes.
func (s *TicketService) AddComment(ctx context.Context, actorID, ticketID, body string, visibility domain.CommentVisibility) (*domain.Comment, error) {
	actor, err := s.directory.GetProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsOperator() {
		if ticket.RequesterID != actorID {
			return nil, apperrors.NewForbidden("access denied")
		}
		if visibility != domain.VisibilityPublic {
			return nil, apperrors.NewForbidden("requesters may only post public comments")
		}
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   &actorID,
		Visibility: visibility,
		Body:       body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return comment, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) commentsWithAttachments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range comments {
		attachments, err := s.attachments.ListByComment(ctx, comments[i].ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		comments[i].Attachments = attachments
	}
	return comments, nil
}
