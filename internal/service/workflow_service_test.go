package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

type workflowFixture struct {
	svc         *WorkflowService
	tickets     *fakeTicketRepo
	comments    *fakeCommentRepo
	attachments *fakeAttachmentRepo
	history     *fakeHistoryRepo
	publisher   *capturingPublisher
	directory   *fakeDirectory
}

func newWorkflowFixture(tickets ...*domain.Ticket) *workflowFixture {
	f := &workflowFixture{
		tickets:     newFakeTicketRepo(tickets...),
		comments:    &fakeCommentRepo{},
		attachments: &fakeAttachmentRepo{},
		history:     &fakeHistoryRepo{},
		publisher:   &capturingPublisher{},
		directory:   newFakeDirectory(),
	}
	f.directory.addUser("req-1", "Dana Requester", domain.RoleRequester, "loc-1")
	f.directory.addUser("agent-1", "Avery Tier One", domain.RoleAgentTier1, "loc-1")
	f.directory.addUser("agent-2", "Blake Tier Two", domain.RoleAgentTier2, "loc-1")
	f.directory.addUser("sup-1", "Casey Supervisor", domain.RoleSupervisor, "loc-1")

	f.svc = NewWorkflowService(WorkflowDependencies{
		TicketRepo:     f.tickets,
		CommentRepo:    f.comments,
		AttachmentRepo: f.attachments,
		HistoryRepo:    f.history,
		Authorizer:     NewAuthorizer(),
		Directory:      f.directory,
		Publisher:      f.publisher,
		Logger:         zap.NewNop(),
	})
	return f
}

func strPtr(s string) *string { return &s }

func newTicket(id string, status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{
		ID:           id,
		Number:       101,
		RequesterID:  "req-1",
		LocationID:   "loc-1",
		Title:        "Printer jam on floor 3",
		Description:  "Paper feed keeps jamming",
		Status:       status,
		Priority:     domain.PriorityMedium,
		SupportLevel: domain.SupportLevel1,
	}
}

func TestApplyTransitionAssignsTicket(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusNew))

	ticket, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID:   "t-1",
		From:       domain.TicketStatusNew,
		To:         domain.TicketStatusAssigned,
		ActorID:    "agent-1",
		AssigneeID: strPtr("agent-1"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent-1", *ticket.AssignedAgentID)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.TicketStatusNew, f.history.entries[0].FromStatus)
	assert.Equal(t, domain.TicketStatusAssigned, f.history.entries[0].ToStatus)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.KindTicketAssigned, published[0].Kind)
}

func TestApplyTransitionRejectsDisallowedMove(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusNew))

	_, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID: "t-1",
		From:     domain.TicketStatusNew,
		To:       domain.TicketStatusResolved,
		ActorID:  "agent-1",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	stored := f.tickets.stored("t-1")
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.publisher.published())
}

func TestApplyTransitionRequesterForbidden(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusNew))

	_, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID:   "t-1",
		From:       domain.TicketStatusNew,
		To:         domain.TicketStatusAssigned,
		ActorID:    "req-1",
		AssigneeID: strPtr("agent-1"),
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Zero(t, f.tickets.updates)
}

func TestApplyTransitionStaleFromConflicts(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusInProgress))

	_, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID: "t-1",
		From:     domain.TicketStatusAssigned,
		To:       domain.TicketStatusInProgress,
		ActorID:  "agent-1",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestApplyTransitionMissingAssignee(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusNew))

	_, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID: "t-1",
		From:     domain.TicketStatusNew,
		To:       domain.TicketStatusAssigned,
		ActorID:  "agent-1",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingAssignee))
}

func TestApplyTransitionReassignmentBypassesPolicy(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusAssigned)
	ticket.AssignedAgentID = strPtr("agent-1")
	f := newWorkflowFixture(ticket)

	updated, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID:   "t-1",
		From:       domain.TicketStatusAssigned,
		To:         domain.TicketStatusAssigned,
		ActorID:    "sup-1",
		AssigneeID: strPtr("agent-2"),
	})

	require.NoError(t, err)
	require.NotNil(t, updated.AssignedAgentID)
	assert.Equal(t, "agent-2", *updated.AssignedAgentID)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.KindTicketAssigned, published[0].Kind)
	require.NotNil(t, published[0].PreviousAssigneeID)
	assert.Equal(t, "agent-1", *published[0].PreviousAssigneeID)
}

func TestApplyTransitionSameStatusNoOp(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusInProgress))

	_, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID: "t-1",
		From:     domain.TicketStatusInProgress,
		To:       domain.TicketStatusInProgress,
		ActorID:  "agent-1",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Zero(t, f.tickets.updates)
}

func TestCloseRequiresResolutionText(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusResolved))

	_, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID:   "t-1",
		From:       domain.TicketStatusResolved,
		To:         domain.TicketStatusClosed,
		ActorID:    "agent-1",
		Resolution: "too short",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeResolutionRequired))

	stored := f.tickets.stored("t-1")
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	assert.Nil(t, stored.ClosedAt)
	assert.Empty(t, f.comments.all())
	assert.Empty(t, f.publisher.published())
}

func TestCloseWritesResolutionCommentAndEvidence(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusResolved)
	ticket.AssignedAgentID = strPtr("agent-1")
	f := newWorkflowFixture(ticket)

	closed, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID:   "t-1",
		From:       domain.TicketStatusResolved,
		To:         domain.TicketStatusClosed,
		ActorID:    "agent-1",
		Resolution: "Replaced the paper feed roller and ran ten clean test pages.",
		Evidence: []EvidenceInput{
			{StorageKey: "evidence/t-1/photo.jpg", FileName: "photo.jpg", MimeType: "image/jpeg", SizeBytes: 2048},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, "agent-1", *closed.ClosedBy)
	require.NotNil(t, closed.ResolutionText)

	comments := f.comments.all()
	require.Len(t, comments, 1)
	assert.Equal(t, domain.VisibilityPublic, comments[0].Visibility)
	assert.Contains(t, comments[0].Body, "Replaced the paper feed roller")

	require.Len(t, f.attachments.attachments, 1)
	assert.Equal(t, comments[0].ID, f.attachments.attachments[0].CommentID)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.KindTicketClosed, published[0].Kind)
}

func TestCloseSurvivesHistoryWriteFailure(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusResolved))
	f.history.createErr = assert.AnError

	_, err := f.svc.ApplyTransition(context.Background(), TransitionCommand{
		TicketID:   "t-1",
		From:       domain.TicketStatusResolved,
		To:         domain.TicketStatusClosed,
		ActorID:    "agent-1",
		Resolution: "Cleared the jam and recalibrated both feed trays.",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, f.tickets.stored("t-1").Status)
	require.Len(t, f.publisher.published(), 1)
}

func TestReopenAsOperatorTakesOwnership(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusClosed)
	closedAt := time.Now().Add(-48 * time.Hour)
	ticket.ClosedAt = &closedAt
	ticket.ClosedBy = strPtr("agent-1")
	ticket.AssignedAgentID = strPtr("agent-1")
	f := newWorkflowFixture(ticket)

	reopened, err := f.svc.ReopenAsOperator(context.Background(), "t-1", "agent-2", "customer reports jam returned")

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, reopened.Status)
	require.NotNil(t, reopened.AssignedAgentID)
	assert.Equal(t, "agent-2", *reopened.AssignedAgentID)
	assert.Nil(t, reopened.ClosedAt)
	assert.Nil(t, reopened.ClosedBy)

	comments := f.comments.all()
	require.Len(t, comments, 1)
	assert.Equal(t, domain.VisibilityInternal, comments[0].Visibility)
	assert.Contains(t, comments[0].Body, "Reopened:")
}

func TestReopenAsOperatorRequiresReason(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusClosed)
	closedAt := time.Now()
	ticket.ClosedAt = &closedAt
	f := newWorkflowFixture(ticket)

	_, err := f.svc.ReopenAsOperator(context.Background(), "t-1", "agent-1", "short")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Equal(t, domain.TicketStatusClosed, f.tickets.stored("t-1").Status)
}

func TestReopenAsRequesterSameDayKeepsAssignee(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusClosed)
	closedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	ticket.ClosedAt = &closedAt
	ticket.ClosedBy = strPtr("agent-1")
	ticket.AssignedAgentID = strPtr("agent-1")
	f := newWorkflowFixture(ticket)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC) }

	reopened, err := f.svc.ReopenAsRequester(context.Background(), "t-1", "req-1", "issue came back")

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, reopened.Status)
	require.NotNil(t, reopened.AssignedAgentID)
	assert.Equal(t, "agent-1", *reopened.AssignedAgentID)
}

func TestReopenAsRequesterRejectedAfterClosureDay(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusClosed)
	closedAt := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
	ticket.ClosedAt = &closedAt
	f := newWorkflowFixture(ticket)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC) }

	_, err := f.svc.ReopenAsRequester(context.Background(), "t-1", "req-1", "issue came back")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Equal(t, domain.TicketStatusClosed, f.tickets.stored("t-1").Status)
}

func TestReopenAsRequesterOwnershipEnforced(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusClosed)
	closedAt := time.Now()
	ticket.ClosedAt = &closedAt
	f := newWorkflowFixture(ticket)
	f.directory.addUser("req-2", "Other Requester", domain.RoleRequester, "loc-1")

	_, err := f.svc.ReopenAsRequester(context.Background(), "t-1", "req-2", "not my ticket")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestSoftDeleteHidesTicket(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusNew))

	err := f.svc.SoftDelete(context.Background(), "t-1", "sup-1", "duplicate of #95")
	require.NoError(t, err)

	_, err = f.svc.History(context.Background(), "t-1", "sup-1")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Empty(t, f.publisher.published())
}

func TestSoftDeleteRequiresReason(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusNew))

	err := f.svc.SoftDelete(context.Background(), "t-1", "sup-1", "   ")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestHistoryIsOperatorOnly(t *testing.T) {
	f := newWorkflowFixture(newTicket("t-1", domain.TicketStatusNew))

	_, err := f.svc.History(context.Background(), "t-1", "req-1")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}
