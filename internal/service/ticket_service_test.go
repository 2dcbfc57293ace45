package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

type ticketFixture struct {
	svc       *TicketService
	tickets   *fakeTicketRepo
	comments  *fakeCommentRepo
	publisher *capturingPublisher
	directory *fakeDirectory
}

func newTicketFixture(tickets ...*domain.Ticket) *ticketFixture {
	f := &ticketFixture{
		tickets:   newFakeTicketRepo(tickets...),
		comments:  &fakeCommentRepo{},
		publisher: &capturingPublisher{},
		directory: newFakeDirectory(),
	}
	f.directory.addUser("req-1", "Dana Requester", domain.RoleRequester, "loc-1")
	f.directory.addUser("agent-1", "Avery Tier One", domain.RoleAgentTier1, "loc-1")
	f.directory.addUser("admin-1", "Admin", domain.RoleAdmin, "loc-1")

	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:     f.tickets,
		CommentRepo:    f.comments,
		AttachmentRepo: &fakeAttachmentRepo{},
		Directory:      f.directory,
		Publisher:      f.publisher,
		Logger:         zap.NewNop(),
	})
	return f
}

func TestCreateTicketStartsNewAtRequesterSite(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.svc.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		Title:       "VPN drops every hour",
		Description: "Connection resets at minute 59 without fail",
		Priority:    domain.PriorityHigh,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, "loc-1", ticket.LocationID)
	assert.Equal(t, domain.SupportLevel1, ticket.SupportLevel)
	assert.Equal(t, domain.PriorityHigh, ticket.Priority)
	assert.NotZero(t, ticket.Number)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.KindTicketCreated, published[0].Kind)
}

func TestCreateTicketDefaultsOutOfRangePriority(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.svc.CreateTicket(context.Background(), "req-1", TicketCreateInput{
		Title:       "Monitor flickers",
		Description: "Only when the heater is on",
		Priority:    9,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, ticket.Priority)
}

func TestCreateTicketRequiresTitleAndDescription(t *testing.T) {
	f := newTicketFixture()

	_, err := f.svc.CreateTicket(context.Background(), "req-1", TicketCreateInput{Title: "  ", Description: "x"})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Empty(t, f.publisher.published())
}

func TestGetTicketForRequesterHidesInternalComments(t *testing.T) {
	ticket := newTicket("t-1", domain.TicketStatusInProgress)
	f := newTicketFixture(ticket)

	_, err := f.svc.AddComment(context.Background(), "agent-1", "t-1", "ordered replacement part", domain.VisibilityInternal)
	require.NoError(t, err)
	_, err = f.svc.AddComment(context.Background(), "agent-1", "t-1", "we are looking into it", domain.VisibilityPublic)
	require.NoError(t, err)

	_, visible, err := f.svc.GetTicketForRequester(context.Background(), "req-1", "t-1")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "we are looking into it", visible[0].Body)

	_, all, err := f.svc.GetTicketForOperator(context.Background(), "agent-1", "t-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetTicketForRequesterEnforcesOwnership(t *testing.T) {
	f := newTicketFixture(newTicket("t-1", domain.TicketStatusNew))
	f.directory.addUser("req-2", "Other Requester", domain.RoleRequester, "loc-1")

	_, _, err := f.svc.GetTicketForRequester(context.Background(), "req-2", "t-1")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestAddCommentRequesterCannotPostInternal(t *testing.T) {
	f := newTicketFixture(newTicket("t-1", domain.TicketStatusNew))

	_, err := f.svc.AddComment(context.Background(), "req-1", "t-1", "secret note", domain.VisibilityInternal)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Empty(t, f.comments.all())
}

func TestListForOperatorScopesToSiteUnlessAdmin(t *testing.T) {
	f := newTicketFixture(newTicket("t-1", domain.TicketStatusNew))

	_, err := f.svc.ListForOperator(context.Background(), "req-1", TicketListFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	tickets, err := f.svc.ListForOperator(context.Background(), "admin-1", TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}
