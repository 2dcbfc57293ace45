package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/mailer"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
)

type fakeTicketRepo struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	updateErr error
	updates   int
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
	for _, t := range tickets {
		copied := *t
		repo.tickets[t.ID] = &copied
	}
	return repo
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("ticket-%d", len(r.tickets)+1)
	}
	ticket.Number = int64(len(r.tickets) + 1)
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	r.updates++
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Number == number && ticket.DeletedAt == nil {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.DeletedAt == nil {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) SoftDelete(_ context.Context, id, actorID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	now := time.Now()
	ticket.DeletedAt = &now
	ticket.DeletedBy = &actorID
	ticket.DeletedReason = &reason
	return nil
}

func (r *fakeTicketRepo) stored(id string) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id]
}

type fakeCommentRepo struct {
	mu        sync.Mutex
	comments  []domain.Comment
	createErr error
	nextID    int
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	comment.ID = fmt.Sprintf("comment-%d", r.nextID)
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) all() []domain.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Comment(nil), r.comments...)
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	attachments []domain.EvidenceAttachment
	createErr   error
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.EvidenceAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByComment(_ context.Context, commentID string) ([]domain.EvidenceAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EvidenceAttachment
	for _, attachment := range r.attachments {
		if attachment.CommentID == commentID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu        sync.Mutex
	entries   []domain.StatusHistoryEntry
	createErr error
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StatusHistoryEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeEscalationRepo struct {
	mu       sync.Mutex
	requests []domain.EscalationRequest
	nextID   int
}

func (r *fakeEscalationRepo) Create(_ context.Context, request *domain.EscalationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	request.ID = fmt.Sprintf("escreq-%d", r.nextID)
	request.CreatedAt = time.Now()
	r.requests = append(r.requests, *request)
	return nil
}

func (r *fakeEscalationRepo) LatestPending(_ context.Context, ticketID string) (*domain.EscalationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.requests) - 1; i >= 0; i-- {
		if r.requests[i].TicketID == ticketID && r.requests[i].Status == domain.EscalationPending {
			copied := r.requests[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNoPendingRequest
}

func (r *fakeEscalationRepo) Resolve(_ context.Context, id string, status domain.EscalationRequestStatus, resolvedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.requests {
		if r.requests[i].ID == id && r.requests[i].Status == domain.EscalationPending {
			now := time.Now()
			r.requests[i].Status = status
			r.requests[i].ResolvedBy = &resolvedBy
			r.requests[i].ResolvedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeEscalationRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.EscalationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EscalationRequest
	for _, request := range r.requests {
		if request.TicketID == ticketID {
			out = append(out, request)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	rows      []domain.Notification
	createErr error
	failFor   string
	nextID    int
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.failFor != "" && notification.RecipientID == r.failFor {
		return errors.New("insert failed")
	}
	r.nextID++
	notification.ID = fmt.Sprintf("notif-%d", r.nextID)
	r.rows = append(r.rows, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, _, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, row := range r.rows {
		if row.RecipientID != recipientID {
			continue
		}
		if unreadOnly && row.IsRead {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].RecipientID == recipientID && !r.rows[i].IsRead {
			now := time.Now()
			r.rows[i].IsRead = true
			r.rows[i].ReadAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.rows...)
}

type fakeDirectory struct {
	profiles map[string]*domain.Profile
	emails   map[string]string
	byRole   map[string][]domain.Profile
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles: map[string]*domain.Profile{},
		emails:   map[string]string{},
		byRole:   map[string][]domain.Profile{},
	}
}

func (d *fakeDirectory) addUser(id, name string, role domain.Role, locationID string) {
	profile := domain.Profile{UserID: id, DisplayName: name, Role: role, LocationID: locationID}
	d.profiles[id] = &profile
	d.emails[id] = id + "@example.com"
	key := locationID + "/" + string(role)
	d.byRole[key] = append(d.byRole[key], profile)
}

func (d *fakeDirectory) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	profile, ok := d.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *profile
	return &copied, nil
}

func (d *fakeDirectory) GetEmail(_ context.Context, userID string) (*string, error) {
	email, ok := d.emails[userID]
	if !ok {
		return nil, nil
	}
	return &email, nil
}

func (d *fakeDirectory) ListByLocationAndRole(_ context.Context, locationID string, roles []domain.Role) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, role := range roles {
		out = append(out, d.byRole[locationID+"/"+string(role)]...)
	}
	return out, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type capturingMailer struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failFor  string
	deferErr error
}

func (m *capturingMailer) Deliver(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deferErr != nil {
		return m.deferErr
	}
	if m.failFor != "" && msg.To == m.failFor {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *capturingMailer) delivered() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}
