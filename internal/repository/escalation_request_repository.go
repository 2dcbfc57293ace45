package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
)

// EscalationRequestRepository persists the escalation approval subflow.
type EscalationRequestRepository interface {
	Create(ctx context.Context, request *domain.EscalationRequest) error
	LatestPending(ctx context.Context, ticketID string) (*domain.EscalationRequest, error)
	Resolve(ctx context.Context, id string, status domain.EscalationRequestStatus, resolvedBy string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationRequest, error)
}

// ErrNoPendingRequest is returned when a ticket has no pending escalation request.
var ErrNoPendingRequest = errors.New("no pending escalation request")

type escalationRequestRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRequestRepository builds repository.
func NewEscalationRequestRepository(pool *pgxpool.Pool) EscalationRequestRepository {
	return &escalationRequestRepository{pool: pool}
}

func (r *escalationRequestRepository) Create(ctx context.Context, request *domain.EscalationRequest) error {
	const query = `
        INSERT INTO escalation_requests (ticket_id, requested_by, reason, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		request.TicketID,
		request.RequestedBy,
		request.Reason,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt)
}

func (r *escalationRequestRepository) LatestPending(ctx context.Context, ticketID string) (*domain.EscalationRequest, error) {
	const query = `
        SELECT id, ticket_id, requested_by, reason, status, resolved_by, resolved_at, created_at
        FROM escalation_requests
        WHERE ticket_id=$1 AND status=$2
        ORDER BY created_at DESC LIMIT 1`
	var request domain.EscalationRequest
	err := r.pool.QueryRow(ctx, query, ticketID, domain.EscalationPending).Scan(
		&request.ID,
		&request.TicketID,
		&request.RequestedBy,
		&request.Reason,
		&request.Status,
		&request.ResolvedBy,
		&request.ResolvedAt,
		&request.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPendingRequest
		}
		return nil, err
	}
	return &request, nil
}

func (r *escalationRequestRepository) Resolve(ctx context.Context, id string, status domain.EscalationRequestStatus, resolvedBy string) error {
	const query = `
        UPDATE escalation_requests SET status=$1, resolved_by=$2, resolved_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, status, resolvedBy, id, domain.EscalationPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *escalationRequestRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.EscalationRequest, error) {
	const query = `
        SELECT id, ticket_id, requested_by, reason, status, resolved_by, resolved_at, created_at
        FROM escalation_requests WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalationRequest
	for rows.Next() {
		var request domain.EscalationRequest
		if err := rows.Scan(
			&request.ID,
			&request.TicketID,
			&request.RequestedBy,
			&request.Reason,
			&request.Status,
			&request.ResolvedBy,
			&request.ResolvedAt,
			&request.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}
