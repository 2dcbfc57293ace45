package domain

import "time"

// EscalationRequestStatus tracks the approval subflow of a request.
type EscalationRequestStatus string

const (
	EscalationPending  EscalationRequestStatus = "PENDING"
	EscalationApproved EscalationRequestStatus = "APPROVED"
	EscalationRejected EscalationRequestStatus = "REJECTED"
)

// EscalationRequest records a tier-1 agent asking for a level-2 handoff.
// It is the source of truth for the pending state; the marker comment
// written alongside is audit history only.
type EscalationRequest struct {
	ID          string
	TicketID    string
	RequestedBy string
	Reason      string
	Status      EscalationRequestStatus
	ResolvedBy  *string
	ResolvedAt  *time.Time
	CreatedAt   time.Time
}
