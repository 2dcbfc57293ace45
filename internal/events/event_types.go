package events

import (
	"time"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
)

// Kind enumerates workflow event identifiers.
type Kind string

const (
	KindTicketCreated       Kind = "ticket_created"
	KindTicketAssigned      Kind = "ticket_assigned"
	KindStatusChanged       Kind = "ticket_status_changed"
	KindTicketClosed        Kind = "ticket_closed"
	KindEscalationRequested Kind = "escalation_requested"
	KindTicketEscalated     Kind = "ticket_escalated"
)

// Event represents a workflow event emitted after a committed mutation.
// The dispatcher computes its audience from these fields plus the ticket row.
type Event struct {
	ID                 string              `json:"id"`
	Kind               Kind                `json:"kind"`
	TicketID           string              `json:"ticket_id"`
	ActorID            string              `json:"actor_id"`
	FromStatus         domain.TicketStatus `json:"from_status,omitempty"`
	ToStatus           domain.TicketStatus `json:"to_status,omitempty"`
	AssigneeID         *string             `json:"assignee_id,omitempty"`
	PreviousAssigneeID *string             `json:"previous_assignee_id,omitempty"`
	Timestamp          time.Time           `json:"timestamp"`
}
