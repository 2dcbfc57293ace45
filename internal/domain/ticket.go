package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew               TicketStatus = "NEW"
	TicketStatusAssigned          TicketStatus = "ASSIGNED"
	TicketStatusInProgress        TicketStatus = "IN_PROGRESS"
	TicketStatusNeedsInfo         TicketStatus = "NEEDS_INFO"
	TicketStatusWaitingThirdParty TicketStatus = "WAITING_THIRD_PARTY"
	TicketStatusResolved          TicketStatus = "RESOLVED"
	TicketStatusClosed            TicketStatus = "CLOSED"
)

// Ticket priorities, 1 is most urgent.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// Support levels owned by the two agent tiers.
const (
	SupportLevel1 = 1
	SupportLevel2 = 2
)

// Ticket is the aggregate for service-desk requests.
type Ticket struct {
	ID              string
	Number          int64
	RequesterID     string
	LocationID      string
	AssignedAgentID *string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        int
	SupportLevel    int
	ResolutionText  *string
	ClosedAt        *time.Time
	ClosedBy        *string
	DeletedAt       *time.Time
	DeletedBy       *string
	DeletedReason   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsDeleted reports whether the ticket carries the soft-delete marker.
func (t *Ticket) IsDeleted() bool {
	return t.DeletedAt != nil
}
