package service

import "github.com/helpdesk-kit/servicedesk/internal/domain"

// allowedTransitions is the authoritative status adjacency table. Any pair
// absent from it is rejected. CLOSED has no outgoing edges: leaving CLOSED
// happens only through the dedicated reopen operation, and RESOLVED is the
// only status a ticket can be closed from.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:               {domain.TicketStatusAssigned},
	domain.TicketStatusAssigned:          {domain.TicketStatusInProgress, domain.TicketStatusNeedsInfo, domain.TicketStatusWaitingThirdParty},
	domain.TicketStatusInProgress:        {domain.TicketStatusAssigned, domain.TicketStatusNeedsInfo, domain.TicketStatusWaitingThirdParty, domain.TicketStatusResolved},
	domain.TicketStatusNeedsInfo:         {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusWaitingThirdParty: {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:          {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusClosed:            {},
}

// IsAllowedTransition reports whether the from->to move is in the policy table.
// Identical from/to pairs are never in the table; reassignment without a
// status change is the caller's concern, not the policy's.
func IsAllowedTransition(from, to domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
