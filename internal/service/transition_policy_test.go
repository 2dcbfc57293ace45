package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
)

func TestIsAllowedTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    domain.TicketStatus
		to      domain.TicketStatus
		allowed bool
	}{
		{"new to assigned", domain.TicketStatusNew, domain.TicketStatusAssigned, true},
		{"new cannot skip to in progress", domain.TicketStatusNew, domain.TicketStatusInProgress, false},
		{"new cannot close", domain.TicketStatusNew, domain.TicketStatusClosed, false},
		{"assigned to in progress", domain.TicketStatusAssigned, domain.TicketStatusInProgress, true},
		{"assigned to needs info", domain.TicketStatusAssigned, domain.TicketStatusNeedsInfo, true},
		{"assigned to waiting third party", domain.TicketStatusAssigned, domain.TicketStatusWaitingThirdParty, true},
		{"assigned cannot resolve directly", domain.TicketStatusAssigned, domain.TicketStatusResolved, false},
		{"in progress back to assigned", domain.TicketStatusInProgress, domain.TicketStatusAssigned, true},
		{"in progress to resolved", domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{"in progress cannot close directly", domain.TicketStatusInProgress, domain.TicketStatusClosed, false},
		{"needs info to in progress", domain.TicketStatusNeedsInfo, domain.TicketStatusInProgress, true},
		{"needs info to resolved", domain.TicketStatusNeedsInfo, domain.TicketStatusResolved, true},
		{"waiting third party to resolved", domain.TicketStatusWaitingThirdParty, domain.TicketStatusResolved, true},
		{"resolved reopens to in progress", domain.TicketStatusResolved, domain.TicketStatusInProgress, true},
		{"resolved to closed", domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{"closed is terminal", domain.TicketStatusClosed, domain.TicketStatusInProgress, false},
		{"closed cannot reassign", domain.TicketStatusClosed, domain.TicketStatusAssigned, false},
		{"unknown status rejected", domain.TicketStatus("BOGUS"), domain.TicketStatusAssigned, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, IsAllowedTransition(tc.from, tc.to))
		})
	}
}
