package domain

import "time"

// StatusHistoryEntry is an immutable audit record of a status change.
// Entries are append-only and never updated or deleted.
type StatusHistoryEntry struct {
	ID         string
	TicketID   string
	FromStatus TicketStatus
	ToStatus   TicketStatus
	ActorID    *string
	Note       string
	CreatedAt  time.Time
}
