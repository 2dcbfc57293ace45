package domain

import "time"

// NotificationType identifies the event a notification was produced for.
type NotificationType string

const (
	NotificationTicketCreated       NotificationType = "TICKET_CREATED"
	NotificationTicketAssigned      NotificationType = "TICKET_ASSIGNED"
	NotificationStatusChanged       NotificationType = "STATUS_CHANGED"
	NotificationTicketClosed        NotificationType = "TICKET_CLOSED"
	NotificationEscalationRequested NotificationType = "ESCALATION_REQUESTED"
	NotificationTicketEscalated     NotificationType = "TICKET_ESCALATED"
	NotificationEscalationApproved  NotificationType = "ESCALATION_APPROVED"
)

// Notification is an in-app notification row, one per recipient per event.
// Only IsRead and ReadAt are ever mutated after creation.
type Notification struct {
	ID          string
	RecipientID string
	Type        NotificationType
	Title       string
	Message     string
	TicketID    string
	ActorID     *string
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
