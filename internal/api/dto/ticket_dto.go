package dto

import "time"

// CreateTicketRequest is the intake payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// CreateCommentRequest appends to the ticket thread.
type CreateCommentRequest struct {
	Body       string `json:"body"`
	Visibility string `json:"visibility"`
}

// TicketSummary is the list representation of a ticket.
type TicketSummary struct {
	ID              string     `json:"id"`
	Number          int64      `json:"number"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	Priority        int        `json:"priority"`
	SupportLevel    int        `json:"support_level"`
	LocationID      string     `json:"location_id"`
	AssignedAgentID *string    `json:"assigned_agent_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// TicketDetail extends the summary with thread and closure data.
type TicketDetail struct {
	TicketSummary
	Description    string           `json:"description"`
	RequesterID    string           `json:"requester_id"`
	ResolutionText *string          `json:"resolution_text,omitempty"`
	Comments       []CommentPayload `json:"comments"`
	History        []HistoryPayload `json:"history,omitempty"`
}

// CommentPayload is the wire form of a thread comment.
type CommentPayload struct {
	ID          string              `json:"id"`
	AuthorID    *string             `json:"author_id,omitempty"`
	Visibility  string              `json:"visibility"`
	Body        string              `json:"body"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AttachmentPayload is the wire form of evidence metadata.
type AttachmentPayload struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// HistoryPayload is the wire form of an audit entry.
type HistoryPayload struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    *string   `json:"actor_id,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
