package domain

import "time"

// CommentVisibility differentiates requester-visible comments from internal notes.
type CommentVisibility string

const (
	VisibilityPublic   CommentVisibility = "PUBLIC"
	VisibilityInternal CommentVisibility = "INTERNAL"
)

// Comment captures communications in a ticket thread.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    *string
	Visibility  CommentVisibility
	Body        string
	Attachments []EvidenceAttachment
	CreatedAt   time.Time
}

// EvidenceAttachment stores metadata for files linked to a comment.
type EvidenceAttachment struct {
	ID         string
	CommentID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
