package dto

// TransitionRequest asks the engine to move a ticket between statuses.
type TransitionRequest struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	AssigneeID *string           `json:"assignee_id,omitempty"`
	Resolution string            `json:"resolution,omitempty"`
	Note       string            `json:"note,omitempty"`
	Evidence   []EvidenceRequest `json:"evidence,omitempty"`
}

// EvidenceRequest carries closure attachment metadata.
type EvidenceRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// ReopenRequest reopens a closed ticket.
type ReopenRequest struct {
	Reason string `json:"reason"`
}

// EscalateRequest hands the ticket to a tier-2 agent.
type EscalateRequest struct {
	TargetAgentID string `json:"target_agent_id"`
}

// RequestEscalationRequest starts the approval subflow.
type RequestEscalationRequest struct {
	Reason string `json:"reason"`
}

// SoftDeleteRequest marks a ticket deleted.
type SoftDeleteRequest struct {
	Reason string `json:"reason"`
}
