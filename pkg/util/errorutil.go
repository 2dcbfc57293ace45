package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced in API responses.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeConflict              = "CONFLICT"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeMissingAssignee       = "MISSING_ASSIGNEE"
	CodeMissingTarget         = "MISSING_TARGET"
	CodeInvalidTarget         = "INVALID_TARGET"
	CodeResolutionRequired    = "RESOLUTION_REQUIRED"
	CodeAlreadyEscalated      = "ALREADY_ESCALATED"
	CodeNoSupervisorAvailable = "NO_SUPERVISOR_AVAILABLE"
	CodeInternalError         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewInvalidTransition rejects a from->to pair absent from the policy table.
func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("transition %s -> %s not allowed", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to})
}

// NewMissingAssignee signals ASSIGNED was requested without an assignee.
func NewMissingAssignee() error {
	return NewDomainError(CodeMissingAssignee, "assignee required for this transition", http.StatusBadRequest, nil)
}

// NewMissingTarget signals an escalation without a target agent.
func NewMissingTarget() error {
	return NewDomainError(CodeMissingTarget, "target agent required for escalation", http.StatusBadRequest, nil)
}

// NewInvalidTarget signals an escalation target below tier-2.
func NewInvalidTarget(targetID string) error {
	return NewDomainError(CodeInvalidTarget, "escalation target must hold a tier-2 or higher role",
		http.StatusUnprocessableEntity, map[string]any{"target_id": targetID})
}

// NewResolutionRequired signals a closure without a sufficient resolution text.
func NewResolutionRequired(minLength int) error {
	return NewDomainError(CodeResolutionRequired,
		fmt.Sprintf("closing requires a resolution of at least %d characters", minLength),
		http.StatusBadRequest, map[string]any{"min_length": minLength})
}

// NewAlreadyEscalated signals the ticket is already at support level 2.
func NewAlreadyEscalated(ticketID string) error {
	return NewDomainError(CodeAlreadyEscalated, "ticket already escalated to level 2",
		http.StatusConflict, map[string]any{"ticket_id": ticketID})
}

// NewNoSupervisorAvailable signals the location has no supervisor to approve.
func NewNoSupervisorAvailable(locationID string) error {
	return NewDomainError(CodeNoSupervisorAvailable, "no supervisor available at this location",
		http.StatusUnprocessableEntity, map[string]any{"location_id": locationID})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
