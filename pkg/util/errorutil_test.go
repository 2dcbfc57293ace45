package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewInvalidTransition("NEW", "RESOLVED")

	converted := ToDomainError(original)
	require.NotNil(t, converted)
	assert.Equal(t, CodeInvalidTransition, converted.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, converted.HTTPStatus)
	assert.Equal(t, "NEW", converted.Details["from"])
	assert.Equal(t, "RESOLVED", converted.Details["to"])
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	converted := ToDomainError(errors.New("connection reset"))
	require.NotNil(t, converted)
	assert.Equal(t, CodeInternalError, converted.Code)
	assert.Equal(t, http.StatusInternalServerError, converted.HTTPStatus)
}

func TestToDomainErrorFindsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("applying transition: %w", NewMissingAssignee())

	converted := ToDomainError(wrapped)
	require.NotNil(t, converted)
	assert.Equal(t, CodeMissingAssignee, converted.Code)
}

func TestHasCode(t *testing.T) {
	err := NewAlreadyEscalated("t-1")

	assert.True(t, HasCode(err, CodeAlreadyEscalated))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeForbidden))
	assert.False(t, HasCode(nil, CodeForbidden))
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("pool exhausted")
	err := NewInternalError(cause)

	assert.ErrorIs(t, err, cause)
}
