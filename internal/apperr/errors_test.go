package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tgienger/phub/internal/validation"
)

func TestNewTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("GetProjects", cause)

	assert.Equal(t, ErrorTypeTransport, err.Type)
	assert.Equal(t, "TRANSPORT_ERROR", err.Code)
	assert.ErrorIs(t, err, cause)

	op, ok := err.GetContext("operation")
	assert.True(t, ok)
	assert.Equal(t, "GetProjects", op)
	assert.Contains(t, err.Error(), "caused by: connection refused")
}

func TestIsErrorTypeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading projects: %w", NewAuthError("Authentication required"))

	assert.True(t, IsAuth(wrapped))
	assert.False(t, IsTransport(wrapped))
	assert.Equal(t, "UNAUTHENTICATED", GetErrorCode(wrapped))
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"mutation", NewMutationError("JoinOrganization", "Invalid or expired invite code"), "Invalid or expired invite code"},
		{"transport", NewTransportError("GetProjects", errors.New("eof")), "Network error. Please try again."},
		{"auth", NewAuthError("expired"), "Your session has expired. Please sign in again."},
		{"server", NewServerError("GetProject", "boom"), "The server could not complete the request."},
		{"plain", errors.New("plain"), "An error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestUserMessageValidation(t *testing.T) {
	ve := validation.NewValidationError()
	ve.AddRequiredError("title", "Task title is required")

	assert.Equal(t, "Task title is required", UserMessage(ve))
}

func TestAppErrorIs(t *testing.T) {
	a := NewMutationError("CreateTask", "Task title is required")
	b := NewMutationError("UpdateTask", "other")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, NewAuthError("x")))
}
