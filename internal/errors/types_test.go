package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipkitErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *ShipkitError
		expected string
	}{
		{
			name:     "code and message",
			err:      NewValidationError(ErrCodeEnvKeyInvalid, "APPLE_ID contains placeholder value"),
			expected: "[ERR_ENV_KEY_INVALID] APPLE_ID contains placeholder value",
		},
		{
			name:     "with cause",
			err:      NewGitError(ErrCodeTagInvalid, "cannot parse latest tag", fmt.Errorf("no tags found")),
			expected: "[ERR_TAG_INVALID] cannot parse latest tag: no tags found",
		},
		{
			name: "no code",
			err: &ShipkitError{
				Type:    ErrorTypeInternal,
				Message: "something broke",
			},
			expected: "something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := NewGitHubError(ErrCodeAPIRequest, "branch protection update failed", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("repo setup: %w", err)
	var se *ShipkitError
	require.True(t, errors.As(wrapped, &se))
	assert.Equal(t, ErrorTypeGitHub, se.Type)
}

func TestErrorIs(t *testing.T) {
	a := NewValidationError(ErrCodeEnvKeyInvalid, "first")
	b := NewValidationError(ErrCodeEnvKeyInvalid, "second")
	c := NewValidationError(ErrCodeConfigInvalid, "other code")

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
}

func TestCancellation(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.True(t, IsCancelled(fmt.Errorf("release prepare: %w", ErrCancelled)))
	assert.False(t, IsCancelled(NewValidationError(ErrCodeConfigInvalid, "nope")))
	assert.False(t, IsCancelled(nil))
}

func TestRecoverability(t *testing.T) {
	assert.True(t, IsRecoverable(NewValidationError("X", "recoverable")))
	assert.False(t, IsRecoverable(NewAuthError("X", "not recoverable")))
	assert.False(t, IsRecoverable(errors.New("plain error")))
}

func TestRemediation(t *testing.T) {
	err := ErrToolMissing("gh", "install with: brew install gh")

	assert.True(t, IsValidationError(err))
	assert.Equal(t, "install with: brew install gh", Remediation(err))
	assert.Equal(t, "", Remediation(errors.New("plain")))

	wrapped := fmt.Errorf("doctor: %w", err)
	assert.Equal(t, "install with: brew install gh", Remediation(wrapped))
}

func TestContext(t *testing.T) {
	err := NewReleaseError(ErrCodeBranchExists, "branch exists", nil).
		WithContext("branch", "release/1.3.0")

	require.NotNil(t, err.Context)
	assert.Equal(t, "release/1.3.0", err.Context["branch"])
}
