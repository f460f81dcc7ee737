// Package errors provides structured error types for shipkit with
// category, code, and cause information so commands can decide between
// hard failures, warnings, and clean cancellations.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeGit        ErrorType = "git"
	ErrorTypeGitHub     ErrorType = "github"
	ErrorTypeRelease    ErrorType = "release"
	ErrorTypeTest       ErrorType = "test"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeInternal   ErrorType = "internal"
)

// ShipkitError is a structured error type with context.
type ShipkitError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Remediation string
	Recoverable bool
}

// Error implements the error interface.
func (e *ShipkitError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ShipkitError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ShipkitError) Is(target error) bool {
	var t *ShipkitError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ShipkitError) WithContext(key string, value interface{}) *ShipkitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithRemediation attaches a hint telling the user how to fix the problem.
func (e *ShipkitError) WithRemediation(hint string) *ShipkitError {
	e.Remediation = hint

	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewAuthError creates an authentication/prerequisite error.
func NewAuthError(code, message string) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeAuth,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewGitError creates a git operation error.
func NewGitError(code, message string, cause error) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeGit,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewGitHubError creates a GitHub API error.
func NewGitHubError(code, message string, cause error) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeGitHub,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewReleaseError creates a release workflow error.
func NewReleaseError(code, message string, cause error) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeRelease,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewTestError creates a test execution error.
func NewTestError(code, message string, cause error) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeTest,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ShipkitError {
	return &ShipkitError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var se *ShipkitError
	if errors.As(err, &se) {
		return se.Recoverable
	}

	return false
}

// IsAuthError checks if an error is an authentication/prerequisite error.
func IsAuthError(err error) bool {
	var se *ShipkitError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeAuth
	}

	return false
}

// IsValidationError checks if an error is validation-related.
func IsValidationError(err error) bool {
	var se *ShipkitError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeValidation
	}

	return false
}

// Remediation extracts the remediation hint from an error chain, if any.
func Remediation(err error) string {
	var se *ShipkitError
	if errors.As(err, &se) {
		return se.Remediation
	}

	return ""
}

// Common error codes.
const (
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeEnvFileMissing   = "ERR_ENV_FILE_MISSING"
	ErrCodeEnvKeyInvalid    = "ERR_ENV_KEY_INVALID"
	ErrCodeToolMissing      = "ERR_TOOL_MISSING"
	ErrCodeNotAuthenticated = "ERR_NOT_AUTHENTICATED"
	ErrCodeNotARepository   = "ERR_NOT_A_REPOSITORY"
	ErrCodeDirtyWorktree    = "ERR_DIRTY_WORKTREE"
	ErrCodeBranchExists     = "ERR_BRANCH_EXISTS"
	ErrCodeTagInvalid       = "ERR_TAG_INVALID"
	ErrCodeAPIRequest       = "ERR_API_REQUEST"
	ErrCodeTestFailed       = "ERR_TEST_FAILED"
	ErrCodeCoverageBelow    = "ERR_COVERAGE_BELOW_THRESHOLD"
	ErrCodeAuditFailed      = "ERR_AUDIT_FAILED"
	ErrCodeUserCancelled    = "ERR_USER_CANCELLED"
	ErrCodeInternal         = "ERR_INTERNAL"
)

// ErrCancelled is returned when the user declines a confirmation prompt.
// Commands treat it as a clean cancellation rather than a failure.
var ErrCancelled = &ShipkitError{
	Type:        ErrorTypeValidation,
	Code:        ErrCodeUserCancelled,
	Message:     "cancelled by user",
	Recoverable: true,
}

// IsCancelled reports whether the error chain contains a user cancellation.
func IsCancelled(err error) bool {
	var se *ShipkitError
	if errors.As(err, &se) {
		return se.Code == ErrCodeUserCancelled
	}

	return false
}

// Helper constructors for common cases

// ErrToolMissing creates a missing-prerequisite error with an install hint.
func ErrToolMissing(tool, hint string) *ShipkitError {
	return NewValidationError(ErrCodeToolMissing, "required tool not found: "+tool).
		WithRemediation(hint)
}

// ErrDirtyWorktree creates an error for operations refused on a dirty tree.
func ErrDirtyWorktree() *ShipkitError {
	return NewGitError(ErrCodeDirtyWorktree, "working tree has uncommitted changes", nil).
		WithRemediation("commit or stash your changes, or confirm to continue anyway")
}

// ErrBranchExists creates an error for an already existing branch.
func ErrBranchExists(branch string) *ShipkitError {
	return NewGitError(ErrCodeBranchExists, "branch already exists: "+branch, nil)
}
