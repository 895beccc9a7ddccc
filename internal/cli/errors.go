// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for all CLI commands.
//
// STANDARDIZED PATTERN:
//   - RunE always returns errors (never just print and return nil)
//   - Execute displays the error once and picks the exit code
//   - Structured error types carry the context for --json output

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/config"
	"github.com/AnuGuin/LegalAI/internal/session"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected session
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "conversations", "send")
	Action  string // Action being performed (e.g., "list", "delete")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError wraps a backend failure with the command that hit it.
// Reason is the user-facing description of err.
func NewCommandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  api.Describe(err),
		Err:     err,
	}
}

// NewValidationError creates a validation error with an example.
func NewValidationError(field, value, reason, example string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Reason:  reason,
		Example: example,
	}
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError writes an error in the format selected by jsonMode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, command, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), humanError(err))
}

// humanError prefers the server's own wording when there is one.
func humanError(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return api.Describe(err)
}

// DisplayErrorJSON writes the standard error response plus the error's
// structured details.
func DisplayErrorJSON(w io.Writer, command string, err error) {
	resp := NewJSONErrorResponse(command, err)
	details := map[string]any{"exit_code": GetExitCode(err)}

	var ce *CommandError
	var ve *ValidationError
	var he *api.HTTPError
	var ee *api.EnvelopeError
	switch {
	case errors.As(err, &ve):
		details["error_type"] = "validation_error"
		details["field"] = ve.Field
		details["reason"] = ve.Reason
	case errors.As(err, &he):
		details["error_type"] = "http_error"
		details["status"] = he.Status
		details["message"] = he.Message
	case errors.As(err, &ee):
		details["error_type"] = "envelope_error"
		details["message"] = ee.Detail()
	default:
		details["error_type"] = "generic_error"
	}
	if errors.As(err, &ce) {
		details["action"] = ce.Action
	}
	resp.Data = details

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}

	var cfgErrs config.ValidateErrors
	if errors.As(err, &cfgErrs) {
		return ExitConfigError
	}

	if errors.Is(err, session.ErrUnauthenticated) {
		return ExitAuthError
	}

	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.IsNetwork():
			return ExitNetworkError
		case httpErr.IsUnauthorized():
			return ExitAuthError
		case httpErr.IsNotFound():
			return ExitNotFoundError
		}
	}

	// Context deadlines surface from the transport as plain errors.
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "deadline exceeded") || strings.Contains(errMsg, "timed out") {
		return ExitTimeoutError
	}

	return ExitGeneralError
}
