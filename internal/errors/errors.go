package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidSource indicates entry or module text could not be parsed by the extraction strategy
	InvalidSource ErrorCode = "INVALID_SOURCE"
	// UnsupportedStrategy indicates an unknown strategy selector or a strategy the language cannot serve
	UnsupportedStrategy ErrorCode = "UNSUPPORTED_STRATEGY"
	// RegistryInconsistency indicates two modules declare the same type identifier (or share a name)
	RegistryInconsistency ErrorCode = "REGISTRY_INCONSISTENCY"
	// ManifestInvalid indicates a registry manifest could not be read or decoded
	ManifestInvalid ErrorCode = "MANIFEST_INVALID"
	// RegistryNotBuilt indicates module dependencies were never computed
	RegistryNotBuilt ErrorCode = "REGISTRY_NOT_BUILT"
	// StoreUnavailable indicates the registry store could not be opened or read
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// EntryNotFound indicates the entry file does not exist
	EntryNotFound ErrorCode = "ENTRY_NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error represents a onefile error with code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the default suggested fixes for its code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new Error without a cause using a format string
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code, so callers can use
// errors.Is(err, errors.New(errors.InvalidSource, "", nil)) or the HasCode helper.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Code returns the ErrorCode carried by err, or "" if err has none
func Code(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError returns the *Error carried by err, if any
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err (or anything it wraps) carries code
func HasCode(err error, code ErrorCode) bool {
	return err != nil && Code(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RegistryNotBuilt: {
		{
			Type:        RunCommand,
			Command:     "onefile build",
			Description: "Compute module dependencies and persist the annotated registry",
		},
	},
	UnsupportedStrategy: {
		{
			Type:        EditConfig,
			Key:         "resolve.strategy",
			Description: "Use one of: all, name, semantic",
		},
	},
	RegistryInconsistency: {
		{
			Type:        RunCommand,
			Command:     "onefile scan <library-dir>",
			Description: "Regenerate the manifest so every type identifier has a single owner",
		},
	},
	StoreUnavailable: {
		{
			Type:        RunCommand,
			Command:     "onefile build --manifest <path>",
			Description: "Rebuild the registry store from the manifest",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
