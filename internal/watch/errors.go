package watch

import (
	"errors"
	"fmt"
)

// Error represents a failure surfaced by the watch API.
//
// All expected failure kinds are returned as *Error with a Code so
// callers can distinguish them programmatically; only store breakage
// (ErrCodeStoreUnavailable) carries a wrapped cause.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// WatcherID identifies the affected watcher, when there is one.
	WatcherID string

	// Err is the underlying cause (store failures only).
	Err error
}

// ErrorCode categorizes watch API errors.
type ErrorCode string

const (
	// ErrCodeWatcherNotFound indicates no watcher exists for the id.
	ErrCodeWatcherNotFound ErrorCode = "WATCHER_NOT_FOUND"

	// ErrCodeWatcherStopped indicates a poll on a stopped watcher.
	ErrCodeWatcherStopped ErrorCode = "WATCHER_STOPPED"

	// ErrCodeInvalidAction indicates an unrecognized action name.
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"

	// ErrCodeInvalidFilter indicates a malformed filter spec.
	ErrCodeInvalidFilter ErrorCode = "INVALID_FILTER"

	// ErrCodeStoreUnavailable indicates the transactional store failed;
	// the whole operation was aborted with no partial effect.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.WatcherID != "" {
		return fmt.Sprintf("%s: %s (watcher=%s)", e.Code, e.Message, e.WatcherID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns the empty code if the chain contains no *Error.
func CodeOf(err error) ErrorCode {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// IsNotFound reports whether the error is a watcher-not-found failure.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeWatcherNotFound }

// IsStopped reports whether the error is a poll on a stopped watcher.
func IsStopped(err error) bool { return CodeOf(err) == ErrCodeWatcherStopped }

// IsInvalidAction reports whether the error is an unrecognized action.
func IsInvalidAction(err error) bool { return CodeOf(err) == ErrCodeInvalidAction }

// IsInvalidFilter reports whether the error is a malformed filter.
func IsInvalidFilter(err error) bool { return CodeOf(err) == ErrCodeInvalidFilter }

// NewNotFoundError creates an Error for an unknown watcher id.
func NewNotFoundError(watcherID string) *Error {
	return &Error{
		Code:      ErrCodeWatcherNotFound,
		Message:   "watcher not found",
		WatcherID: watcherID,
	}
}

// NewStoppedError creates an Error for a poll on a stopped watcher.
func NewStoppedError(watcherID string) *Error {
	return &Error{
		Code:      ErrCodeWatcherStopped,
		Message:   "watcher is stopped",
		WatcherID: watcherID,
	}
}

// NewInvalidActionError creates an Error for an unrecognized action.
func NewInvalidActionError(action string) *Error {
	return &Error{
		Code:    ErrCodeInvalidAction,
		Message: fmt.Sprintf("unknown action %q: must be one of create, poll, list, stop", action),
	}
}

// NewInvalidFilterError creates an Error for a malformed filter spec.
func NewInvalidFilterError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidFilter,
		Message: message,
	}
}

// NewStoreError wraps a store failure. The operation it aborted had no
// partial effect; retrying is the caller's choice.
func NewStoreError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeStoreUnavailable,
		Message: fmt.Sprintf("store failure during %s", op),
		Err:     err,
	}
}
