package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrBaseURLRequired indicates an empty gateway base URL.
	ErrBaseURLRequired = errors.New("chat: base url is required")
	// ErrSettingsRequired indicates a nil settings store.
	ErrSettingsRequired = errors.New("chat: settings store is required")
	// ErrUnexpectedStatus indicates a non-2xx gateway response.
	ErrUnexpectedStatus = errors.New("chat: unexpected status")
)

// StatusError reports a non-2xx gateway response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat: %s %s: status %d", e.Method, e.Path, e.Status)
	}

	return fmt.Sprintf("chat: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
