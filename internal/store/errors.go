package store

import "errors"

// Sentinel errors for store operations.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, store.ErrNotFound) {
//	    // node absent, retry next cycle
//	}
var (
	// ErrNotFound is returned when no value exists at a path.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidPath is returned for empty paths or paths with empty segments.
	ErrInvalidPath = errors.New("store: invalid path")

	// ErrRequestFailed is returned when the backend rejects or fails a request.
	ErrRequestFailed = errors.New("store: request failed")

	// ErrInvalidPayload is returned when a value cannot be encoded or decoded as JSON.
	ErrInvalidPayload = errors.New("store: invalid payload")
)
