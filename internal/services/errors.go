package services

import "errors"

// Error taxonomy for chat operations. Handlers map these to status codes
// with errors.Is; wrapping keeps the original cause available for logs.
var (
	// ErrValidation: a required field is missing or empty.
	ErrValidation = errors.New("missing required fields")

	// ErrNotFound: the referenced room or message does not exist.
	ErrNotFound = errors.New("room not found")

	// ErrUnauthorized: the acting user does not match the claimed sender.
	ErrUnauthorized = errors.New("sender does not match authenticated user")

	// ErrUpstream: the persistence layer or object store failed.
	ErrUpstream = errors.New("upstream failure")

	// ErrInvalidMedia: no structurally valid media file in the batch.
	ErrInvalidMedia = errors.New("no valid media files")
)
