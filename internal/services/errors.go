package services

import "errors"

// Service-level error taxonomy. Handlers map these to HTTP statuses with errors.Is.
var (
	// ErrValidation marks malformed client input.
	ErrValidation = errors.New("validation error")
	// ErrSearchNotConfigured means the retrieval credential is missing.
	ErrSearchNotConfigured = errors.New("search api key not configured")
	// ErrSearchFailed covers transport, status and decoding failures of the search provider.
	ErrSearchFailed = errors.New("search request failed")
	// ErrGeneration means the inference backend failed before completing a response.
	ErrGeneration = errors.New("generation failed")
)
