package domain

import "errors"

var (
	// ErrInvalidConfig marks configuration rejected at setup time.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnreadableDocument marks a document the extractor cannot read.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrEmbeddingUnavailable marks an embedding provider failure after
	// bounded retries.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrDimensionMismatch marks vectors of inconsistent length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInferenceUnavailable marks an LLM provider failure after bounded
	// retries.
	ErrInferenceUnavailable = errors.New("inference provider unavailable")

	// ErrEmptyContext marks a query with no indexed chunks and no history.
	ErrEmptyContext = errors.New("no context available")

	// ErrSessionBusy marks a query submitted while another is in flight.
	ErrSessionBusy = errors.New("session busy")

	// ErrSessionClosed marks an operation on a torn-down session.
	ErrSessionClosed = errors.New("session closed")
)
