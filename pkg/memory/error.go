package memory

import "errors"

var (
	// ErrEmbeddingUnavailable is returned by mutating semantic store
	// operations when no embedding provider is configured. Queries degrade
	// to empty results instead.
	ErrEmbeddingUnavailable = errors.New("embedding provider not configured")

	// ErrInvalidContent is returned when empty or whitespace-only content
	// is passed to a semantic store.
	ErrInvalidContent = errors.New("invalid memory content")
)
