// Package semantic defines the scored long-term memory store: the Store
// interface its drivers implement, the composite relevance scoring shared
// by those drivers, and the binary codec for persisted embeddings.
//
// Drivers are pluggable via configuration:
//
//	[storage]
//	provider = "sqlite"   # or "postgres"
package semantic

import (
	"context"
)

// Store holds the distilled long-term entries for one session.
type Store interface {
	// Add embeds content and persists it as a new entry with the given
	// importance weight, returning the new entry's id. Whitespace-only
	// content fails with memory.ErrInvalidContent; a missing embedding
	// provider fails with memory.ErrEmbeddingUnavailable.
	Add(ctx context.Context, content string, importance float64) (int64, error)

	// Query embeds text, ranks every stored entry by composite score, and
	// returns the topK best rendered for prompt injection. For exactly the
	// returned entries, the access stats are bumped atomically. Without an
	// embedding provider the result is empty, not an error.
	Query(ctx context.Context, text string, topK int) ([]string, error)

	// Delete removes the entry with the given id, reporting whether a row
	// was actually removed.
	Delete(ctx context.Context, id int64) (bool, error)

	// SetImportance overwrites the entry's importance weight, reporting
	// whether a row was affected.
	SetImportance(ctx context.Context, id int64, importance float64) (bool, error)

	// EvictOutdated removes every entry that is both older than maxAgeDays
	// and less important than minImportance, returning the count removed.
	EvictOutdated(ctx context.Context, maxAgeDays float64, minImportance float64) (int, error)

	// Close releases driver resources.
	Close() error
}

// Opener lazily creates the semantic store partition for a session id.
// The manager calls it once per session on first reference.
type Opener func(sessionID string) (Store, error)
