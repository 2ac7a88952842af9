// Package embeddings defines the contract with the external provider that
// turns text into fixed-length vectors for similarity comparison.
//
// An absent embedder is a configuration state, not a per-call error: the
// semantic store degrades as documented there rather than failing.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned when embedding generation fails.
var ErrEmbedding = errors.New("embedding failed")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
