package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
// Explicit vectors can be registered per text; unregistered text falls
// back to a deterministic pseudo-vector derived from its hash, so
// identical text always embeds identically.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// Dimensions is the length of fallback vectors. Defaults to 8.
	Dimensions int

	// FailOn causes Embed to return an error when the input text matches
	FailOn string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	dims := m.Dimensions
	if dims <= 0 {
		dims = 8
	}

	// Seeded hash chain keeps the fallback deterministic per text.
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>40))/float32(1<<23) - 1
	}

	return vec, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}
