package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/ollama"
)

var _ = Describe("NewEmbedder", func() {
	It("applies defaults for empty config", func() {
		embedder, err := ollama.NewEmbedder(ollama.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(embedder).NotTo(BeNil())
	})
})

var _ = Describe("Embed", func() {
	var (
		server   *httptest.Server
		requests []map[string]any
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
		requests = nil
	})

	newServer := func(handler http.HandlerFunc) *ollama.Embedder {
		server = httptest.NewServer(handler)
		embedder, err := ollama.NewEmbedder(ollama.Config{
			BaseURL: server.URL,
			Model:   "nomic-embed-text",
		})
		Expect(err).NotTo(HaveOccurred())
		return embedder
	}

	It("posts the model and input to /api/embed and returns the vector", func() {
		embedder := newServer(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			requests = append(requests, body)

			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
			})
		})

		vec, err := embedder.Embed(context.Background(), "likes tea")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))

		Expect(requests).To(HaveLen(1))
		Expect(requests[0]["model"]).To(Equal("nomic-embed-text"))
		Expect(requests[0]["input"]).To(Equal("likes tea"))
	})

	It("wraps non-200 responses in ErrEmbedding", func() {
		embedder := newServer(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		})

		_, err := embedder.Embed(context.Background(), "anything")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("404"))
	})

	It("fails when the response carries no embeddings", func() {
		embedder := newServer(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
		})

		_, err := embedder.Embed(context.Background(), "anything")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("fails on malformed response JSON", func() {
		embedder := newServer(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json"))
		})

		_, err := embedder.Embed(context.Background(), "anything")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("respects context cancellation", func() {
		embedder := newServer(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{1}},
			})
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := embedder.Embed(ctx, "anything")
		Expect(err).To(HaveOccurred())
	})
})
