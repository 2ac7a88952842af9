package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/summarizer"
	"github.com/papercomputeco/engram/pkg/summarizer/ollama"
)

var _ = Describe("NewClient", func() {
	It("applies defaults for empty config", func() {
		client, err := ollama.NewClient(ollama.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(client).NotTo(BeNil())
	})
})

var _ = Describe("Summarize", func() {
	var (
		server  *httptest.Server
		lastReq map[string]any
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
		lastReq = nil
	})

	newClient := func(handler http.HandlerFunc) *ollama.Client {
		server = httptest.NewServer(handler)
		client, err := ollama.NewClient(ollama.Config{
			BaseURL: server.URL,
			Model:   "llama3.2",
		})
		Expect(err).NotTo(HaveOccurred())
		return client
	}

	respondWith := func(content string, promptTokens, evalTokens int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			lastReq = body

			json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"prompt_eval_count": promptTokens,
				"eval_count":        evalTokens,
			})
		}
	}

	It("sends a constrained-JSON chat request and parses the statements", func() {
		client := newClient(respondWith(`{"statements": ["user likes tea", "user owns a dog"]}`, 42, 17))

		summary, err := client.Summarize(context.Background(),
			"alice(2025-06-01 00:00:00): I like tea", "extract key facts")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Statements).To(Equal([]string{"user likes tea", "user owns a dog"}))
		Expect(summary.Usage.PromptTokens).To(Equal(42))
		Expect(summary.Usage.CompletionTokens).To(Equal(17))
		Expect(summary.Usage.TotalTokens).To(Equal(59))

		Expect(lastReq["model"]).To(Equal("llama3.2"))
		Expect(lastReq["stream"]).To(BeFalse())
		Expect(lastReq["format"]).To(Equal("json"))

		messages, ok := lastReq["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(messages).To(HaveLen(2))

		system := messages[0].(map[string]any)
		Expect(system["role"]).To(Equal("system"))
		Expect(system["content"]).To(Equal("extract key facts"))

		user := messages[1].(map[string]any)
		Expect(user["role"]).To(Equal("user"))
		Expect(user["content"]).To(ContainSubstring("I like tea"))
	})

	It("propagates ErrMalformedResponse from the parser", func() {
		client := newClient(respondWith("I could not produce JSON, sorry.", 0, 0))

		_, err := client.Summarize(context.Background(), "transcript", "instruction")
		Expect(err).To(MatchError(summarizer.ErrMalformedResponse))
	})

	It("fails on non-200 responses", func() {
		client := newClient(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		})

		_, err := client.Summarize(context.Background(), "transcript", "instruction")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("503"))
	})

	It("fails on a malformed response body", func() {
		client := newClient(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json"))
		})

		_, err := client.Summarize(context.Background(), "transcript", "instruction")
		Expect(err).To(MatchError(summarizer.ErrMalformedResponse))
	})
})
