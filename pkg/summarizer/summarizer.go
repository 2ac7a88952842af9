// Package summarizer defines the contract with the external model that
// distills a conversation transcript into durable statements.
//
// The model is asked to respond with a JSON object holding a "statements"
// array. Responses that cannot be parsed into that shape surface as
// [ErrMalformedResponse], which consolidation treats as a recoverable
// failure: the transcript stays in the recent buffer and is retried on
// the next trigger.
package summarizer

import "context"

// Instruction is the fixed instruction handed to the summarization model
// during consolidation.
const Instruction = `You are a conversation summarization assistant. ` +
	`Summarize the following conversation concisely and extract its key facts. ` +
	`Respond with a JSON object of the form {"statements": ["fact 1", "fact 2"]}.`

// Usage reports token accounting for one summarization call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Summary is the parsed result of a summarization call.
type Summary struct {
	// Statements are the distilled facts extracted from the transcript.
	Statements []string

	// Usage is the token accounting reported by the model, when available.
	Usage Usage
}

// Client turns a conversation transcript into distilled statements.
type Client interface {
	// Summarize sends the transcript with the given instruction and parses
	// the model's structured response. A response that does not match the
	// expected shape returns an error wrapping ErrMalformedResponse.
	Summarize(ctx context.Context, transcript string, instruction string) (*Summary, error)

	// Close releases any resources held by the client.
	Close() error
}
