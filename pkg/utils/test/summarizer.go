package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/engram/pkg/summarizer"
)

// MockSummarizer is a test summarization client that records calls and
// returns configurable results.
type MockSummarizer struct {
	// Statements is returned for every call.
	Statements []string

	// Err causes Summarize to fail.
	Err error

	// Gate, when non-nil, blocks Summarize until the channel is closed.
	// Used to hold a consolidation in flight.
	Gate chan struct{}

	// Calls counts Summarize invocations.
	Calls atomic.Int32

	mu             sync.Mutex
	lastTranscript string
}

func NewMockSummarizer(statements ...string) *MockSummarizer {
	return &MockSummarizer{Statements: statements}
}

// LastTranscript returns the transcript most recently summarized.
// Safe to read while a gated Summarize is in flight.
func (m *MockSummarizer) LastTranscript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTranscript
}

func (m *MockSummarizer) Summarize(_ context.Context, transcript string, _ string) (*summarizer.Summary, error) {
	m.Calls.Add(1)

	m.mu.Lock()
	m.lastTranscript = transcript
	m.mu.Unlock()

	if m.Gate != nil {
		<-m.Gate
	}

	if m.Err != nil {
		return nil, m.Err
	}

	return &summarizer.Summary{
		Statements: m.Statements,
		Usage:      summarizer.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *MockSummarizer) Close() error {
	return nil
}
