// Package memory defines the core types shared by the recent-turn buffer,
// the semantic store, and the memory manager.
//
// A conversation session owns two tiers of memory: a bounded buffer of
// recent [Turn]s recalled verbatim, and a durable store of distilled
// [Entry] facts recalled by meaning. Consolidation moves information from
// the first tier into the second.
package memory

import (
	"fmt"
	"time"
)

// AgentSpeaker is the reserved speaker label for turns produced by the
// agent itself.
const AgentSpeaker = "agent"

// TimeLayout is the display format for turn and entry timestamps when
// rendered for prompt injection.
const TimeLayout = "2006-01-02 15:04:05"

// Turn is a single conversational message attributed to a speaker.
// Turns are immutable once created.
type Turn struct {
	Speaker       string    `json:"speaker"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	FormattedTime string    `json:"formatted_time"`
}

// NewTurn creates a Turn stamped at the given time.
func NewTurn(speaker, content string, at time.Time) Turn {
	return Turn{
		Speaker:       speaker,
		Content:       content,
		CreatedAt:     at,
		FormattedTime: at.Format(TimeLayout),
	}
}

// Render formats the turn for prompt injection.
func (t Turn) Render() string {
	return fmt.Sprintf("%s(%s): %s", t.Speaker, t.FormattedTime, t.Content)
}

// Entry is one long-term fact held by a semantic store.
//
// AccessCount and LastAccessedAt change only as a side effect of a query
// that returned the entry, and always change together.
type Entry struct {
	ID             int64
	Content        string
	Embedding      []float32
	CreatedAt      time.Time
	Importance     float64
	LastAccessedAt time.Time
	AccessCount    int
}

// Render formats the entry for prompt injection.
func (e Entry) Render() string {
	return fmt.Sprintf("(time: %s): %s", e.CreatedAt.Format(TimeLayout), e.Content)
}
