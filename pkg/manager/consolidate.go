package manager

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/summarizer"
)

// consolidate runs one pass of the consolidation state machine for a
// session: read the oldest turns, distill them through the summarization
// client, commit the distilled statements to the semantic store, and only
// then remove the consolidated turns.
//
// The pass is single-flight per session: a second trigger while one is in
// flight is skipped, not queued. Any failure before the commit leaves the
// buffer untouched so the next trigger retries the same turns. The
// summarization call itself runs without any lock held.
func (m *Manager) consolidate(ctx context.Context, s *session) {
	if !s.consolidating.CompareAndSwap(false, true) {
		m.logger.Debug("consolidation already in flight, skipping",
			zap.String("session_id", s.id),
		)
		return
	}
	defer s.consolidating.Store(false)

	if m.deps.Summarizer == nil {
		m.logger.Debug("no summarization client configured, skipping consolidation",
			zap.String("session_id", s.id),
		)
		return
	}

	s.mu.Lock()
	oldest := s.buffer.PeekOldest(m.config.SummarizeLength)
	s.mu.Unlock()

	if len(oldest) < m.config.SummarizeLength {
		return
	}

	summary, err := m.deps.Summarizer.Summarize(ctx, renderTranscript(oldest), summarizer.Instruction)
	if err != nil {
		// Malformed output and transport failures alike: abort, keep the
		// turns, retry on the next trigger.
		m.logger.Warn("consolidation aborted, will retry on next trigger",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, statement := range summary.Statements {
		if _, err := s.store.Add(ctx, statement, m.config.ConsolidationImportance); err != nil {
			m.logger.Error("consolidation commit failed, keeping turns for retry",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
			return
		}
	}

	// Capacity overflow may have rotated turns out while the summarization
	// call was in flight. Remove only if the buffer's head is still the
	// exact run of turns that was summarized; otherwise removal would
	// delete turns that were never distilled.
	if !sameTurns(s.buffer.PeekOldest(m.config.SummarizeLength), oldest) {
		m.logger.Warn("buffer rotated during consolidation, skipping removal",
			zap.String("session_id", s.id),
		)
		return
	}

	if _, err := s.buffer.RemoveOldest(m.config.SummarizeLength); err != nil {
		m.logger.Error("removing consolidated turns failed",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		return
	}

	m.logger.Info("consolidated recent turns",
		zap.String("session_id", s.id),
		zap.Int("turns", m.config.SummarizeLength),
		zap.Int("statements", len(summary.Statements)),
		zap.Int("tokens_used", summary.Usage.TotalTokens),
	)
}

// sameTurns reports whether a and b hold the same turns in the same order.
func sameTurns(a, b []memory.Turn) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Speaker != b[i].Speaker ||
			a[i].Content != b[i].Content ||
			!a[i].CreatedAt.Equal(b[i].CreatedAt) {
			return false
		}
	}
	return true
}

// renderTranscript joins the turns into the transcript handed to the
// summarization client.
func renderTranscript(turns []memory.Turn) string {
	lines := make([]string, 0, len(turns)+1)
	lines = append(lines, transcriptHeader)
	for _, turn := range turns {
		lines = append(lines, turn.Render())
	}
	return strings.Join(lines, "\n")
}
