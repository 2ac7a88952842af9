// Package recent implements the bounded, persisted buffer of recent
// conversation turns for one session.
//
// The buffer is FIFO with a fixed capacity: pushing past capacity silently
// drops the oldest turn. Every mutation re-serializes the full ordered turn
// list to a per-session JSON document using write-then-rename so a crash
// mid-write cannot leave a half-written file behind.
package recent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
)

// DefaultCapacity is the default maximum number of turns held in a buffer.
const DefaultCapacity = 50

// Buffer is the recent-turn buffer for a single session.
type Buffer struct {
	sessionID string
	capacity  int
	path      string
	logger    *zap.Logger

	mu    sync.Mutex
	turns []memory.Turn
}

// Config holds configuration for a recent buffer.
type Config struct {
	// Dir is the directory holding per-session buffer files.
	Dir string

	// SessionID identifies the session this buffer belongs to.
	SessionID string

	// Capacity is the maximum number of turns retained.
	// Defaults to DefaultCapacity if zero or negative.
	Capacity int
}

// NewBuffer creates the buffer for a session, loading any previously
// persisted turn list. A missing or corrupt state file is not an error:
// the buffer starts empty and the failure is logged.
func NewBuffer(c Config, logger *zap.Logger) (*Buffer, error) {
	if c.Dir == "" {
		return nil, errors.New("buffer directory is required")
	}
	if c.SessionID == "" {
		return nil, errors.New("session id is required")
	}

	capacity := c.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating buffer directory: %w", err)
	}

	b := &Buffer{
		sessionID: c.SessionID,
		capacity:  capacity,
		path:      filepath.Join(c.Dir, fmt.Sprintf("recent_%s.json", c.SessionID)),
		logger:    logger,
	}
	b.load()

	return b, nil
}

// Add appends a turn, dropping the oldest turn when the buffer is at
// capacity, and persists the full turn list. A persistence failure is
// returned to the caller; the in-memory state is rolled back so memory
// and disk stay consistent.
func (b *Buffer) Add(turn memory.Turn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.turns
	b.turns = append(append([]memory.Turn(nil), b.turns...), turn)
	if len(b.turns) > b.capacity {
		b.turns = b.turns[len(b.turns)-b.capacity:]
	}

	if err := b.save(); err != nil {
		b.turns = prev
		return fmt.Errorf("persisting recent buffer: %w", err)
	}

	return nil
}

// Recent returns the n most recent turns, oldest to newest, rendered for
// prompt injection. n <= 0 or n greater than the buffer length returns
// all turns.
func (b *Buffer) Recent(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > len(b.turns) {
		n = len(b.turns)
	}

	rendered := make([]string, 0, n)
	for _, turn := range b.turns[len(b.turns)-n:] {
		rendered = append(rendered, turn.Render())
	}

	return rendered
}

// PeekOldest returns up to n of the oldest turns without mutating the
// buffer. Consolidation reads its transcript through this.
func (b *Buffer) PeekOldest(n int) []memory.Turn {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n > len(b.turns) {
		n = len(b.turns)
	}

	oldest := make([]memory.Turn, n)
	copy(oldest, b.turns[:n])

	return oldest
}

// RemoveOldest removes and returns up to n of the oldest turns, persisting
// the shortened list. Called only after a successful consolidation commit.
// On a persistence failure the removal is rolled back and the error
// returned.
func (b *Buffer) RemoveOldest(n int) ([]memory.Turn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 {
		return nil, nil
	}
	if n > len(b.turns) {
		n = len(b.turns)
	}

	prev := b.turns
	removed := make([]memory.Turn, n)
	copy(removed, b.turns[:n])
	b.turns = append([]memory.Turn(nil), b.turns[n:]...)

	if err := b.save(); err != nil {
		b.turns = prev
		return nil, fmt.Errorf("persisting recent buffer: %w", err)
	}

	return removed, nil
}

// Len returns the current turn count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.turns)
}

// Clear empties the buffer and persists the empty list.
func (b *Buffer) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.turns
	b.turns = nil

	if err := b.save(); err != nil {
		b.turns = prev
		return fmt.Errorf("persisting recent buffer: %w", err)
	}

	return nil
}

// load reads the persisted turn list. Missing or unreadable state starts
// the buffer empty; the failure is logged, never raised.
func (b *Buffer) load() {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn("recent buffer state unreadable, starting empty",
				zap.String("session_id", b.sessionID),
				zap.Error(err),
			)
		}
		return
	}

	var turns []memory.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		b.logger.Warn("recent buffer state corrupt, starting empty",
			zap.String("session_id", b.sessionID),
			zap.Error(err),
		)
		return
	}

	// Persisted state from a larger capacity keeps the newest turns.
	if len(turns) > b.capacity {
		turns = turns[len(turns)-b.capacity:]
	}

	b.turns = turns
}

// save writes the full turn list to a temp file and renames it over the
// state file. Callers hold b.mu.
func (b *Buffer) save() error {
	data, err := json.Marshal(b.turns)
	if err != nil {
		return fmt.Errorf("marshaling turns: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(b.path), "recent-*.json")
	if err != nil {
		return fmt.Errorf("creating temp buffer file: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("writing temp buffer file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("closing temp buffer file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), b.path); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("replacing buffer file: %w", err)
	}

	return nil
}
