// Package manager owns the per-session memory lifecycles: the session
// registry, the consolidation state machine that distills old recent
// turns into long-term entries, and the background maintenance loop that
// evicts stale entries.
//
// A Manager is explicitly constructed and dependency-injected by the host
// application; it holds no global state. The four exported operations on
// it — AddMessage, QueryRelevantMemories, GetRecentMemories, and
// GetContextMemories — are the only integration points the host needs.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/recent"
	"github.com/papercomputeco/engram/pkg/memory/semantic"
	"github.com/papercomputeco/engram/pkg/summarizer"
)

const (
	// DefaultRecentCapacity bounds each session's recent buffer.
	DefaultRecentCapacity = 50

	// DefaultRecentThreshold is the buffer length beyond which
	// consolidation triggers.
	DefaultRecentThreshold = 20

	// DefaultSummarizeLength is how many of the oldest turns one
	// consolidation pass distills.
	DefaultSummarizeLength = 10

	// DefaultConsolidationImportance is the importance weight assigned to
	// entries produced by consolidation.
	DefaultConsolidationImportance = 1.2

	// DefaultCleanInterval is how long between eviction sweeps.
	DefaultCleanInterval = 7 * 24 * time.Hour

	// DefaultTickInterval is how often the maintenance loop wakes to check
	// whether a sweep is due.
	DefaultTickInterval = time.Hour

	// DefaultEvictMaxAgeDays and DefaultEvictMinImportance parameterize
	// the staleness eviction: entries both older than the age and less
	// important than the floor are removed.
	DefaultEvictMaxAgeDays    = 90.0
	DefaultEvictMinImportance = 0.3
)

const (
	transcriptHeader     = "[Chat transcript (agent replies marked as " + memory.AgentSpeaker + ")]"
	contextRelevantLabel = "[Relevant long-term memories]"
	contextHistoryLabel  = "[Chat history (agent replies marked as " + memory.AgentSpeaker + ")]"
	contextCurrentLabel  = "[Current turn]"
)

// Config tunes the manager. Zero values fall back to the defaults above.
type Config struct {
	RecentCapacity          int
	RecentThreshold         int
	SummarizeLength         int
	ConsolidationImportance float64
	CleanInterval           time.Duration
	TickInterval            time.Duration
	EvictMaxAgeDays         float64

	// EvictMinImportance is the importance floor for eviction sweeps.
	// Zero falls back to the default; a negative value disables
	// importance-based eviction entirely (no stored entry can rank
	// below a negative floor).
	EvictMinImportance float64
}

// Deps are the collaborators a Manager is constructed with.
type Deps struct {
	// BufferDir is the directory holding per-session recent buffer files.
	BufferDir string

	// OpenStore lazily creates the semantic store partition for a session.
	OpenStore semantic.Opener

	// Summarizer distills transcripts during consolidation. May be nil,
	// which disables consolidation (the recent buffer still rotates by
	// capacity).
	Summarizer summarizer.Client

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Now overrides the clock, for deterministic tests.
	// Defaults to time.Now.
	Now func() time.Time
}

// session pairs one session id's recent buffer and semantic store.
// mu serializes all mutation for the session; consolidating is the
// single-flight flag for the consolidation state machine.
type session struct {
	id     string
	buffer *recent.Buffer
	store  semantic.Store

	mu            sync.Mutex
	consolidating atomic.Bool
}

// Manager is the process-wide registry of per-session memory state.
type Manager struct {
	config Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Manager. Call Start to launch background maintenance and
// Close during shutdown.
func New(config Config, deps Deps) (*Manager, error) {
	if deps.BufferDir == "" {
		return nil, errors.New("buffer directory is required")
	}
	if deps.OpenStore == nil {
		return nil, errors.New("semantic store opener is required")
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if config.RecentCapacity <= 0 {
		config.RecentCapacity = DefaultRecentCapacity
	}
	if config.RecentThreshold <= 0 {
		config.RecentThreshold = DefaultRecentThreshold
	}
	if config.SummarizeLength <= 0 {
		config.SummarizeLength = DefaultSummarizeLength
	}
	if config.ConsolidationImportance == 0 {
		config.ConsolidationImportance = DefaultConsolidationImportance
	}
	if config.CleanInterval <= 0 {
		config.CleanInterval = DefaultCleanInterval
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.EvictMaxAgeDays <= 0 {
		config.EvictMaxAgeDays = DefaultEvictMaxAgeDays
	}
	if config.EvictMinImportance == 0 {
		config.EvictMinImportance = DefaultEvictMinImportance
	}

	return &Manager{
		config:    config,
		deps:      deps,
		logger:    deps.Logger,
		now:       deps.Now,
		sessions:  make(map[string]*session),
		lastSweep: deps.Now(),
		stop:      make(chan struct{}),
	}, nil
}

// AddMessage appends a turn to the session's recent buffer, creating the
// session's stores on first reference, and triggers consolidation once
// the buffer grows past the configured threshold. An agent turn is
// relabeled with the reserved agent speaker.
func (m *Manager) AddMessage(ctx context.Context, sessionID string, turn memory.Turn, isAgentTurn bool) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}

	if isAgentTurn {
		turn.Speaker = memory.AgentSpeaker
	}

	s.mu.Lock()
	err = s.buffer.Add(turn)
	length := s.buffer.Len()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("adding turn for session %s: %w", sessionID, err)
	}

	if length > m.config.RecentThreshold {
		m.consolidate(ctx, s)
	}

	return nil
}

// QueryRelevantMemories returns the session's topK most relevant
// long-term entries for the query, rendered for prompt injection.
func (m *Manager) QueryRelevantMemories(ctx context.Context, sessionID string, query string, topK int) ([]string, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Query(ctx, query, topK)
}

// GetRecentMemories returns the session's topK most recent turns,
// oldest to newest, rendered for prompt injection.
func (m *Manager) GetRecentMemories(ctx context.Context, sessionID string, topK int) ([]string, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffer.Recent(topK), nil
}

// GetContextMemories assembles a prompt-ready context block: optionally
// the relevantTopK long-term entries matching query, then the
// recentTopK−1 most recent turns, then a marker for the in-flight turn.
// The newest turn is withheld because it is the message the host is
// currently answering. Long-term recall failures degrade to an absent
// section rather than an error.
func (m *Manager) GetContextMemories(ctx context.Context, sessionID string, query string, recentTopK int, relevantTopK int) (string, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	if relevantTopK > 0 && query != "" {
		s.mu.Lock()
		relevant, err := s.store.Query(ctx, query, relevantTopK)
		s.mu.Unlock()
		if err != nil {
			m.logger.Warn("long-term recall failed, omitting from context",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		if len(relevant) > 0 {
			b.WriteString(contextRelevantLabel + "\n")
			for _, line := range relevant {
				b.WriteString(line + "\n")
			}
		}
	}

	s.mu.Lock()
	lines := s.buffer.Recent(recentTopK)
	s.mu.Unlock()

	b.WriteString(contextHistoryLabel + "\n")
	if len(lines) > 0 {
		for _, line := range lines[:len(lines)-1] {
			b.WriteString(line + "\n")
		}
	}
	b.WriteString(contextCurrentLabel + "\n")

	return b.String(), nil
}

// Close stops background maintenance and releases every session's store.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, s := range m.sessions {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store for session %s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

// session returns the state for a session id, creating both stores on
// first reference. Creation is mutually exclusive so two concurrent
// first-accesses never construct two store pairs for one id.
func (m *Manager) session(sessionID string) (*session, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}

	buffer, err := recent.NewBuffer(recent.Config{
		Dir:       m.deps.BufferDir,
		SessionID: sessionID,
		Capacity:  m.config.RecentCapacity,
	}, m.logger)
	if err != nil {
		return nil, fmt.Errorf("creating recent buffer for session %s: %w", sessionID, err)
	}

	store, err := m.deps.OpenStore(sessionID)
	if err != nil {
		return nil, fmt.Errorf("opening semantic store for session %s: %w", sessionID, err)
	}

	s := &session{
		id:     sessionID,
		buffer: buffer,
		store:  store,
	}
	m.sessions[sessionID] = s

	m.logger.Debug("session created", zap.String("session_id", sessionID))

	return s, nil
}
