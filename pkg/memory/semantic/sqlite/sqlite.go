// Package sqlite provides the default SQLite-backed semantic store driver.
// Each session gets its own database file holding a single memories table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/semantic"
)

// Store implements semantic.Store using a per-session SQLite database.
type Store struct {
	db       *sql.DB
	embedder embeddings.Embedder
	now      func() time.Time
	logger   *zap.Logger
}

// Config holds configuration for the SQLite semantic store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Embedder generates entry and query embeddings. May be nil, in which
	// case Add fails with memory.ErrEmbeddingUnavailable and Query returns
	// empty results.
	Embedder embeddings.Embedder

	// Now overrides the clock, for deterministic tests.
	// Defaults to time.Now.
	Now func() time.Time
}

// NewStore opens (or creates) the semantic store database at the
// configured path.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One shared connection avoids writer lock contention with SQLite
	// under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
		`PRAGMA busy_timeout = 5000`,
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma: %w", err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			dims INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			importance REAL NOT NULL,
			last_accessed INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating memories table: %w", err)
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	logger.Debug("sqlite semantic store initialized",
		zap.String("db_path", c.DBPath),
	)

	return &Store{
		db:       db,
		embedder: c.Embedder,
		now:      now,
		logger:   logger,
	}, nil
}

// NewOpener returns a semantic.Opener creating one database file per
// session id under dir.
func NewOpener(dir string, embedder embeddings.Embedder, logger *zap.Logger) semantic.Opener {
	return func(sessionID string) (semantic.Store, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		return NewStore(Config{
			DBPath:   filepath.Join(dir, fmt.Sprintf("semantic_%s.db", sessionID)),
			Embedder: embedder,
		}, logger)
	}
}

// Add embeds content and inserts a new entry.
func (s *Store) Add(ctx context.Context, content string, importance float64) (int64, error) {
	if strings.TrimSpace(content) == "" {
		return 0, memory.ErrInvalidContent
	}
	if s.embedder == nil {
		return 0, memory.ErrEmbeddingUnavailable
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return 0, fmt.Errorf("embedding content: %w", err)
	}

	if err := s.checkDims(ctx, len(vec)); err != nil {
		return 0, err
	}

	now := s.now().Unix()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (content, embedding, dims, created_at, importance, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, content, semantic.SerializeFloat32(vec), len(vec), now, importance, now)
	if err != nil {
		return 0, fmt.Errorf("inserting entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting entry id: %w", err)
	}

	s.logger.Debug("added semantic entry",
		zap.Int64("id", id),
		zap.Float64("importance", importance),
	)

	return id, nil
}

// Query ranks every entry against the embedded query text and returns the
// topK best rendered, bumping access stats for exactly those entries.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]string, error) {
	if s.embedder == nil {
		s.logger.Debug("semantic query skipped, no embedding provider")
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}

	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	now := s.now()
	top := semantic.Rank(entries, queryVec, now, topK)

	// The returned entries' access stats move together in one transaction.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range top {
		if _, err := tx.ExecContext(ctx, `
			UPDATE memories SET last_accessed = ?, access_count = access_count + 1 WHERE id = ?
		`, now.Unix(), e.ID); err != nil {
			return nil, fmt.Errorf("updating access stats for entry %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing access stats: %w", err)
	}

	rendered := make([]string, 0, len(top))
	for _, e := range top {
		rendered = append(rendered, e.Render())
	}

	return rendered, nil
}

// Delete removes the entry with the given id.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deleted rows: %w", err)
	}

	return affected > 0, nil
}

// SetImportance overwrites the entry's importance weight.
func (s *Store) SetImportance(ctx context.Context, id int64, importance float64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE memories SET importance = ? WHERE id = ?`, importance, id)
	if err != nil {
		return false, fmt.Errorf("updating importance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated rows: %w", err)
	}

	return affected > 0, nil
}

// EvictOutdated removes entries that are both older than maxAgeDays and
// less important than minImportance.
func (s *Store) EvictOutdated(ctx context.Context, maxAgeDays float64, minImportance float64) (int, error) {
	cutoff := s.now().Unix() - int64(maxAgeDays*86400)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM memories WHERE created_at < ? AND importance < ?
	`, cutoff, minImportance)
	if err != nil {
		return 0, fmt.Errorf("evicting entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking evicted rows: %w", err)
	}

	return int(affected), nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// checkDims enforces a single embedding dimensionality per store, fixed by
// the first insert.
func (s *Store) checkDims(ctx context.Context, dims int) error {
	var existing int
	err := s.db.QueryRowContext(ctx, `SELECT dims FROM memories LIMIT 1`).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return fmt.Errorf("checking embedding dims: %w", err)
	case existing != dims:
		return fmt.Errorf("embedding dimension mismatch: store holds %d-dim vectors, got %d", existing, dims)
	}
	return nil
}

// loadAll reads every entry into memory for the scoring pass.
func (s *Store) loadAll(ctx context.Context) ([]memory.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, embedding, dims, created_at, importance, last_accessed, access_count
		FROM memories
	`)
	if err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		var (
			e         memory.Entry
			blob      []byte
			dims      int
			createdAt int64
			accessed  int64
		)
		if err := rows.Scan(&e.ID, &e.Content, &blob, &dims, &createdAt, &e.Importance, &accessed, &e.AccessCount); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		vec, err := semantic.DeserializeFloat32(blob, dims)
		if err != nil {
			// A corrupt embedding should not poison the whole query.
			s.logger.Warn("skipping entry with corrupt embedding",
				zap.Int64("id", e.ID),
				zap.Error(err),
			)
			continue
		}

		e.Embedding = vec
		e.CreatedAt = time.Unix(createdAt, 0)
		e.LastAccessedAt = time.Unix(accessed, 0)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return entries, nil
}

// Ensure Store implements semantic.Store
var _ semantic.Store = (*Store)(nil)
