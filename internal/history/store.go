// Package history keeps a local sqlite log of finished sessions.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barakem/voicegame/internal/config"
	"github.com/barakem/voicegame/internal/fsm"
	"github.com/barakem/voicegame/internal/logging"
	"github.com/barakem/voicegame/internal/session"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	fileName     = "history.db"
	defaultLimit = 20
)

// ErrDisabled is returned when a read needs a persisted store.
var ErrDisabled = errors.New("history is disabled")

// Entry is one recorded session.
type Entry struct {
	ID            string
	Generation    uint64
	State         fsm.State
	Language      string
	StartedAt     time.Time
	FinishedAt    time.Time
	RawTranscript string
	DisplayText   string
	ErrorKind     session.ErrorKind
	Samples       int
}

// Latency is the wall time from start to the terminal state.
func (e Entry) Latency() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store wraps the sqlite-backed session log. A disabled store drops commits
// and refuses reads with ErrDisabled.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
	newID func() string
}

// DefaultPath resolves history.db under the state directory.
func DefaultPath() (string, error) {
	dir, err := logging.StateDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(dir, fileName), nil
}

// Open initializes the store according to config.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}
	s := &Store{cfg: cfg, log: log, clock: time.Now, newID: uuid.NewString}
	if !cfg.Enable {
		return s, nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		resolved, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s.db = db

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    generation INTEGER NOT NULL,
    state TEXT NOT NULL,
    language TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    raw_transcript TEXT NOT NULL DEFAULT '',
    display_text TEXT NOT NULL DEFAULT '',
    error_kind TEXT NOT NULL DEFAULT '',
    samples INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_finished ON sessions(finished_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether commits are persisted.
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Commit implements session.Committer.
func (s *Store) Commit(ctx context.Context, snap session.Session) error {
	if !s.Enabled() {
		return nil
	}
	if !fsm.Terminal(snap.State) {
		return fmt.Errorf("commit session in state %s: not terminal", snap.State)
	}
	id := snap.ID
	if id == "" {
		id = s.newID()
	}
	finished := snap.FinishedAt
	if finished.IsZero() {
		finished = s.clock()
	}
	started := snap.StartedAt
	if started.IsZero() {
		started = finished
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, generation, state, language, started_at, finished_at,
		     raw_transcript, display_text, error_kind, samples)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     state=excluded.state, finished_at=excluded.finished_at,
		     raw_transcript=excluded.raw_transcript, display_text=excluded.display_text,
		     error_kind=excluded.error_kind, samples=excluded.samples`,
		id, int64(snap.Generation), string(snap.State), snap.Language,
		started.UTC().UnixNano(), finished.UTC().UnixNano(),
		snap.RawTranscript, snap.DisplayText, string(snap.ErrorKind), snap.Samples)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}

	if s.cfg.Retain > 0 {
		if err := s.Prune(ctx); err != nil {
			s.log.Warn("history prune failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// List returns up to limit sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, generation, state, language, started_at, finished_at,
		        raw_transcript, display_text, error_kind, samples
		 FROM sessions ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			generation        int64
			state, errorKind  string
			started, finished int64
		)
		if err := rows.Scan(&e.ID, &generation, &state, &e.Language, &started, &finished,
			&e.RawTranscript, &e.DisplayText, &errorKind, &e.Samples); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.Generation = uint64(generation)
		e.State = fsm.State(state)
		e.ErrorKind = session.ErrorKind(errorKind)
		e.StartedAt = time.Unix(0, started)
		e.FinishedAt = time.Unix(0, finished)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune keeps only the newest Retain rows. Retain 0 keeps everything.
func (s *Store) Prune(ctx context.Context) error {
	if !s.Enabled() || s.cfg.Retain <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id IN (
		SELECT id FROM sessions ORDER BY finished_at DESC, rowid DESC LIMIT -1 OFFSET ?
	)`, s.cfg.Retain)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	return nil
}
