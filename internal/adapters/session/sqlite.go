package session

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/triad-ai/triad/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.SessionStore with SQLite storage.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB // Write connection
	readDB *sql.DB // Read-only connection
	mu     sync.RWMutex

	maxRetries    int
	baseRetryWait time.Duration
}

// SQLiteOption configures the store.
type SQLiteOption func(*SQLiteStore)

// WithRetries sets how often a busy write is retried and the first backoff.
func WithRetries(n int, base time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		if n >= 0 {
			s.maxRetries = n
		}
		if base > 0 {
			s.baseRetryWait = base
		}
	}
}

// NewSQLiteStore opens (and migrates) a session database.
func NewSQLiteStore(dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		dbPath:        dbPath,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// The read connection is opened after migrating so the file exists.
	readDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&mode=ro&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	migrations := []string{migrationV1}
	for i, migration := range migrations {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration transaction: %w", err)
		}
		for _, stmt := range splitStatements(migration) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("executing migration v%d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", version, err)
		}
	}
	return nil
}

// splitStatements splits a SQL script into statements, dropping comment lines.
func splitStatements(script string) []string {
	var statements []string
	for _, stmt := range strings.Split(script, ";") {
		var sqlLines []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				sqlLines = append(sqlLines, line)
			}
		}
		if len(sqlLines) > 0 {
			statements = append(statements, strings.Join(sqlLines, "\n"))
		}
	}
	return statements
}

// retryWrite executes a write, backing off while the database is busy.
func (s *SQLiteStore) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return err
		}
		lastErr = err
		wait := s.baseRetryWait * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, s.maxRetries, lastErr)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// SaveTurn implements core.SessionStore.
func (s *SQLiteStore) SaveTurn(ctx context.Context, turn core.TurnState) error {
	if err := core.ValidateSessionID(turn.SessionID); err != nil {
		return err
	}
	rec := core.NewTurnRecord(turn)
	now := formatTime(time.Now())

	return s.retryWrite(ctx, "SaveTurn", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, user_id, title, turn_count, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				turn_count = turn_count + 1,
				updated_at = excluded.updated_at
		`, rec.SessionID, turn.UserID, Title(rec.UserInput), now, now); err != nil {
			return fmt.Errorf("upserting session: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO turns (id, session_id, user_input, topic, active_agent, final_response, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.SessionID, rec.UserInput, string(rec.Topic), string(rec.ActiveAgent),
			rec.FinalResponse, formatTime(rec.CreatedAt)); err != nil {
			return fmt.Errorf("inserting turn: %w", err)
		}

		for i, h := range rec.History {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO turn_history (turn_id, position, agent, message, confidence)
				VALUES (?, ?, ?, ?, ?)
			`, rec.ID, i, string(h.Agent), h.Message, h.Confidence); err != nil {
				return fmt.Errorf("inserting history: %w", err)
			}
		}
		return tx.Commit()
	})
}

// LoadHistory implements core.SessionStore.
func (s *SQLiteStore) LoadHistory(ctx context.Context, sessionID string) ([]core.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT h.agent, h.message, h.confidence
		FROM turn_history h
		JOIN turns t ON t.id = h.turn_id
		WHERE t.session_id = ?
		ORDER BY t.seq ASC, h.position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	history := []core.HistoryEntry{}
	for rows.Next() {
		var h core.HistoryEntry
		var agent string
		if err := rows.Scan(&agent, &h.Message, &h.Confidence); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		h.Agent = core.Agent(agent)
		history = append(history, h)
	}
	return history, rows.Err()
}

// LoadTurns implements core.SessionStore.
func (s *SQLiteStore) LoadTurns(ctx context.Context, sessionID string) ([]core.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, session_id, user_input, topic, active_agent, final_response, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}

	turns := []core.TurnRecord{}
	index := make(map[string]int)
	for rows.Next() {
		var rec core.TurnRecord
		var topic, agent, createdAt string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.UserInput, &topic, &agent, &rec.FinalResponse, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		rec.Topic = core.Topic(topic)
		rec.ActiveAgent = core.Agent(agent)
		rec.CreatedAt = parseTime(createdAt)
		index[rec.ID] = len(turns)
		turns = append(turns, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return turns, nil
	}

	hrows, err := s.readDB.QueryContext(ctx, `
		SELECT h.turn_id, h.agent, h.message, h.confidence
		FROM turn_history h
		JOIN turns t ON t.id = h.turn_id
		WHERE t.session_id = ?
		ORDER BY t.seq ASC, h.position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer hrows.Close()

	for hrows.Next() {
		var turnID, agent string
		var h core.HistoryEntry
		if err := hrows.Scan(&turnID, &agent, &h.Message, &h.Confidence); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		h.Agent = core.Agent(agent)
		if i, ok := index[turnID]; ok {
			turns[i].History = append(turns[i].History, h)
		}
	}
	return turns, hrows.Err()
}

// GetSession implements core.SessionStore.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, user_id, title, turn_count, created_at, updated_at
		FROM sessions WHERE id = ?
	`, sessionID)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &rec, nil
}

// ListSessions implements core.SessionStore.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, user_id, title, turn_count, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []core.SessionRecord{}
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (core.SessionRecord, error) {
	var rec core.SessionRecord
	var createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.TurnCount, &createdAt, &updatedAt); err != nil {
		return rec, err
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

// DeleteSession implements core.SessionStore.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.retryWrite(ctx, "DeleteSession", func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrNotFound("session", sessionID)
		}
		return nil
	})
}

// Close closes both database connections.
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing read connection: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing write connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
