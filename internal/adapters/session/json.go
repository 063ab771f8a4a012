package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/triad-ai/triad/internal/core"
)

const envelopeVersion = 1

// JSONStore implements core.SessionStore with one JSON file per session.
type JSONStore struct {
	mu          sync.RWMutex
	sessionsDir string
}

// sessionFile is the on-disk layout of a session.
type sessionFile struct {
	Version int                `json:"version"`
	Session core.SessionRecord `json:"session"`
	Turns   []core.TurnRecord  `json:"turns"`
}

// NewJSONStore creates a store rooted at dir.
func NewJSONStore(dir string) (*JSONStore, error) {
	s := &JSONStore{sessionsDir: filepath.Join(dir, "sessions")}
	if err := os.MkdirAll(s.sessionsDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return s, nil
}

func (s *JSONStore) sessionPath(id string) string {
	return filepath.Join(s.sessionsDir, id+".json")
}

// read returns nil when the session does not exist.
func (s *JSONStore) read(id string) (*sessionFile, error) {
	if core.ValidateSessionID(id) != nil {
		return nil, nil
	}
	data, err := os.ReadFile(s.sessionPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return &f, nil
}

func (s *JSONStore) write(f *sessionFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := atomicWriteFile(s.sessionPath(f.Session.ID), data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// SaveTurn implements core.SessionStore.
func (s *JSONStore) SaveTurn(_ context.Context, turn core.TurnState) error {
	if err := core.ValidateSessionID(turn.SessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(turn.SessionID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if f == nil {
		f = &sessionFile{
			Version: envelopeVersion,
			Session: core.SessionRecord{
				ID:        turn.SessionID,
				UserID:    turn.UserID,
				Title:     Title(turn.UserInput),
				CreatedAt: now,
			},
		}
	}
	f.Turns = append(f.Turns, core.NewTurnRecord(turn))
	f.Session.TurnCount = len(f.Turns)
	f.Session.UpdatedAt = now
	return s.write(f)
}

// LoadHistory implements core.SessionStore.
func (s *JSONStore) LoadHistory(_ context.Context, sessionID string) ([]core.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.read(sessionID)
	if err != nil {
		return nil, err
	}
	history := []core.HistoryEntry{}
	if f != nil {
		for _, t := range f.Turns {
			history = append(history, t.History...)
		}
	}
	return history, nil
}

// LoadTurns implements core.SessionStore.
func (s *JSONStore) LoadTurns(_ context.Context, sessionID string) ([]core.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.read(sessionID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return []core.TurnRecord{}, nil
	}
	return f.Turns, nil
}

// GetSession implements core.SessionStore.
func (s *JSONStore) GetSession(_ context.Context, sessionID string) (*core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.read(sessionID)
	if err != nil || f == nil {
		return nil, err
	}
	return &f.Session, nil
}

// ListSessions implements core.SessionStore. Unreadable files are skipped.
func (s *JSONStore) ListSessions(_ context.Context) ([]core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	sessions := []core.SessionRecord{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.sessionsDir, entry.Name()))
		if err != nil {
			continue
		}
		var f sessionFile
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		sessions = append(sessions, f.Session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// DeleteSession implements core.SessionStore.
func (s *JSONStore) DeleteSession(_ context.Context, sessionID string) error {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return core.ErrNotFound("session", sessionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.sessionPath(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return core.ErrNotFound("session", sessionID)
	}
	if err != nil {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *JSONStore) Close() error {
	return nil
}
