// Package session persists finished turns so conversations survive restarts.
package session

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/triad-ai/triad/internal/core"
)

// Backend names accepted by NewStore.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

const maxTitleLength = 60

// NewStore creates a session store. SQLite paths get a .db extension; the
// JSON backend treats path as a directory.
func NewStore(backend, path string) (core.SessionStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSQLite:
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	case BackendJSON:
		return NewJSONStore(path)
	default:
		return nil, core.ErrValidation("UNKNOWN_BACKEND", fmt.Sprintf("unknown session backend %q", backend))
	}
}

// Title derives a session title from its first input.
func Title(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	runes := []rune(input)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength-3]) + "..."
	}
	return input
}
