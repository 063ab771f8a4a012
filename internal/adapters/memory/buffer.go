package memory

import (
	"strings"
	"sync"

	"github.com/triad-ai/triad/internal/core"
)

// DefaultWindow is the number of exchanges a Buffer keeps per session and agent.
const DefaultWindow = 10

type exchange struct {
	input    string
	response string
}

type bufferKey struct {
	session string
	agent   core.Agent
}

// Buffer is a sliding window of recent exchanges for each session and agent.
// It is safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	window  int
	entries map[bufferKey][]exchange
}

// NewBuffer creates a buffer keeping window exchanges per session and agent.
func NewBuffer(window int) *Buffer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Buffer{
		window:  window,
		entries: make(map[bufferKey][]exchange),
	}
}

// Add records one exchange, evicting the oldest past the window.
func (b *Buffer) Add(sessionID string, agent core.Agent, input, response string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := bufferKey{session: sessionID, agent: agent}
	list := append(b.entries[key], exchange{input: input, response: response})
	if len(list) > b.window {
		list = append([]exchange(nil), list[len(list)-b.window:]...)
	}
	b.entries[key] = list
}

// History renders an agent's window in a session as alternating "Human:" and
// "Ai:" lines.
func (b *Buffer) History(sessionID string, agent core.Agent) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.entries[bufferKey{session: sessionID, agent: agent}]
	if len(list) == 0 {
		return ""
	}
	lines := make([]string, 0, 2*len(list))
	for _, e := range list {
		lines = append(lines, "Human: "+e.input, "Ai: "+e.response)
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of exchanges kept for agent in a session.
func (b *Buffer) Len(sessionID string, agent core.Agent) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries[bufferKey{session: sessionID, agent: agent}])
}

// Clear drops every window.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[bufferKey][]exchange)
}
