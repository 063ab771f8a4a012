package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/tui"
)

// MessageRole represents the role of a chat message sender.
type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleAgent  MessageRole = "agent"
	RoleSystem MessageRole = "system"
)

// Message represents a single chat message.
type Message struct {
	ID         string      `json:"id"`
	Role       MessageRole `json:"role"`
	Agent      core.Agent  `json:"agent,omitempty"`
	Content    string      `json:"content"`
	Confidence float64     `json:"confidence,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAgentMessage creates a message for one persona reply.
func NewAgentMessage(r tui.Reply) Message {
	role := RoleAgent
	if !r.Agent.IsSpecialist() {
		role = RoleSystem
	}
	return Message{
		ID:         uuid.NewString(),
		Role:       role,
		Agent:      r.Agent,
		Content:    r.Text,
		Confidence: r.Confidence,
		Timestamp:  time.Now(),
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleSystem, Agent: core.AgentSystem, Content: content, Timestamp: time.Now()}
}

// ConversationHistory is a bounded, thread-safe message log.
type ConversationHistory struct {
	mu       sync.RWMutex
	messages []Message
	maxSize  int
}

// NewConversationHistory creates a history holding at most maxSize messages.
func NewConversationHistory(maxSize int) *ConversationHistory {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &ConversationHistory{messages: make([]Message, 0, maxSize), maxSize: maxSize}
}

// Add appends a message, dropping the oldest at capacity.
func (h *ConversationHistory) Add(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.messages) >= h.maxSize {
		h.messages = h.messages[1:]
	}
	h.messages = append(h.messages, msg)
}

// All returns a copy of every message.
func (h *ConversationHistory) All() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// LastAgentTurn returns the persona replies that followed the latest user
// message.
func (h *ConversationHistory) LastAgentTurn() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Message
	for i := len(h.messages) - 1; i >= 0; i-- {
		m := h.messages[i]
		if m.Role == RoleUser {
			break
		}
		if m.Role == RoleAgent {
			out = append([]Message{m}, out...)
		}
	}
	return out
}

// Len returns the number of messages.
func (h *ConversationHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear removes all messages.
func (h *ConversationHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
}

// Transcript renders the history as plain text for copying.
func (h *ConversationHistory) Transcript() string {
	var sb strings.Builder
	for _, m := range h.All() {
		sb.WriteString(plainLine(m))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

func plainLine(m Message) string {
	switch m.Role {
	case RoleUser:
		return "You: " + m.Content
	case RoleAgent:
		return tui.AgentLabel(m.Agent) + ": " + m.Content
	default:
		return "[System] " + m.Content
	}
}
