package core

import (
	"context"
	"time"
)

// =============================================================================
// Collaborator Ports
// =============================================================================

// Retriever fetches external context for a query. Implementations are best
// effort and return an empty string on any failure.
type Retriever interface {
	Search(ctx context.Context, query string) string
}

// Memory stores and recalls conversational memory per session and agent.
// Exchanges remembered in one session are never recalled in another.
type Memory interface {
	// Recall returns formatted memory relevant to query, or "" when nothing
	// is available.
	Recall(ctx context.Context, sessionID string, agent Agent, query string) string

	// Remember records one exchange. Failures are swallowed.
	Remember(ctx context.Context, sessionID string, agent Agent, input, response string)
}

// Generator produces text from a prompt. It may fail or return empty text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier assigns a topic to user input.
type Classifier interface {
	Classify(ctx context.Context, text string) Topic
}

// =============================================================================
// Specialist Port
// =============================================================================

// SpecialistRequest is what a specialist sees of the turn.
type SpecialistRequest struct {
	// SessionID scopes memory. Requests without one get no memory.
	SessionID string
	Topic     Topic
	UserInput string
	History   []HistoryEntry
}

// SpecialistResponse is the outcome of a specialist invocation.
type SpecialistResponse struct {
	Text       string
	Confidence float64
	WebContext string
	// Fallback is true when Text is the static fallback message.
	Fallback bool
}

// Specialist is one persona that answers a turn. Respond never fails; errors
// are converted into a fallback response.
type Specialist interface {
	Agent() Agent
	Respond(ctx context.Context, req SpecialistRequest) SpecialistResponse
}

// =============================================================================
// Session Persistence Port
// =============================================================================

// SessionRecord summarizes a stored session.
type SessionRecord struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	Title     string    `json:"title" yaml:"title"`
	TurnCount int       `json:"turn_count" yaml:"turn_count"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// TurnRecord is a finished turn as persisted.
type TurnRecord struct {
	ID            string         `json:"id" yaml:"id"`
	SessionID     string         `json:"session_id" yaml:"session_id"`
	UserInput     string         `json:"user_input" yaml:"user_input"`
	Topic         Topic          `json:"topic" yaml:"topic"`
	ActiveAgent   Agent          `json:"active_agent" yaml:"active_agent"`
	FinalResponse string         `json:"final_response" yaml:"final_response"`
	History       []HistoryEntry `json:"history" yaml:"history"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
}

// SessionStore persists finished turns. History is append only per turn.
type SessionStore interface {
	// SaveTurn appends a finished turn, creating the session if needed.
	SaveTurn(ctx context.Context, turn TurnState) error

	// LoadHistory returns the specialist history of every stored turn in
	// order. Unknown sessions yield an empty slice.
	LoadHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error)

	// LoadTurns returns the stored turns of a session in order.
	LoadTurns(ctx context.Context, sessionID string) ([]TurnRecord, error)

	// GetSession returns a session summary, or nil if it does not exist.
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)

	// ListSessions returns sessions, most recently updated first.
	ListSessions(ctx context.Context) ([]SessionRecord, error)

	// DeleteSession removes a session and its turns.
	DeleteSession(ctx context.Context, sessionID string) error

	// Close releases resources.
	Close() error
}

// NewTurnRecord converts a finished turn into its persisted form.
func NewTurnRecord(t TurnState) TurnRecord {
	return TurnRecord{
		ID:            t.TurnID,
		SessionID:     t.SessionID,
		UserInput:     t.UserInput,
		Topic:         t.Topic,
		ActiveAgent:   t.ActiveAgent,
		FinalResponse: t.FinalResponse,
		History:       append([]HistoryEntry(nil), t.History...),
		CreatedAt:     t.StartedAt,
	}
}
