package testutil

import (
	"testing"

	"github.com/triad-ai/triad/internal/core"
)

// TurnOption modifies a test turn.
type TurnOption func(*testing.T, core.TurnState) core.TurnState

// WithTopic sets the turn topic.
func WithTopic(topic core.Topic) TurnOption {
	return func(t *testing.T, s core.TurnState) core.TurnState {
		t.Helper()
		out, err := s.WithTopic(topic)
		if err != nil {
			t.Fatalf("WithTopic(%s): %v", topic, err)
		}
		return out
	}
}

// WithResponse fills a specialist slot.
func WithResponse(agent core.Agent, text string, confidence float64) TurnOption {
	return func(t *testing.T, s core.TurnState) core.TurnState {
		t.Helper()
		out, err := s.WithResponse(agent, text, confidence)
		if err != nil {
			t.Fatalf("WithResponse(%s): %v", agent, err)
		}
		return out
	}
}

// WithPrior attaches prior history.
func WithPrior(entries ...core.HistoryEntry) TurnOption {
	return func(_ *testing.T, s core.TurnState) core.TurnState {
		return s.WithPrior(entries)
	}
}

// NewTestTurn builds a turn for session "test-session" with the given input.
func NewTestTurn(t *testing.T, input string, opts ...TurnOption) core.TurnState {
	t.Helper()
	turn := core.NewTurnState("test-session", "test-user", input)
	for _, opt := range opts {
		turn = opt(t, turn)
	}
	return turn
}
