package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultUserID is used when the caller does not identify the user.
const DefaultUserID = "user_001"

// Slot holds one specialist's contribution to a turn.
type Slot struct {
	Response   string  `json:"response,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Filled reports whether the specialist has answered.
func (s Slot) Filled() bool {
	return s.Response != ""
}

// HistoryEntry is one specialist invocation in the audit log.
type HistoryEntry struct {
	Agent      Agent   `json:"agent" yaml:"agent"`
	Message    string  `json:"message" yaml:"message"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// BufferEntry is one rendered response, kept in first-write order.
type BufferEntry struct {
	Agent Agent  `json:"agent"`
	Text  string `json:"text"`
}

// TurnRequest is the caller's description of a turn.
type TurnRequest struct {
	Input     string
	SessionID string
	UserID    string
	// Voice marks input from a speech surface; the turn answers with the
	// single best response instead of the full transcript.
	Voice bool
}

// TurnState is the record threaded through one conversation turn. It is a
// value object: every With* method returns a modified copy and never touches
// the receiver's slices.
type TurnState struct {
	TurnID    string    `json:"turn_id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`

	UserInput   string `json:"user_input"`
	Voice       bool   `json:"voice,omitempty"`
	ActiveAgent Agent  `json:"active_agent,omitempty"`
	Topic       Topic  `json:"topic_type,omitempty"`

	Optimist Slot `json:"optimist"`
	Realist  Slot `json:"realist"`
	Planner  Slot `json:"planner"`

	WebContext     string         `json:"web_context,omitempty"`
	ResponseBuffer []BufferEntry  `json:"response_buffer"`
	History        []HistoryEntry `json:"conversation_history"`
	Prior          []HistoryEntry `json:"-"`

	FinalResponse string `json:"final_response,omitempty"`
}

// NewTurnState creates the initial state for a turn.
func NewTurnState(sessionID, userID, input string) TurnState {
	if userID == "" {
		userID = DefaultUserID
	}
	return TurnState{
		TurnID:         ulid.Make().String(),
		SessionID:      sessionID,
		UserID:         userID,
		StartedAt:      time.Now().UTC(),
		UserInput:      input,
		ResponseBuffer: []BufferEntry{},
		History:        []HistoryEntry{},
	}
}

// Blank reports whether the user input carries no content.
func (t TurnState) Blank() bool {
	return strings.TrimSpace(t.UserInput) == ""
}

// Terminal reports whether the turn has a final response.
func (t TurnState) Terminal() bool {
	return t.FinalResponse != ""
}

// Slot returns the slot of a specialist. Non-specialists get an empty slot.
func (t TurnState) Slot(a Agent) Slot {
	switch a {
	case AgentOptimist:
		return t.Optimist
	case AgentRealist:
		return t.Realist
	case AgentPlanner:
		return t.Planner
	default:
		return Slot{}
	}
}

// Filled reports whether a specialist's slot has been set.
func (t TurnState) Filled(a Agent) bool {
	return t.Slot(a).Filled()
}

// Conversation returns carried history followed by this turn's entries.
func (t TurnState) Conversation() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(t.Prior)+len(t.History))
	out = append(out, t.Prior...)
	out = append(out, t.History...)
	return out
}

// WithPrior attaches read-only history from earlier turns.
func (t TurnState) WithPrior(prior []HistoryEntry) TurnState {
	t.Prior = append([]HistoryEntry(nil), prior...)
	return t
}

// WithTopic sets the topic. A topic can be set once; setting the same value
// again is a no-op.
func (t TurnState) WithTopic(topic Topic) (TurnState, error) {
	topic = ParseTopic(string(topic))
	if topic == "" {
		return t, ErrValidation(CodeInvalidTopic, "topic must not be empty")
	}
	if t.Topic != "" && t.Topic != topic {
		return t, ErrState(CodeTopicImmutable,
			fmt.Sprintf("topic already set to %s, cannot change to %s", t.Topic, topic))
	}
	t.Topic = topic
	return t, nil
}

// WithWebContext records the scratch retrieval context of the latest specialist.
func (t TurnState) WithWebContext(ctx string) TurnState {
	t.WebContext = ctx
	return t
}

// WithResponse fills a specialist slot, appends the audit entry and caches the
// text in the response buffer. Empty responses are ignored.
func (t TurnState) WithResponse(a Agent, response string, confidence float64) (TurnState, error) {
	if !a.IsSpecialist() {
		return t, ErrValidation(CodeUnknownAgent, fmt.Sprintf("agent %q has no response slot", a))
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return t, nil
	}
	if t.Filled(a) {
		return t, ErrState(CodeSlotFilled, fmt.Sprintf("%s already answered this turn", a))
	}

	slot := Slot{Response: response, Confidence: ClampConfidence(confidence)}
	switch a {
	case AgentOptimist:
		t.Optimist = slot
	case AgentRealist:
		t.Realist = slot
	case AgentPlanner:
		t.Planner = slot
	}

	t.History = appendHistory(t.History, HistoryEntry{Agent: a, Message: slot.Response, Confidence: slot.Confidence})
	if !t.buffered(a) {
		t.ResponseBuffer = appendBuffer(t.ResponseBuffer, BufferEntry{Agent: a, Text: slot.Response})
	}
	t.ActiveAgent = a
	return t, nil
}

// WithFinal marks the turn terminal.
func (t TurnState) WithFinal(a Agent, text string) (TurnState, error) {
	if t.Terminal() {
		return t, ErrState(CodeFinalSet, "final response already set")
	}
	if strings.TrimSpace(text) == "" {
		return t, ErrValidation(CodeEmptyFinal, "final response must not be empty")
	}
	t.ActiveAgent = a
	t.FinalResponse = text
	return t, nil
}

func (t TurnState) buffered(a Agent) bool {
	for _, e := range t.ResponseBuffer {
		if e.Agent == a {
			return true
		}
	}
	return false
}

// appendHistory copies before appending so sibling values never share a
// backing array.
func appendHistory(h []HistoryEntry, e HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(h), len(h)+1)
	copy(out, h)
	return append(out, e)
}

func appendBuffer(b []BufferEntry, e BufferEntry) []BufferEntry {
	out := make([]BufferEntry, len(b), len(b)+1)
	copy(out, b)
	return append(out, e)
}

// ClampConfidence bounds a confidence score to [0, 1]. NaN maps to 0.
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
