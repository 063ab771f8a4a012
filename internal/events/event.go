// Package events carries turn progress from the orchestrator to observers
// such as the SSE stream and the chat screen.
package events

import "time"

// Event is implemented by every turn event.
type Event interface {
	EventType() string
	Timestamp() time.Time
	SessionID() string
}

// BaseEvent holds the fields shared by every event.
type BaseEvent struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"timestamp"`
	Session string    `json:"session_id"`
	Turn    string    `json:"turn_id,omitempty"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) SessionID() string    { return e.Session }

// TurnID returns the turn the event belongs to.
func (e BaseEvent) TurnID() string { return e.Turn }

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent(eventType, sessionID, turnID string) BaseEvent {
	return BaseEvent{
		Type:    eventType,
		Time:    time.Now(),
		Session: sessionID,
		Turn:    turnID,
	}
}

// Filter selects the events a subscription receives. Zero fields match
// everything.
type Filter struct {
	SessionID string
	Types     []string
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e Event) bool {
	if f.SessionID != "" && e.SessionID() != f.SessionID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.EventType() {
			return true
		}
	}
	return false
}
