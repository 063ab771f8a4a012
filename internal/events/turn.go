package events

// Turn event type constants.
const (
	TypeTurnStarted     = "turn_started"
	TypeTopicClassified = "topic_classified"
	TypeAgentSelected   = "agent_selected"
	TypeAgentResponded  = "agent_responded"
	TypeTurnCompleted   = "turn_completed"
	TypeTurnFailed      = "turn_failed"
)

// TurnStartedEvent is emitted when a turn begins.
type TurnStartedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Input  string `json:"input"`
	Voice  bool   `json:"voice,omitempty"`
}

// NewTurnStartedEvent creates a new turn started event.
func NewTurnStartedEvent(sessionID, turnID, userID, input string, voice bool) TurnStartedEvent {
	return TurnStartedEvent{
		BaseEvent: NewBaseEvent(TypeTurnStarted, sessionID, turnID),
		UserID:    userID,
		Input:     input,
		Voice:     voice,
	}
}

// TopicClassifiedEvent is emitted once the turn's topic is known.
type TopicClassifiedEvent struct {
	BaseEvent
	Topic string `json:"topic"`
	// Source is "preseed" or "classifier".
	Source string `json:"source"`
}

// NewTopicClassifiedEvent creates a new topic classified event.
func NewTopicClassifiedEvent(sessionID, turnID, topic, source string) TopicClassifiedEvent {
	return TopicClassifiedEvent{
		BaseEvent: NewBaseEvent(TypeTopicClassified, sessionID, turnID),
		Topic:     topic,
		Source:    source,
	}
}

// AgentSelectedEvent is emitted when the router hands off to a specialist.
type AgentSelectedEvent struct {
	BaseEvent
	Agent string `json:"agent"`
	From  string `json:"from"`
}

// NewAgentSelectedEvent creates a new agent selected event.
func NewAgentSelectedEvent(sessionID, turnID, agent, from string) AgentSelectedEvent {
	return AgentSelectedEvent{
		BaseEvent: NewBaseEvent(TypeAgentSelected, sessionID, turnID),
		Agent:     agent,
		From:      from,
	}
}

// AgentRespondedEvent is emitted after a specialist's answer is merged.
type AgentRespondedEvent struct {
	BaseEvent
	Agent      string  `json:"agent"`
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback,omitempty"`
	DurationMS int64   `json:"duration_ms"`
}

// NewAgentRespondedEvent creates a new agent responded event.
func NewAgentRespondedEvent(sessionID, turnID, agent, response string, confidence float64, fallback bool, durationMS int64) AgentRespondedEvent {
	return AgentRespondedEvent{
		BaseEvent:  NewBaseEvent(TypeAgentResponded, sessionID, turnID),
		Agent:      agent,
		Response:   response,
		Confidence: confidence,
		Fallback:   fallback,
		DurationMS: durationMS,
	}
}

// TurnCompletedEvent is emitted when a turn has a final response.
type TurnCompletedEvent struct {
	BaseEvent
	Topic         string `json:"topic,omitempty"`
	ActiveAgent   string `json:"active_agent"`
	FinalResponse string `json:"final_response"`
	Specialists   int    `json:"specialists"`
	DurationMS    int64  `json:"duration_ms"`
}

// NewTurnCompletedEvent creates a new turn completed event.
func NewTurnCompletedEvent(sessionID, turnID, topic, activeAgent, final string, specialists int, durationMS int64) TurnCompletedEvent {
	return TurnCompletedEvent{
		BaseEvent:     NewBaseEvent(TypeTurnCompleted, sessionID, turnID),
		Topic:         topic,
		ActiveAgent:   activeAgent,
		FinalResponse: final,
		Specialists:   specialists,
		DurationMS:    durationMS,
	}
}

// TurnFailedEvent is emitted when a turn ends with an apology.
type TurnFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
	// Level is "workflow" for failures inside the routing loop and "top"
	// for anything else.
	Level string `json:"level"`
}

// NewTurnFailedEvent creates a new turn failed event.
func NewTurnFailedEvent(sessionID, turnID, level string, err error) TurnFailedEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return TurnFailedEvent{
		BaseEvent: NewBaseEvent(TypeTurnFailed, sessionID, turnID),
		Error:     msg,
		Level:     level,
	}
}
