package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/events"
	"github.com/triad-ai/triad/internal/logging"
)

// Fixed texts returned when a turn cannot be answered normally.
const (
	ClarifyMessage         = "I didn't receive valid input. Could you try again?"
	WorkflowApologyMessage = "I'm sorry, I had trouble processing that. For questions about internships or projects, I can help you weigh the pros and cons. Would you like to try again?"
	TopLevelApologyMessage = "I encountered an issue, but I'm here to help. Could you try rephrasing your question about internships or projects?"
	NoAnswerMessage        = "I don't have anything to add on this one."
)

// Mode selects how the final response is composed.
type Mode string

const (
	// ModeTranscript renders every specialist answer.
	ModeTranscript Mode = "transcript"
	// ModeBest returns only the highest confidence answer.
	ModeBest Mode = "best"
)

// Orchestrator runs a single conversation turn through the router, the
// specialists and the aggregator. It keeps no per-turn state and can serve
// independent turns concurrently.
type Orchestrator struct {
	router      *Router
	aggregator  *Aggregator
	classifier  core.Classifier
	specialists map[core.Agent]core.Specialist
	sessions    core.SessionStore
	bus         *events.EventBus
	logger      *logging.Logger
	mode        Mode
	userID      string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClassifier sets the topic classifier used by the orchestrator and router.
func WithClassifier(c core.Classifier) OrchestratorOption {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithSessionStore enables loading prior history and persisting turns.
func WithSessionStore(s core.SessionStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessions = s
	}
}

// WithEventBus publishes turn events on bus.
func WithEventBus(bus *events.EventBus) OrchestratorOption {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMode sets the response composition mode.
func WithMode(m Mode) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != "" {
			o.mode = m
		}
	}
}

// WithDefaultUserID sets the user recorded for requests without one.
func WithDefaultUserID(id string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.userID = id
	}
}

// NewOrchestrator creates an orchestrator. One specialist per agent is
// required.
func NewOrchestrator(specialists []core.Specialist, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		aggregator:  NewAggregator(),
		classifier:  NewKeywordClassifier(),
		specialists: make(map[core.Agent]core.Specialist, len(specialists)),
		logger:      logging.NewNop(),
		mode:        ModeTranscript,
		userID:      core.DefaultUserID,
	}
	for _, opt := range opts {
		opt(o)
	}

	for _, s := range specialists {
		if s == nil {
			continue
		}
		a := s.Agent()
		if !a.IsSpecialist() {
			return nil, core.ErrValidation(core.CodeUnknownAgent, fmt.Sprintf("agent %q is not a specialist", a))
		}
		if _, dup := o.specialists[a]; dup {
			return nil, core.ErrValidation(core.CodeDuplicateAgent, fmt.Sprintf("specialist %s registered twice", a))
		}
		o.specialists[a] = s
	}
	for _, a := range core.Specialists {
		if _, ok := o.specialists[a]; !ok {
			return nil, core.ErrValidation(core.CodeNoSpecialist, fmt.Sprintf("missing specialist %s", a))
		}
	}

	o.router = NewRouter(o.classifier, o.logger)
	return o, nil
}

// Aggregator returns the aggregator used to compose replies.
func (o *Orchestrator) Aggregator() *Aggregator {
	return o.aggregator
}

// ProcessTurn runs one turn for a session and returns the terminal state.
func (o *Orchestrator) ProcessTurn(ctx context.Context, input, sessionID string) core.TurnState {
	return o.Process(ctx, core.TurnRequest{Input: input, SessionID: sessionID})
}

// Process runs one turn. The returned state always has a final response.
func (o *Orchestrator) Process(ctx context.Context, req core.TurnRequest) (result core.TurnState) {
	userID := req.UserID
	if userID == "" {
		userID = o.userID
	}
	turn := core.NewTurnState(req.SessionID, userID, req.Input)
	turn.Voice = req.Voice
	start := time.Now()
	logger := o.logger.WithSession(turn.SessionID).WithTurn(turn.TurnID)

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("turn panic: %v", rec)
			logger.Error("turn failed", "error", err)
			result = apology(turn, TopLevelApologyMessage)
			o.publishPriority(events.NewTurnFailedEvent(turn.SessionID, turn.TurnID, "top", err))
		}
	}()

	o.publish(events.NewTurnStartedEvent(turn.SessionID, turn.TurnID, turn.UserID, turn.UserInput, turn.Voice))

	if turn.Blank() {
		logger.Debug("blank input")
		result = apology(turn, ClarifyMessage)
		o.complete(result, start)
		return result
	}

	turn = turn.WithPrior(o.loadPrior(ctx, turn.SessionID, logger))

	turn, err := o.run(ctx, turn, logger)
	if err != nil {
		logger.Error("routing loop failed", "error", err)
		result = apology(turn, WorkflowApologyMessage)
		o.publishPriority(events.NewTurnFailedEvent(turn.SessionID, turn.TurnID, "workflow", err))
		return result
	}

	result, err = o.finalize(turn)
	if err != nil {
		logger.Error("composing final response failed", "error", err)
		result = apology(turn, TopLevelApologyMessage)
		o.publishPriority(events.NewTurnFailedEvent(turn.SessionID, turn.TurnID, "top", err))
		return result
	}

	o.persist(ctx, result, logger)
	o.complete(result, start)
	return result
}

// run seeds the topic and drives the router until it reaches StateDone.
func (o *Orchestrator) run(ctx context.Context, turn core.TurnState, logger *logging.Logger) (out core.TurnState, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = turn, fmt.Errorf("routing loop panic: %v", rec)
		}
	}()

	if careerBias(turn.UserInput) {
		if turn, err = turn.WithTopic(core.TopicCareer); err != nil {
			return turn, err
		}
		o.publish(events.NewTopicClassifiedEvent(turn.SessionID, turn.TurnID, string(turn.Topic), "preseed"))
	}

	// Ongoing sessions skip the intro state, so the topic is decided here.
	if len(turn.Prior) > 0 && turn.Topic == "" {
		if topic := o.classifier.Classify(ctx, turn.UserInput); topic != "" {
			if turn, err = turn.WithTopic(topic); err != nil {
				return turn, err
			}
			o.publish(events.NewTopicClassifiedEvent(turn.SessionID, turn.TurnID, string(turn.Topic), "classifier"))
		}
	}

	state := o.router.Initial(turn)
	consulted := make(map[core.Agent]bool, len(core.Specialists))

	for {
		topicBefore := turn.Topic
		prev := state
		state, turn = o.router.Next(ctx, state, turn)
		if topicBefore == "" && turn.Topic != "" {
			o.publish(events.NewTopicClassifiedEvent(turn.SessionID, turn.TurnID, string(turn.Topic), "classifier"))
		}
		if state == StateDone {
			return turn, nil
		}

		agent, ok := state.Agent()
		if !ok {
			logger.Warn("router returned a non-specialist state", "state", string(state))
			return turn, nil
		}
		if consulted[agent] {
			logger.Warn("specialist selected twice, ending turn",
				"agent", string(agent), "error", core.ErrRouting(core.CodeDuplicateAgent, string(agent)))
			return turn, nil
		}
		consulted[agent] = true

		o.publish(events.NewAgentSelectedEvent(turn.SessionID, turn.TurnID, string(agent), string(prev)))

		began := time.Now()
		resp := o.specialists[agent].Respond(ctx, core.SpecialistRequest{
			SessionID: turn.SessionID,
			Topic:     turn.Topic,
			UserInput: turn.UserInput,
			History:   turn.Conversation(),
		})

		if strings.TrimSpace(resp.Text) == "" {
			logger.Warn("specialist returned no answer",
				"agent", string(agent), "error", core.ErrExecution(core.CodeAgentFailed, "empty response"))
			resp.Text, resp.Confidence, resp.Fallback = NoAnswerMessage, 0, true
		}

		turn = turn.WithWebContext(resp.WebContext)
		if turn, err = turn.WithResponse(agent, resp.Text, resp.Confidence); err != nil {
			return turn, err
		}

		slot := turn.Slot(agent)
		logger.Debug("specialist responded",
			"agent", string(agent), "confidence", slot.Confidence, "fallback", resp.Fallback)
		o.publish(events.NewAgentRespondedEvent(turn.SessionID, turn.TurnID, string(agent),
			slot.Response, slot.Confidence, resp.Fallback, time.Since(began).Milliseconds()))
	}
}

// finalize sets the final response according to the turn's mode.
func (o *Orchestrator) finalize(turn core.TurnState) (core.TurnState, error) {
	if turn.Voice || o.mode == ModeBest {
		agent, text := o.aggregator.Best(turn)
		return turn.WithFinal(agent, text)
	}
	return turn.WithFinal(core.AgentSystem, o.aggregator.Render(turn))
}

func (o *Orchestrator) loadPrior(ctx context.Context, sessionID string, logger *logging.Logger) []core.HistoryEntry {
	if o.sessions == nil || sessionID == "" {
		return nil
	}
	prior, err := o.sessions.LoadHistory(ctx, sessionID)
	if err != nil {
		logger.Warn("loading session history failed", "error", err)
		return nil
	}
	return prior
}

func (o *Orchestrator) persist(ctx context.Context, turn core.TurnState, logger *logging.Logger) {
	if o.sessions == nil || turn.SessionID == "" {
		return
	}
	if err := o.sessions.SaveTurn(ctx, turn); err != nil {
		logger.Warn("saving turn failed", "error", err)
	}
}

func (o *Orchestrator) complete(turn core.TurnState, start time.Time) {
	o.publishPriority(events.NewTurnCompletedEvent(turn.SessionID, turn.TurnID, string(turn.Topic),
		string(turn.ActiveAgent), turn.FinalResponse, len(turn.History), time.Since(start).Milliseconds()))
}

func (o *Orchestrator) publish(e events.Event) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}

func (o *Orchestrator) publishPriority(e events.Event) {
	if o.bus != nil {
		o.bus.PublishPriority(e)
	}
}

// apology replaces whatever the turn produced with a system message.
func apology(turn core.TurnState, message string) core.TurnState {
	turn.FinalResponse = ""
	out, err := turn.WithFinal(core.AgentSystem, message)
	if err != nil {
		turn.ActiveAgent = core.AgentSystem
		turn.FinalResponse = message
		return turn
	}
	return out
}
