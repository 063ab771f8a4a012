package service

import (
	"context"
	"fmt"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

// RouterState is a node of the routing state machine.
type RouterState string

const (
	StateSystemIntro RouterState = "system_intro"
	StateOptimist    RouterState = "optimist"
	StateRealist     RouterState = "realist"
	StatePlanner     RouterState = "planner"
	StateDone        RouterState = "done"
)

// Agent returns the specialist a state hands off to.
func (s RouterState) Agent() (core.Agent, bool) {
	switch s {
	case StateOptimist:
		return core.AgentOptimist, true
	case StateRealist:
		return core.AgentRealist, true
	case StatePlanner:
		return core.AgentPlanner, true
	default:
		return "", false
	}
}

// IsValid reports whether s is a known state.
func (s RouterState) IsValid() bool {
	switch s {
	case StateSystemIntro, StateOptimist, StateRealist, StatePlanner, StateDone:
		return true
	default:
		return false
	}
}

func stateFor(a core.Agent) RouterState {
	return RouterState(a)
}

// careerOrder is also used when no topic is known.
var careerOrder = []core.Agent{core.AgentOptimist, core.AgentRealist, core.AgentPlanner}

// specialistOrder is the fixed consultation order per topic.
var specialistOrder = map[core.Topic][]core.Agent{
	core.TopicCareer:    careerOrder,
	core.TopicEducation: {core.AgentRealist, core.AgentOptimist, core.AgentPlanner},
	core.TopicTechnical: {core.AgentPlanner, core.AgentRealist, core.AgentOptimist},
	core.TopicGeneral:   careerOrder,
}

// SpecialistOrder returns a copy of the consultation order for a topic.
func SpecialistOrder(topic core.Topic) []core.Agent {
	order, ok := specialistOrder[topic]
	if !ok {
		order = careerOrder
	}
	return append([]core.Agent(nil), order...)
}

// Router decides which specialist speaks next. It holds no per-turn state and
// is safe for concurrent use.
type Router struct {
	classifier core.Classifier
	logger     *logging.Logger
}

// NewRouter creates a router.
func NewRouter(classifier core.Classifier, logger *logging.Logger) *Router {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{
		classifier: classifier,
		logger:     logger.WithComponent("router"),
	}
}

// Initial returns the entry state for a turn. Brand new sessions start at
// system_intro; ongoing sessions start at the first pending specialist.
func (r *Router) Initial(turn core.TurnState) RouterState {
	if turn.Blank() {
		return StateDone
	}
	if len(turn.Prior) == 0 {
		return StateSystemIntro
	}
	return nextPending(turn)
}

// Next computes the state after the current one. It never fails: any error
// or panic while deciding yields StateDone with the turn unchanged.
func (r *Router) Next(ctx context.Context, state RouterState, turn core.TurnState) (next RouterState, out core.TurnState) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("router panic, ending turn",
				"turn_id", turn.TurnID, "state", string(state),
				"error", core.ErrRouting(core.CodeRouterPanic, fmt.Sprint(rec)))
			next, out = StateDone, turn
		}
	}()

	next, out, err := r.next(ctx, state, turn)
	if err != nil {
		r.logger.Warn("routing failed, ending turn",
			"turn_id", turn.TurnID, "state", string(state), "error", err)
		return StateDone, turn
	}
	return next, out
}

func (r *Router) next(ctx context.Context, state RouterState, turn core.TurnState) (RouterState, core.TurnState, error) {
	if turn.Blank() || state == StateDone {
		return StateDone, turn, nil
	}
	if !state.IsValid() {
		return StateDone, turn, core.ErrRouting(core.CodeNoSpecialist, fmt.Sprintf("unknown router state %q", state))
	}

	if state == StateSystemIntro && turn.Topic == "" {
		topic := r.classifier.Classify(ctx, turn.UserInput)
		if topic != "" {
			classified, err := turn.WithTopic(topic)
			if err != nil {
				return StateDone, turn, err
			}
			turn = classified
		}
	}

	return nextPending(turn), turn, nil
}

// nextPending returns the first specialist in the topic order whose slot is
// still empty, or StateDone.
func nextPending(turn core.TurnState) RouterState {
	order, ok := specialistOrder[turn.Topic]
	if !ok {
		order = careerOrder
	}
	for _, a := range order {
		if !turn.Filled(a) {
			return stateFor(a)
		}
	}
	return StateDone
}
