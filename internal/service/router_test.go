package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
	"github.com/triad-ai/triad/internal/testutil"
)

// panickingClassifier panics on every call.
type panickingClassifier struct{}

func (panickingClassifier) Classify(context.Context, string) core.Topic {
	panic("classifier exploded")
}

// walk drives the router to completion, filling each selected slot.
func walk(t *testing.T, r *Router, turn core.TurnState, state RouterState) ([]core.Agent, core.TurnState) {
	t.Helper()
	var visited []core.Agent
	for i := 0; i < 10; i++ {
		state, turn = r.Next(context.Background(), state, turn)
		if state == StateDone {
			return visited, turn
		}
		agent, ok := state.Agent()
		require.True(t, ok, "state %s", state)
		visited = append(visited, agent)

		var err error
		turn, err = turn.WithResponse(agent, string(agent)+" answer", 0.5)
		require.NoError(t, err)
	}
	t.Fatal("router did not terminate")
	return nil, turn
}

func TestRouter_OrderPerTopic(t *testing.T) {
	r := NewRouter(nil, nil)

	tests := []struct {
		topic core.Topic
		want  []core.Agent
	}{
		{core.TopicCareer, []core.Agent{core.AgentOptimist, core.AgentRealist, core.AgentPlanner}},
		{core.TopicEducation, []core.Agent{core.AgentRealist, core.AgentOptimist, core.AgentPlanner}},
		{core.TopicTechnical, []core.Agent{core.AgentPlanner, core.AgentRealist, core.AgentOptimist}},
		{core.TopicGeneral, []core.Agent{core.AgentOptimist, core.AgentRealist, core.AgentPlanner}},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			turn := testutil.NewTestTurn(t, "hello", testutil.WithTopic(tt.topic))
			visited, final := walk(t, r, turn, StateOptimist)

			assert.Equal(t, tt.want, visited)
			assert.Equal(t, tt.want, SpecialistOrder(tt.topic))
			assert.Len(t, final.History, 3)
		})
	}
}

func TestRouter_SystemIntroClassifies(t *testing.T) {
	r := NewRouter(NewKeywordClassifier(), nil)
	turn := testutil.NewTestTurn(t, "Which programming language should I pick?")

	require.Equal(t, StateSystemIntro, r.Initial(turn))

	next, out := r.Next(context.Background(), StateSystemIntro, turn)
	assert.Equal(t, StatePlanner, next)
	assert.Equal(t, core.TopicTechnical, out.Topic)
	assert.Empty(t, turn.Topic, "input state must not change")
}

func TestRouter_SystemIntroKeepsPreseededTopic(t *testing.T) {
	r := NewRouter(NewKeywordClassifier(), nil)
	turn := testutil.NewTestTurn(t, "programming project", testutil.WithTopic(core.TopicCareer))

	next, out := r.Next(context.Background(), StateSystemIntro, turn)
	assert.Equal(t, StateOptimist, next)
	assert.Equal(t, core.TopicCareer, out.Topic)
}

func TestRouter_UnsetTopicUsesCareerOrder(t *testing.T) {
	r := NewRouter(nil, nil)
	turn := testutil.NewTestTurn(t, "anything")

	next, out := r.Next(context.Background(), StateRealist, turn)
	assert.Equal(t, StateOptimist, next)
	assert.Empty(t, out.Topic)
}

func TestRouter_BlankInputIsDone(t *testing.T) {
	r := NewRouter(nil, nil)
	turn := testutil.NewTestTurn(t, "   ")

	assert.Equal(t, StateDone, r.Initial(turn))
	next, _ := r.Next(context.Background(), StateSystemIntro, turn)
	assert.Equal(t, StateDone, next)
}

func TestRouter_DoneIsAbsorbing(t *testing.T) {
	r := NewRouter(nil, nil)
	turn := testutil.NewTestTurn(t, "hello", testutil.WithTopic(core.TopicCareer))

	next, _ := r.Next(context.Background(), StateDone, turn)
	assert.Equal(t, StateDone, next)
}

func TestRouter_ResumeFromPartialState(t *testing.T) {
	r := NewRouter(nil, nil)
	turn := testutil.NewTestTurn(t, "hello",
		testutil.WithTopic(core.TopicEducation),
		testutil.WithResponse(core.AgentRealist, "facts", 0.6),
	)

	// Re-entering from any state yields the same next specialist.
	for _, s := range []RouterState{StateSystemIntro, StateOptimist, StateRealist, StatePlanner} {
		next, out := r.Next(context.Background(), s, turn)
		assert.Equal(t, StateOptimist, next, "from %s", s)
		assert.Len(t, out.History, 1)
	}

	visited, final := walk(t, r, turn, StateRealist)
	assert.Equal(t, []core.Agent{core.AgentOptimist, core.AgentPlanner}, visited)
	assert.Len(t, final.History, 3)
}

func TestRouter_InitialForOngoingSession(t *testing.T) {
	r := NewRouter(nil, nil)
	turn := testutil.NewTestTurn(t, "more please",
		testutil.WithPrior(core.HistoryEntry{Agent: core.AgentPlanner, Message: "earlier", Confidence: 0.4}),
		testutil.WithTopic(core.TopicTechnical),
	)
	assert.Equal(t, StatePlanner, r.Initial(turn))
}

func TestRouter_PanicYieldsDone(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: "debug", Format: "json", Output: &logs})
	r := NewRouter(panickingClassifier{}, logger)
	turn := testutil.NewTestTurn(t, "hello")

	next, out := r.Next(context.Background(), StateSystemIntro, turn)
	assert.Equal(t, StateDone, next)
	assert.Equal(t, turn.TurnID, out.TurnID)
	assert.Empty(t, out.Topic)
	assert.Contains(t, logs.String(), core.CodeRouterPanic)
	assert.Contains(t, logs.String(), "classifier exploded")
}

func TestRouter_UnknownStateYieldsDone(t *testing.T) {
	r := NewRouter(nil, nil)
	turn := testutil.NewTestTurn(t, "hello")

	next, _ := r.Next(context.Background(), RouterState("pessimist"), turn)
	assert.Equal(t, StateDone, next)
}

func TestRouterState_Agent(t *testing.T) {
	for _, a := range core.Specialists {
		got, ok := stateFor(a).Agent()
		assert.True(t, ok)
		assert.Equal(t, a, got)
	}
	_, ok := StateSystemIntro.Agent()
	assert.False(t, ok)
	_, ok = StateDone.Agent()
	assert.False(t, ok)
}
