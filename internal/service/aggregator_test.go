package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/testutil"
)

func TestAggregator_Best(t *testing.T) {
	agg := NewAggregator()

	tests := []struct {
		name      string
		opts      []testutil.TurnOption
		wantAgent core.Agent
		wantText  string
	}{
		{
			name:      "nothing filled",
			wantAgent: core.AgentSystem,
			wantText:  PlaceholderMessage,
		},
		{
			name: "highest confidence wins",
			opts: []testutil.TurnOption{
				testutil.WithResponse(core.AgentOptimist, "opt", 0.5),
				testutil.WithResponse(core.AgentRealist, "real", 0.3),
				testutil.WithResponse(core.AgentPlanner, "plan", 0.9),
			},
			wantAgent: core.AgentPlanner,
			wantText:  "plan",
		},
		{
			name: "tie prefers realist",
			opts: []testutil.TurnOption{
				testutil.WithResponse(core.AgentPlanner, "plan", 0.6),
				testutil.WithResponse(core.AgentOptimist, "opt", 0.6),
				testutil.WithResponse(core.AgentRealist, "real", 0.6),
			},
			wantAgent: core.AgentRealist,
			wantText:  "real",
		},
		{
			name: "tie prefers optimist over planner",
			opts: []testutil.TurnOption{
				testutil.WithResponse(core.AgentPlanner, "plan", 0.4),
				testutil.WithResponse(core.AgentOptimist, "opt", 0.4),
			},
			wantAgent: core.AgentOptimist,
			wantText:  "opt",
		},
		{
			name: "zero confidence still counts",
			opts: []testutil.TurnOption{
				testutil.WithResponse(core.AgentPlanner, "plan", 0),
			},
			wantAgent: core.AgentPlanner,
			wantText:  "plan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := testutil.NewTestTurn(t, "question", tt.opts...)
			agent, text := agg.Best(turn)
			assert.Equal(t, tt.wantAgent, agent)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestAggregator_RenderGolden(t *testing.T) {
	agg := NewAggregator()
	golden := testutil.NewGolden(t, "testdata")

	career := testutil.NewTestTurn(t, "  Should I take an internship?  ",
		testutil.WithTopic(core.TopicCareer),
		testutil.WithResponse(core.AgentOptimist, "Go for it!", 0.7),
		testutil.WithResponse(core.AgentRealist, "Check the stipend.", 0.6),
		testutil.WithResponse(core.AgentPlanner, "Step 1: apply.", 0.3),
	)
	golden.AssertString("render_career", agg.Render(career))

	empty := testutil.NewTestTurn(t, "hello there")
	golden.AssertString("render_empty", agg.Render(empty))
}

func TestAggregator_RenderOrderFollowsBuffer(t *testing.T) {
	agg := NewAggregator()
	turn := testutil.NewTestTurn(t, "Compare Python and Go",
		testutil.WithTopic(core.TopicTechnical),
		testutil.WithResponse(core.AgentPlanner, "plan", 0.7),
		testutil.WithResponse(core.AgentRealist, "real", 0.5),
		testutil.WithResponse(core.AgentOptimist, "opt", 0.5),
	)

	out := agg.Render(turn)
	testutil.AssertOrder(t, out, "**Planner Agent**", "**Realist Agent**", "**Optimist Agent**", GenericClosing)
	assert.NotContains(t, out, GreetingMessage)
	assert.Len(t, strings.Split(out, "\n\n"), 5)
}

func TestAggregator_RenderKeepsMultilineResponses(t *testing.T) {
	agg := NewAggregator()
	turn := testutil.NewTestTurn(t, "q",
		testutil.WithResponse(core.AgentRealist, "ANALYSIS:\nok\n\nSources:\nhttps://example.com", 0.5),
	)
	out := agg.Render(turn)
	assert.Contains(t, out, "\"ANALYSIS:\nok\n\nSources:\nhttps://example.com\"")
}

func TestAggregator_RenderIdempotent(t *testing.T) {
	agg := NewAggregator()
	turn := testutil.NewTestTurn(t, "Should I take an internship?",
		testutil.WithTopic(core.TopicCareer),
		testutil.WithResponse(core.AgentOptimist, "yes", 0.7),
	)

	first := agg.Render(turn)
	assert.Equal(t, first, agg.Render(turn))

	final, err := turn.WithFinal(core.AgentSystem, first)
	require.NoError(t, err)
	assert.Equal(t, first, agg.Render(final))
	assert.Equal(t, agg.Render(final), agg.Render(final))
}

func TestAggregator_RenderReturnsExistingFinal(t *testing.T) {
	agg := NewAggregator()
	turn := testutil.NewTestTurn(t, "x")
	final, err := turn.WithFinal(core.AgentSystem, "already decided")
	require.NoError(t, err)

	assert.Equal(t, "already decided", agg.Render(final))
}
