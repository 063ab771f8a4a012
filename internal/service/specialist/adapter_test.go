package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/testutil"
)

func newAdapter(t *testing.T, p Profile, gen core.Generator, opts ...Option) *Adapter {
	t.Helper()
	prompts, err := NewPromptRenderer()
	require.NoError(t, err)
	a, err := New(p, gen, prompts, opts...)
	require.NoError(t, err)
	return a
}

func careerRequest(input string) core.SpecialistRequest {
	return core.SpecialistRequest{SessionID: "s1", Topic: core.TopicCareer, UserInput: input}
}

func TestAdapter_RealistCitesSources(t *testing.T) {
	gen := testutil.NewMockGenerator("  ANALYSIS: internships pay.  ")
	retriever := testutil.NewMockRetriever("Internship pay rose 5%\nhttps://example.com")
	memory := testutil.NewMockMemory("Memory 1 (Score: 0.80):\nUser: earlier")

	a := newAdapter(t, RealistProfile(), gen, WithRetriever(retriever), WithMemory(memory))
	resp := a.Respond(context.Background(), careerRequest("How much do internships pay?"))

	assert.Equal(t, "ANALYSIS: internships pay.\n\nSources:\nInternship pay rose 5%\nhttps://example.com", resp.Text)
	assert.Equal(t, "Internship pay rose 5%\nhttps://example.com", resp.WebContext)
	assert.False(t, resp.Fallback)
	assert.InDelta(t, 0.3+0.4+0.3, resp.Confidence, 1e-9)

	assert.Equal(t,
		[]string{"latest statistics How much do internships pay? job market data practical considerations"},
		retriever.Queries())

	prompt := gen.LastPrompt()
	assert.Contains(t, prompt, "How much do internships pay?")
	assert.Contains(t, prompt, "Internship pay rose 5%")
	assert.Contains(t, prompt, "Memory 1 (Score: 0.80)")

	stored := memory.Stored(core.AgentRealist)
	require.Len(t, stored, 1)
	assert.True(t, strings.HasPrefix(stored[0], "How much do internships pay?\n"))
}

func TestAdapter_MemoryNeedsSession(t *testing.T) {
	gen := testutil.NewMockGenerator("Go for it!")
	memory := testutil.NewMockMemory("Memory 1 (Score: 0.80):\nUser: earlier")
	a := newAdapter(t, OptimistProfile(), gen, WithMemory(memory))

	a.Respond(context.Background(), core.SpecialistRequest{Topic: core.TopicCareer, UserInput: "I want an internship"})
	assert.Empty(t, memory.Calls())
	assert.NotContains(t, gen.LastPrompt(), "Memory 1")

	a.Respond(context.Background(), careerRequest("I want an internship"))
	calls := memory.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"s1", "optimist", "I want an internship"}, calls[0].Args)
	assert.Equal(t, "Remember", calls[1].Method)
	assert.Equal(t, "s1", calls[1].Args[0])
}

func TestAdapter_OptimistDoesNotCite(t *testing.T) {
	gen := testutil.NewMockGenerator("Go for it!")
	a := newAdapter(t, OptimistProfile(), gen, WithRetriever(testutil.NewMockRetriever("some data")))

	resp := a.Respond(context.Background(), careerRequest("I want an internship"))

	assert.Equal(t, "Go for it!", resp.Text)
	assert.Equal(t, "some data", resp.WebContext)
	assert.InDelta(t, 0.7, resp.Confidence, 1e-9)
}

func TestAdapter_NoRetrieverNoMemory(t *testing.T) {
	gen := testutil.NewMockGenerator("Step 1: research.")
	a := newAdapter(t, PlannerProfile(), gen)

	resp := a.Respond(context.Background(), core.SpecialistRequest{Topic: core.TopicTechnical, UserInput: "Rust or Go?"})

	assert.Equal(t, "Step 1: research.", resp.Text)
	assert.Empty(t, resp.WebContext)
	assert.InDelta(t, 0.4, resp.Confidence, 1e-9)
	assert.Contains(t, gen.LastPrompt(), "No research available.")
}

func TestAdapter_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		gen  *testutil.MockGenerator
	}{
		{"generator error", testutil.NewMockGenerator("").WithError(errors.New("quota exceeded"))},
		{"empty output", testutil.NewMockGenerator("   \n")},
		{"generator panic", testutil.NewMockGenerator("").WithGenerateFunc(func(context.Context, string) (string, error) {
			panic("sdk bug")
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, p := range Profiles() {
				memory := testutil.NewMockMemory("")
				a := newAdapter(t, p, tt.gen, WithMemory(memory))

				resp := a.Respond(context.Background(), careerRequest("Should I take an internship?"))

				assert.True(t, resp.Fallback)
				assert.Equal(t, p.FallbackText, resp.Text)
				assert.InDelta(t, p.FallbackConfidence, resp.Confidence, 1e-9)
				assert.Empty(t, memory.Stored(p.Agent), "fallbacks are not remembered")
			}
		})
	}
}

func TestAdapter_FallbackKeepsWebContext(t *testing.T) {
	gen := testutil.NewMockGenerator("").WithError(errors.New("down"))
	a := newAdapter(t, RealistProfile(), gen, WithRetriever(testutil.NewMockRetriever("fresh data")))

	resp := a.Respond(context.Background(), careerRequest("internship"))

	assert.True(t, resp.Fallback)
	assert.Equal(t, "I'm having trouble processing that right now.", resp.Text)
	assert.Equal(t, "fresh data", resp.WebContext)
}

func TestAdapter_Timeout(t *testing.T) {
	gen := testutil.NewMockGenerator("").WithGenerateFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	a := newAdapter(t, PlannerProfile(), gen, WithTimeout(20*time.Millisecond))

	start := time.Now()
	resp := a.Respond(context.Background(), careerRequest("plan my internship"))

	assert.True(t, resp.Fallback)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err := a.generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatTimeout))
}

func TestAdapter_PassesHistory(t *testing.T) {
	gen := testutil.NewMockGenerator("ok")
	a := newAdapter(t, OptimistProfile(), gen)

	a.Respond(context.Background(), core.SpecialistRequest{
		Topic:     core.TopicCareer,
		UserInput: "and now?",
		History: []core.HistoryEntry{
			{Agent: core.AgentRealist, Message: "check the numbers", Confidence: 0.5},
		},
	})

	assert.Contains(t, gen.LastPrompt(), "Realist Agent: check the numbers")
}

func TestNew_Validation(t *testing.T) {
	prompts, err := NewPromptRenderer()
	require.NoError(t, err)
	gen := testutil.NewMockGenerator("x")

	_, err = New(Profile{Agent: core.AgentSystem, Template: "optimist"}, gen, prompts)
	assert.Error(t, err)

	_, err = New(OptimistProfile(), nil, prompts)
	assert.Error(t, err)

	bad := OptimistProfile()
	bad.Template = "missing"
	_, err = New(bad, gen, prompts)
	assert.Error(t, err)

	_, err = New(OptimistProfile(), gen, nil)
	assert.Error(t, err)
}

func TestNewAll(t *testing.T) {
	specs, err := NewAll(testutil.NewMockGenerator("x"))
	require.NoError(t, err)
	require.Len(t, specs, 3)
	for i, s := range specs {
		assert.Equal(t, core.Specialists[i], s.Agent())
	}
}

func TestFormatHistory(t *testing.T) {
	assert.Empty(t, formatHistory(nil))

	var entries []core.HistoryEntry
	for i := 0; i < 15; i++ {
		entries = append(entries, core.HistoryEntry{Agent: core.AgentPlanner, Message: fmt.Sprintf("m%d", i)})
	}
	out := formatHistory(entries)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, maxHistoryEntries)
	assert.Equal(t, "Planner Agent: m3", lines[0])
	assert.Equal(t, "Planner Agent: m14", lines[len(lines)-1])
}
