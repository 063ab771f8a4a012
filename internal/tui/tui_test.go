package tui

import (
	"strings"
	"testing"

	"github.com/triad-ai/triad/internal/core"
)

func finishedTurn(t *testing.T) core.TurnState {
	t.Helper()
	turn := core.NewTurnState("s1", "", "Should I do an internship?")
	var err error
	if turn, err = turn.WithTopic(core.TopicCareer); err != nil {
		t.Fatal(err)
	}
	if turn, err = turn.WithResponse(core.AgentRealist, "Check the market.", 0.6); err != nil {
		t.Fatal(err)
	}
	if turn, err = turn.WithResponse(core.AgentOptimist, "Go for it!", 0.9); err != nil {
		t.Fatal(err)
	}
	return turn
}

func TestReplies_Transcript(t *testing.T) {
	turn, err := finishedTurn(t).WithFinal(core.AgentSystem, "transcript")
	if err != nil {
		t.Fatal(err)
	}

	got := Replies(turn)
	if len(got) != 2 {
		t.Fatalf("Replies() len = %d, want 2", len(got))
	}
	if got[0].Agent != core.AgentRealist || got[1].Agent != core.AgentOptimist {
		t.Errorf("Replies() order = %s, %s", got[0].Agent, got[1].Agent)
	}
}

func TestReplies_Best(t *testing.T) {
	turn, err := finishedTurn(t).WithFinal(core.AgentOptimist, "Go for it!")
	if err != nil {
		t.Fatal(err)
	}

	got := Replies(turn)
	if len(got) != 1 || got[0].Agent != core.AgentOptimist || got[0].Confidence != 0.9 {
		t.Errorf("Replies() = %+v", got)
	}
}

func TestReplies_SystemOnly(t *testing.T) {
	turn, err := core.NewTurnState("s1", "", " ").WithFinal(core.AgentSystem, "Could you try again?")
	if err != nil {
		t.Fatal(err)
	}

	got := Replies(turn)
	if len(got) != 1 || got[0].Agent != core.AgentSystem || got[0].Text != "Could you try again?" {
		t.Errorf("Replies() = %+v", got)
	}
}

func TestRenderTurn_Plain(t *testing.T) {
	turn, err := finishedTurn(t).WithFinal(core.AgentSystem, "transcript")
	if err != nil {
		t.Fatal(err)
	}

	out := RenderTurn(turn, nil, false)
	want := "Realist Agent (60%)\nCheck the market.\n\nOptimist Agent (90%)\nGo for it!"
	if out != want {
		t.Errorf("RenderTurn() =\n%s\nwant\n%s", out, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	if got := RenderMarkdown(nil, "**x**"); got != "**x**" {
		t.Errorf("RenderMarkdown(nil) = %q", got)
	}

	r, err := NewMarkdownRenderer(60)
	if err != nil {
		t.Fatalf("NewMarkdownRenderer() error = %v", err)
	}
	out := RenderMarkdown(r, "hello **world**")
	if !strings.Contains(out, "world") || strings.Contains(out, "**") {
		t.Errorf("RenderMarkdown() = %q", out)
	}
}

func TestAgentLabel(t *testing.T) {
	if got := AgentLabel(core.AgentPlanner); got != "Planner Agent" {
		t.Errorf("AgentLabel(planner) = %q", got)
	}
	if got := AgentLabel("ghost"); got != "ghost" {
		t.Errorf("AgentLabel(ghost) = %q", got)
	}
	if AgentColor("ghost") != ColorTextMuted {
		t.Error("unknown agents should use the muted color")
	}
}

func TestDetector(t *testing.T) {
	t.Setenv("TRIAD_OUTPUT", "")
	t.Setenv("CI", "")

	tty := &Detector{isTTY: func() bool { return true }}
	if got := tty.Detect(); got != ModeTUI {
		t.Errorf("tty Detect() = %s, want tui", got)
	}

	pipe := &Detector{isTTY: func() bool { return false }}
	if got := pipe.Detect(); got != ModePlain {
		t.Errorf("pipe Detect() = %s, want plain", got)
	}

	if got := tty.ForceMode(ModeJSON).Detect(); got != ModeJSON {
		t.Errorf("forced Detect() = %s, want json", got)
	}

	t.Setenv("TRIAD_OUTPUT", "json")
	if got := pipe.Detect(); got != ModeJSON {
		t.Errorf("env Detect() = %s, want json", got)
	}
}

func TestDetector_Color(t *testing.T) {
	t.Setenv("TERM", "xterm")
	t.Setenv("NO_COLOR", "")

	d := &Detector{isTTY: func() bool { return true }}
	if !d.ShouldUseColor() {
		t.Error("tty should use color")
	}
	if d.NoColor(true).ShouldUseColor() {
		t.Error("NoColor(true) should disable color")
	}

	t.Setenv("NO_COLOR", "1")
	if (&Detector{isTTY: func() bool { return true }}).ShouldUseColor() {
		t.Error("NO_COLOR should disable color")
	}
}

func TestParseOutputMode(t *testing.T) {
	tests := map[string]OutputMode{"tui": ModeTUI, "plain": ModePlain, "text": ModePlain, "json": ModeJSON}
	for in, want := range tests {
		got, ok := ParseOutputMode(in)
		if !ok || got != want {
			t.Errorf("ParseOutputMode(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := ParseOutputMode("bogus"); ok {
		t.Error("ParseOutputMode(bogus) should not be ok")
	}
}
