package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/triad-ai/triad/internal/core"
)

// Reply is one block shown to the user for a finished turn.
type Reply struct {
	Agent      core.Agent
	Text       string
	Confidence float64
}

// Replies splits a finished turn into display blocks. A turn answered by one
// specialist yields that answer, a transcript yields one block per
// specialist, and a turn without answers yields the system message.
func Replies(turn core.TurnState) []Reply {
	if turn.ActiveAgent.IsSpecialist() {
		slot := turn.Slot(turn.ActiveAgent)
		return []Reply{{Agent: turn.ActiveAgent, Text: turn.FinalResponse, Confidence: slot.Confidence}}
	}
	if len(turn.History) == 0 {
		return []Reply{{Agent: core.AgentSystem, Text: turn.FinalResponse}}
	}

	out := make([]Reply, 0, len(turn.History))
	for _, h := range turn.History {
		out = append(out, Reply{Agent: h.Agent, Text: h.Message, Confidence: h.Confidence})
	}
	return out
}

// Header renders "Label (72%)" in the agent's color.
func Header(r Reply, color bool) string {
	label := AgentLabel(r.Agent)
	if r.Agent.IsSpecialist() {
		label += fmt.Sprintf(" (%.0f%%)", r.Confidence*100)
	}
	if !color {
		return label
	}
	return lipgloss.NewStyle().Foreground(AgentColor(r.Agent)).Bold(true).Render(label)
}

// RenderTurn formats a finished turn for a terminal. A nil renderer prints
// the replies as plain text.
func RenderTurn(turn core.TurnState, md *glamour.TermRenderer, color bool) string {
	replies := Replies(turn)
	blocks := make([]string, 0, len(replies)+1)
	if color && turn.Topic != "" {
		blocks = append(blocks, lipgloss.NewStyle().Foreground(ColorTextMuted).Render("topic: "+string(turn.Topic)))
	}
	for _, r := range replies {
		blocks = append(blocks, Header(r, color)+"\n"+RenderMarkdown(md, r.Text))
	}
	return strings.Join(blocks, "\n\n")
}
