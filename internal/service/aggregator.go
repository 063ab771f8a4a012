package service

import (
	"fmt"
	"strings"

	"github.com/triad-ai/triad/internal/core"
)

// Fixed texts used when composing the final reply.
const (
	PlaceholderMessage = "I'm here with my colleagues to help you make the best decision. Could you tell us more about what you're considering?"
	GreetingMessage    = "Hi! I'm here with my colleagues to discuss any topic you'd like. What would you like us to explore together?"
	CareerClosing      = "Would you like to explore more specific aspects of either the internship or project path?"
	GenericClosing     = "Would you like to go deeper into any of those points?"
)

// tieBreak ranks specialists when confidences are equal; earlier wins.
var tieBreak = []core.Agent{core.AgentRealist, core.AgentOptimist, core.AgentPlanner}

// Aggregator merges specialist slots into the text returned to the user.
type Aggregator struct{}

// NewAggregator creates an aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Best returns the filled specialist with the highest confidence. Strict ties
// prefer realist, then optimist, then planner. When no slot is filled it
// returns the system placeholder.
func (a *Aggregator) Best(turn core.TurnState) (core.Agent, string) {
	var (
		best     core.Agent
		bestSlot core.Slot
	)
	for _, agent := range tieBreak {
		slot := turn.Slot(agent)
		if !slot.Filled() {
			continue
		}
		if best == "" || slot.Confidence > bestSlot.Confidence {
			best, bestSlot = agent, slot
		}
	}
	if best == "" {
		return core.AgentSystem, PlaceholderMessage
	}
	return best, bestSlot.Response
}

// Render returns the final response if one is set, and otherwise builds the
// transcript from the response buffer. It is idempotent.
func (a *Aggregator) Render(turn core.TurnState) string {
	if turn.Terminal() {
		return turn.FinalResponse
	}

	parts := make([]string, 0, len(turn.ResponseBuffer)+3)
	if len(turn.History) == 0 {
		parts = append(parts, systemLine(GreetingMessage))
	}
	parts = append(parts, "**User**: "+quote(turn.UserInput))

	for _, entry := range turn.ResponseBuffer {
		persona, ok := core.PersonaFor(entry.Agent)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("**%s** *(%s)*: %s", persona.Label, persona.Tone, quote(entry.Text)))
	}

	if turn.Topic == core.TopicCareer {
		parts = append(parts, systemLine(CareerClosing))
	} else {
		parts = append(parts, systemLine(GenericClosing))
	}
	return strings.Join(parts, "\n\n")
}

func systemLine(text string) string {
	return "**System**:" + quote(text)
}

// quote wraps trimmed text in double quotes without escaping its content.
func quote(text string) string {
	return `"` + strings.TrimSpace(text) + `"`
}
