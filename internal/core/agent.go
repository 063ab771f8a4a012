package core

import "strings"

// Agent identifies who produced a piece of turn output.
type Agent string

const (
	AgentSystem   Agent = "system"
	AgentOptimist Agent = "optimist"
	AgentRealist  Agent = "realist"
	AgentPlanner  Agent = "planner"
)

// Specialists lists the specialist agents in slot declaration order.
var Specialists = []Agent{AgentOptimist, AgentRealist, AgentPlanner}

// IsSpecialist reports whether the agent owns a response slot.
func (a Agent) IsSpecialist() bool {
	switch a {
	case AgentOptimist, AgentRealist, AgentPlanner:
		return true
	default:
		return false
	}
}

// String returns the agent name.
func (a Agent) String() string {
	return string(a)
}

// ParseAgent parses an agent name. Unknown names return false.
func ParseAgent(s string) (Agent, bool) {
	a := Agent(strings.ToLower(strings.TrimSpace(s)))
	if a == AgentSystem || a.IsSpecialist() {
		return a, true
	}
	return "", false
}

// Persona describes how an agent is presented to the user.
type Persona struct {
	Label string
	Tone  string
}

// personas holds the display label and tone descriptor for every agent.
var personas = map[Agent]Persona{
	AgentSystem:   {Label: "System"},
	AgentOptimist: {Label: "Optimist Agent", Tone: "in a hopeful tone"},
	AgentRealist:  {Label: "Realist Agent", Tone: "in a factual tone"},
	AgentPlanner:  {Label: "Planner Agent", Tone: "in a strategic tone"},
}

// PersonaFor returns the persona of an agent.
func PersonaFor(a Agent) (Persona, bool) {
	p, ok := personas[a]
	return p, ok
}
