// Package tui holds terminal presentation shared by the interactive chat and
// the one-shot ask command.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/triad-ai/triad/internal/core"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan

	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red

	ColorText      = lipgloss.Color("#E5E7EB")
	ColorTextMuted = lipgloss.Color("#9CA3AF")
	ColorBorder    = lipgloss.Color("#374151")

	ColorUser = lipgloss.Color("#F43F5E") // Rose
)

// agentColors gives every persona a stable color.
var agentColors = map[core.Agent]lipgloss.Color{
	core.AgentOptimist: ColorSuccess,
	core.AgentRealist:  ColorSecondary,
	core.AgentPlanner:  ColorPrimary,
	core.AgentSystem:   ColorWarning,
}

// AgentColor returns the display color of an agent.
func AgentColor(a core.Agent) lipgloss.Color {
	if c, ok := agentColors[a]; ok {
		return c
	}
	return ColorTextMuted
}

// AgentLabel returns the display label of an agent.
func AgentLabel(a core.Agent) string {
	if p, ok := core.PersonaFor(a); ok {
		return p.Label
	}
	return string(a)
}
