package chat

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/triad-ai/triad/internal/tui"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(tui.ColorPrimary).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(tui.ColorTextMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(tui.ColorError)
	statusStyle = lipgloss.NewStyle().Foreground(tui.ColorSecondary)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(tui.ColorBorder).
			Padding(0, 1)

	suggestionStyle = lipgloss.NewStyle().Foreground(tui.ColorWarning)
)

// bubble frames one message with a colored header and a rounded border.
func bubble(header string, color lipgloss.Color, body string, width int) string {
	if width < 30 {
		width = 30
	}
	h := lipgloss.NewStyle().Foreground(color).Bold(true).Render(header)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(width).
		Render(body)
	return h + "\n" + box
}

func renderMessage(m Message, body string, width int) string {
	ts := mutedStyle.Render(m.Timestamp.Format("15:04"))
	switch m.Role {
	case RoleUser:
		return bubble("You", tui.ColorUser, body, width) + " " + ts
	case RoleAgent:
		header := fmt.Sprintf("%s (%.0f%%)", tui.AgentLabel(m.Agent), m.Confidence*100)
		return bubble(header, tui.AgentColor(m.Agent), body, width) + " " + ts
	default:
		return mutedStyle.Render("▸ " + body)
	}
}
