package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// NewMarkdownRenderer builds the renderer used for persona replies. Inline
// code drops the Dracula background so it stays readable inside bubbles.
func NewMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	if width < 20 {
		width = 80
	}
	style := styles.DraculaStyleConfig
	style.Code = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Color:           stringPtr("229"),
			BackgroundColor: stringPtr(""),
		},
	}
	return glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
}

// RenderMarkdown renders text, falling back to the raw text when r is nil or
// rendering fails.
func RenderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func stringPtr(s string) *string { return &s }
