package tui

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents the output mode.
type OutputMode int

const (
	// ModeTUI renders markdown and colors.
	ModeTUI OutputMode = iota
	// ModePlain writes raw text.
	ModePlain
	// ModeJSON writes the turn as JSON.
	ModeJSON
)

// String returns the string representation of the output mode.
func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseOutputMode parses an output mode. Unknown values select auto-detection.
func ParseOutputMode(s string) (OutputMode, bool) {
	switch s {
	case "tui":
		return ModeTUI, true
	case "plain", "text":
		return ModePlain, true
	case "json":
		return ModeJSON, true
	default:
		return ModeTUI, false
	}
}

// Detector determines the appropriate output mode.
type Detector struct {
	forceMode *OutputMode
	noColor   bool
	isTTY     func() bool
}

// NewDetector creates a detector for stdout.
func NewDetector() *Detector {
	return &Detector{isTTY: func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }}
}

// ForceMode forces a specific output mode.
func (d *Detector) ForceMode(mode OutputMode) *Detector {
	d.forceMode = &mode
	return d
}

// NoColor disables color output.
func (d *Detector) NoColor(disable bool) *Detector {
	d.noColor = disable
	return d
}

// Detect determines the appropriate output mode.
func (d *Detector) Detect() OutputMode {
	if d.forceMode != nil {
		return *d.forceMode
	}
	if mode, ok := ParseOutputMode(os.Getenv("TRIAD_OUTPUT")); ok {
		return mode
	}
	if os.Getenv("CI") != "" || d.noColor || !d.isTTY() {
		return ModePlain
	}
	return ModeTUI
}

// ShouldUseColor determines if color should be used.
func (d *Detector) ShouldUseColor() bool {
	if d.noColor || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return d.isTTY()
}

// TerminalWidth returns the stdout width, or 80 when it is unknown.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
