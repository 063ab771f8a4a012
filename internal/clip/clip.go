// Package clip copies chat transcripts out of the terminal.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method names the mechanism that received the text.
type Method string

const (
	// MethodNative is the OS clipboard.
	MethodNative Method = "native"
	// MethodOSC52 is the terminal clipboard escape sequence.
	MethodOSC52 Method = "osc52"
	// MethodFile means no clipboard was reachable and the text went to a
	// temp file instead.
	MethodFile Method = "file"
)

// Result reports where the text ended up.
type Result struct {
	Method Method
	// FilePath is set for MethodFile.
	FilePath string
}

// Describe renders the result for a status line.
func (r Result) Describe() string {
	switch r.Method {
	case MethodNative:
		return "copied to clipboard"
	case MethodOSC52:
		return "copied to terminal clipboard"
	case MethodFile:
		return "clipboard unavailable, saved to " + r.FilePath
	default:
		return "not copied"
	}
}

// osc52Limit is conservative; terminals drop oversized payloads.
const osc52Limit = 100_000

// Copier tries the native clipboard, then OSC52, then a temp file.
type Copier struct {
	native  func(string) error
	osc52   func(string) error
	tempDir string
}

// New returns a copier using the real clipboards. OSC52 sequences go to
// stderr so they do not interleave with a renderer on stdout.
func New() *Copier {
	return &Copier{
		native: atotto.WriteAll,
		osc52:  func(text string) error { return writeOSC52(os.Stderr, text) },
	}
}

// Copy places text somewhere the user can reach it.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if c.native != nil && c.native(text) == nil {
		return Result{Method: MethodNative}, nil
	}
	if c.osc52 != nil && c.osc52(text) == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := c.writeTemp(text)
	if err != nil {
		return Result{}, fmt.Errorf("saving transcript: %w", err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func writeOSC52(w *os.File, text string) error {
	if !term.IsTerminal(int(w.Fd())) {
		return errors.New("not a terminal")
	}
	return writeSequence(w, text)
}

func writeSequence(w io.Writer, text string) error {
	if len(text) > osc52Limit {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52Limit)
	}
	seq := osc52.New(text).Limit(osc52Limit)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case os.Getenv("STY") != "":
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

func (c *Copier) writeTemp(text string) (path string, err error) {
	f, err := os.CreateTemp(c.tempDir, "triad-transcript-*.txt")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		_ = f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
