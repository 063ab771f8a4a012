package testutil_test

import (
	"testing"

	"github.com/triad-ai/triad/internal/testutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"CRLF to LF", "line1\r\nline2\r\n", "line1\nline2"},
		{"trailing whitespace", "line1   \nline2\t\n", "line1\nline2"},
		{"trailing newlines", "line1\nline2\n\n\n", "line1\nline2"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScrubAll(t *testing.T) {
	in := "turn 01HZX3K8Q9V4T7B2N6M5R1C0DE in session 2f1c6a52-9a5b-4c1e-8f0e-0a1b2c3d4e5f at 2026-10-16T09:30:00Z  \n"
	want := "turn [ULID] in session [UUID] at [TIMESTAMP]"
	if got := testutil.ScrubAll(in); got != want {
		t.Errorf("ScrubAll() = %q, want %q", got, want)
	}
}

func TestGolden_Assert(t *testing.T) {
	dir := t.TempDir()
	testutil.TempFile(t, dir, "sample.golden", "hello\nworld\n")

	g := testutil.NewGolden(t, dir)
	g.AssertString("sample", "hello\r\nworld")
}

func TestAssertOrder(t *testing.T) {
	testutil.AssertOrder(t, "optimist then realist then planner", "optimist", "realist", "planner")
}
