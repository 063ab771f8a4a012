package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

// DefaultCLITimeout bounds one CLI invocation when none is configured.
const DefaultCLITimeout = 2 * time.Minute

// CLIGenerator produces text by running an agent CLI (gemini, claude, ...)
// with the prompt on stdin and reading the answer from stdout.
type CLIGenerator struct {
	path    string
	args    []string
	timeout time.Duration
	env     []string
	logger  *logging.Logger
}

// CLIOption configures a CLIGenerator.
type CLIOption func(*CLIGenerator)

// WithArgs sets extra arguments passed before the prompt is piped in.
func WithArgs(args ...string) CLIOption {
	return func(g *CLIGenerator) {
		g.args = append([]string(nil), args...)
	}
}

// WithCLITimeout bounds each invocation.
func WithCLITimeout(d time.Duration) CLIOption {
	return func(g *CLIGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithEnv adds KEY=VALUE pairs to the child environment.
func WithEnv(kv ...string) CLIOption {
	return func(g *CLIGenerator) {
		g.env = append(g.env, kv...)
	}
}

// WithCLILogger sets the logger.
func WithCLILogger(l *logging.Logger) CLIOption {
	return func(g *CLIGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewCLIGenerator creates a generator that runs path.
func NewCLIGenerator(path string, opts ...CLIOption) (*CLIGenerator, error) {
	if strings.TrimSpace(path) == "" {
		return nil, core.ErrValidation("NO_PATH", "cli path not configured")
	}
	g := &CLIGenerator{
		path:    path,
		timeout: DefaultCLITimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithComponent("cli")
	return g, nil
}

// Generate implements core.Generator.
func (g *CLIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Multi-word commands such as "gh copilot".
	cmdPath := g.path
	args := g.args
	if parts := strings.Fields(cmdPath); len(parts) > 1 {
		cmdPath = parts[0]
		args = append(parts[1:], args...)
	}

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	configureProcess(cmd)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Env = append(os.Environ(), "TRIAD_MANAGED=true")
	cmd.Env = append(cmd.Env, g.env...)

	g.logger.Debug("cli: executing command",
		"path", cmdPath,
		"args", args,
		"stdin_length", len(prompt),
		"timeout", g.timeout,
	)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		g.logger.Warn("cli: command timeout",
			"path", cmdPath,
			"duration", duration,
			"stderr_preview", truncate(stderr.String(), 1000),
		)
		return "", core.ErrTimeout(fmt.Sprintf("command timed out after %v", g.timeout))
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return "", core.ErrState("CANCELLED", "generation cancelled")
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			g.logger.Warn("cli: command failed",
				"path", cmdPath,
				"exit_code", exitErr.ExitCode(),
				"duration", duration,
				"stderr", truncate(stderr.String(), 2000),
			)
			return "", classifyExit(stdout.String(), stderr.String(), exitErr.ExitCode())
		}
		return "", fmt.Errorf("executing command: %w", err)
	}

	text := strings.TrimSpace(stdout.String())
	g.logger.Debug("cli: command completed",
		"path", cmdPath,
		"duration", duration,
		"stdout_length", len(text),
	)
	if text == "" {
		return "", core.ErrExecution(core.CodeEmptyOutput, "command produced no output")
	}
	return text, nil
}
