// Package llm provides the text generators shared by the specialists: the
// Gemini API through google.golang.org/genai, and external agent CLIs.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/triad-ai/triad/internal/config"
	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

// Backend names accepted in llm.backend.
const (
	BackendGenAI = "genai"
	BackendCLI   = "cli"
)

// New builds the configured generator. A Gemini client that cannot be created
// (typically a missing API key) yields an Unavailable generator so that
// specialists answer with their fallbacks instead of the process failing.
func New(ctx context.Context, cfg config.LLMConfig, logger *logging.Logger) (core.Generator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	switch cfg.Backend {
	case BackendCLI:
		return NewCLIGenerator(cfg.Path,
			WithArgs(cfg.Args...),
			WithCLITimeout(config.Duration(cfg.Timeout, DefaultCLITimeout)),
			WithCLILogger(logger),
		)
	case BackendGenAI, "":
		client, err := NewGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			logger.Warn("gemini client unavailable, specialists will use fallbacks", "error", err)
			return Unavailable{Err: err}, nil
		}
		return NewGeminiGenerator(client, cfg.Model,
			WithTemperature(cfg.Temperature),
			WithGeminiLogger(logger),
		), nil
	default:
		return nil, core.ErrValidation("UNKNOWN_BACKEND", fmt.Sprintf("unknown llm backend %q", cfg.Backend))
	}
}

// Unavailable is a generator that always fails with Err.
type Unavailable struct {
	Err error
}

// Generate implements core.Generator.
func (u Unavailable) Generate(context.Context, string) (string, error) {
	err := core.ErrExecution(CodeUnavailable, "text generator unavailable")
	err.Retryable = false
	if u.Err != nil {
		return "", err.WithCause(u.Err)
	}
	return "", err
}

// Timeout returns the per-call timeout the specialists should apply.
func Timeout(cfg config.LLMConfig) time.Duration {
	return config.Duration(cfg.Timeout, 60*time.Second)
}
