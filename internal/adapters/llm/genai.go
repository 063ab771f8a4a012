package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// contentGenerator is the part of *genai.Models the generator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator produces text through the Gemini API.
type GeminiGenerator struct {
	models      contentGenerator
	model       string
	temperature float32
	logger      *logging.Logger
}

// GeminiOption configures a GeminiGenerator.
type GeminiOption func(*GeminiGenerator)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GeminiOption {
	return func(g *GeminiGenerator) {
		g.temperature = float32(t)
	}
}

// WithGeminiLogger sets the logger.
func WithGeminiLogger(l *logging.Logger) GeminiOption {
	return func(g *GeminiGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGeminiClient creates a Gemini API client. An empty key lets the SDK
// read GOOGLE_API_KEY or GEMINI_API_KEY itself.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, classifyMessage(err.Error(), CodeUnavailable).WithCause(err)
	}
	return client, nil
}

// NewGeminiGenerator creates a generator backed by client.
func NewGeminiGenerator(client *genai.Client, model string, opts ...GeminiOption) *GeminiGenerator {
	return newGeminiGenerator(client.Models, model, opts...)
}

func newGeminiGenerator(models contentGenerator, model string, opts ...GeminiOption) *GeminiGenerator {
	if model == "" {
		model = DefaultModel
	}
	g := &GeminiGenerator{
		models:      models,
		model:       model,
		temperature: 0.7,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithComponent("genai")
	return g
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate implements core.Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", core.ErrTimeout("gemini request timed out").WithCause(err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", core.ErrState("CANCELLED", "generation cancelled").WithCause(err)
		}
		g.logger.Warn("genai: request failed", "model", g.model, "error", err)
		return "", classifyMessage(err.Error(), CodeAPIError).WithCause(err)
	}
	if resp == nil {
		return "", core.ErrExecution(core.CodeEmptyOutput, "gemini returned no response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		err := core.ErrExecution(CodeBlocked, fmt.Sprintf("prompt blocked: %s", fb.BlockReason))
		err.Retryable = false
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	g.logger.Debug("genai: response",
		"model", g.model,
		"duration", time.Since(start),
		"length", len(text),
	)
	if text == "" {
		return "", core.ErrExecution(core.CodeEmptyOutput, "gemini returned empty text")
	}
	return text, nil
}
