package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/triad-ai/triad/internal/core"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	wait   time.Duration
	model  string
	prompt string
	temp   float32
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if cfg != nil && cfg.Temperature != nil {
		f.temp = *cfg.Temperature
	}
	if f.wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.wait):
		}
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestGeminiGenerator_Generate(t *testing.T) {
	fake := &fakeModels{resp: textResponse("  Internships build experience.  ")}
	g := newGeminiGenerator(fake, "gemini-test", WithTemperature(0.2))

	text, err := g.Generate(context.Background(), "should I intern?")
	require.NoError(t, err)

	assert.Equal(t, "Internships build experience.", text)
	assert.Equal(t, "gemini-test", fake.model)
	assert.Equal(t, "should I intern?", fake.prompt)
	assert.InDelta(t, 0.2, fake.temp, 1e-6)
}

func TestGeminiGenerator_DefaultModel(t *testing.T) {
	g := newGeminiGenerator(&fakeModels{}, "")
	assert.Equal(t, DefaultModel, g.Model())
}

func TestGeminiGenerator_EmptyText(t *testing.T) {
	g := newGeminiGenerator(&fakeModels{resp: textResponse("   ")}, "m")

	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrExecution(core.CodeEmptyOutput, "")))

	g = newGeminiGenerator(&fakeModels{}, "m")
	_, err = g.Generate(context.Background(), "p")
	require.Error(t, err)
}

func TestGeminiGenerator_Blocked(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}
	g := newGeminiGenerator(&fakeModels{resp: resp}, "m")

	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, core.IsRetryable(err))
}

func TestGeminiGenerator_ErrorClassification(t *testing.T) {
	tests := []struct {
		msg       string
		code      string
		retryable bool
	}{
		{"Error 429, RESOURCE_EXHAUSTED: quota exceeded", CodeRateLimit, true},
		{"Error 400: API key not valid", CodeAuth, false},
		{"dial tcp: connection refused", CodeNetwork, true},
		{"Error 500: internal", CodeAPIError, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			g := newGeminiGenerator(&fakeModels{err: errors.New(tt.msg)}, "m")

			_, err := g.Generate(context.Background(), "p")
			require.Error(t, err)

			var domErr *core.DomainError
			require.True(t, errors.As(err, &domErr))
			assert.Equal(t, tt.code, domErr.Code)
			assert.Equal(t, tt.retryable, domErr.Retryable)
		})
	}
}

func TestGeminiGenerator_Timeout(t *testing.T) {
	g := newGeminiGenerator(&fakeModels{wait: time.Second, resp: textResponse("late")}, "m")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, "p")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatTimeout))
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("missing key")
	_, err := Unavailable{Err: cause}.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.False(t, core.IsRetryable(err))
}
