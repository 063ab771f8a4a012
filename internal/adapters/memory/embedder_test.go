package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeEmbedModels struct {
	values []float32
	err    error
	model  string
	dim    int32
	empty  bool
}

func (f *fakeEmbedModels) EmbedContent(_ context.Context, model string, _ []*genai.Content,
	cfg *genai.EmbedContentConfig,
) (*genai.EmbedContentResponse, error) {
	f.model = model
	if cfg != nil && cfg.OutputDimensionality != nil {
		f.dim = *cfg.OutputDimensionality
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &genai.EmbedContentResponse{}, nil
	}
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: f.values}},
	}, nil
}

func TestGeminiEmbedder_Embed(t *testing.T) {
	models := &fakeEmbedModels{values: []float32{0.1, 0.2, 0.3}}
	e := newGeminiEmbedder(models, "embed-test", 3)

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "embed-test", models.model)
	assert.Equal(t, int32(3), models.dim)
	assert.Equal(t, 3, e.Dimension())
}

func TestGeminiEmbedder_Defaults(t *testing.T) {
	e := newGeminiEmbedder(&fakeEmbedModels{}, "", 0)
	assert.Equal(t, DefaultEmbeddingModel, e.model)
	assert.Equal(t, DefaultEmbeddingDimension, e.Dimension())
}

func TestGeminiEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeEmbedModels
	}{
		{"api error", &fakeEmbedModels{err: errors.New("429")}},
		{"empty response", &fakeEmbedModels{empty: true}},
		{"dimension mismatch", &fakeEmbedModels{values: []float32{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newGeminiEmbedder(tt.models, "m", 3).Embed(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}
