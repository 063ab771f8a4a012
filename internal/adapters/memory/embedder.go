package memory

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Embedding defaults.
const (
	DefaultEmbeddingModel     = "text-embedding-004"
	DefaultEmbeddingDimension = 768
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// contentEmbedder is the part of *genai.Models the embedder needs.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder embeds text through the Gemini API.
type GeminiEmbedder struct {
	models    contentEmbedder
	model     string
	dimension int
}

// NewGeminiEmbedder creates an embedder backed by client.
func NewGeminiEmbedder(client *genai.Client, model string, dimension int) *GeminiEmbedder {
	return newGeminiEmbedder(client.Models, model, dimension)
}

func newGeminiEmbedder(models contentEmbedder, model string, dimension int) *GeminiEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	return &GeminiEmbedder{models: models, model: model, dimension: dimension}
}

// Dimension returns the vector size.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := int32(e.dimension)
	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding with %s: %w", e.model, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("embedding with %s: empty response", e.model)
	}

	values := resp.Embeddings[0].Values
	if len(values) != e.dimension {
		return nil, fmt.Errorf("embedding with %s: got %d dimensions, want %d", e.model, len(values), e.dimension)
	}
	return values, nil
}
