package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/triad-ai/triad/internal/core"
)

// Vector store defaults.
const (
	DefaultCollection = "agent_memories"
	DefaultTopK       = 3
)

// Payload keys stored with every point.
const (
	payloadAgent     = "agent_type"
	payloadSession   = "session_id"
	payloadText      = "text"
	payloadInput     = "user_input"
	payloadResponse  = "agent_response"
	payloadTimestamp = "timestamp"
)

// vectorIndex is the part of *qdrant.Client the vector memory uses.
type vectorIndex interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Close() error
}

// QdrantConfig locates the qdrant server.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	TopK       int
}

// Match is one recalled memory.
type Match struct {
	Text  string
	Agent core.Agent
	Score float32
}

// Vector is long-term semantic memory in a qdrant collection. Each exchange
// is embedded as "User: ...\nAgent: ..." and filtered by session and agent on
// recall.
type Vector struct {
	index      vectorIndex
	embedder   Embedder
	collection string
	topK       int
	now        func() time.Time

	mu    sync.Mutex
	ready bool
}

// NewQdrantClient connects to qdrant over gRPC.
func NewQdrantClient(cfg QdrantConfig) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}
	return client, nil
}

// NewVector creates a vector memory over an existing qdrant client.
func NewVector(client *qdrant.Client, embedder Embedder, cfg QdrantConfig) *Vector {
	return newVector(client, embedder, cfg)
}

func newVector(index vectorIndex, embedder Embedder, cfg QdrantConfig) *Vector {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Vector{
		index:      index,
		embedder:   embedder,
		collection: cfg.Collection,
		topK:       cfg.TopK,
		now:        time.Now,
	}
}

// ensureCollection creates the collection on first use. A failed attempt is
// retried on the next call.
func (v *Vector) ensureCollection(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ready {
		return nil
	}

	exists, err := v.index.CollectionExists(ctx, v.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", v.collection, err)
	}
	if !exists {
		err := v.index.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: v.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(v.embedder.Dimension()),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", v.collection, err)
		}
	}
	v.ready = true
	return nil
}

// Store embeds and upserts one exchange.
func (v *Vector) Store(ctx context.Context, sessionID string, agent core.Agent, input, response string) error {
	if err := v.ensureCollection(ctx); err != nil {
		return err
	}

	text := ExchangeText(input, response)
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	wait := true
	_, err = v.index.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadAgent:     string(agent),
				payloadSession:   sessionID,
				payloadText:      text,
				payloadInput:     input,
				payloadResponse:  response,
				payloadTimestamp: v.now().UTC().Format(time.RFC3339),
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("upserting memory: %w", err)
	}
	return nil
}

// Search returns the agent's memories from sessionID most similar to query.
func (v *Vector) Search(ctx context.Context, sessionID string, agent core.Agent, query string) ([]Match, error) {
	if err := v.ensureCollection(ctx); err != nil {
		return nil, err
	}

	vec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	limit := uint64(v.topK)
	points, err := v.index.Query(ctx, &qdrant.QueryPoints{
		CollectionName: v.collection,
		Query:          qdrant.NewQuery(vec...),
		Filter:         sessionFilter(sessionID, agent),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		text := p.GetPayload()[payloadText].GetStringValue()
		if text == "" {
			continue
		}
		matches = append(matches, Match{
			Text:  text,
			Agent: core.Agent(p.GetPayload()[payloadAgent].GetStringValue()),
			Score: p.GetScore(),
		})
	}
	return matches, nil
}

// Clear deletes every memory of agent.
func (v *Vector) Clear(ctx context.Context, agent core.Agent) error {
	if err := v.ensureCollection(ctx); err != nil {
		return err
	}
	wait := true
	_, err := v.index.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(agentFilter(agent)),
	})
	if err != nil {
		return fmt.Errorf("clearing %s memories: %w", agent, err)
	}
	return nil
}

// Close closes the qdrant connection.
func (v *Vector) Close() error {
	return v.index.Close()
}

func agentFilter(agent core.Agent) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatchKeyword(payloadAgent, string(agent))},
	}
}

func sessionFilter(sessionID string, agent core.Agent) *qdrant.Filter {
	f := agentFilter(agent)
	f.Must = append(f.Must, qdrant.NewMatchKeyword(payloadSession, sessionID))
	return f
}

// ExchangeText is the text embedded for one exchange.
func ExchangeText(input, response string) string {
	return "User: " + input + "\nAgent: " + response
}

// FormatMatches renders matches as numbered "Memory i (Score: s):" blocks.
func FormatMatches(matches []Match) string {
	blocks := make([]string, 0, len(matches))
	for i, m := range matches {
		blocks = append(blocks, fmt.Sprintf("Memory %d (Score: %.2f):\n%s", i+1, m.Score, m.Text))
	}
	return strings.Join(blocks, "\n")
}
