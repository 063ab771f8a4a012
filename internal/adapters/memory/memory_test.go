package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triad-ai/triad/internal/config"
	"github.com/triad-ai/triad/internal/core"
)

// fakeIndex keeps points in memory. Query returns the newest points matching
// every Must keyword first, with decreasing scores.
type fakeIndex struct {
	mu         sync.Mutex
	exists     bool
	existsErr  error
	createErr  error
	upsertErr  error
	queryErr   error
	created    []*qdrant.CreateCollection
	points     []*qdrant.PointStruct
	lastQuery  *qdrant.QueryPoints
	lastDelete *qdrant.DeletePoints
	closed     bool
}

func (f *fakeIndex) CollectionExists(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, f.existsErr
}

func (f *fakeIndex) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, req)
	f.exists = true
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.points = append(f.points, req.GetPoints()...)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeIndex) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = req
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	var out []*qdrant.ScoredPoint
	score := float32(0.9)
	for i := len(f.points) - 1; i >= 0 && uint64(len(out)) < req.GetLimit(); i-- {
		p := f.points[i]
		if !matchesFilter(p, req.GetFilter()) {
			continue
		}
		out = append(out, &qdrant.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: score})
		score -= 0.1
	}
	return out, nil
}

func (f *fakeIndex) Delete(_ context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDelete = req
	kept := f.points[:0]
	for _, p := range f.points {
		if !matchesFilter(p, req.GetPoints().GetFilter()) {
			kept = append(kept, p)
		}
	}
	f.points = kept
	return &qdrant.UpdateResult{}, nil
}

func matchesFilter(p *qdrant.PointStruct, filter *qdrant.Filter) bool {
	for _, c := range filter.GetMust() {
		field := c.GetField()
		if p.GetPayload()[field.GetKey()].GetStringValue() != field.GetMatch().GetKeyword() {
			return false
		}
	}
	return true
}

func (f *fakeIndex) Close() error {
	f.closed = true
	return nil
}

type fakeEmbedder struct {
	err   error
	texts []string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return []float32{float32(len(text)), 1, 0}, nil
}

func (e *fakeEmbedder) Dimension() int { return 3 }

func TestBuffer_Window(t *testing.T) {
	b := NewBuffer(2)
	b.Add("s1", core.AgentOptimist, "q1", "a1")
	b.Add("s1", core.AgentOptimist, "q2", "a2")
	b.Add("s1", core.AgentOptimist, "q3", "a3")
	b.Add("s1", core.AgentRealist, "r1", "ra1")

	assert.Equal(t, 2, b.Len("s1", core.AgentOptimist))
	assert.Equal(t, "Human: q2\nAi: a2\nHuman: q3\nAi: a3", b.History("s1", core.AgentOptimist))
	assert.Equal(t, "Human: r1\nAi: ra1", b.History("s1", core.AgentRealist))
	assert.Equal(t, "", b.History("s1", core.AgentPlanner))

	b.Clear()
	assert.Equal(t, 0, b.Len("s1", core.AgentOptimist))
}

func TestBuffer_SessionsAreIsolated(t *testing.T) {
	b := NewBuffer(5)
	b.Add("alice", core.AgentRealist, "my salary is 91234", "noted")
	b.Add("bob", core.AgentRealist, "should I take an internship", "maybe")

	assert.Equal(t, "Human: my salary is 91234\nAi: noted", b.History("alice", core.AgentRealist))
	assert.Equal(t, "Human: should I take an internship\nAi: maybe", b.History("bob", core.AgentRealist))
	assert.Equal(t, "", b.History("carol", core.AgentRealist))
	assert.Equal(t, 1, b.Len("bob", core.AgentRealist))
}

func TestBuffer_DefaultWindow(t *testing.T) {
	b := NewBuffer(0)
	for i := 0; i < DefaultWindow+5; i++ {
		b.Add("s1", core.AgentPlanner, fmt.Sprint(i), "ok")
	}
	assert.Equal(t, DefaultWindow, b.Len("s1", core.AgentPlanner))
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Add("s1", core.AgentRealist, fmt.Sprint(i), "a")
			_ = b.History("s1", core.AgentRealist)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, b.Len("s1", core.AgentRealist))
}

func TestVector_CreatesCollectionOnce(t *testing.T) {
	idx := &fakeIndex{}
	v := newVector(idx, &fakeEmbedder{}, QdrantConfig{Collection: "test"})

	require.NoError(t, v.Store(context.Background(), "s1", core.AgentOptimist, "hi", "hello"))
	require.NoError(t, v.Store(context.Background(), "s1", core.AgentOptimist, "hi", "again"))

	require.Len(t, idx.created, 1)
	assert.Equal(t, "test", idx.created[0].GetCollectionName())
	params := idx.created[0].GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(3), params.GetSize())
	assert.Equal(t, qdrant.Distance_Cosine, params.GetDistance())
}

func TestVector_ExistingCollection(t *testing.T) {
	idx := &fakeIndex{exists: true}
	v := newVector(idx, &fakeEmbedder{}, QdrantConfig{})

	require.NoError(t, v.Store(context.Background(), "s1", core.AgentPlanner, "q", "a"))
	assert.Empty(t, idx.created)
}

func TestVector_EnsureRetriesAfterFailure(t *testing.T) {
	idx := &fakeIndex{existsErr: errors.New("connection refused")}
	v := newVector(idx, &fakeEmbedder{}, QdrantConfig{})

	require.Error(t, v.Store(context.Background(), "s1", core.AgentPlanner, "q", "a"))

	idx.existsErr = nil
	require.NoError(t, v.Store(context.Background(), "s1", core.AgentPlanner, "q", "a"))
	assert.Len(t, idx.points, 1)
}

func TestVector_StorePayload(t *testing.T) {
	idx := &fakeIndex{exists: true}
	emb := &fakeEmbedder{}
	v := newVector(idx, emb, QdrantConfig{})

	require.NoError(t, v.Store(context.Background(), "s1", core.AgentRealist, "Is an internship worth it?", "Usually."))

	require.Len(t, idx.points, 1)
	payload := idx.points[0].GetPayload()
	assert.Equal(t, "realist", payload[payloadAgent].GetStringValue())
	assert.Equal(t, "s1", payload[payloadSession].GetStringValue())
	assert.Equal(t, "User: Is an internship worth it?\nAgent: Usually.", payload[payloadText].GetStringValue())
	assert.Equal(t, "Is an internship worth it?", payload[payloadInput].GetStringValue())
	assert.Equal(t, "Usually.", payload[payloadResponse].GetStringValue())
	assert.NotEmpty(t, payload[payloadTimestamp].GetStringValue())
	assert.NotEmpty(t, idx.points[0].GetId().GetUuid())
	assert.Equal(t, []string{"User: Is an internship worth it?\nAgent: Usually."}, emb.texts)
}

func TestVector_SearchFiltersByAgent(t *testing.T) {
	idx := &fakeIndex{exists: true}
	v := newVector(idx, &fakeEmbedder{}, QdrantConfig{TopK: 2})
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "s1", core.AgentOptimist, "q1", "o1"))
	require.NoError(t, v.Store(ctx, "s1", core.AgentPlanner, "q2", "p2"))
	require.NoError(t, v.Store(ctx, "s1", core.AgentOptimist, "q3", "o3"))
	require.NoError(t, v.Store(ctx, "s1", core.AgentOptimist, "q4", "o4"))

	matches, err := v.Search(ctx, "s1", core.AgentOptimist, "q")
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "User: q4\nAgent: o4", matches[0].Text)
	assert.Equal(t, core.AgentOptimist, matches[1].Agent)
	assert.Equal(t, uint64(2), idx.lastQuery.GetLimit())
	require.Len(t, idx.lastQuery.GetFilter().GetMust(), 2)
	assert.True(t, idx.lastQuery.GetWithPayload().GetEnable())
}

func TestVector_SearchFiltersBySession(t *testing.T) {
	idx := &fakeIndex{exists: true}
	v := newVector(idx, &fakeEmbedder{}, QdrantConfig{})
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "alice", core.AgentRealist, "my salary is 91234", "noted"))
	require.NoError(t, v.Store(ctx, "bob", core.AgentRealist, "internship?", "maybe"))

	matches, err := v.Search(ctx, "bob", core.AgentRealist, "salary")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "User: internship?\nAgent: maybe", matches[0].Text)

	matches, err = v.Search(ctx, "carol", core.AgentRealist, "salary")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVector_Errors(t *testing.T) {
	ctx := context.Background()

	v := newVector(&fakeIndex{exists: true}, &fakeEmbedder{err: errors.New("quota")}, QdrantConfig{})
	assert.Error(t, v.Store(ctx, "s1", core.AgentOptimist, "q", "a"))
	_, err := v.Search(ctx, "s1", core.AgentOptimist, "q")
	assert.Error(t, err)

	v = newVector(&fakeIndex{exists: true, upsertErr: errors.New("down")}, &fakeEmbedder{}, QdrantConfig{})
	assert.Error(t, v.Store(ctx, "s1", core.AgentOptimist, "q", "a"))

	v = newVector(&fakeIndex{exists: true, queryErr: errors.New("down")}, &fakeEmbedder{}, QdrantConfig{})
	_, err = v.Search(ctx, "s1", core.AgentOptimist, "q")
	assert.Error(t, err)
}

func TestVector_Clear(t *testing.T) {
	idx := &fakeIndex{exists: true}
	v := newVector(idx, &fakeEmbedder{}, QdrantConfig{})
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "s1", core.AgentOptimist, "q", "a"))
	require.NoError(t, v.Store(ctx, "s1", core.AgentPlanner, "q", "a"))
	require.NoError(t, v.Clear(ctx, core.AgentOptimist))

	require.Len(t, idx.points, 1)
	assert.Equal(t, "planner", idx.points[0].GetPayload()[payloadAgent].GetStringValue())
}

func TestFormatMatches(t *testing.T) {
	got := FormatMatches([]Match{
		{Text: "User: a\nAgent: b", Score: 0.876},
		{Text: "User: c\nAgent: d", Score: 0.5},
	})
	assert.Equal(t, "Memory 1 (Score: 0.88):\nUser: a\nAgent: b\nMemory 2 (Score: 0.50):\nUser: c\nAgent: d", got)
	assert.Equal(t, "", FormatMatches(nil))
}

func TestComposite_BufferOnly(t *testing.T) {
	m := NewComposite(NewBuffer(5))
	ctx := context.Background()

	assert.Equal(t, "", m.Recall(ctx, "s1", core.AgentOptimist, "anything"))

	m.Remember(ctx, "s1", core.AgentOptimist, "hi", "hello")
	assert.Equal(t, "Human: hi\nAi: hello", m.Recall(ctx, "s1", core.AgentOptimist, "anything"))
	assert.Equal(t, "", m.Recall(ctx, "s1", core.AgentRealist, "anything"))
	assert.NoError(t, m.Close())
}

func TestComposite_SessionsAreIsolated(t *testing.T) {
	idx := &fakeIndex{exists: true}
	m := NewComposite(NewBuffer(5), WithVector(newVector(idx, &fakeEmbedder{}, QdrantConfig{})))
	ctx := context.Background()

	m.Remember(ctx, "alice-session", core.AgentRealist, "my salary is 91234 should I take this job", "Compare offers.")

	assert.Contains(t, m.Recall(ctx, "alice-session", core.AgentRealist, "salary"), "91234")
	assert.Equal(t, "", m.Recall(ctx, "bob-session", core.AgentRealist, "should I take an internship"))
}

func TestComposite_WithVector(t *testing.T) {
	idx := &fakeIndex{exists: true}
	m := NewComposite(NewBuffer(5), WithVector(newVector(idx, &fakeEmbedder{}, QdrantConfig{})))
	ctx := context.Background()

	m.Remember(ctx, "s1", core.AgentPlanner, "plan my year", "Start with goals.")
	got := m.Recall(ctx, "s1", core.AgentPlanner, "plan")

	want := "Human: plan my year\nAi: Start with goals.\n\n" +
		"Memory 1 (Score: 0.90):\nUser: plan my year\nAgent: Start with goals."
	assert.Equal(t, want, got)

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, "", m.Recall(ctx, "s1", core.AgentPlanner, "plan"))

	require.NoError(t, m.Close())
	assert.True(t, idx.closed)
}

func TestComposite_VectorFailuresSwallowed(t *testing.T) {
	idx := &fakeIndex{exists: true, upsertErr: errors.New("down"), queryErr: errors.New("down")}
	m := NewComposite(NewBuffer(5), WithVector(newVector(idx, &fakeEmbedder{}, QdrantConfig{})))
	ctx := context.Background()

	m.Remember(ctx, "s1", core.AgentRealist, "q", "a")
	assert.Equal(t, "Human: q\nAi: a", m.Recall(ctx, "s1", core.AgentRealist, "q"))
}

func TestComposite_SkipsVectorForBlankQuery(t *testing.T) {
	idx := &fakeIndex{exists: true}
	m := NewComposite(nil, WithVector(newVector(idx, &fakeEmbedder{}, QdrantConfig{})))

	assert.Equal(t, "", m.Recall(context.Background(), "s1", core.AgentRealist, "  "))
	assert.Nil(t, idx.lastQuery)
}

func TestNew(t *testing.T) {
	m, err := New(config.MemoryConfig{Backend: BackendNone}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = New(config.MemoryConfig{Backend: BackendBuffer, Window: 3}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Nil(t, m.vector)
	assert.Equal(t, 3, m.buffer.window)

	m, err = New(config.MemoryConfig{Backend: BackendQdrant, Window: 3}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, m.vector)

	_, err = New(config.MemoryConfig{Backend: "redis"}, nil, nil)
	assert.Error(t, err)
}
