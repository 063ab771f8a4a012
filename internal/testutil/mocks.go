package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/triad-ai/triad/internal/core"
)

// MockCall records a call to a mock.
type MockCall struct {
	Method    string
	Args      []string
	Timestamp time.Time
}

type callRecorder struct {
	mu    sync.Mutex
	calls []MockCall
}

func (r *callRecorder) record(method string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, MockCall{Method: method, Args: args, Timestamp: time.Now()})
}

// Calls returns all recorded calls.
func (r *callRecorder) Calls() []MockCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MockCall(nil), r.calls...)
}

// CallCount returns the number of calls to a method.
func (r *callRecorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// =============================================================================
// Generator
// =============================================================================

// MockGenerator implements core.Generator.
type MockGenerator struct {
	callRecorder
	generateFunc func(context.Context, string) (string, error)
	response     string
	err          error
}

// NewMockGenerator creates a generator answering with a fixed response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{response: response}
}

// WithError makes every call fail.
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.err = err
	return m
}

// WithGenerateFunc sets a custom generate function.
func (m *MockGenerator) WithGenerateFunc(fn func(context.Context, string) (string, error)) *MockGenerator {
	m.generateFunc = fn
	return m
}

// Generate implements core.Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.record("Generate", prompt)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// LastPrompt returns the most recent prompt.
func (m *MockGenerator) LastPrompt() string {
	calls := m.Calls()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1].Args[0]
}

// =============================================================================
// Retriever
// =============================================================================

// MockRetriever implements core.Retriever.
type MockRetriever struct {
	callRecorder
	results map[string]string
	result  string
}

// NewMockRetriever creates a retriever that returns result for every query.
func NewMockRetriever(result string) *MockRetriever {
	return &MockRetriever{result: result, results: make(map[string]string)}
}

// On sets the result for one query.
func (m *MockRetriever) On(query, result string) *MockRetriever {
	m.results[query] = result
	return m
}

// Search implements core.Retriever.
func (m *MockRetriever) Search(_ context.Context, query string) string {
	m.record("Search", query)
	if r, ok := m.results[query]; ok {
		return r
	}
	return m.result
}

// Queries returns every query received, in order.
func (m *MockRetriever) Queries() []string {
	var out []string
	for _, c := range m.Calls() {
		out = append(out, c.Args[0])
	}
	return out
}

// =============================================================================
// Memory
// =============================================================================

// MockMemory implements core.Memory with an in-process log. Recall returns
// the fixed string for every session.
type MockMemory struct {
	callRecorder
	recall string
	mu     sync.Mutex
	stored map[core.Agent][]string
}

// NewMockMemory creates a memory that recalls a fixed string.
func NewMockMemory(recall string) *MockMemory {
	return &MockMemory{recall: recall, stored: make(map[core.Agent][]string)}
}

// Recall implements core.Memory.
func (m *MockMemory) Recall(_ context.Context, sessionID string, agent core.Agent, query string) string {
	m.record("Recall", sessionID, string(agent), query)
	return m.recall
}

// Remember implements core.Memory.
func (m *MockMemory) Remember(_ context.Context, sessionID string, agent core.Agent, input, response string) {
	m.record("Remember", sessionID, string(agent), input, response)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored[agent] = append(m.stored[agent], input+"\n"+response)
}

// Stored returns what was remembered for an agent.
func (m *MockMemory) Stored(agent core.Agent) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stored[agent]...)
}

// =============================================================================
// Specialist
// =============================================================================

// MockSpecialist implements core.Specialist.
type MockSpecialist struct {
	callRecorder
	agent       core.Agent
	response    core.SpecialistResponse
	respondFunc func(context.Context, core.SpecialistRequest) core.SpecialistResponse
	requests    []core.SpecialistRequest
}

// NewMockSpecialist creates a specialist with a fixed answer.
func NewMockSpecialist(agent core.Agent, text string, confidence float64) *MockSpecialist {
	return &MockSpecialist{
		agent:    agent,
		response: core.SpecialistResponse{Text: text, Confidence: confidence},
	}
}

// WithRespondFunc sets a custom respond function.
func (m *MockSpecialist) WithRespondFunc(fn func(context.Context, core.SpecialistRequest) core.SpecialistResponse) *MockSpecialist {
	m.respondFunc = fn
	return m
}

// WithWebContext sets the web context returned with the answer.
func (m *MockSpecialist) WithWebContext(ctx string) *MockSpecialist {
	m.response.WebContext = ctx
	return m
}

// Agent implements core.Specialist.
func (m *MockSpecialist) Agent() core.Agent {
	return m.agent
}

// Respond implements core.Specialist.
func (m *MockSpecialist) Respond(ctx context.Context, req core.SpecialistRequest) core.SpecialistResponse {
	m.record("Respond", req.UserInput)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.respondFunc != nil {
		return m.respondFunc(ctx, req)
	}
	return m.response
}

// Requests returns every request received.
func (m *MockSpecialist) Requests() []core.SpecialistRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.SpecialistRequest(nil), m.requests...)
}

// CallLog records the order in which a set of specialists was invoked.
type CallLog struct {
	mu     sync.Mutex
	agents []core.Agent
}

// Add appends an agent to the log.
func (l *CallLog) Add(a core.Agent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.agents = append(l.agents, a)
}

// Agents returns the invocation order.
func (l *CallLog) Agents() []core.Agent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Agent(nil), l.agents...)
}

// NewSpecialistSet creates one mock per agent with the given confidences.
// Every invocation is appended to log when log is non-nil.
func NewSpecialistSet(log *CallLog, confidences map[core.Agent]float64) []core.Specialist {
	out := make([]core.Specialist, 0, len(core.Specialists))
	for _, a := range core.Specialists {
		agent := a
		m := NewMockSpecialist(agent, string(agent)+" says hi", confidences[agent])
		m.WithRespondFunc(func(_ context.Context, _ core.SpecialistRequest) core.SpecialistResponse {
			if log != nil {
				log.Add(agent)
			}
			return core.SpecialistResponse{Text: string(agent) + " says hi", Confidence: confidences[agent]}
		})
		out = append(out, m)
	}
	return out
}

// =============================================================================
// Session store
// =============================================================================

// MemorySessionStore implements core.SessionStore in memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*core.SessionRecord
	turns    map[string][]core.TurnRecord
	SaveErr  error
	LoadErr  error
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*core.SessionRecord),
		turns:    make(map[string][]core.TurnRecord),
	}
}

// SaveTurn implements core.SessionStore.
func (s *MemorySessionStore) SaveTurn(_ context.Context, turn core.TurnState) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess, ok := s.sessions[turn.SessionID]
	if !ok {
		sess = &core.SessionRecord{ID: turn.SessionID, UserID: turn.UserID, Title: title(turn.UserInput), CreatedAt: now}
		s.sessions[turn.SessionID] = sess
	}
	sess.TurnCount++
	sess.UpdatedAt = now
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], core.NewTurnRecord(turn))
	return nil
}

// LoadHistory implements core.SessionStore.
func (s *MemorySessionStore) LoadHistory(_ context.Context, sessionID string) ([]core.HistoryEntry, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.HistoryEntry{}
	for _, t := range s.turns[sessionID] {
		out = append(out, t.History...)
	}
	return out, nil
}

// LoadTurns implements core.SessionStore.
func (s *MemorySessionStore) LoadTurns(_ context.Context, sessionID string) ([]core.TurnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TurnRecord{}, s.turns[sessionID]...), nil
}

// GetSession implements core.SessionStore.
func (s *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// ListSessions implements core.SessionStore.
func (s *MemorySessionStore) ListSessions(_ context.Context) ([]core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SessionRecord, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// DeleteSession implements core.SessionStore.
func (s *MemorySessionStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return core.ErrNotFound("session", sessionID)
	}
	delete(s.sessions, sessionID)
	delete(s.turns, sessionID)
	return nil
}

// Close implements core.SessionStore.
func (s *MemorySessionStore) Close() error {
	return nil
}

func title(input string) string {
	input = strings.TrimSpace(input)
	if len(input) > 60 {
		input = input[:60]
	}
	return input
}
