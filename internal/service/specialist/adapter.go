package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

const (
	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 60 * time.Second
	// maxHistoryEntries caps the conversation shown to the model.
	maxHistoryEntries = 12
)

// Adapter turns a Profile into a core.Specialist. Collaborator failures are
// logged and answered with the profile's fallback; Respond never fails.
type Adapter struct {
	profile   Profile
	generator core.Generator
	retriever core.Retriever
	memory    core.Memory
	prompts   *PromptRenderer
	timeout   time.Duration
	logger    *logging.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRetriever sets the web retriever.
func WithRetriever(r core.Retriever) Option {
	return func(a *Adapter) {
		a.retriever = r
	}
}

// WithMemory sets the conversational memory.
func WithMemory(m core.Memory) Option {
	return func(a *Adapter) {
		a.memory = m
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an adapter for one persona.
func New(profile Profile, gen core.Generator, prompts *PromptRenderer, opts ...Option) (*Adapter, error) {
	if !profile.Agent.IsSpecialist() {
		return nil, core.ErrValidation(core.CodeUnknownAgent, fmt.Sprintf("profile agent %q is not a specialist", profile.Agent))
	}
	if gen == nil {
		return nil, core.ErrValidation("NO_GENERATOR", "a text generator is required")
	}
	if prompts == nil || !prompts.Has(profile.Template) {
		return nil, core.ErrValidation("NO_TEMPLATE", fmt.Sprintf("prompt template %q not found", profile.Template))
	}

	a := &Adapter{
		profile:   profile,
		generator: gen,
		prompts:   prompts,
		timeout:   DefaultTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithAgent(string(profile.Agent))
	return a, nil
}

// NewAll creates the optimist, realist and planner adapters sharing the
// same collaborators.
func NewAll(gen core.Generator, opts ...Option) ([]core.Specialist, error) {
	prompts, err := NewPromptRenderer()
	if err != nil {
		return nil, err
	}

	out := make([]core.Specialist, 0, 3)
	for _, p := range Profiles() {
		a, err := New(p, gen, prompts, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", p.Agent, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Agent implements core.Specialist.
func (a *Adapter) Agent() core.Agent {
	return a.profile.Agent
}

// Profile returns the adapter's persona configuration.
func (a *Adapter) Profile() Profile {
	return a.profile
}

// Respond implements core.Specialist.
func (a *Adapter) Respond(ctx context.Context, req core.SpecialistRequest) (resp core.SpecialistResponse) {
	var webContext string
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("specialist panic, using fallback", "panic", fmt.Sprint(rec))
			resp = a.fallback(webContext)
		}
	}()

	webContext = a.search(ctx, a.profile.Query(req.Topic, req.UserInput))

	prompt, err := a.prompts.Render(a.profile.Template, PromptData{
		Topic:           string(req.Topic),
		UserInput:       req.UserInput,
		WebContext:      webContext,
		RelevantHistory: a.recall(ctx, req.SessionID, req.UserInput),
		History:         formatHistory(req.History),
	})
	if err != nil {
		a.logger.Error("rendering prompt failed", "error", err)
		return a.fallback(webContext)
	}

	text, err := a.generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("generation failed, using fallback", "error", err)
		return a.fallback(webContext)
	}

	if a.profile.CiteSources && strings.TrimSpace(webContext) != "" {
		text += "\n\nSources:\n" + webContext
	}

	a.remember(ctx, req.SessionID, req.UserInput, text)

	return core.SpecialistResponse{
		Text:       text,
		Confidence: Score(a.profile, req.Topic, req.UserInput, webContext),
		WebContext: webContext,
	}
}

func (a *Adapter) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", core.ErrTimeout(fmt.Sprintf("generation exceeded %s", a.timeout)).WithCause(err)
		}
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.ErrExecution(core.CodeEmptyOutput, "generator returned empty text")
	}
	return text, nil
}

func (a *Adapter) search(ctx context.Context, query string) string {
	if a.retriever == nil {
		return ""
	}
	return strings.TrimSpace(a.retriever.Search(ctx, query))
}

func (a *Adapter) recall(ctx context.Context, sessionID, query string) string {
	if a.memory == nil || sessionID == "" {
		return ""
	}
	return a.memory.Recall(ctx, sessionID, a.profile.Agent, query)
}

func (a *Adapter) remember(ctx context.Context, sessionID, input, response string) {
	if a.memory == nil || sessionID == "" {
		return
	}
	a.memory.Remember(ctx, sessionID, a.profile.Agent, input, response)
}

func (a *Adapter) fallback(webContext string) core.SpecialistResponse {
	return core.SpecialistResponse{
		Text:       a.profile.FallbackText,
		Confidence: core.ClampConfidence(a.profile.FallbackConfidence),
		WebContext: webContext,
		Fallback:   true,
	}
}

// formatHistory renders the most recent entries as "Label: message" lines.
func formatHistory(entries []core.HistoryEntry) string {
	if len(entries) > maxHistoryEntries {
		entries = entries[len(entries)-maxHistoryEntries:]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		label := string(e.Agent)
		if p, ok := core.PersonaFor(e.Agent); ok {
			label = p.Label
		}
		lines = append(lines, label+": "+e.Message)
	}
	return strings.Join(lines, "\n")
}
