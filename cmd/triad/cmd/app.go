package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/triad-ai/triad/internal/adapters/llm"
	"github.com/triad-ai/triad/internal/adapters/memory"
	"github.com/triad-ai/triad/internal/adapters/search"
	"github.com/triad-ai/triad/internal/adapters/session"
	"github.com/triad-ai/triad/internal/config"
	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/events"
	"github.com/triad-ai/triad/internal/logging"
	"github.com/triad-ai/triad/internal/service"
	"github.com/triad-ai/triad/internal/service/specialist"
)

// app holds everything a command needs to answer turns.
type app struct {
	orchestrator *service.Orchestrator
	bus          *events.EventBus
	sessions     core.SessionStore
	memory       *memory.Composite
	logger       *logging.Logger
}

// newApp wires the orchestrator from cfg. Close must be called when done.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &app{bus: events.New(256), logger: logger}

	gen, err := llm.New(ctx, cfg.LLM, logger.WithComponent("llm"))
	if err != nil {
		a.Close()
		return nil, err
	}

	specOpts := []specialist.Option{
		specialist.WithTimeout(llm.Timeout(cfg.LLM)),
		specialist.WithLogger(logger.WithComponent("specialist")),
	}

	if r := newRetriever(cfg.Search, logger); r != nil {
		specOpts = append(specOpts, specialist.WithRetriever(r))
	}

	mem, err := memory.New(cfg.Memory, newEmbedder(ctx, cfg, logger), logger.WithComponent("memory"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating memory: %w", err)
	}
	if mem != nil {
		a.memory = mem
		specOpts = append(specOpts, specialist.WithMemory(mem))
	}

	specialists, err := specialist.NewAll(gen, specOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	orchOpts := []service.OrchestratorOption{
		service.WithClassifier(newClassifier(cfg, gen, logger)),
		service.WithEventBus(a.bus),
		service.WithLogger(logger.WithComponent("orchestrator")),
		service.WithMode(service.Mode(cfg.Orchestrator.Mode)),
		service.WithDefaultUserID(cfg.Orchestrator.UserID),
	}

	if !strings.EqualFold(cfg.Session.Backend, "none") {
		store, err := session.NewStore(cfg.Session.Backend, cfg.Session.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening session store: %w", err)
		}
		a.sessions = store
		orchOpts = append(orchOpts, service.WithSessionStore(store))
	}

	a.orchestrator, err = service.NewOrchestrator(specialists, orchOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newRetriever(cfg config.SearchConfig, logger *logging.Logger) core.Retriever {
	if cfg.Provider != "serper" {
		return nil
	}
	if cfg.APIKey == "" {
		logger.Warn("search api key not set, answers will not use web context")
		return nil
	}
	return search.NewSerper(search.Config{
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		Timeout:    config.Duration(cfg.Timeout, search.DefaultTimeout),
		MaxResults: cfg.MaxResults,
		Retries:    cfg.Retries,
	}, search.WithLogger(logger.WithComponent("search")))
}

// newEmbedder returns a Gemini embedder when semantic memory is enabled and
// a client can be created, and nil otherwise.
func newEmbedder(ctx context.Context, cfg *config.Config, logger *logging.Logger) memory.Embedder {
	if cfg.Memory.Backend != memory.BackendQdrant {
		return nil
	}
	client, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey)
	if err != nil {
		logger.Warn("embedding client unavailable", "error", err)
		return nil
	}
	return memory.NewGeminiEmbedder(client, cfg.Memory.Embedding.Model, cfg.Memory.Embedding.Dimension)
}

func newClassifier(cfg *config.Config, gen core.Generator, logger *logging.Logger) core.Classifier {
	keyword := service.NewKeywordClassifier()
	if cfg.Classifier.Mode != "model" {
		return keyword
	}
	return service.NewModelClassifier(gen, keyword,
		config.Duration(cfg.Classifier.Timeout, service.DefaultClassifierTimeout), logger)
}

// Close releases the session store, the memory and the event bus.
func (a *app) Close() error {
	var errs []error
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close())
	}
	if a.memory != nil {
		errs = append(errs, a.memory.Close())
	}
	if a.bus != nil {
		a.bus.Close()
	}
	return errors.Join(errs...)
}
