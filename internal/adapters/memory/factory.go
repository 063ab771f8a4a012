package memory

import (
	"fmt"

	"github.com/triad-ai/triad/internal/config"
	"github.com/triad-ai/triad/internal/logging"
)

// Backend names accepted in memory.backend.
const (
	BackendNone   = "none"
	BackendBuffer = "buffer"
	BackendQdrant = "qdrant"
)

// New builds the configured memory. It returns nil for the "none" backend.
// The qdrant backend needs an embedder; without one it degrades to the
// buffer alone.
func New(cfg config.MemoryConfig, embedder Embedder, logger *logging.Logger) (*Composite, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts := []CompositeOption{
		WithLogger(logger),
		WithTimeout(config.Duration(cfg.Timeout, DefaultTimeout)),
	}

	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case BackendBuffer, "":
		return NewComposite(NewBuffer(cfg.Window), opts...), nil
	case BackendQdrant:
		if embedder == nil {
			logger.Warn("no embedder available, using buffer memory only")
			return NewComposite(NewBuffer(cfg.Window), opts...), nil
		}
		qcfg := QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
			TopK:       cfg.TopK,
		}
		client, err := NewQdrantClient(qcfg)
		if err != nil {
			return nil, err
		}
		vector := NewVector(client, embedder, qcfg)
		return NewComposite(NewBuffer(cfg.Window), append(opts, WithVector(vector))...), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}
