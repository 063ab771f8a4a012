// Package memory implements conversational memory scoped by session and
// agent: a short-term buffer of recent exchanges and optional long-term
// semantic recall backed by qdrant and Gemini embeddings.
package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

// DefaultTimeout bounds each vector store call.
const DefaultTimeout = 10 * time.Second

// Composite implements core.Memory on top of a Buffer and an optional Vector
// store. Vector failures are logged and never surface to the caller.
type Composite struct {
	buffer  *Buffer
	vector  *Vector
	timeout time.Duration
	logger  *logging.Logger
}

// CompositeOption configures a Composite.
type CompositeOption func(*Composite)

// WithVector enables semantic recall.
func WithVector(v *Vector) CompositeOption {
	return func(c *Composite) {
		c.vector = v
	}
}

// WithTimeout bounds each vector call.
func WithTimeout(d time.Duration) CompositeOption {
	return func(c *Composite) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) CompositeOption {
	return func(c *Composite) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewComposite creates a memory over buffer.
func NewComposite(buffer *Buffer, opts ...CompositeOption) *Composite {
	if buffer == nil {
		buffer = NewBuffer(DefaultWindow)
	}
	c := &Composite{
		buffer:  buffer,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("memory")
	return c
}

// Recall implements core.Memory. The result is the agent's recent exchanges
// in the session followed by its most relevant long-term memories from the
// same session; either part may be empty.
func (c *Composite) Recall(ctx context.Context, sessionID string, agent core.Agent, query string) string {
	parts := make([]string, 0, 2)
	if h := c.buffer.History(sessionID, agent); h != "" {
		parts = append(parts, h)
	}

	if c.vector != nil && strings.TrimSpace(query) != "" {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		matches, err := c.vector.Search(ctx, sessionID, agent, query)
		if err != nil {
			c.logger.Warn("recalling memories failed", "agent", string(agent), "error", err)
		} else if len(matches) > 0 {
			parts = append(parts, FormatMatches(matches))
		}
	}
	return strings.Join(parts, "\n\n")
}

// Remember implements core.Memory.
func (c *Composite) Remember(ctx context.Context, sessionID string, agent core.Agent, input, response string) {
	c.buffer.Add(sessionID, agent, input, response)

	if c.vector == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.vector.Store(ctx, sessionID, agent, input, response); err != nil {
		c.logger.Warn("storing memory failed", "agent", string(agent), "error", err)
	}
}

// Clear forgets everything, short and long term.
func (c *Composite) Clear(ctx context.Context) error {
	c.buffer.Clear()
	if c.vector == nil {
		return nil
	}

	var errs []error
	for _, agent := range core.Specialists {
		if err := c.vector.Clear(ctx, agent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the vector store connection.
func (c *Composite) Close() error {
	if c.vector == nil {
		return nil
	}
	return c.vector.Close()
}
