package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/recruitment-engine/internal/application/port"
)

// SequenceGenerator issues document numbers from the backend's counters
type SequenceGenerator struct {
	backend  *Backend
	prefixes map[string]string
	now      func() time.Time
}

// NewSequenceGenerator creates a generator; prefixes maps kind to document prefix
func NewSequenceGenerator(b *Backend, prefixes map[string]string) *SequenceGenerator {
	return &SequenceGenerator{backend: b, prefixes: prefixes, now: time.Now}
}

func (g *SequenceGenerator) Next(ctx context.Context, kind string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var value int64
	err := g.backend.write(ctx, func(context.Context) error {
		g.backend.mu.Lock()
		defer g.backend.mu.Unlock()

		g.backend.sequences[kind]++
		value = g.backend.sequences[kind]
		return nil
	})
	if err != nil {
		return "", err
	}

	prefix := g.prefixes[kind]
	if prefix == "" {
		prefix = kind
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, g.now().Year(), value), nil
}

// Verify interface compliance
var _ port.SequenceGenerator = (*SequenceGenerator)(nil)
