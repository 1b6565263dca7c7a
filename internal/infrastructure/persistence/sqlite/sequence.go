package sqlite

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/recruitment-engine/internal/application/port"
)

// SequenceGenerator hands out document numbers such as "OFR-2026-0007".
// Counters live in the sequences table and never repeat within a kind.
type SequenceGenerator struct {
	db       *DB
	prefixes map[string]string
	logger   *zap.Logger
	now      func() time.Time
}

// NewSequenceGenerator creates a generator; prefixes maps kind to document prefix
func NewSequenceGenerator(db *DB, prefixes map[string]string, logger *zap.Logger) *SequenceGenerator {
	return &SequenceGenerator{
		db:       db,
		prefixes: prefixes,
		logger:   logger,
		now:      time.Now,
	}
}

// Next returns the next document number of kind
func (g *SequenceGenerator) Next(ctx context.Context, kind string) (string, error) {
	var value int64

	err := g.db.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO sequences (kind, value) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET value = value + 1
		RETURNING value
	`, kind).Scan(&value)
	if err != nil {
		g.logger.Error("Failed to advance sequence", zap.String("kind", kind), zap.Error(err))
		return "", fmt.Errorf("failed to advance sequence %s: %w", kind, err)
	}

	return formatSequence(g.prefix(kind), g.now().Year(), value), nil
}

func (g *SequenceGenerator) prefix(kind string) string {
	if p, ok := g.prefixes[kind]; ok && p != "" {
		return p
	}
	return kind
}

func formatSequence(prefix string, year int, value int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, value)
}

// Verify interface compliance
var _ port.SequenceGenerator = (*SequenceGenerator)(nil)
