// Package screening provides the sanction screening stand-in and the
// timeout/retry policy wrapped around any screener.
package screening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/recruitment-engine/internal/application/port"
)

// WatchlistScreener matches subjects against a configured list of names after
// a simulated lookup delay. Entries are "Full Name" or "Full Name/Father Name".
type WatchlistScreener struct {
	entries []watchEntry
	latency time.Duration
	logger  *zap.Logger
}

type watchEntry struct {
	fullName   string
	fatherName string
	raw        string
}

// NewWatchlistScreener creates a screener over the given entries
func NewWatchlistScreener(entries []string, latency time.Duration, logger *zap.Logger) *WatchlistScreener {
	s := &WatchlistScreener{latency: latency, logger: logger}
	for _, raw := range entries {
		parts := strings.SplitN(raw, "/", 2)
		e := watchEntry{fullName: normalize(parts[0]), raw: strings.TrimSpace(raw)}
		if len(parts) == 2 {
			e.fatherName = normalize(parts[1])
		}
		if e.fullName != "" {
			s.entries = append(s.entries, e)
		}
	}
	return s
}

// Screen implements port.SanctionScreener
func (s *WatchlistScreener) Screen(ctx context.Context, subject port.ScreeningSubject) (port.ScreeningOutcome, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return port.ScreeningOutcome{}, ctx.Err()
		case <-timer.C:
		}
	}

	fullName := normalize(subject.FullName)
	fatherName := normalize(subject.FatherName)

	for _, e := range s.entries {
		if e.fullName != fullName {
			continue
		}
		if e.fatherName != "" && e.fatherName != fatherName {
			continue
		}
		s.logger.Info("Screening subject matched watchlist", zap.String("entry", e.raw))
		return port.ScreeningOutcome{
			Flagged: true,
			Details: fmt.Sprintf("matched watchlist entry %q", e.raw),
		}, nil
	}

	return port.ScreeningOutcome{}, nil
}

// normalize lowercases and collapses whitespace
func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Verify interface compliance
var _ port.SanctionScreener = (*WatchlistScreener)(nil)
