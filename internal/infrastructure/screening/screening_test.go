package screening

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
)

func TestWatchlistScreener_Matches(t *testing.T) {
	s := NewWatchlistScreener([]string{"Jane  Roe", "John Doe/Richard Doe", "  "}, 0, zap.NewNop())

	tests := []struct {
		name    string
		subject port.ScreeningSubject
		flagged bool
	}{
		{"exact name", port.ScreeningSubject{FullName: "Jane Roe"}, true},
		{"case and spacing", port.ScreeningSubject{FullName: " jane   ROE "}, true},
		{"father name required and matching", port.ScreeningSubject{FullName: "John Doe", FatherName: "richard doe"}, true},
		{"father name mismatch", port.ScreeningSubject{FullName: "John Doe", FatherName: "Peter Doe"}, false},
		{"no match", port.ScreeningSubject{FullName: "Amina Yusuf"}, false},
		{"empty subject", port.ScreeningSubject{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := s.Screen(context.Background(), tt.subject)
			require.NoError(t, err)
			assert.Equal(t, tt.flagged, outcome.Flagged)
			if tt.flagged {
				assert.NotEmpty(t, outcome.Details)
			}
		})
	}
}

func TestWatchlistScreener_HonoursCancellation(t *testing.T) {
	s := NewWatchlistScreener(nil, time.Hour, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Screen(ctx, port.ScreeningSubject{FullName: "Jane Roe"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// scriptedScreener fails a fixed number of times before answering
type scriptedScreener struct {
	failures int32
	calls    int32
	block    bool
}

func (s *scriptedScreener) Screen(ctx context.Context, _ port.ScreeningSubject) (port.ScreeningOutcome, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.block {
		<-ctx.Done()
		return port.ScreeningOutcome{}, ctx.Err()
	}
	if n <= s.failures {
		return port.ScreeningOutcome{}, errors.New("list service unavailable")
	}
	return port.ScreeningOutcome{Flagged: true, Details: "listed"}, nil
}

func TestResilient_RetriesTransientFailures(t *testing.T) {
	inner := &scriptedScreener{failures: 2}
	r := NewResilient(inner, Policy{Timeout: time.Second, MaxAttempts: 3, Backoff: time.Millisecond}, zap.NewNop())

	outcome, err := r.Screen(context.Background(), port.ScreeningSubject{FullName: "x"})
	require.NoError(t, err)
	assert.True(t, outcome.Flagged)
	assert.Equal(t, int32(3), atomic.LoadInt32(&inner.calls))
}

func TestResilient_ExhaustedAttemptsAreRetryable(t *testing.T) {
	inner := &scriptedScreener{failures: 10}
	r := NewResilient(inner, Policy{Timeout: time.Second, MaxAttempts: 2, Backoff: time.Millisecond}, zap.NewNop())

	_, err := r.Screen(context.Background(), port.ScreeningSubject{FullName: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrRetryable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestResilient_PerAttemptTimeout(t *testing.T) {
	inner := &scriptedScreener{block: true}
	r := NewResilient(inner, Policy{Timeout: 5 * time.Millisecond, MaxAttempts: 2, Backoff: time.Millisecond}, zap.NewNop())

	start := time.Now()
	_, err := r.Screen(context.Background(), port.ScreeningSubject{FullName: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrRetryable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
	assert.Less(t, time.Since(start), time.Second)
}

func TestResilient_StopsWhenCallerCancels(t *testing.T) {
	inner := &scriptedScreener{block: true}
	r := NewResilient(inner, Policy{Timeout: time.Hour, MaxAttempts: 5, Backoff: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Screen(ctx, port.ScreeningSubject{FullName: "x"})
	assert.ErrorIs(t, err, apperror.ErrRetryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
}

func TestNewResilient_Defaults(t *testing.T) {
	r := NewResilient(&scriptedScreener{}, Policy{}, zap.NewNop())
	assert.Equal(t, DefaultPolicy, r.policy)
}
