// Package memory provides in-process record stores with the same semantics as
// the sqlite stores. Engine tests and ephemeral deployments use it.
package memory

import (
	"context"
	"sync"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

type contextKey string

const txKey contextKey = "memory-tx"

type row struct {
	body    []byte
	indexes []entity.IndexEntry
}

// Backend is the shared state behind every memory store. Writers are
// serialized; a transaction holds the writer lock for its whole duration
// and restores a snapshot when it fails.
type Backend struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	nextID    int64
	records   map[string]map[int64]row
	sequences map[string]int64
}

// NewBackend creates an empty backend
func NewBackend() *Backend {
	return &Backend{
		records:   make(map[string]map[int64]row),
		sequences: make(map[string]int64),
	}
}

// WithTransaction implements port.TransactionManager.
// Nested calls join the transaction already carried by ctx.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	snap := b.snapshot()
	txCtx := context.WithValue(ctx, txKey, b)

	committed := false
	defer func() {
		if !committed {
			b.restore(snap)
		}
	}()

	if err := fn(txCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

// write runs fn as a single-statement transaction unless ctx already carries one
func (b *Backend) write(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTransaction(ctx, fn)
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey).(*Backend)
	return ok
}

type snapshot struct {
	nextID    int64
	records   map[string]map[int64]row
	sequences map[string]int64
}

// rows are never mutated in place, so copying the maps is enough
func (b *Backend) snapshot() snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	records := make(map[string]map[int64]row, len(b.records))
	for kind, rows := range b.records {
		cp := make(map[int64]row, len(rows))
		for id, r := range rows {
			cp[id] = r
		}
		records[kind] = cp
	}

	sequences := make(map[string]int64, len(b.sequences))
	for k, v := range b.sequences {
		sequences[k] = v
	}

	return snapshot{nextID: b.nextID, records: records, sequences: sequences}
}

func (b *Backend) restore(s snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = s.records
	b.sequences = s.sequences
	// IDs are not reused after a rollback, matching AUTOINCREMENT
	if s.nextID > b.nextID {
		b.nextID = s.nextID
	}
}

// NewStores wires a memory store for every entity the engine uses
func NewStores(b *Backend, prefixes map[string]string) port.Stores {
	return port.Stores{
		Cases:                 NewStore[entity.RecruitmentCase](b),
		TORs:                  NewStore[entity.TOR](b),
		SRFs:                  NewStore[entity.SRF](b),
		Reports:               NewStore[entity.SelectionReport](b),
		Vacancies:             NewStore[entity.Vacancy](b),
		Candidates:            NewStore[entity.Candidate](b),
		Applications:          NewStore[entity.Application](b),
		Committees:            NewStore[entity.Committee](b),
		Members:               NewStore[entity.Member](b),
		Declarations:          NewStore[entity.ConflictOfInterestDeclaration](b),
		LonglistingRecords:    NewStore[entity.LonglistingRecord](b),
		LonglistingCandidates: NewStore[entity.LonglistingCandidate](b),
		ShortlistingRecords:   NewStore[entity.ShortlistingRecord](b),
		ShortlistCandidates:   NewStore[entity.ShortlistingCandidate](b),
		WrittenTests:          NewStore[entity.WrittenTest](b),
		TestCandidates:        NewStore[entity.WrittenTestCandidate](b),
		Interviews:            NewStore[entity.Interview](b),
		InterviewCandidates:   NewStore[entity.InterviewCandidate](b),
		Evaluations:           NewStore[entity.Evaluation](b),
		Results:               NewStore[entity.InterviewResult](b),
		Offers:                NewStore[entity.Offer](b),
		SanctionChecks:        NewStore[entity.SanctionCheck](b),
		BackgroundChecks:      NewStore[entity.BackgroundCheck](b),
		References:            NewStore[entity.Reference](b),
		Contracts:             NewStore[entity.Contract](b),
		Checklist:             NewStore[entity.ChecklistItem](b),
		History:               NewStore[entity.HistoryEntry](b),
		Overrides:             NewStore[entity.EditOverride](b),
		Sequences:             NewSequenceGenerator(b, prefixes),
		Tx:                    b,
	}
}

// Verify interface compliance
var _ port.TransactionManager = (*Backend)(nil)
