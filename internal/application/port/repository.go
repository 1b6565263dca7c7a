package port

import (
	"context"

	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

// Store is the generic keyed persistence capability for one entity type.
// T is a pointer to an entity; a nil T means absent.
type Store[T entity.Record] interface {
	// Create assigns the ID and timestamps and persists rec.
	// A unique index collision fails with a validation error.
	Create(ctx context.Context, rec T) error

	// GetAll returns every record ordered by ID
	GetAll(ctx context.Context) ([]T, error)

	// GetByID returns the record or nil when absent
	GetByID(ctx context.Context, id int64) (T, error)

	// GetByIndex returns the records whose index entry matches, ordered by ID
	GetByIndex(ctx context.Context, index, value string) ([]T, error)

	// Update loads the record, applies mutate and persists the result.
	// Fails with a not-found error if absent; an error from mutate aborts without writing.
	Update(ctx context.Context, id int64, mutate func(T) error) (T, error)

	// Delete removes the record and reports whether it existed
	Delete(ctx context.Context, id int64) (bool, error)
}

// SequenceGenerator produces document numbers unique within their kind
type SequenceGenerator interface {
	Next(ctx context.Context, kind string) (string, error)
}

// TransactionManager handles store transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles the record stores the recruitment engine consumes
type Stores struct {
	Cases                 Store[*entity.RecruitmentCase]
	TORs                  Store[*entity.TOR]
	SRFs                  Store[*entity.SRF]
	Reports               Store[*entity.SelectionReport]
	Vacancies             Store[*entity.Vacancy]
	Candidates            Store[*entity.Candidate]
	Applications          Store[*entity.Application]
	Committees            Store[*entity.Committee]
	Members               Store[*entity.Member]
	Declarations          Store[*entity.ConflictOfInterestDeclaration]
	LonglistingRecords    Store[*entity.LonglistingRecord]
	LonglistingCandidates Store[*entity.LonglistingCandidate]
	ShortlistingRecords   Store[*entity.ShortlistingRecord]
	ShortlistCandidates   Store[*entity.ShortlistingCandidate]
	WrittenTests          Store[*entity.WrittenTest]
	TestCandidates        Store[*entity.WrittenTestCandidate]
	Interviews            Store[*entity.Interview]
	InterviewCandidates   Store[*entity.InterviewCandidate]
	Evaluations           Store[*entity.Evaluation]
	Results               Store[*entity.InterviewResult]
	Offers                Store[*entity.Offer]
	SanctionChecks        Store[*entity.SanctionCheck]
	BackgroundChecks      Store[*entity.BackgroundCheck]
	References            Store[*entity.Reference]
	Contracts             Store[*entity.Contract]
	Checklist             Store[*entity.ChecklistItem]
	History               Store[*entity.HistoryEntry]
	Overrides             Store[*entity.EditOverride]

	Sequences SequenceGenerator
	Tx        TransactionManager
}
