package sqlite

import (
	"go.uber.org/zap"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

// NewStores wires a sqlite-backed store for every entity the engine uses
func NewStores(db *DB, prefixes map[string]string, logger *zap.Logger) port.Stores {
	return port.Stores{
		Cases:                 NewStore[entity.RecruitmentCase](db, logger),
		TORs:                  NewStore[entity.TOR](db, logger),
		SRFs:                  NewStore[entity.SRF](db, logger),
		Reports:               NewStore[entity.SelectionReport](db, logger),
		Vacancies:             NewStore[entity.Vacancy](db, logger),
		Candidates:            NewStore[entity.Candidate](db, logger),
		Applications:          NewStore[entity.Application](db, logger),
		Committees:            NewStore[entity.Committee](db, logger),
		Members:               NewStore[entity.Member](db, logger),
		Declarations:          NewStore[entity.ConflictOfInterestDeclaration](db, logger),
		LonglistingRecords:    NewStore[entity.LonglistingRecord](db, logger),
		LonglistingCandidates: NewStore[entity.LonglistingCandidate](db, logger),
		ShortlistingRecords:   NewStore[entity.ShortlistingRecord](db, logger),
		ShortlistCandidates:   NewStore[entity.ShortlistingCandidate](db, logger),
		WrittenTests:          NewStore[entity.WrittenTest](db, logger),
		TestCandidates:        NewStore[entity.WrittenTestCandidate](db, logger),
		Interviews:            NewStore[entity.Interview](db, logger),
		InterviewCandidates:   NewStore[entity.InterviewCandidate](db, logger),
		Evaluations:           NewStore[entity.Evaluation](db, logger),
		Results:               NewStore[entity.InterviewResult](db, logger),
		Offers:                NewStore[entity.Offer](db, logger),
		SanctionChecks:        NewStore[entity.SanctionCheck](db, logger),
		BackgroundChecks:      NewStore[entity.BackgroundCheck](db, logger),
		References:            NewStore[entity.Reference](db, logger),
		Contracts:             NewStore[entity.Contract](db, logger),
		Checklist:             NewStore[entity.ChecklistItem](db, logger),
		History:               NewStore[entity.HistoryEntry](db, logger),
		Overrides:             NewStore[entity.EditOverride](db, logger),
		Sequences:             NewSequenceGenerator(db, prefixes, logger),
		Tx:                    db,
	}
}
