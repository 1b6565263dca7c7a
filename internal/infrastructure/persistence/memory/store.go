package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

type recordPtr[E any] interface {
	*E
	entity.Record
}

// Store implements port.Store over a Backend. Records are kept as JSON so
// callers never share memory with the store.
type Store[E any, P recordPtr[E]] struct {
	backend *Backend
	kind    string
	now     func() time.Time
}

// NewStore creates a store for entity type E
func NewStore[E any, P recordPtr[E]](b *Backend) *Store[E, P] {
	return &Store[E, P]{
		backend: b,
		kind:    P(new(E)).Kind(),
		now:     time.Now,
	}
}

func (s *Store[E, P]) Create(ctx context.Context, rec P) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.backend.write(ctx, func(context.Context) error {
		rec.Stamp(s.now().UTC())

		b := s.backend
		b.mu.Lock()
		defer b.mu.Unlock()

		id := b.nextID + 1
		rec.SetID(id)

		r, err := s.encode(rec)
		if err != nil {
			rec.SetID(0)
			return err
		}
		if err := s.checkUnique(id, r.indexes); err != nil {
			rec.SetID(0)
			return err
		}

		b.nextID = id
		s.rows()[id] = r
		return nil
	})
}

func (s *Store[E, P]) GetAll(ctx context.Context) ([]P, error) {
	return s.query(ctx, func(row) bool { return true })
}

func (s *Store[E, P]) GetByID(ctx context.Context, id int64) (P, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.backend.mu.RLock()
	r, ok := s.backend.records[s.kind][id]
	s.backend.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.decode(id, r)
}

func (s *Store[E, P]) GetByIndex(ctx context.Context, index, value string) ([]P, error) {
	return s.query(ctx, func(r row) bool {
		for _, idx := range r.indexes {
			if idx.Name == index && idx.Value == value {
				return true
			}
		}
		return false
	})
}

func (s *Store[E, P]) Update(ctx context.Context, id int64, mutate func(P) error) (P, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated P
	err := s.backend.write(ctx, func(txCtx context.Context) error {
		rec, err := s.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperror.NotFound(s.kind, id)
		}

		if err := mutate(rec); err != nil {
			return err
		}
		rec.SetID(id)
		rec.Stamp(s.now().UTC())

		r, err := s.encode(rec)
		if err != nil {
			return err
		}

		b := s.backend
		b.mu.Lock()
		defer b.mu.Unlock()

		if err := s.checkUnique(id, r.indexes); err != nil {
			return err
		}
		s.rows()[id] = r
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store[E, P]) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var deleted bool
	err := s.backend.write(ctx, func(context.Context) error {
		b := s.backend
		b.mu.Lock()
		defer b.mu.Unlock()

		rows := s.rows()
		if _, ok := rows[id]; ok {
			delete(rows, id)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

func (s *Store[E, P]) query(ctx context.Context, match func(row) bool) ([]P, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.backend.mu.RLock()
	var ids []int64
	matched := make(map[int64]row)
	for id, r := range s.backend.records[s.kind] {
		if match(r) {
			ids = append(ids, id)
			matched[id] = r
		}
	}
	s.backend.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]P, 0, len(ids))
	for _, id := range ids {
		rec, err := s.decode(id, matched[id])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// rows returns the kind's table; callers hold backend.mu for writing
func (s *Store[E, P]) rows() map[int64]row {
	rows, ok := s.backend.records[s.kind]
	if !ok {
		rows = make(map[int64]row)
		s.backend.records[s.kind] = rows
	}
	return rows
}

// checkUnique runs under backend.mu
func (s *Store[E, P]) checkUnique(id int64, indexes []entity.IndexEntry) error {
	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		for otherID, other := range s.backend.records[s.kind] {
			if otherID == id {
				continue
			}
			for _, o := range other.indexes {
				if o.Unique && o.Name == idx.Name && o.Value == idx.Value {
					return apperror.Validation(idx.Name, "%s %q already exists", s.kind, idx.Value)
				}
			}
		}
	}
	return nil
}

func (s *Store[E, P]) encode(rec P) (row, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode %s: %w", s.kind, err)
	}

	var indexes []entity.IndexEntry
	for _, idx := range rec.Indexes() {
		if idx.Value != "" {
			indexes = append(indexes, idx)
		}
	}
	return row{body: body, indexes: indexes}, nil
}

func (s *Store[E, P]) decode(id int64, r row) (P, error) {
	rec := P(new(E))
	if err := json.Unmarshal(r.body, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s %d: %w", s.kind, id, err)
	}
	rec.SetID(id)
	return rec, nil
}

// Verify interface compliance
var _ port.Store[*entity.RecruitmentCase] = (*Store[entity.RecruitmentCase, *entity.RecruitmentCase])(nil)
