package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

// recordPtr constrains P to be *E implementing entity.Record
type recordPtr[E any] interface {
	*E
	entity.Record
}

// Store implements port.Store for one entity kind. Records are kept as JSON
// bodies in the records table; secondary indexes live in record_indexes.
type Store[E any, P recordPtr[E]] struct {
	db     *DB
	kind   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a record store for entity type E
func NewStore[E any, P recordPtr[E]](db *DB, logger *zap.Logger) *Store[E, P] {
	return &Store[E, P]{
		db:     db,
		kind:   P(new(E)).Kind(),
		logger: logger,
		now:    time.Now,
	}
}

// Create inserts rec and its index entries
func (s *Store[E, P]) Create(ctx context.Context, rec P) error {
	err := s.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := s.db.conn(txCtx)

		now := s.now().UTC()
		rec.Stamp(now)

		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", s.kind, err)
		}

		result, err := exec.ExecContext(txCtx,
			`INSERT INTO records (kind, body, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			s.kind, string(body), now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", s.kind, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		rec.SetID(id)
		return s.writeIndexes(txCtx, exec, id, rec)
	})
	if err != nil {
		rec.SetID(0)
		if !errors.Is(err, apperror.ErrValidation) {
			s.logger.Error("Failed to create record", zap.String("kind", s.kind), zap.Error(err))
		}
		return err
	}

	return nil
}

// GetAll returns every record of the kind
func (s *Store[E, P]) GetAll(ctx context.Context) ([]P, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx,
		`SELECT id, body FROM records WHERE kind = ? ORDER BY id`, s.kind)
	if err != nil {
		s.logger.Error("Failed to list records", zap.String("kind", s.kind), zap.Error(err))
		return nil, fmt.Errorf("failed to list %s: %w", s.kind, err)
	}
	return s.scanAll(rows)
}

// GetByID returns the record or nil when absent
func (s *Store[E, P]) GetByID(ctx context.Context, id int64) (P, error) {
	var body string
	err := s.db.conn(ctx).QueryRowContext(ctx,
		`SELECT body FROM records WHERE id = ? AND kind = ?`, id, s.kind).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get record by ID", zap.String("kind", s.kind), zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get %s: %w", s.kind, err)
	}

	return s.decode(id, body)
}

// GetByIndex returns the records whose index entry matches value
func (s *Store[E, P]) GetByIndex(ctx context.Context, index, value string) ([]P, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, `
		SELECT r.id, r.body
		FROM records r
		JOIN record_indexes i ON i.record_id = r.id
		WHERE i.kind = ? AND i.name = ? AND i.value = ?
		ORDER BY r.id
	`, s.kind, index, value)
	if err != nil {
		s.logger.Error("Failed to query index",
			zap.String("kind", s.kind), zap.String("index", index), zap.String("value", value), zap.Error(err))
		return nil, fmt.Errorf("failed to query %s by %s: %w", s.kind, index, err)
	}
	return s.scanAll(rows)
}

// Update applies mutate to the stored record and persists it with fresh index entries
func (s *Store[E, P]) Update(ctx context.Context, id int64, mutate func(P) error) (P, error) {
	var updated P

	err := s.db.WithTransaction(ctx, func(txCtx context.Context) error {
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

		now := s.now().UTC()
		rec.Stamp(now)

		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", s.kind, err)
		}

		exec := s.db.conn(txCtx)
		if _, err := exec.ExecContext(txCtx,
			`UPDATE records SET body = ?, updated_at = ? WHERE id = ? AND kind = ?`,
			string(body), now, id, s.kind,
		); err != nil {
			return fmt.Errorf("failed to update %s: %w", s.kind, err)
		}

		if _, err := exec.ExecContext(txCtx, `DELETE FROM record_indexes WHERE record_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear %s indexes: %w", s.kind, err)
		}
		if err := s.writeIndexes(txCtx, exec, id, rec); err != nil {
			return err
		}

		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes the record and its index entries
func (s *Store[E, P]) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool

	err := s.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := s.db.conn(txCtx)

		if _, err := exec.ExecContext(txCtx, `DELETE FROM record_indexes WHERE record_id = ? AND kind = ?`, id, s.kind); err != nil {
			return fmt.Errorf("failed to delete %s indexes: %w", s.kind, err)
		}

		result, err := exec.ExecContext(txCtx, `DELETE FROM records WHERE id = ? AND kind = ?`, id, s.kind)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", s.kind, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete record", zap.String("kind", s.kind), zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	return deleted, nil
}

func (s *Store[E, P]) writeIndexes(ctx context.Context, exec executor, id int64, rec P) error {
	for _, idx := range rec.Indexes() {
		if idx.Value == "" {
			continue
		}

		unique := 0
		if idx.Unique {
			unique = 1
		}

		_, err := exec.ExecContext(ctx,
			`INSERT INTO record_indexes (record_id, kind, name, value, is_unique) VALUES (?, ?, ?, ?, ?)`,
			id, s.kind, idx.Name, idx.Value, unique,
		)
		if isUniqueViolation(err) {
			return apperror.Validation(idx.Name, "%s %q already exists", s.kind, idx.Value)
		}
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", s.kind, err)
		}
	}
	return nil
}

func (s *Store[E, P]) scanAll(rows *sql.Rows) ([]P, error) {
	defer rows.Close()

	var records []P
	for rows.Next() {
		var id int64
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.kind, err)
		}

		rec, err := s.decode(id, body)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *Store[E, P]) decode(id int64, body string) (P, error) {
	rec := P(new(E))
	if err := json.Unmarshal([]byte(body), rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s %d: %w", s.kind, id, err)
	}
	rec.SetID(id)
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Verify interface compliance
var _ port.Store[*entity.RecruitmentCase] = (*Store[entity.RecruitmentCase, *entity.RecruitmentCase])(nil)
