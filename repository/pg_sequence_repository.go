package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PgSequenceRepositoryImpl keeps counters as native PostgreSQL sequences in the
// current schema
type PgSequenceRepositoryImpl struct {
	DB *gorm.DB
}

func NewPgSequenceRepository(db *gorm.DB) CounterRepository {
	return &PgSequenceRepositoryImpl{DB: db}
}

func (r *PgSequenceRepositoryImpl) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := dbFromContext(ctx, r.DB).Raw(
		`SELECT COUNT(*) FROM information_schema.sequences
		 WHERE sequence_schema = current_schema() AND sequence_name = ?`,
		name,
	).Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up sequence %s: %w", name, err)
	}
	return count > 0, nil
}

func (r *PgSequenceRepositoryImpl) Create(ctx context.Context, name string, start int64) error {
	stmt := "CREATE SEQUENCE " + pq.QuoteIdentifier(name) + " START WITH " + strconv.FormatInt(start, 10)
	if start < 1 {
		stmt += " MINVALUE " + strconv.FormatInt(start, 10)
	}
	if err := dbFromContext(ctx, r.DB).Exec(stmt).Error; err != nil {
		if IsDuplicate(err) {
			return ErrCounterExists
		}
		return fmt.Errorf("failed to create sequence %s: %w", name, err)
	}
	return nil
}

func (r *PgSequenceRepositoryImpl) Increment(ctx context.Context, name string) (int64, error) {
	var value int64
	err := dbFromContext(ctx, r.DB).Raw("SELECT nextval(CAST(? AS regclass))", pq.QuoteIdentifier(name)).Scan(&value).Error
	if err != nil {
		if IsUndefinedObject(err) {
			return 0, ErrCounterNotFound
		}
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return value, nil
}

func (r *PgSequenceRepositoryImpl) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := dbFromContext(ctx, r.DB).Raw(
		`SELECT sequence_name FROM information_schema.sequences
		 WHERE sequence_schema = current_schema() AND sequence_name LIKE ? ESCAPE '\'
		 ORDER BY sequence_name`,
		prefixPattern(prefix),
	).Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	return names, nil
}

func (r *PgSequenceRepositoryImpl) Drop(ctx context.Context, name string) error {
	if err := dbFromContext(ctx, r.DB).Exec("DROP SEQUENCE IF EXISTS " + pq.QuoteIdentifier(name)).Error; err != nil {
		return fmt.Errorf("failed to drop sequence %s: %w", name, err)
	}
	return nil
}
