package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/demo-sequences/models"
	"gorm.io/gorm"
)

// SequenceCounterRepositoryImpl keeps counters as rows of sequence_counters. Increment
// relies on the row lock taken by UPDATE, so it is safe across processes on any store
// gorm supports.
type SequenceCounterRepositoryImpl struct {
	*BaseRepository[models.SequenceCounter, models.SequenceCounterFilter]
}

func NewSequenceCounterRepository(db *gorm.DB) SequenceCounterRepository {
	return &SequenceCounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SequenceCounter, models.SequenceCounterFilter](db),
	}
}

// Migrate creates the sequence_counters table if needed
func (r *SequenceCounterRepositoryImpl) Migrate(ctx context.Context) error {
	if err := r.getDB(ctx).AutoMigrate(&models.SequenceCounter{}); err != nil {
		return fmt.Errorf("failed to migrate sequence counters: %w", err)
	}
	return nil
}

func (r *SequenceCounterRepositoryImpl) ByName(ctx context.Context, name string) (*models.SequenceCounter, error) {
	var row models.SequenceCounter
	if err := r.getDB(ctx).Where("name = ?", name).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sequence counter %s: %w", name, err)
	}
	return &row, nil
}

func (r *SequenceCounterRepositoryImpl) applyFilter(db *gorm.DB, f models.SequenceCounterFilter) *gorm.DB {
	if f.Name != nil {
		db = db.Where("name = ?", *f.Name)
	}
	if f.NamePrefix != nil {
		db = db.Where(`name LIKE ? ESCAPE '\'`, prefixPattern(*f.NamePrefix))
	}
	if f.UpdatedAfter != nil {
		db = db.Where("updated_at >= ?", *f.UpdatedAfter)
	}
	if f.UpdatedBefore != nil {
		db = db.Where("updated_at < ?", *f.UpdatedBefore)
	}
	return db
}

func (r *SequenceCounterRepositoryImpl) ByFilter(ctx context.Context, filter models.SequenceCounterFilter, orderBy string, limit, offset int) ([]*models.SequenceCounter, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.SequenceCounter{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.SequenceCounter
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find sequence counters: %w", err)
	}
	return rows, nil
}

func (r *SequenceCounterRepositoryImpl) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.SequenceCounter{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		if IsUndefinedObject(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up sequence counter %s: %w", name, err)
	}
	return count > 0, nil
}

func (r *SequenceCounterRepositoryImpl) Create(ctx context.Context, name string, start int64) error {
	err := r.Save(ctx, &models.SequenceCounter{Name: name, LastValue: start - 1})
	if err != nil {
		if IsDuplicate(err) {
			return ErrCounterExists
		}
		return err
	}
	return nil
}

func (r *SequenceCounterRepositoryImpl) Increment(ctx context.Context, name string) (int64, error) {
	var value int64
	err := WithTransaction(ctx, r.DB, func(ctx context.Context) error {
		db := r.getDB(ctx)
		res := db.Model(&models.SequenceCounter{}).
			Where("name = ?", name).
			Update("last_value", gorm.Expr("last_value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCounterNotFound
		}
		return db.Model(&models.SequenceCounter{}).
			Select("last_value").
			Where("name = ?", name).
			Scan(&value).Error
	})
	if err != nil {
		if errors.Is(err, ErrCounterNotFound) || IsUndefinedObject(err) {
			return 0, ErrCounterNotFound
		}
		return 0, fmt.Errorf("failed to advance sequence counter %s: %w", name, err)
	}
	return value, nil
}

func (r *SequenceCounterRepositoryImpl) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := r.applyFilter(r.getDB(ctx).Model(&models.SequenceCounter{}), models.SequenceCounterFilter{NamePrefix: &prefix}).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		if IsUndefinedObject(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list sequence counters: %w", err)
	}
	return names, nil
}

func (r *SequenceCounterRepositoryImpl) Drop(ctx context.Context, name string) error {
	err := r.getDB(ctx).Where("name = ?", name).Delete(&models.SequenceCounter{}).Error
	if err != nil && !IsUndefinedObject(err) {
		return fmt.Errorf("failed to drop sequence counter %s: %w", name, err)
	}
	return nil
}
