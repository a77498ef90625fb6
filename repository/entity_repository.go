package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/demo-sequences/sequence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTableNotFound is returned when an entity is built from a table that does not exist
var ErrTableNotFound = errors.New("table not found")

// EntityRepositoryImpl exposes a gorm model or a bare table as a sequence.Entity.
// Every plain column gets an equality finder. Encrypted columns get none unless one
// is registered with WithFinder, since their stored form differs from the value.
type EntityRepositoryImpl struct {
	DB      *gorm.DB
	name    string
	table   string
	columns map[string]bool
	aliases map[string]string
	finders map[string]sequence.Finder
}

// EntityOption configures an entity
type EntityOption func(*EntityRepositoryImpl)

// WithAlias maps an attribute alias onto a column
func WithAlias(alias, column string) EntityOption {
	return func(e *EntityRepositoryImpl) {
		e.aliases[alias] = column
	}
}

// WithFinder registers or replaces the finder for an accessor
func WithFinder(accessor string, finder sequence.Finder) EntityOption {
	return func(e *EntityRepositoryImpl) {
		e.finders[accessor] = finder
	}
}

// WithEntityName overrides the entity name used in sequence keys
func WithEntityName(name string) EntityOption {
	return func(e *EntityRepositoryImpl) {
		e.name = name
	}
}

// NewEntity builds an entity from a gorm model, named after its struct
func NewEntity(db *gorm.DB, model any, opts ...EntityOption) (*EntityRepositoryImpl, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
	}

	columns := make(map[string]bool, len(stmt.Schema.DBNames))
	for _, column := range stmt.Schema.DBNames {
		columns[column] = true
	}
	return newEntity(db, stmt.Schema.Name, stmt.Schema.Table, columns, opts), nil
}

// NewTableEntity builds an entity from a live table, reading its columns from the
// database. The entity is named after the table.
func NewTableEntity(ctx context.Context, db *gorm.DB, table string, opts ...EntityOption) (*EntityRepositoryImpl, error) {
	migrator := db.WithContext(ctx).Migrator()
	if !migrator.HasTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	types, err := migrator.ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	columns := make(map[string]bool, len(types))
	for _, ct := range types {
		columns[ct.Name()] = true
	}
	return newEntity(db, table, table, columns, opts), nil
}

func newEntity(db *gorm.DB, name, table string, columns map[string]bool, opts []EntityOption) *EntityRepositoryImpl {
	e := &EntityRepositoryImpl{
		DB:      db,
		name:    name,
		table:   table,
		columns: columns,
		aliases: make(map[string]string),
		finders: make(map[string]sequence.Finder),
	}
	for column := range columns {
		if strings.HasSuffix(column, sequence.EncryptedSuffix) {
			continue
		}
		e.finders[column] = NewColumnFinder(db, table, column)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *EntityRepositoryImpl) Name() string      { return e.name }
func (e *EntityRepositoryImpl) TableName() string { return e.table }

func (e *EntityRepositoryImpl) ResolveAlias(attribute string) string {
	if column, ok := e.aliases[attribute]; ok {
		return column
	}
	return attribute
}

func (e *EntityRepositoryImpl) HasColumn(column string) bool {
	return e.columns[column]
}

func (e *EntityRepositoryImpl) Finder(accessor string) (sequence.Finder, bool) {
	finder, ok := e.finders[accessor]
	return finder, ok
}

// NewColumnFinder returns an equality finder on table.column. It ignores soft-delete
// scopes so values of deleted rows stay taken.
func NewColumnFinder(db *gorm.DB, table, column string) sequence.Finder {
	return sequence.FinderFunc(func(ctx context.Context, value any) (bool, error) {
		var count int64
		err := dbFromContext(ctx, db).
			Table(table).
			Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("failed to probe %s.%s: %w", table, column, err)
		}
		return count > 0, nil
	})
}
