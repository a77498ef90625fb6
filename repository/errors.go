package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SQLSTATE codes the counter stores react to
const (
	sqlStateUniqueViolation = "23505"
	sqlStateUndefinedTable  = "42P01"
	sqlStateDuplicateTable  = "42P07"
)

// sqlStater is implemented by pgx's *pgconn.PgError and similar driver errors
type sqlStater interface {
	SQLState() string
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var stater sqlStater
	if errors.As(err, &stater) {
		return stater.SQLState()
	}
	return ""
}

// IsUndefinedObject reports whether err says the referenced relation does not exist
func IsUndefinedObject(err error) bool {
	if err == nil {
		return false
	}
	if sqlState(err) == sqlStateUndefinedTable {
		return true
	}
	return strings.Contains(err.Error(), "no such table")
}

// IsDuplicate reports whether err is a create that lost to an existing object or row
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	switch sqlState(err) {
	case sqlStateUniqueViolation, sqlStateDuplicateTable:
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
