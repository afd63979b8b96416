// Package store is the gorm-backed persistence layer. It is the only shared
// mutable resource; every invariant that needs read-then-act atomicity is
// expressed here as a transaction or a conditional UPDATE.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/placement_backend/internal/apperr"
)

// Store wraps a *gorm.DB; inside Tx it wraps the transaction handle.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for migrations and seeding.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Tx runs fn in one transaction. Any error rolls every write back.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate adds a row lock where the dialect has one. SQLite serializes
// writers on its own.
func (s *Store) forUpdate(q *gorm.DB) *gorm.DB {
	if s.db.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Internal("failed to load "+what, err)
}

// isDuplicateKey recognises unique violations from every supported driver.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func lowerEq(column string) string {
	return "LOWER(" + column + ") = LOWER(?)"
}

func nonNullJSON(v datatypes.JSON) datatypes.JSON {
	if len(v) == 0 {
		return datatypes.JSON("[]")
	}
	return v
}
