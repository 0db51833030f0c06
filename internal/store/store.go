// Package store implements create/read/update/delete over a single table,
// parameterized by the record type and its create and update inputs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/dbx"
)

// Record is a row type scannable by sqlx and identified by an int64 primary key.
type Record interface {
	Key() int64
}

// Input supplies column values for a write. For updates only the columns
// that are present in the map are touched.
type Input interface {
	Fields() map[string]any
}

// Table describes the columns a Store may read and write. Columns must start
// with the primary key column "id".
type Table struct {
	Name       string
	Columns    []string
	Insertable []string
	Updatable  []string
}

func (t Table) has(column string) bool { return slices.Contains(t.Columns, column) }

func (t Table) selectList() string { return strings.Join(t.Columns, ", ") }

// Store is the generic record store. Every method runs in its own
// transaction unless ctx already carries one from dbx.WithTx.
type Store[T Record, C Input, U Input] struct {
	db    *sqlx.DB
	table Table
}

func New[T Record, C Input, U Input](db *sqlx.DB, table Table) *Store[T, C, U] {
	return &Store[T, C, U]{db: db, table: table}
}

// DB returns the underlying pool, for callers that need to open a wider
// transaction with dbx.WithTx.
func (s *Store[T, C, U]) DB() *sqlx.DB { return s.db }

// Get returns the record with the given primary key, or nil when there is none.
func (s *Store[T, C, U]) Get(ctx context.Context, id int64) (*T, error) {
	return s.FindBy(ctx, "id", id)
}

// FindBy returns the first record whose column equals value, or nil.
func (s *Store[T, C, U]) FindBy(ctx context.Context, column string, value any) (*T, error) {
	if !s.table.has(column) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? ORDER BY id LIMIT 1`, s.table.selectList(), s.table.Name, column)
	var out *T
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var rec T
		if err := sqlx.GetContext(ctx, tx, &rec, tx.Rebind(q), value); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return classify(err)
		}
		out = &rec
		return nil
	})
	return out, err
}

// List pages through all records in primary key order.
func (s *Store[T, C, U]) List(ctx context.Context, skip, limit int) ([]T, error) {
	return s.list(ctx, "", nil, skip, limit)
}

// ListBy pages through the records whose column equals value.
func (s *Store[T, C, U]) ListBy(ctx context.Context, column string, value any, skip, limit int) ([]T, error) {
	if !s.table.has(column) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return s.list(ctx, column, value, skip, limit)
}

func (s *Store[T, C, U]) list(ctx context.Context, column string, value any, skip, limit int) ([]T, error) {
	if skip < 0 || limit < 0 {
		return nil, ErrInvalidPage
	}
	var (
		q    strings.Builder
		args []any
	)
	fmt.Fprintf(&q, `SELECT %s FROM %s`, s.table.selectList(), s.table.Name)
	if column != "" {
		fmt.Fprintf(&q, ` WHERE %s = ?`, column)
		args = append(args, value)
	}
	q.WriteString(` ORDER BY id LIMIT ? OFFSET ?`)
	args = append(args, limit, skip)

	out := make([]T, 0)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return classify(sqlx.SelectContext(ctx, tx, &out, tx.Rebind(q.String()), args...))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a row built from every insertable field of in and returns it
// as stored, including generated columns.
func (s *Store[T, C, U]) Create(ctx context.Context, in C) (*T, error) {
	cols, args := pick(in.Fields(), s.table.Insertable)
	if len(cols) == 0 {
		return nil, errors.New("create: no insertable fields")
	}
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		s.table.Name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		s.table.selectList(),
	)
	var rec T
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return classify(sqlx.GetContext(ctx, tx, &rec, tx.Rebind(q), args...))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update overwrites the updatable fields present in in and returns the
// stored record. Fields absent from in are left as they are.
func (s *Store[T, C, U]) Update(ctx context.Context, existing T, in U) (*T, error) {
	cols, args := pick(in.Fields(), s.table.Updatable)
	if len(cols) == 0 {
		rec, err := s.Get(ctx, existing.Key())
		if err == nil && rec == nil {
			err = ErrNotFound
		}
		return rec, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	q := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ? RETURNING %s`, s.table.Name, strings.Join(sets, ", "), s.table.selectList())
	args = append(args, existing.Key())

	var rec T
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := sqlx.GetContext(ctx, tx, &rec, tx.Rebind(q), args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record with the given key and returns it.
func (s *Store[T, C, U]) Delete(ctx context.Context, id int64) (*T, error) {
	var out *T
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNotFound
		}
		q := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table.Name)
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), id); err != nil {
			return classify(err)
		}
		out = rec
		return nil
	})
	return out, err
}

// pick keeps the allowed fields, in a stable column order.
func pick(fields map[string]any, allowed []string) ([]string, []any) {
	cols := make([]string, 0, len(fields))
	for c := range fields {
		if slices.Contains(allowed, c) {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = fields[c]
	}
	return cols, args
}
