// Package bunstore adapts a bun model to entitycache.DocumentStore.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/goliatone/go-entity-cache/entitycache"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// ErrUnknownColumn is returned by FindOne for a field that maps to no column.
var ErrUnknownColumn = errors.New("bunstore: unknown column")

// ErrNoPrimaryKey is returned by New for models without a single primary key.
var ErrNoPrimaryKey = errors.New("bunstore: model needs exactly one primary key")

// Store reads and writes records of the bun model T.
type Store[T any] struct {
	db       *bun.DB
	table    *schema.Table
	pkColumn string
}

// New returns a Store for T. The namespace is the model's table name.
func New[T any](db *bun.DB) (*Store[T], error) {
	table := db.Table(reflect.TypeOf((*T)(nil)).Elem())
	if len(table.PKs) != 1 {
		return nil, fmt.Errorf("%w: %s has %d", ErrNoPrimaryKey, table.Name, len(table.PKs))
	}

	return &Store[T]{
		db:       db,
		table:    table,
		pkColumn: table.PKs[0].Name,
	}, nil
}

// Namespace returns the table name.
func (s *Store[T]) Namespace() string {
	return s.table.Name
}

func (s *Store[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return s.selectOne(ctx, s.pkColumn, id)
}

// FindOne accepts either a column name or a Go field name.
func (s *Store[T]) FindOne(ctx context.Context, field string, value any) (*T, error) {
	column, err := s.column(field)
	if err != nil {
		return nil, err
	}
	return s.selectOne(ctx, column, value)
}

func (s *Store[T]) InsertOne(ctx context.Context, record *T) (entitycache.Result, error) {
	if record == nil {
		return entitycache.Result{}, entitycache.ErrNilRecord
	}

	res, err := s.db.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return entitycache.Result{}, err
	}
	return result(res)
}

func (s *Store[T]) UpdateOne(ctx context.Context, id string, record *T) (entitycache.Result, error) {
	if record == nil {
		return entitycache.Result{}, entitycache.ErrNilRecord
	}

	res, err := s.db.NewUpdate().
		Model(record).
		ExcludeColumn(s.pkColumn).
		Where("? = ?", bun.Ident(s.pkColumn), id).
		Exec(ctx)
	if err != nil {
		return entitycache.Result{}, err
	}
	return result(res)
}

func (s *Store[T]) DeleteOne(ctx context.Context, id string) (entitycache.Result, error) {
	res, err := s.db.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(s.pkColumn), id).
		Exec(ctx)
	if err != nil {
		return entitycache.Result{}, err
	}
	return result(res)
}

func (s *Store[T]) selectOne(ctx context.Context, column string, value any) (*T, error) {
	record := new(T)
	err := s.db.NewSelect().
		Model(record).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Store[T]) column(field string) (string, error) {
	for _, f := range s.table.Fields {
		if f.Name == field || f.GoName == field {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q on %s", ErrUnknownColumn, field, s.table.Name)
}

func result(res sql.Result) (entitycache.Result, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return entitycache.Result{}, err
	}
	return entitycache.Result{Matched: n, Affected: n}, nil
}
