// Package repostore adapts a go-repository-bun repository to
// entitycache.DocumentStore, so existing repositories can sit behind an
// entity cache without changes.
package repostore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-entity-cache/entitycache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Repository is the part of repository.Repository[*T] the adapter uses.
// Any go-repository-bun repository of *T satisfies it.
type Repository[T any] interface {
	Get(ctx context.Context, criteria ...repository.SelectCriteria) (*T, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*T, error)
	Create(ctx context.Context, record *T, criteria ...repository.InsertCriteria) (*T, error)
	Update(ctx context.Context, record *T, criteria ...repository.UpdateCriteria) (*T, error)
	Delete(ctx context.Context, record *T) error
}

// Option customizes a Store.
type Option func(*config)

type config struct {
	namespace  string
	isNotFound func(error) bool
	columns    map[string]string
}

// WithNamespace overrides the namespace derived from T.
func WithNamespace(namespace string) Option {
	return func(c *config) {
		if namespace != "" {
			c.namespace = namespace
		}
	}
}

// WithNotFound sets how repository errors are recognized as "no record".
// By default an error wrapping sql.ErrNoRows is.
func WithNotFound(fn func(error) bool) Option {
	return func(c *config) {
		if fn != nil {
			c.isNotFound = fn
		}
	}
}

// WithColumn maps a lookup field to a database column. Unmapped fields are
// used as column names unchanged.
func WithColumn(field, column string) Option {
	return func(c *config) {
		c.columns[field] = column
	}
}

// Store is an entitycache.DocumentStore backed by a repository.
type Store[T any] struct {
	repo Repository[T]
	cfg  config
}

// New wraps repo.
func New[T any](repo Repository[T], opts ...Option) *Store[T] {
	cfg := config{
		namespace: entitycache.NamespaceFor[T](),
		isNotFound: func(err error) bool {
			return errors.Is(err, sql.ErrNoRows)
		},
		columns: make(map[string]string),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store[T]{repo: repo, cfg: cfg}
}

func (s *Store[T]) Namespace() string {
	return s.cfg.namespace
}

func (s *Store[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return s.found(s.repo.GetByID(ctx, id))
}

func (s *Store[T]) FindOne(ctx context.Context, field string, value any) (*T, error) {
	column := s.column(field)
	return s.found(s.repo.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", bun.Ident(column), value).Limit(1)
	}))
}

// InsertOne creates record and copies the created version back into it,
// so generated identifiers reach the caller.
func (s *Store[T]) InsertOne(ctx context.Context, record *T) (entitycache.Result, error) {
	if record == nil {
		return entitycache.Result{}, entitycache.ErrNilRecord
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return entitycache.Result{}, err
	}
	if created != nil && created != record {
		*record = *created
	}
	return entitycache.Result{Matched: 1, Affected: 1}, nil
}

// UpdateOne updates record by its own primary key. id is checked to exist
// first, so a missing record reports no match instead of an error.
func (s *Store[T]) UpdateOne(ctx context.Context, id string, record *T) (entitycache.Result, error) {
	if record == nil {
		return entitycache.Result{}, entitycache.ErrNilRecord
	}

	current, err := s.FindByID(ctx, id)
	if err != nil || current == nil {
		return entitycache.Result{}, err
	}

	if _, err := s.repo.Update(ctx, record); err != nil {
		return entitycache.Result{}, err
	}
	return entitycache.Result{Matched: 1, Affected: 1}, nil
}

func (s *Store[T]) DeleteOne(ctx context.Context, id string) (entitycache.Result, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil || current == nil {
		return entitycache.Result{}, err
	}

	if err := s.repo.Delete(ctx, current); err != nil {
		return entitycache.Result{}, err
	}
	return entitycache.Result{Matched: 1, Affected: 1}, nil
}

func (s *Store[T]) found(record *T, err error) (*T, error) {
	if err != nil {
		if s.cfg.isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (s *Store[T]) column(field string) string {
	if column, ok := s.cfg.columns[field]; ok {
		return column
	}
	return field
}
