// Package memstore is an in-process entitycache.DocumentStore, useful for
// tests, prototypes and read-mostly reference data loaded at startup.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/goliatone/go-entity-cache/cache"
	"github.com/goliatone/go-entity-cache/entitycache"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrDuplicateID is returned by InsertOne when the identifier is taken.
var ErrDuplicateID = errors.New("memstore: duplicate identifier")

// Method names counted by Calls.
const (
	MethodFindByID  = "FindByID"
	MethodFindOne   = "FindOne"
	MethodInsertOne = "InsertOne"
	MethodUpdateOne = "UpdateOne"
	MethodDeleteOne = "DeleteOne"
)

// Option customizes a Store.
type Option func(*config)

type config struct {
	idField  string
	resolver entitycache.FieldResolver
	newID    func() string
}

// WithIDField names the identifier field. Empty tries ID, Id, id and _id.
func WithIDField(field string) Option {
	return func(c *config) {
		c.idField = field
	}
}

// WithFieldResolver replaces entitycache.ResolveField for FindOne.
func WithFieldResolver(resolver entitycache.FieldResolver) Option {
	return func(c *config) {
		if resolver != nil {
			c.resolver = resolver
		}
	}
}

// WithIDGenerator sets the generator for missing string identifiers,
// uuid.NewString by default.
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Store keeps records of T keyed by their canonical identifier.
// It is safe for concurrent use.
type Store[T any] struct {
	namespace string
	cfg       config
	records   *xsync.MapOf[string, T]
	calls     *xsync.MapOf[string, *xsync.Counter]
}

var _ entitycache.DocumentStore[struct{ ID string }] = (*Store[struct{ ID string }])(nil)

// New returns an empty Store. An empty namespace uses entitycache.NamespaceFor[T].
func New[T any](namespace string, opts ...Option) *Store[T] {
	if namespace == "" {
		namespace = entitycache.NamespaceFor[T]()
	}

	cfg := config{
		resolver: entitycache.ResolveField,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store[T]{
		namespace: namespace,
		cfg:       cfg,
		records:   xsync.NewMapOf[string, T](),
		calls:     xsync.NewMapOf[string, *xsync.Counter](),
	}
}

func (s *Store[T]) Namespace() string {
	return s.namespace
}

func (s *Store[T]) FindByID(ctx context.Context, id string) (*T, error) {
	s.count(MethodFindByID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, ok := s.records.Load(id)
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// FindOne returns the first record whose field formats like value.
// Field values and value are compared by their cache key form.
func (s *Store[T]) FindOne(ctx context.Context, field string, value any) (*T, error) {
	s.count(MethodFindOne)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := cache.FormatPart(value)

	var (
		found    *T
		firstErr error
	)
	s.records.Range(func(_ string, record T) bool {
		got, err := s.cfg.resolver(&record, field)
		if err != nil {
			firstErr = err
			return false
		}
		if cache.FormatPart(got) == want {
			found = &record
			return false
		}
		return true
	})

	if firstErr != nil {
		return nil, firstErr
	}
	return found, nil
}

// InsertOne stores a copy of record. A record with an empty string or zero
// UUID identifier is assigned a new one, written back to record.
func (s *Store[T]) InsertOne(ctx context.Context, record *T) (entitycache.Result, error) {
	s.count(MethodInsertOne)
	if err := ctx.Err(); err != nil {
		return entitycache.Result{}, err
	}
	if record == nil {
		return entitycache.Result{}, entitycache.ErrNilRecord
	}

	id, err := s.identify(record)
	if err != nil {
		return entitycache.Result{}, err
	}

	if _, loaded := s.records.LoadOrStore(id, *record); loaded {
		return entitycache.Result{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	return entitycache.Result{Matched: 1, Affected: 1}, nil
}

// UpdateOne replaces the record stored under id. A missing id matches nothing.
func (s *Store[T]) UpdateOne(ctx context.Context, id string, record *T) (entitycache.Result, error) {
	s.count(MethodUpdateOne)
	if err := ctx.Err(); err != nil {
		return entitycache.Result{}, err
	}
	if record == nil {
		return entitycache.Result{}, entitycache.ErrNilRecord
	}

	var matched bool
	s.records.Compute(id, func(old T, loaded bool) (T, bool) {
		matched = loaded
		if !loaded {
			return old, true
		}
		return *record, false
	})

	if !matched {
		return entitycache.Result{}, nil
	}
	return entitycache.Result{Matched: 1, Affected: 1}, nil
}

func (s *Store[T]) DeleteOne(ctx context.Context, id string) (entitycache.Result, error) {
	s.count(MethodDeleteOne)
	if err := ctx.Err(); err != nil {
		return entitycache.Result{}, err
	}

	if _, ok := s.records.LoadAndDelete(id); !ok {
		return entitycache.Result{}, nil
	}
	return entitycache.Result{Matched: 1, Affected: 1}, nil
}

// Len returns the number of stored records.
func (s *Store[T]) Len() int {
	return s.records.Size()
}

// Calls returns how many times method was called.
func (s *Store[T]) Calls(method string) int64 {
	counter, ok := s.calls.Load(method)
	if !ok {
		return 0
	}
	return counter.Value()
}

func (s *Store[T]) count(method string) {
	counter, _ := s.calls.LoadOrCompute(method, func() *xsync.Counter {
		return xsync.NewCounter()
	})
	counter.Inc()
}

// identify returns the canonical identifier of record, assigning one when empty.
func (s *Store[T]) identify(record *T) (string, error) {
	value, err := entitycache.ResolveID(s.cfg.resolver, record, s.cfg.idField)
	if err != nil {
		return "", err
	}

	id := cache.FormatPart(value)
	if id != "" && id != uuid.Nil.String() {
		return id, nil
	}

	return s.assignID(record)
}

func (s *Store[T]) assignID(record *T) (string, error) {
	v := reflect.ValueOf(record).Elem()
	if v.Kind() != reflect.Struct {
		return "", entitycache.ErrMissingID
	}

	names := []string{s.cfg.idField}
	if s.cfg.idField == "" {
		names = []string{"ID", "Id"}
	}

	for _, name := range names {
		f := v.FieldByName(name)
		if !f.IsValid() || !f.CanSet() {
			continue
		}

		switch {
		case f.Type() == reflect.TypeOf(uuid.UUID{}):
			id := uuid.New()
			f.Set(reflect.ValueOf(id))
			return id.String(), nil
		case f.Kind() == reflect.String:
			id := s.cfg.newID()
			f.SetString(id)
			return id, nil
		}
	}

	return "", entitycache.ErrMissingID
}
