package entitycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-entity-cache/cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Metric names reported to the stats tracker. Every metric carries the
// "namespace" label; read metrics also carry "lookup" (the field name, or
// "_id" for primary lookups).
const (
	MetricHit                = "entitycache_hit"
	MetricMiss               = "entitycache_miss"
	MetricNotFoundHit        = "entitycache_not_found_hit"
	MetricStoreQuery         = "entitycache_store_query"
	MetricInvalidation       = "entitycache_invalidation"
	MetricInvalidationFailed = "entitycache_invalidation_failed"
	MetricCoalesced          = "entitycache_coalesced"
)

// flightSuffix keeps coalescing keys apart from cache keys.
const flightSuffix = "-outer"

// Cache serves point lookups of T by primary identifier or by a declared
// unique field from a cache store, falling back to the document store on
// a miss. Writes go to the document store first and then delete every cache
// entry derived from the record.
type Cache[T any] struct {
	docs      DocumentStore[T]
	store     cache.Store
	cfg       Config
	namespace string
	opts      options
}

// New creates a Cache for the records of docs, cached in store.
// The configuration is fixed (see Config.Fix) and validated.
func New[T any](docs DocumentStore[T], store cache.Store, cfg Config, opts ...Option) (*Cache[T], error) {
	if docs == nil {
		return nil, ErrNilDocumentStore
	}
	if store == nil && !cfg.Disable {
		return nil, ErrNilStore
	}

	cfg.Fix()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("entitycache: invalid config: %w", err)
	}
	cfg.UniqueFields = append([]string(nil), cfg.UniqueFields...)

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.jitter == nil {
		o.jitter = cache.NewJitter(nil)
	}
	if o.flight == nil {
		o.flight = cache.NewGroup()
	}

	return &Cache[T]{
		docs:      docs,
		store:     store,
		cfg:       cfg,
		namespace: docs.Namespace(),
		opts:      o,
	}, nil
}

// Namespace returns the cache key namespace, taken from the document store.
func (c *Cache[T]) Namespace() string {
	return c.namespace
}

// Config returns the fixed configuration in use.
func (c *Cache[T]) Config() Config {
	cfg := c.cfg
	cfg.UniqueFields = append([]string(nil), c.cfg.UniqueFields...)
	return cfg
}

// FindByID returns the record with the given primary identifier, or nil.
//
// Concurrent calls for the same id are not coalesced; each may query the
// document store and write the same entry. The writes are idempotent.
func (c *Cache[T]) FindByID(ctx context.Context, id string) (_ *T, err error) {
	ctx, span := c.startSpan(ctx, "entitycache.FindByID")
	defer func() { endSpan(span, err) }()

	if c.cfg.Disable {
		return c.docs.FindByID(ctx, id)
	}

	key := c.primaryKey(id)
	entry, cached, err := cache.GetOrFetch(ctx, c.store, key, c.ttl(c.cfg.Expire), func(ctx context.Context) ([]byte, bool, error) {
		c.opts.logger.Debug(ctx, "entity cache miss, querying document store", "namespace", c.namespace, "key", key)
		c.opts.stats.Add(ctx, MetricStoreQuery, 1, "namespace", c.namespace, "lookup", IDFieldKey)

		record, err := c.docs.FindByID(ctx, id)
		if err != nil || record == nil {
			return nil, false, err
		}

		data, err := c.opts.codec.Marshal(record)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	})
	if err != nil {
		return nil, err
	}

	c.trackRead(ctx, IDFieldKey, key, entry, cached)
	return c.decode(entry)
}

// FindByUniqueField returns the record whose field equals value, or nil.
// field must be listed in Config.UniqueFields, otherwise an
// *InvalidFieldError is returned before any store is touched.
//
// Concurrent calls for the same field and value share a single execution
// and its result.
func (c *Cache[T]) FindByUniqueField(ctx context.Context, field string, value any) (_ *T, err error) {
	if !c.cfg.isUnique(field) {
		return nil, &InvalidFieldError{Namespace: c.namespace, Field: field}
	}

	ctx, span := c.startSpan(ctx, "entitycache.FindByUniqueField", attribute.String("entitycache.field", field))
	defer func() { endSpan(span, err) }()

	if c.cfg.Disable {
		return c.docs.FindOne(ctx, field, value)
	}

	key := cache.BuildKey(c.namespace, field, value)
	v, err, shared := c.opts.flight.Do(ctx, key+flightSuffix, func(ctx context.Context) (any, error) {
		return c.resolveUnique(ctx, key, field, value)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.opts.stats.Add(ctx, MetricCoalesced, 1, "namespace", c.namespace, "lookup", field)
	}

	record, _ := v.(*T)
	if record == nil {
		return nil, nil
	}

	// coalesced callers must not share one pointer
	cp := *record
	return &cp, nil
}

func (c *Cache[T]) resolveUnique(ctx context.Context, key, field string, value any) (any, error) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch entry.State {
	case cache.EntryNotFound:
		c.trackRead(ctx, field, key, entry, true)
		return (*T)(nil), nil
	case cache.EntryValue:
		c.trackRead(ctx, field, key, entry, true)
		return c.FindByID(ctx, string(entry.Value))
	}

	c.trackRead(ctx, field, key, entry, false)
	c.opts.logger.Debug(ctx, "entity cache miss, querying document store", "namespace", c.namespace, "key", key)
	c.opts.stats.Add(ctx, MetricStoreQuery, 1, "namespace", c.namespace, "lookup", field)

	record, err := c.docs.FindOne(ctx, field, value)
	if err != nil {
		return nil, err
	}

	if record == nil {
		if err := c.store.SetNotFound(ctx, key, c.ttl(c.cfg.Expire)); err != nil {
			return nil, err
		}
		return (*T)(nil), nil
	}

	id, err := c.idOf(record)
	if err != nil {
		return nil, err
	}

	data, err := c.opts.codec.Marshal(record)
	if err != nil {
		return nil, err
	}

	// primary first, so the indirection never points at a missing entry
	if err := c.store.Set(ctx, c.primaryKey(id), data, c.ttl(c.cfg.Expire+SafetyGap)); err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, []byte(id), c.ttl(c.cfg.Expire)); err != nil {
		return nil, err
	}

	return c.decode(cache.Entry{State: cache.EntryValue, Value: data})
}

// InsertOne inserts record into the document store, then deletes the cache
// entries derived from it so negative markers recorded before it existed
// stop hiding it.
func (c *Cache[T]) InsertOne(ctx context.Context, record *T) (_ Result, err error) {
	if record == nil {
		return Result{}, ErrNilRecord
	}

	ctx, span := c.startSpan(ctx, "entitycache.InsertOne")
	defer func() { endSpan(span, err) }()

	res, err := c.docs.InsertOne(ctx, record)
	if err != nil {
		return res, err
	}

	if !c.cfg.Disable {
		c.invalidate(ctx, record)
	}
	return res, nil
}

// UpdateOne writes record to the document store by its primary identifier,
// then deletes the cache entries derived from it. Invalidation is best
// effort: a failure is logged and counted but never undoes or fails the
// committed update.
//
// Unique keys of the previously cached version of the record are deleted as
// well, so changing a unique value does not leave the old value resolving.
func (c *Cache[T]) UpdateOne(ctx context.Context, record *T) (_ Result, err error) {
	if record == nil {
		return Result{}, ErrNilRecord
	}

	ctx, span := c.startSpan(ctx, "entitycache.UpdateOne")
	defer func() { endSpan(span, err) }()

	id, err := c.idOf(record)
	if err != nil {
		return Result{}, err
	}

	if c.cfg.Disable {
		return c.docs.UpdateOne(ctx, id, record)
	}

	stale := c.cachedUniqueKeys(ctx, id)

	res, err := c.docs.UpdateOne(ctx, id, record)
	if err != nil {
		return res, err
	}

	c.invalidate(ctx, record, stale...)
	return res, nil
}

// DeleteByID deletes the record with the given primary identifier and the
// cache entries derived from it. The record is resolved first to learn its
// unique field values; when it does not exist nothing happens and the
// returned result is nil.
func (c *Cache[T]) DeleteByID(ctx context.Context, id string) (_ *Result, err error) {
	ctx, span := c.startSpan(ctx, "entitycache.DeleteByID")
	defer func() { endSpan(span, err) }()

	if c.cfg.Disable {
		res, err := c.docs.DeleteOne(ctx, id)
		if err != nil {
			return nil, err
		}
		return &res, nil
	}

	record, err := c.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	res, err := c.docs.DeleteOne(ctx, id)
	if err != nil {
		return nil, err
	}

	c.invalidate(ctx, record)
	return &res, nil
}

// DeleteDocCache deletes, in one store call, the primary entry of record and
// the secondary entry of every unique field. It is a no-op when caching is
// disabled. Unlike the write operations it returns invalidation errors.
func (c *Cache[T]) DeleteDocCache(ctx context.Context, record *T) (err error) {
	if c.cfg.Disable {
		return nil
	}
	if record == nil {
		return ErrNilRecord
	}

	ctx, span := c.startSpan(ctx, "entitycache.DeleteDocCache")
	defer func() { endSpan(span, err) }()

	return c.deleteDocCache(ctx, record)
}

func (c *Cache[T]) deleteDocCache(ctx context.Context, record *T, extra ...string) error {
	keys, resolveErr := c.derivedKeys(record)
	keys = appendMissing(keys, extra...)

	if len(keys) > 0 {
		if err := c.store.Delete(ctx, keys...); err != nil {
			return err
		}
		c.opts.stats.Add(ctx, MetricInvalidation, 1, "namespace", c.namespace)
		c.opts.logger.Debug(ctx, "deleted entity cache entries", "namespace", c.namespace, "keys", keys)
	}

	return resolveErr
}

// invalidate runs deleteDocCache and only logs failures.
func (c *Cache[T]) invalidate(ctx context.Context, record *T, extra ...string) {
	if err := c.deleteDocCache(ctx, record, extra...); err != nil {
		c.opts.stats.Add(ctx, MetricInvalidationFailed, 1, "namespace", c.namespace)
		c.opts.logger.Warn(ctx, "failed to invalidate entity cache", "namespace", c.namespace, "error", err)
	}
}

// derivedKeys returns the primary key and every resolvable unique key of
// record. Fields that cannot be resolved are reported in the error while the
// remaining keys are still returned.
func (c *Cache[T]) derivedKeys(record *T) ([]string, error) {
	var (
		keys []string
		errs []error
	)

	id, err := c.idOf(record)
	if err != nil {
		errs = append(errs, err)
	} else {
		keys = append(keys, c.primaryKey(id))
	}

	for _, field := range c.cfg.UniqueFields {
		value, err := c.opts.resolver(record, field)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		keys = append(keys, cache.BuildKey(c.namespace, field, value))
	}

	return keys, errors.Join(errs...)
}

// cachedUniqueKeys returns the unique keys of the version of id currently
// held in the cache, or nil. It never touches the document store.
func (c *Cache[T]) cachedUniqueKeys(ctx context.Context, id string) []string {
	entry, err := c.store.Get(ctx, c.primaryKey(id))
	if err != nil || !entry.IsValue() {
		return nil
	}

	previous, err := c.decode(entry)
	if err != nil || previous == nil {
		return nil
	}

	keys, _ := c.derivedKeys(previous)
	return keys
}

func (c *Cache[T]) idOf(record *T) (string, error) {
	value, err := ResolveID(c.opts.resolver, record, c.cfg.IDField)
	if err != nil {
		return "", err
	}

	id := cache.FormatPart(value)
	if id == "" || id == "nil" {
		return "", ErrMissingID
	}
	return id, nil
}

func (c *Cache[T]) primaryKey(id string) string {
	return cache.BuildKey(c.namespace, IDFieldKey, id)
}

func (c *Cache[T]) ttl(nominal time.Duration) time.Duration {
	return c.opts.jitter.Around(nominal, c.cfg.ExpiryDeviation)
}

func (c *Cache[T]) decode(entry cache.Entry) (*T, error) {
	if !entry.IsValue() {
		return nil, nil
	}

	var record T
	if err := c.opts.codec.Unmarshal(entry.Value, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Cache[T]) trackRead(ctx context.Context, lookup, key string, entry cache.Entry, cached bool) {
	switch {
	case !cached:
		c.opts.stats.Add(ctx, MetricMiss, 1, "namespace", c.namespace, "lookup", lookup)
	case entry.IsNotFound():
		c.opts.stats.Add(ctx, MetricNotFoundHit, 1, "namespace", c.namespace, "lookup", lookup)
		c.opts.logger.Debug(ctx, "entity cache hit negative marker", "namespace", c.namespace, "key", key)
	default:
		c.opts.stats.Add(ctx, MetricHit, 1, "namespace", c.namespace, "lookup", lookup)
		c.opts.logger.Debug(ctx, "entity cache hit", "namespace", c.namespace, "key", key)
	}
}

func (c *Cache[T]) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("entitycache.namespace", c.namespace))
	return c.opts.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func appendMissing(keys []string, extra ...string) []string {
	for _, key := range extra {
		found := false
		for _, existing := range keys {
			if existing == key {
				found = true
				break
			}
		}
		if !found {
			keys = append(keys, key)
		}
	}
	return keys
}
