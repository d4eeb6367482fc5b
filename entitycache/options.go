package entitycache

import (
	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/goliatone/go-entity-cache/cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-entity-cache/entitycache"

// Option customizes a Cache.
type Option func(*options)

type options struct {
	logger   ctxd.Logger
	stats    stats.Tracker
	tracer   trace.Tracer
	codec    cache.Codec
	jitter   *cache.Jitter
	flight   *cache.Group
	resolver FieldResolver
}

func defaultOptions() options {
	return options{
		logger:   ctxd.NoOpLogger{},
		stats:    stats.NoOp{},
		tracer:   otel.Tracer(instrumentationName),
		codec:    cache.MsgpackCodec{},
		resolver: ResolveField,
	}
}

// WithLogger sets the logger, ctxd.NoOpLogger by default.
func WithLogger(logger ctxd.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStats sets the stats tracker, stats.NoOp by default.
func WithStats(tracker stats.Tracker) Option {
	return func(o *options) {
		if tracker != nil {
			o.stats = tracker
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithCodec sets the codec used for cached records, cache.MsgpackCodec by default.
func WithCodec(codec cache.Codec) Option {
	return func(o *options) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithJitter sets the TTL jitter, e.g. one with a seeded source for tests.
func WithJitter(jitter *cache.Jitter) Option {
	return func(o *options) {
		if jitter != nil {
			o.jitter = jitter
		}
	}
}

// WithGroup shares a coalescing group between caches. Keys carry the
// namespace so sharing never merges lookups of different entity types.
func WithGroup(group *cache.Group) Option {
	return func(o *options) {
		if group != nil {
			o.flight = group
		}
	}
}

// WithFieldResolver replaces the reflection based ResolveField.
func WithFieldResolver(resolver FieldResolver) Option {
	return func(o *options) {
		if resolver != nil {
			o.resolver = resolver
		}
	}
}
