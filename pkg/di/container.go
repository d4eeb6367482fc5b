package di

import (
	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/goliatone/go-entity-cache/cache"
	"github.com/goliatone/go-entity-cache/entitycache"
	"github.com/goliatone/go-entity-cache/pkg/telemetry"
	"github.com/goliatone/go-entity-cache/store/repostore"
	"github.com/prometheus/client_golang/prometheus"
)

// Config selects and configures the shared components of a Container.
type Config struct {
	// Store configures the in-process cache store. Ignored when
	// MemcacheServers is set.
	Store cache.StoreConfig

	// MemcacheServers switches the cache store to memcached.
	MemcacheServers []string

	// Logger defaults to ctxd.NoOpLogger.
	Logger ctxd.Logger

	// Stats takes precedence over Registerer.
	Stats stats.Tracker

	// Registerer, when set and Stats is nil, exports stats as prometheus metrics.
	Registerer prometheus.Registerer
}

// DefaultConfig returns an in-process store configuration without
// logging or metrics.
func DefaultConfig() Config {
	return Config{Store: cache.DefaultStoreConfig()}
}

// Container provides dependency injection for entity cache components.
// It owns one cache store, logger, stats tracker and coalescing group, and
// shares them between every entity cache it creates.
type Container struct {
	store  cache.Store
	group  *cache.Group
	logger ctxd.Logger
	stats  stats.Tracker
	config Config
}

// NewContainer creates a new DI container with the provided configuration.
func NewContainer(config Config) (*Container, error) {
	store, err := newStore(config)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = ctxd.NoOpLogger{}
	}

	tracker := config.Stats
	if tracker == nil && config.Registerer != nil {
		tracker, err = telemetry.NewTracker(config.Registerer)
		if err != nil {
			return nil, err
		}
	}
	if tracker == nil {
		tracker = stats.NoOp{}
	}

	return &Container{
		store:  store,
		group:  cache.NewGroup(),
		logger: logger,
		stats:  tracker,
		config: config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using DefaultConfig.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultConfig())
}

func newStore(config Config) (cache.Store, error) {
	if len(config.MemcacheServers) > 0 {
		return cache.NewMemcacheStore(config.MemcacheServers...)
	}
	return cache.NewMemoryStore(config.Store)
}

// Store returns the shared cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

// Group returns the coalescing group shared by every entity cache.
func (c *Container) Group() *cache.Group {
	return c.group
}

// Logger returns the shared logger.
func (c *Container) Logger() ctxd.Logger {
	return c.logger
}

// Stats returns the shared stats tracker.
func (c *Container) Stats() stats.Tracker {
	return c.stats
}

// Config returns the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// NewEntityCache creates an entity cache for docs wired to the container's
// shared components. opts are applied after the container's, so they win.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewEntityCache[User](container, userStore, cfg)
func NewEntityCache[T any](c *Container, docs entitycache.DocumentStore[T], cfg entitycache.Config, opts ...entitycache.Option) (*entitycache.Cache[T], error) {
	base := []entitycache.Option{
		entitycache.WithLogger(c.logger),
		entitycache.WithStats(c.stats),
		entitycache.WithGroup(c.group),
	}
	return entitycache.New[T](docs, c.store, cfg, append(base, opts...)...)
}

// NewRepositoryCache puts an entity cache in front of a go-repository-bun
// repository of *T.
func NewRepositoryCache[T any](c *Container, repo repostore.Repository[T], cfg entitycache.Config, opts ...entitycache.Option) (*entitycache.Cache[T], error) {
	return NewEntityCache[T](c, repostore.New[T](repo), cfg, opts...)
}
