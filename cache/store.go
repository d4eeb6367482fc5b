package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-entity-cache/internal/cacheinfra"
)

// Entry is the tagged result of a cache read: absent, a value, or a
// negative marker.
type Entry = cacheinfra.Entry

// EntryState tags an Entry.
type EntryState = cacheinfra.EntryState

const (
	EntryAbsent   = cacheinfra.EntryAbsent
	EntryValue    = cacheinfra.EntryValue
	EntryNotFound = cacheinfra.EntryNotFound
)

// Store is the key-value cache the orchestrator reads from and writes to.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get reports a missing key as an absent Entry, never as an error.
//   - Set and SetNotFound with ttl <= 0 do not write.
//   - Delete is idempotent; missing keys are not errors.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNotFound(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

var (
	_ Store = (*cacheinfra.MemoryStore)(nil)
	_ Store = (*cacheinfra.MemcacheStore)(nil)
)

// NewMemoryStore constructs the default in-process store using the provided configuration.
func NewMemoryStore(cfg StoreConfig) (Store, error) {
	store, err := cacheinfra.NewMemoryStore(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewMemcacheStore constructs a memcached backed store for the given servers.
func NewMemcacheStore(servers ...string) (Store, error) {
	store, err := cacheinfra.NewMemcacheStoreForServers(servers...)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewMemcacheStoreWithClient wraps an existing memcache client, e.g. a
// *memcache.Client with custom timeouts.
func NewMemcacheStoreWithClient(client cacheinfra.MemcacheClient) Store {
	return cacheinfra.NewMemcacheStore(client)
}
