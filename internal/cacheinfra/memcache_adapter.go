package cacheinfra

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cespare/xxhash/v2"
)

const (
	// memcached rejects keys longer than this.
	maxMemcacheKeyLength = 250

	// Expirations above this many seconds are read by memcached as unix timestamps.
	maxRelativeExpiration = 30 * 24 * 60 * 60

	// flagNotFound marks an item as a negative marker.
	flagNotFound uint32 = 1

	notFoundPlaceholder = "*"
)

// MemcacheClient is the subset of *memcache.Client used by MemcacheStore.
type MemcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

var _ MemcacheClient = (*memcache.Client)(nil)

// MemcacheStore is a cache store backed by memcached.
type MemcacheStore struct {
	client MemcacheClient
	now    func() time.Time
}

// NewMemcacheStore wraps a memcache client.
func NewMemcacheStore(client MemcacheClient) *MemcacheStore {
	return &MemcacheStore{client: client, now: time.Now}
}

// NewMemcacheStoreForServers creates a memcache client for the given servers
// and wraps it.
func NewMemcacheStoreForServers(servers ...string) (*MemcacheStore, error) {
	if len(servers) == 0 {
		return nil, &ConfigError{Field: "Servers", Message: "at least one server is required"}
	}
	return NewMemcacheStore(memcache.New(servers...)), nil
}

// Get returns the entry stored under key.
func (s *MemcacheStore) Get(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Absent(), err
	}

	item, err := s.client.Get(memcacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return Absent(), nil
		}
		return Absent(), err
	}

	if item.Flags&flagNotFound != 0 {
		return NotFound(), nil
	}

	return Found(item.Value), nil
}

// Set stores value under key for ttl. A non-positive ttl is a no-op since
// memcached reads a zero expiration as "never expire".
func (s *MemcacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	return s.client.Set(&memcache.Item{
		Key:        memcacheKey(key),
		Value:      value,
		Expiration: s.expiration(ttl),
	})
}

// SetNotFound stores a negative marker under key for ttl.
func (s *MemcacheStore) SetNotFound(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	return s.client.Set(&memcache.Item{
		Key:        memcacheKey(key),
		Value:      []byte(notFoundPlaceholder),
		Flags:      flagNotFound,
		Expiration: s.expiration(ttl),
	})
}

// Delete removes every given key. Cache misses are not errors; other
// failures are joined and returned after all keys were attempted.
func (s *MemcacheStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error
	for _, key := range keys {
		if err := s.client.Delete(memcacheKey(key)); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MemcacheStore) expiration(ttl time.Duration) int32 {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if seconds > maxRelativeExpiration {
		return int32(s.now().Add(ttl).Unix())
	}
	return int32(seconds)
}

// memcacheKey returns key unchanged when memcached accepts it, otherwise a
// fixed size digest of it.
func memcacheKey(key string) string {
	if len(key) <= maxMemcacheKeyLength && legalMemcacheKey(key) {
		return key
	}
	return "xx:" + strconv.FormatUint(xxhash.Sum64String(key), 16) + ":" + strconv.Itoa(len(key))
}

func legalMemcacheKey(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}
