package cache

import (
	"context"
	"time"
)

// FetchFn loads a value from the source of truth on a cache miss.
// It returns found=false when the source confirms the record does not exist.
type FetchFn func(ctx context.Context) (value []byte, found bool, err error)

// GetOrFetch is the cache-aside read primitive.
//
// A value entry is returned as is. A negative marker is returned as is
// without calling fetch. On an absent key fetch runs, its result is written
// under key for ttl (a negative marker when nothing was found) and returned.
// cached reports whether the entry came from the store.
//
// Concurrent callers may each run fetch for the same key; writes are
// idempotent so the last one wins.
func GetOrFetch(ctx context.Context, store Store, key string, ttl time.Duration, fetch FetchFn) (entry Entry, cached bool, err error) {
	entry, err = store.Get(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	if !entry.IsAbsent() {
		return entry, true, nil
	}

	value, found, err := fetch(ctx)
	if err != nil {
		return Entry{}, false, err
	}

	if !found {
		if err := store.SetNotFound(ctx, key, ttl); err != nil {
			return Entry{}, false, err
		}
		return Entry{State: EntryNotFound}, false, nil
	}

	if err := store.Set(ctx, key, value, ttl); err != nil {
		return Entry{}, false, err
	}
	return Entry{State: EntryValue, Value: value}, false, nil
}

