// Package cache provides the building blocks of entity cache-aside reads:
// the cache store contract, key composition, TTL jitter, request
// coalescing and value codecs.
//
// # Overview
//
//   - Store: raw key-value cache with per-key TTL and a three state read
//     (absent, value, negative marker). NewMemoryStore returns a sturdyc backed
//     in-process store, NewMemcacheStore a memcached backed one.
//   - GetOrFetch: "return the cached entry, or load it, cache it and return it".
//     A load that finds nothing caches a negative marker.
//   - BuildKey: deterministic namespace:field:value keys.
//   - Jitter: randomized expiry around a nominal TTL.
//   - Group: singleflight coalescing of concurrent identical calls.
//   - Codec: msgpack (default) or JSON encoding of cached records.
//
// # Basic Usage
//
//	store, _ := cache.NewMemoryStore(cache.DefaultStoreConfig())
//	key := cache.BuildKey("users", "_id", id)
//	ttl := jitter.Around(time.Minute, 0.05)
//
//	entry, cached, err := cache.GetOrFetch(ctx, store, key, ttl, func(ctx context.Context) ([]byte, bool, error) {
//		user, err := db.FindUser(ctx, id)
//		if err != nil || user == nil {
//			return nil, false, err
//		}
//		data, err := cache.MsgpackCodec{}.Marshal(user)
//		return data, true, err
//	})
//
// # Key Format
//
// Keys are segments joined with KeySeparator (":"). Values implementing
// fmt.Stringer (UUIDs, object ids) use their textual form, basic types their
// %v form, and composite values fall back to JSON. Keys are injective as long
// as segments do not themselves contain the separator.
//
// # Negative Markers
//
// A negative marker is a cached "confirmed not found". It is distinct from an
// absent key and expires or is deleted like any other entry. Stores encode it
// in a backend specific way (a flag bit on memcached items, a tagged entry in
// memory), so it never collides with a stored value.
//
// # See Also
//
// The entitycache package composes these pieces into find-by-id,
// find-by-unique-field, update and delete operations over a document store.
package cache
