// Package entitycache puts a cache-aside layer in front of a document store
// for point lookups of single records.
//
// # Overview
//
// A Cache[T] is built from a DocumentStore[T] (the source of truth), a
// cache.Store and a Config. It serves:
//
//   - FindByID: primary identifier lookups, cached under namespace:_id:<id>.
//   - FindByUniqueField: lookups by a field declared in Config.UniqueFields,
//     cached as an indirection namespace:<field>:<value> holding the id.
//   - InsertOne, UpdateOne, DeleteByID: document store writes followed by
//     deletion of every cache entry derived from the record.
//   - DeleteDocCache: explicit deletion of the entries of one record.
//
// Lookups that find nothing cache a negative marker, so repeated misses do
// not reach the document store until the marker expires or is invalidated.
//
// # Basic Usage
//
//	docs := memstore.New[User]("users")
//	store, _ := cache.NewMemoryStore(cache.DefaultStoreConfig())
//
//	users, err := entitycache.New[User](docs, store, entitycache.Config{
//		Expire:       5 * time.Minute,
//		UniqueFields: []string{"email"},
//	}, entitycache.WithLogger(logger))
//
//	user, err := users.FindByUniqueField(ctx, "email", "a@example.com")
//
// # Expiry
//
// Every write uses Config.Expire randomized by Config.ExpiryDeviation, so
// entries written together do not expire together. A primary entry written
// while resolving a unique field lives SafetyGap longer than the indirection
// pointing at it.
//
// # Concurrency
//
// Concurrent FindByUniqueField calls for the same field and value share one
// execution and its result, error included. FindByID is not coalesced.
// Invalidation after a write is not atomic with the write: a concurrent read
// may repopulate an entry with data read before the write committed, which
// stays visible until it expires.
//
// # Errors
//
// Cache store and document store errors are returned unchanged. A failed
// invalidation after a committed write is logged at warn level and counted
// under MetricInvalidationFailed instead of being returned.
//
// # Disabling
//
// With Config.Disable every operation goes straight to the document store
// and the cache store is never touched.
package entitycache
