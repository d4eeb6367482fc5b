package entitycache

import "context"

// Result describes the outcome of a document store write.
type Result struct {
	// Matched is the number of records the write selected.
	Matched int64 `json:"matched"`
	// Affected is the number of records the write changed.
	Affected int64 `json:"affected"`
}

// DocumentStore is the source of truth the cache sits in front of.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Not found: FindByID and FindOne return (nil, nil); it is never an error.
//   - Namespace is stable for the lifetime of the store and is used as the
//     cache key namespace, so two stores sharing a cache need distinct ones.
type DocumentStore[T any] interface {
	Namespace() string
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, field string, value any) (*T, error)
	InsertOne(ctx context.Context, record *T) (Result, error)
	UpdateOne(ctx context.Context, id string, record *T) (Result, error)
	DeleteOne(ctx context.Context, id string) (Result, error)
}
