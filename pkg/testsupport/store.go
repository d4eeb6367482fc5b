package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-entity-cache/cache"
)

// Op names recorded by RecordingStore.
const (
	OpGet         = "Get"
	OpSet         = "Set"
	OpSetNotFound = "SetNotFound"
	OpDelete      = "Delete"
)

// Write is one recorded Set or SetNotFound call.
type Write struct {
	Op  string
	Key string
	TTL time.Duration
}

// RecordingStore wraps a cache.Store, records every call and can inject
// errors per operation.
type RecordingStore struct {
	base cache.Store

	mu      sync.Mutex
	counts  map[string]int
	writes  []Write
	deletes [][]string
	errs    map[string]error
}

// NewRecordingStore wraps base.
func NewRecordingStore(base cache.Store) *RecordingStore {
	return &RecordingStore{
		base:   base,
		counts: make(map[string]int),
		errs:   make(map[string]error),
	}
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (s *RecordingStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

// Count returns how many times op was called.
func (s *RecordingStore) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[op]
}

// Writes returns the recorded Set and SetNotFound calls in order.
func (s *RecordingStore) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}

// Deletes returns the key batches passed to Delete in order.
func (s *RecordingStore) Deletes() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.deletes))
	for i, batch := range s.deletes {
		out[i] = append([]string(nil), batch...)
	}
	return out
}

// Reset clears recorded calls; injected errors stay.
func (s *RecordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = make(map[string]int)
	s.writes = nil
	s.deletes = nil
}

func (s *RecordingStore) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[op]++
	return s.errs[op]
}

func (s *RecordingStore) Get(ctx context.Context, key string) (cache.Entry, error) {
	if err := s.record(OpGet); err != nil {
		return cache.Entry{}, err
	}
	return s.base.Get(ctx, key)
}

func (s *RecordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.record(OpSet); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes = append(s.writes, Write{Op: OpSet, Key: key, TTL: ttl})
	s.mu.Unlock()
	return s.base.Set(ctx, key, value, ttl)
}

func (s *RecordingStore) SetNotFound(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.record(OpSetNotFound); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes = append(s.writes, Write{Op: OpSetNotFound, Key: key, TTL: ttl})
	s.mu.Unlock()
	return s.base.SetNotFound(ctx, key, ttl)
}

func (s *RecordingStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.record(OpDelete); err != nil {
		return err
	}
	s.mu.Lock()
	s.deletes = append(s.deletes, append([]string(nil), keys...))
	s.mu.Unlock()
	return s.base.Delete(ctx, keys...)
}

// NewMemoryStore returns a small in-process cache.Store for tests.
func NewMemoryStore(t testing.TB) cache.Store {
	t.Helper()

	cfg := cache.DefaultStoreConfig()
	cfg.Capacity = 1000
	cfg.NumShards = 8

	store, err := cache.NewMemoryStore(cfg)
	if err != nil {
		t.Fatalf("failed to create memory store: %v", err)
	}
	return store
}
