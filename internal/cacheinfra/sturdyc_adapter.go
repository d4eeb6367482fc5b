package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// storedEntry is what the memory store keeps inside sturdyc.
// sturdyc only knows a single client wide TTL, so the per-key deadline
// travels with the value and is checked on read.
type storedEntry struct {
	value     []byte
	negative  bool
	expiresAt time.Time
}

// MemoryStore is an in-process cache store backed by a sturdyc client.
type MemoryStore struct {
	client *sturdyc.Client[storedEntry]
	maxTTL time.Duration
	now    func() time.Time
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the time source used for per-key expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates a new sturdyc backed store.
// It validates the configuration and initializes a sturdyc client with the provided settings.
func NewMemoryStore(cfg Config, opts ...MemoryOption) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[storedEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	s := &MemoryStore{
		client: client,
		maxTTL: cfg.MaxTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Get returns the entry stored under key. Entries past their own deadline
// are reported as absent and dropped.
func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Absent(), err
	}

	stored, ok := s.client.Get(key)
	if !ok {
		return Absent(), nil
	}

	if !s.now().Before(stored.expiresAt) {
		s.client.Delete(key)
		return Absent(), nil
	}

	if stored.negative {
		return NotFound(), nil
	}

	return Found(append([]byte(nil), stored.value...)), nil
}

// Set stores value under key for ttl. A non-positive ttl is a no-op.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	s.client.Set(key, storedEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.deadline(ttl),
	})
	return nil
}

// SetNotFound stores a negative marker under key for ttl.
func (s *MemoryStore) SetNotFound(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	s.client.Set(key, storedEntry{
		negative:  true,
		expiresAt: s.deadline(ttl),
	})
	return nil
}

// Delete removes every given key. Missing keys are ignored.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Size returns the number of entries held by the underlying client,
// including ones whose per-key deadline already passed.
func (s *MemoryStore) Size() int {
	return s.client.Size()
}

func (s *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	return s.now().Add(ttl)
}
