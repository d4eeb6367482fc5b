package cache

import (
	"time"

	"github.com/goliatone/go-entity-cache/internal/cacheinfra"
)

// StoreConfig exposes memory store configuration options for consumers of the cache package.
type StoreConfig struct {
	Capacity           int
	NumShards          int
	MaxTTL             time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultStoreConfig returns a StoreConfig populated with sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c StoreConfig) Validate() error {
	return c.toInternal().Validate()
}

func (c StoreConfig) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		MaxTTL:             c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) StoreConfig {
	return StoreConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		MaxTTL:             cfg.MaxTTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
