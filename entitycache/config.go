package entitycache

import (
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultExpiryDeviation spreads TTLs by ±5%.
	DefaultExpiryDeviation = 0.05

	// SafetyGap is added to the TTL of a primary entry written while resolving
	// a unique field, so it outlives the secondary entry pointing at it.
	SafetyGap = 5 * time.Second

	// IDFieldKey is the field segment of primary key cache entries.
	IDFieldKey = "_id"
)

// Config configures caching for one entity type.
type Config struct {
	// Expire is the nominal lifetime of every cache entry, rounded down to
	// whole seconds. Required unless Disable is set.
	Expire time.Duration

	// UniqueFields lists the fields FindByUniqueField accepts. Each must
	// uniquely identify a single record.
	UniqueFields []string

	// Disable turns every operation into a passthrough to the document store.
	Disable bool

	// ExpiryDeviation randomizes TTLs within [1-d, 1+d] of Expire.
	// Zero means DefaultExpiryDeviation; use a negative value to turn jitter off.
	ExpiryDeviation float64

	// IDField names the record field holding the primary identifier.
	// Empty means the first of ID, Id, id or _id found on the record.
	IDField string
}

// DefaultConfig returns a Config with a one minute expiry and no unique fields.
func DefaultConfig() Config {
	return Config{
		Expire:          time.Minute,
		ExpiryDeviation: DefaultExpiryDeviation,
	}
}

// Fix normalizes ExpiryDeviation: zero or NaN becomes DefaultExpiryDeviation
// and anything else is clamped into [0,1].
func (c *Config) Fix() {
	if c.ExpiryDeviation == 0 || math.IsNaN(c.ExpiryDeviation) {
		c.ExpiryDeviation = DefaultExpiryDeviation
	}
	if c.ExpiryDeviation < 0 {
		c.ExpiryDeviation = 0
	}
	if c.ExpiryDeviation > 1 {
		c.ExpiryDeviation = 1
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Expire,
			validation.When(!c.Disable, validation.Required, validation.Min(time.Second)),
		),
		validation.Field(&c.UniqueFields,
			validation.Each(validation.Required, validation.NotIn(IDFieldKey)),
		),
	)
}

func (c Config) isUnique(field string) bool {
	for _, f := range c.UniqueFields {
		if f == field {
			return true
		}
	}
	return false
}
