package cache

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// AroundExpire spreads a nominal expiry of seconds by ±deviation using the
// uniform draw u in [0,1):
//
//	floor(seconds * (1 - deviation + 2*deviation*u))
//
// A deviation of 0 returns seconds unchanged.
func AroundExpire(seconds int, deviation, u float64) int {
	return int(math.Floor(float64(seconds) * (1 - deviation + 2*deviation*u)))
}

// Jitter randomizes cache TTLs so entries written together do not expire together.
// It is safe for concurrent use.
type Jitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewJitter returns a Jitter drawing from src. A nil src is seeded from the clock.
func NewJitter(src rand.Source) *Jitter {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Jitter{rnd: rand.New(src)}
}

// Around returns a jittered TTL for nominal, computed over whole seconds.
// Every call draws again, so repeated writes of one key get independent TTLs.
func (j *Jitter) Around(nominal time.Duration, deviation float64) time.Duration {
	seconds := int(nominal / time.Second)
	return time.Duration(AroundExpire(seconds, deviation, j.float64())) * time.Second
}

func (j *Jitter) float64() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rnd.Float64()
}
