package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group coalesces concurrent calls sharing a key into one execution.
// Callers that overlap an in-flight call for the same key wait for it and
// receive its result, error included. Calls that do not overlap always run.
//
// The function runs with the context of the caller that started it.
type Group struct {
	group singleflight.Group
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{}
}

// Do executes fn once per key among overlapping callers. shared reports
// whether the result was handed to more than one caller.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (v any, err error, shared bool) {
	return g.group.Do(key, func() (any, error) {
		return fn(ctx)
	})
}

// Forget drops the in-flight record for key so the next call executes
// instead of joining the current one.
func (g *Group) Forget(key string) {
	g.group.Forget(key)
}
