package inflight

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Result carries the outcome of a deduplicated computation.
type Result struct {
	Value  any
	Leader bool // this caller ran the computation itself
	Shared bool // the outcome was delivered to more than one caller
}

// Registry guarantees at most one concurrent computation per key. The
// first caller for a key becomes leader and runs fn; callers arriving
// while that computation is in flight join it and receive the same
// outcome, success or failure. The entry is dropped once the leader
// finishes, so a later identical request computes afresh.
type Registry struct {
	group singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Do executes fn under the key's critical section, or joins an in-flight
// execution of it. fn runs in its own goroutine detached from any single
// caller: a joined caller whose ctx ends simply abandons its wait, the
// leader's work carries on for the remaining waiters and the cache.
func (r *Registry) Do(ctx context.Context, key string, fn func() (any, error)) (Result, error) {
	led := false
	ch := r.group.DoChan(key, func() (any, error) {
		led = true
		return fn()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Result{Leader: led, Shared: res.Shared}, res.Err
		}
		return Result{Value: res.Val, Leader: led, Shared: res.Shared}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
