package command

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// resourceGate protects the physical hardware from thrashing. Two rules,
// both per resource rather than per kind, because kinds sharing an encoder
// contend for the same switch:
//   - a cooldown window between consecutive actions
//   - no overlap: while an action is in flight, a second one is refused,
//     never queued
type resourceGate struct {
	cooldown time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	inflight map[string]bool
}

func newResourceGate(cooldown time.Duration) *resourceGate {
	return &resourceGate{
		cooldown: cooldown,
		limiters: make(map[string]*rate.Limiter),
		inflight: make(map[string]bool),
	}
}

// Acquire claims the resource or returns RateLimitedError. Callers must
// Release after the hardware action settles.
func (g *resourceGate) Acquire(kind v1.Kind) error {
	resource := kind.Resource()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight[resource] {
		return &v1.RateLimitedError{Resource: resource, Cooldown: g.cooldown}
	}

	limiter, ok := g.limiters[resource]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(g.cooldown), 1)
		g.limiters[resource] = limiter
	}
	if !limiter.Allow() {
		return &v1.RateLimitedError{Resource: resource, Cooldown: g.cooldown}
	}

	g.inflight[resource] = true
	return nil
}

func (g *resourceGate) Release(kind v1.Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, kind.Resource())
}
