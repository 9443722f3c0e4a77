package server

import (
	"sync"
	"time"
)

// rateLimiter bounds mutating requests per client and route over a fixed
// window. Movements, recomputes, setting updates, and override changes each
// get their own window so a burst of movements cannot starve a repair call.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[limiterKey]*limiterWindow
}

type limiterKey struct {
	client string
	route  string
}

type limiterWindow struct {
	startedAt time.Time
	count     int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[limiterKey]*limiterWindow),
	}
}

// Allow reports whether the client may hit the route now, counting the
// request against the current window. Expired windows are pruned on the way
// so idle clients do not accumulate.
func (r *rateLimiter) Allow(client, route string) bool {
	if client == "" {
		return false
	}

	now := r.now().UTC()
	key := limiterKey{client: client, route: route}

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, w := range r.windows {
		if now.Sub(w.startedAt) > r.window {
			delete(r.windows, k)
		}
	}

	w := r.windows[key]
	if w == nil {
		w = &limiterWindow{startedAt: now}
		r.windows[key] = w
	}

	if w.count >= r.limit {
		return false
	}

	w.count++
	return true
}
