package ratelimit

import (
	"sync"
	"time"
)

// Action classifies a mutation endpoint for limiting purposes. Budgets for
// different actions are independent, as are budgets for different actors.
type Action string

const (
	ActionBooking Action = "booking"
	ActionAdmin   Action = "admin"
)

const Window = 60 * time.Second

const defaultLimit = 10

// Limiter is a per-process sliding-window counter keyed by (actor, action).
// It is advisory backpressure in front of the engine, never inside it: a
// rate-limited request must not touch persisted state. Losing the window on
// restart only makes the limiter temporarily more permissive.
type Limiter struct {
	mu      sync.Mutex
	windows map[key][]time.Time
	limits  map[Action]int

	now func() time.Time
}

type key struct {
	actorID string
	action  Action
}

type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

func New(limits map[Action]int) *Limiter {
	return &Limiter{
		windows: make(map[key][]time.Time),
		limits:  limits,
		now:     time.Now,
	}
}

// DefaultLimits matches the configured endpoint classes: 5 bookings and 3
// admin actions per actor per minute.
func DefaultLimits() map[Action]int {
	return map[Action]int{
		ActionBooking: 5,
		ActionAdmin:   3,
	}
}

// Check prunes timestamps older than the window, then either records the
// request and allows it, or rejects it with the time until the oldest
// recorded request leaves the window.
func (l *Limiter) Check(actorID string, action Action) Result {
	limit, ok := l.limits[action]
	if !ok {
		limit = defaultLimit
	}

	now := l.now()
	cutoff := now.Add(-Window)
	k := key{actorID: actorID, action: action}

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.windows[k]
	pruned := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= limit {
		l.windows[k] = pruned
		retryAfter := pruned[0].Add(Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Result{Allowed: false, RetryAfter: retryAfter}
	}

	l.windows[k] = append(pruned, now)
	return Result{Allowed: true}
}
