package completion

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// rateLimiter implements the §5 completion-provider rate-limit
// discipline as state owned by one provider instance (§9 "global
// mutable state -> per-provider objects"), constructed alongside the
// provider and living as long as it; there is no separate release step.
type rateLimiter struct {
	mu                   sync.Mutex
	timestamps           []time.Time
	consecutiveFullWaits int

	// proactive, opt-in: never send more than maxPerMinute requests in
	// any rolling 60s window, acquired before the request fires.
	proactive    bool
	maxPerMinute int

	now func() time.Time
}

func newRateLimiter(proactive bool, maxPerMinute int) *rateLimiter {
	return &rateLimiter{proactive: proactive, maxPerMinute: maxPerMinute, now: time.Now}
}

// beforeRequest applies the mandatory 1-2s jitter and, if the proactive
// strategy is enabled, blocks until a slot in the rolling 60s window is
// free.
func (r *rateLimiter) beforeRequest(ctx context.Context) error {
	jitter := time.Duration(1000+rand.Intn(1000)) * time.Millisecond
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		return ctx.Err()
	}

	if !r.proactive {
		r.recordTimestamp()
		return nil
	}

	for {
		r.mu.Lock()
		r.pruneOlderThan(60 * time.Second)
		if len(r.timestamps) < r.maxPerMinute {
			r.timestamps = append(r.timestamps, r.now())
			r.mu.Unlock()
			return nil
		}
		oldest := r.timestamps[0]
		r.mu.Unlock()
		wait := 60*time.Second - r.now().Sub(oldest)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *rateLimiter) recordTimestamp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timestamps = append(r.timestamps, r.now())
}

func (r *rateLimiter) pruneOlderThan(age time.Duration) {
	cutoff := r.now().Add(-age)
	i := 0
	for i < len(r.timestamps) && r.timestamps[i].Before(cutoff) {
		i++
	}
	r.timestamps = r.timestamps[i:]
}

// onRateLimited computes and sleeps the reactive-strategy wait, returning
// the delay actually applied (used for the §7 "last retriable delay"
// error attribute).
func (r *rateLimiter) onRateLimited(ctx context.Context) (time.Duration, error) {
	r.mu.Lock()
	r.pruneOlderThan(60 * time.Second)

	var delay time.Duration
	if len(r.timestamps) == 0 {
		delay = 0
	} else {
		oldest := r.timestamps[0]
		age := r.now().Sub(oldest)
		fullWait := 60*time.Second - age
		if fullWait < 0 {
			fullWait = 0
		}

		if fullWait > 0 && r.consecutiveFullWaits > 0 {
			// repeated full waits: drop into micro-retry mode.
			r.pruneOlderThan(58 * time.Second)
			backoff := time.Duration(5*r.consecutiveFullWaits) * time.Second
			if backoff > 15*time.Second {
				backoff = 15 * time.Second
			}
			delay = backoff
		} else {
			delay = fullWait + 2*time.Second
		}
		r.consecutiveFullWaits++
	}
	r.mu.Unlock()

	if delay <= 0 {
		return 0, nil
	}
	select {
	case <-time.After(delay):
		return delay, nil
	case <-ctx.Done():
		return delay, ctx.Err()
	}
}

// onSuccess drops timestamps older than 30s and resets the full-wait
// counter.
func (r *rateLimiter) onSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneOlderThan(30 * time.Second)
	r.consecutiveFullWaits = 0
}

// onFinalFailure clears all timestamps for this provider.
func (r *rateLimiter) onFinalFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timestamps = nil
	r.consecutiveFullWaits = 0
}
