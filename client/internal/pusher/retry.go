package pusher

import (
	"math/rand"
	"time"
)

// retry counts consecutive failed connection attempts and spaces them out.
// The delay doubles per failure from base up to ceiling; a quarter of it is
// randomised either way so many clients restarting together spread out.
type retry struct {
	base     time.Duration
	ceiling  time.Duration
	budget   int // 0 retries forever
	failures int
}

func newRetry(base, ceiling time.Duration, budget int) *retry {
	return &retry{base: base, ceiling: ceiling, budget: budget}
}

// fail records a failed attempt. It returns how long to wait before the next
// one, or false once the budget is spent.
func (r *retry) fail() (time.Duration, bool) {
	r.failures++
	if r.budget > 0 && r.failures > r.budget {
		return 0, false
	}
	return spread(r.delay()), true
}

// succeed restores the full budget and the shortest delay.
func (r *retry) succeed() {
	r.failures = 0
}

// delay is the un-jittered wait after the current run of failures.
func (r *retry) delay() time.Duration {
	d := r.base
	for i := 1; i < r.failures; i++ {
		if d >= r.ceiling/2 {
			return r.ceiling
		}
		d *= 2
	}
	if d > r.ceiling {
		return r.ceiling
	}
	return d
}

func spread(d time.Duration) time.Duration {
	quarter := float64(d) / 4
	d += time.Duration(quarter * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	if d < 0 {
		return 0
	}
	return d
}
