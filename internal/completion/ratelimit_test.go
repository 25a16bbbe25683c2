package completion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock lets the reactive-strategy test control elapsed time
// exactly, mirroring scenario 4 from the testable-properties list.
func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time { return cur }
}

func TestRateLimiterReactiveWaitScenario(t *testing.T) {
	start := time.Now()
	r := newRateLimiter(false, 0)
	r.now = fixedClock(start)

	// Ten requests fire within 5s; oldest timestamp age is 4s when the
	// 11th is rate limited.
	for i := 0; i < 10; i++ {
		r.timestamps = append(r.timestamps, start.Add(-4*time.Second))
	}

	r.mu.Lock()
	r.pruneOlderThan(60 * time.Second)
	oldest := r.timestamps[0]
	age := r.now().Sub(oldest)
	fullWait := 60*time.Second - age
	r.mu.Unlock()

	assert.Equal(t, 4*time.Second, age)
	assert.Equal(t, 56*time.Second, fullWait)
}

func TestRateLimiterOnSuccessDropsOldTimestamps(t *testing.T) {
	start := time.Now()
	r := newRateLimiter(false, 0)
	r.now = fixedClock(start)
	r.timestamps = []time.Time{start.Add(-40 * time.Second), start.Add(-10 * time.Second)}
	r.consecutiveFullWaits = 2

	r.onSuccess()

	require.Len(t, r.timestamps, 1)
	assert.Equal(t, 0, r.consecutiveFullWaits)
}

func TestRateLimiterOnFinalFailureClearsState(t *testing.T) {
	r := newRateLimiter(false, 0)
	r.timestamps = []time.Time{time.Now()}
	r.consecutiveFullWaits = 3

	r.onFinalFailure()

	assert.Empty(t, r.timestamps)
	assert.Equal(t, 0, r.consecutiveFullWaits)
}

func TestRateLimiterPruneOlderThan(t *testing.T) {
	start := time.Now()
	r := newRateLimiter(false, 0)
	r.now = fixedClock(start)
	r.timestamps = []time.Time{
		start.Add(-100 * time.Second),
		start.Add(-50 * time.Second),
		start.Add(-10 * time.Second),
	}

	r.pruneOlderThan(60 * time.Second)

	require.Len(t, r.timestamps, 2)
}
