package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_WriteBurstPerCaller(t *testing.T) {
	tests := []struct {
		name    string
		burst   int
		callers []string
		want    map[string]int
	}{
		{
			name:    "single user spends the burst",
			burst:   3,
			callers: []string{"user:ada", "user:ada", "user:ada", "user:ada", "user:ada"},
			want:    map[string]int{"user:ada": 3},
		},
		{
			name:    "users do not share a bucket",
			burst:   1,
			callers: []string{"user:ada", "user:bob", "user:ada", "user:bob"},
			want:    map[string]int{"user:ada": 1, "user:bob": 1},
		},
		{
			name:    "anonymous address and signed-in user are separate callers",
			burst:   2,
			callers: []string{"ip:192.0.2.1", "ip:192.0.2.1", "ip:192.0.2.1", "user:ada"},
			want:    map[string]int{"ip:192.0.2.1": 2, "user:ada": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A near-zero refill keeps the result independent of test timing.
			rl := New(0.001, tt.burst)
			defer rl.Stop()

			allowed := map[string]int{}
			for _, key := range tt.callers {
				if rl.Allow(key) {
					allowed[key]++
				}
			}
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestKeyedRateLimiter_Refills(t *testing.T) {
	rl := New(50, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("user:ada"))
	require.False(t, rl.Allow("user:ada"))

	assert.Eventually(t, func() bool { return rl.Allow("user:ada") },
		time.Second, 5*time.Millisecond)
}

func TestKeyedRateLimiter_ConcurrentCallersShareOneBucket(t *testing.T) {
	rl := New(0.001, 10)
	defer rl.Stop()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			if rl.Allow("ip:198.51.100.7") {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(10), allowed.Load())
	assert.Equal(t, 1, rl.Len())
}

func TestKeyedRateLimiter_EvictsIdleCallers(t *testing.T) {
	rl := NewWithIdle(0.001, 1, time.Minute)
	defer rl.Stop()

	require.True(t, rl.Allow("ip:192.0.2.1"))
	require.True(t, rl.Allow("user:ada"))
	require.Equal(t, 2, rl.Len())

	rl.evictIdle(time.Now().Add(30 * time.Second))
	assert.Equal(t, 2, rl.Len(), "recently seen callers are kept")

	rl.evictIdle(time.Now().Add(2 * time.Minute))
	assert.Zero(t, rl.Len())

	// An evicted caller starts over with a full bucket.
	assert.True(t, rl.Allow("ip:192.0.2.1"))
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
