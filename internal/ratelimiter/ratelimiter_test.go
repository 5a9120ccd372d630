package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_EnforcesBurst(t *testing.T) {
	l := New(10, 10)

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow(), "request %d is within the burst", i)
	}
	assert.False(t, l.Allow(), "bucket is empty after the burst")

	// One token refills after 1/10s.
	time.Sleep(110 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestWait_Throttles(t *testing.T) {
	l := New(10, 1)

	require.NoError(t, l.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestWait_RespectsContext(t *testing.T) {
	l := New(1, 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, l.Wait(ctx))
}

func TestZeroRateIsUnlimited(t *testing.T) {
	l := New(0, 0)

	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow())
	}
}

func TestTokens(t *testing.T) {
	l := New(10, 10)

	for i := 0; i < 5; i++ {
		l.Allow()
	}
	assert.InDelta(t, 5, l.Tokens(), 1)
}
