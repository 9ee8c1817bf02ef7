package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(l *Limiter, start time.Time) *time.Time {
	now := start
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiterBurstThenBlock(t *testing.T) {
	l := NewLimiter(2, 2)
	fixedClock(l, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.Equal(t, time.Second, l.RetryAfter("10.0.0.1"))
}

func TestLimiterClientsAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)
	fixedClock(l, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("a"))
	assert.False(t, l.Allow("b"))
	assert.Equal(t, 2, l.Clients())
}

func TestLimiterRefills(t *testing.T) {
	l := NewLimiter(1, 1)
	now := fixedClock(l, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	*now = now.Add(1100 * time.Millisecond)
	assert.True(t, l.Allow("a"))
	assert.Zero(t, NewLimiter(1, 1).RetryAfter("fresh"))
}

func TestLimiterSweep(t *testing.T) {
	l := NewLimiter(1, 1)
	now := fixedClock(l, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	l.Allow("old")
	*now = now.Add(10 * time.Minute)
	l.Allow("new")

	assert.Equal(t, 1, l.Sweep(5*time.Minute))
	assert.Equal(t, 1, l.Clients())
}
