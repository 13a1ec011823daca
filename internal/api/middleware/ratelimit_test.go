package middleware

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterKeepsStateForActiveIPs(t *testing.T) {
	l := newIPLimiters(60, 1, limiterIdleTTL)

	assert.True(t, l.get("10.0.0.1").Allow())
	// Same IP gets the same limiter back, with its burst already spent.
	assert.False(t, l.get("10.0.0.1").Allow())
	// A different IP has its own budget.
	assert.True(t, l.get("10.0.0.2").Allow())
}

func TestIdleLimitersAreEvicted(t *testing.T) {
	l := newIPLimiters(60, 1, limiterIdleTTL)
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	for i := 0; i < 100; i++ {
		l.get(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Len(t, l.clients, 100)

	// One IP stays active past the idle window; the rest go quiet.
	current = current.Add(limiterIdleTTL - time.Second)
	l.get("10.0.0.1")

	current = current.Add(2 * time.Second)
	l.get("10.0.1.1")

	assert.Len(t, l.clients, 2)
	assert.Contains(t, l.clients, "10.0.0.1")
	assert.Contains(t, l.clients, "10.0.1.1")
}

func TestEvictedIPStartsFresh(t *testing.T) {
	l := newIPLimiters(60, 1, limiterIdleTTL)
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	first := l.get("10.0.0.1")
	assert.True(t, first.Allow())

	current = current.Add(2 * limiterIdleTTL)
	second := l.get("10.0.0.1")

	assert.NotSame(t, first, second)
	assert.True(t, second.Allow())
}
