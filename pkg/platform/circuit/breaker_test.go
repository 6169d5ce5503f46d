package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	return New("compliance", append([]Option{WithClock(clock.now)}, opts...)...), clock
}

func TestNewBreakerIsClosed(t *testing.T) {
	b, _ := newTestBreaker()
	assert.Equal(t, "compliance", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestConsecutiveFailuresOpen(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(3))

	for range 2 {
		fallback, change := b.RecordFailure()
		assert.False(t, fallback)
		assert.False(t, change.Opened)
	}
	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())

	// further failures while open report no new transition
	_, change = b.RecordFailure()
	assert.False(t, change.Opened)
}

func TestSuccessBreaksFailureStreak(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestOpenBreakerAdmitsOneTrialPerCooldown(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(1), WithCooldown(10*time.Second))
	b.RecordFailure()

	assert.False(t, b.Allow())
	clock.advance(9 * time.Second)
	assert.False(t, b.Allow())

	clock.advance(time.Second)
	assert.True(t, b.Allow(), "trial after cooldown")
	assert.False(t, b.Allow(), "only one trial per cooldown")

	clock.advance(10 * time.Second)
	assert.True(t, b.Allow())
}

func TestTrialsCloseAfterSuccessThreshold(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.False(t, change.Closed)

	// a failed trial restarts the success count
	b.RecordFailure()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}

func TestNonPositiveOptionsKeepDefaults(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))
	assert.Equal(t, 5, b.failureThreshold)
	assert.Equal(t, 1, b.successThreshold)
	assert.Equal(t, 10*time.Second, b.cooldown)
}
