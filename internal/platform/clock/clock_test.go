package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClockAdvanceFiresDueTimers(t *testing.T) {
	t.Parallel()

	c := NewFake()
	var fired []string

	c.AfterFunc(10*time.Second, func() { fired = append(fired, "ten") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "five") })
	late := c.AfterFunc(30*time.Second, func() { fired = append(fired, "thirty") })

	c.Advance(10 * time.Second)
	assert.Equal(t, []string{"five", "ten"}, fired)
	assert.Equal(t, 1, c.PendingTimers())

	assert.True(t, late.Stop())
	assert.False(t, late.Stop(), "second stop reports false")
	c.Advance(time.Minute)
	assert.Equal(t, []string{"five", "ten"}, fired)
	assert.Equal(t, 0, c.PendingTimers())
}

func TestFakeClockRescheduleInsideCallback(t *testing.T) {
	t.Parallel()

	c := NewFake()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(10*time.Second, tick)
	}
	c.AfterFunc(10*time.Second, tick)

	c.Advance(35 * time.Second)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, 1, c.PendingTimers())
}

func TestFakeClockSleep(t *testing.T) {
	t.Parallel()

	c := NewFake()
	start := c.Now()

	require.NoError(t, c.Sleep(context.Background(), 2*time.Second))
	require.NoError(t, c.Sleep(context.Background(), 4*time.Second))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, c.Sleeps())
	assert.Equal(t, 6*time.Second, c.Now().Sub(start))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Sleep(ctx, time.Second), context.Canceled)
	assert.Len(t, c.Sleeps(), 2)
}

func TestRealSleepHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
