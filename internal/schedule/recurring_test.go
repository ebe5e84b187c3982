package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecurring_RunsUntilStopped(t *testing.T) {
	t.Parallel()

	var r Recurring
	var calls atomic.Int32

	r.Start(context.Background(), 5*time.Millisecond, func(context.Context) {
		calls.Add(1)
	})
	assert.True(t, r.Running(), "Running() after Start")

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	r.Stop()
	assert.False(t, r.Running(), "Running() after Stop")

	time.Sleep(20 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no calls after Stop")
}

func TestRecurring_StartReplacesPreviousLoop(t *testing.T) {
	t.Parallel()

	var r Recurring
	var first, second atomic.Int32

	r.Start(context.Background(), 5*time.Millisecond, func(context.Context) { first.Add(1) })
	r.Start(context.Background(), 5*time.Millisecond, func(context.Context) { second.Add(1) })
	defer r.Stop()

	assert.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, time.Millisecond)

	snapshot := first.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, snapshot, first.Load(), "replaced loop must not keep running")
}

func TestRecurring_StopFromInsideCallback(t *testing.T) {
	t.Parallel()

	var r Recurring
	var calls atomic.Int32

	r.Start(context.Background(), 5*time.Millisecond, func(context.Context) {
		calls.Add(1)
		r.Stop()
	})

	assert.Eventually(t, func() bool { return !r.Running() }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecurring_ParentContextCancel(t *testing.T) {
	t.Parallel()

	var r Recurring
	ctx, cancel := context.WithCancel(context.Background())

	r.Start(ctx, time.Hour, func(context.Context) {})
	cancel()

	assert.Eventually(t, func() bool { return !r.Running() }, time.Second, time.Millisecond)
}

func TestRecurring_StopWhenIdle(t *testing.T) {
	t.Parallel()

	var r Recurring
	r.Stop()
	assert.False(t, r.Running())
}

func TestRecurring_NonPositiveIntervalStops(t *testing.T) {
	t.Parallel()

	var r Recurring
	r.Start(context.Background(), time.Hour, func(context.Context) {})
	assert.True(t, r.Running())

	r.Start(context.Background(), 0, func(context.Context) {})
	assert.False(t, r.Running())
}
