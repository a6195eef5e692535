package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsAtStartupAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler("map", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, 10*time.Millisecond, nil)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
	assert.Equal(t, int(stopped), s.Runs())
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := NewScheduler("map", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, time.Hour, nil)

	done := make(chan bool)
	go func() { done <- s.RunNow(context.Background()) }()
	<-started

	assert.False(t, s.RunNow(context.Background()))
	close(release)
	assert.True(t, <-done)
	assert.Equal(t, 1, s.Runs())
}

func TestSchedulerCountsFailedRuns(t *testing.T) {
	s := NewScheduler("map", func(ctx context.Context) error {
		return errors.New("store unavailable")
	}, time.Hour, nil)

	assert.True(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, s.Runs())
}

func TestSchedulerStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s := NewScheduler("map", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, time.Hour, nil)

	s.Start(context.Background())
	<-started
	s.Stop()
	assert.True(t, cancelled.Load())
}
