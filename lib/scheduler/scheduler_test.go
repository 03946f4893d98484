package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"booksync-backend/lib/scheduler"

	"github.com/stretchr/testify/require"
)

func TestRunsImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int32
	sched := scheduler.New()
	sched.Register("counter", time.Millisecond*20, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second*2, time.Millisecond*5)

	cancel()
	sched.Wait()
}

func TestSkipsOverlappingRuns(t *testing.T) {
	var active atomic.Int32
	var overlapped atomic.Bool

	sched := scheduler.New()
	sched.Register("slow", time.Millisecond*10, func(ctx context.Context) error {
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		defer active.Add(-1)
		time.Sleep(time.Millisecond * 50)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(time.Millisecond * 200)
	cancel()
	sched.Wait()

	require.False(t, overlapped.Load())
}

func TestStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	sched := scheduler.New()
	sched.Register("counter", time.Millisecond*10, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, time.Second, time.Millisecond*5)

	cancel()
	sched.Wait()
	settled := runs.Load()
	time.Sleep(time.Millisecond * 50)
	require.Equal(t, settled, runs.Load())
}
