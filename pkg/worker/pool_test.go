package worker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/avtoolkit/clipforge/pkg/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func Test_PoolLifecycle(t *testing.T) {
	pool := worker.NewWorkerPool()

	var mu sync.Mutex
	wakeups := 0

	task := func(w worker.Worker) error {
		for {
			if !w.Sleep() {
				return nil
			}
			mu.Lock()
			wakeups++
			mu.Unlock()
		}
	}

	require.NoError(t, pool.PushWorker(worker.NewWorker("test-worker", task)))
	require.NoError(t, pool.Start())

	require.Eventually(t, func() bool {
		return pool.WakeupWorkers() == nil && func() bool {
			mu.Lock()
			defer mu.Unlock()
			return wakeups >= 1
		}()
	}, time.Second, 5*time.Millisecond)

	pool.Close()

	mu.Lock()
	assert.GreaterOrEqual(t, wakeups, 1)
	mu.Unlock()
}

func Test_PoolStateGuards(t *testing.T) {
	pool := worker.NewWorkerPool()

	assert.Error(t, pool.WakeupWorkers(), "waking a pool that never started should fail")
	require.NoError(t, pool.Start())
	assert.Error(t, pool.Start(), "starting twice should fail")
	assert.Error(t, pool.PushWorker(worker.NewWorker("late", func(worker.Worker) error { return nil })),
		"workers cannot join a running pool")

	pool.Close()
}

func Test_WorkerSleepReportsClose(t *testing.T) {
	done := make(chan bool, 1)
	w := worker.NewWorker("sleeper", func(w worker.Worker) error {
		done <- w.Sleep()
		return nil
	})

	go w.Start()

	// Give the worker time to reach Sleep before closing it.
	require.Eventually(t, func() bool {
		return w.Status() == worker.Sleeping
	}, time.Second, 5*time.Millisecond)

	w.Close()
	assert.False(t, <-done, "Sleep should report the worker was closed")
}

func Test_WorkerStatusReadableDuringTransitions(t *testing.T) {
	pool := worker.NewWorkerPool()
	w := worker.NewWorker("busy", func(w worker.Worker) error {
		for w.Sleep() {
		}
		return nil
	})

	require.NoError(t, pool.PushWorker(w))
	require.NoError(t, pool.Start())

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
					w.Status()
				}
			}
		}()
	}

	// Keep the worker cycling between sleeping and working while the
	// readers poll its status.
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.WakeupWorkers())
	}

	close(stop)
	readers.Wait()
	pool.Close()

	assert.Equal(t, worker.Finished, w.Status())
}
