package worker

import (
	"errors"
	"sync"
)

// WorkerPool runs a fixed set of workers, one goroutine each. Workers are
// registered with PushWorker before Start and signalled through their
// wakeup channels; Close tears the pool down and waits for the goroutines
// to return.
type WorkerPool struct {
	mu      sync.Mutex
	workers []Worker
	wg      sync.WaitGroup
	started bool
}

func NewWorkerPool() *WorkerPool {
	return &WorkerPool{}
}

// PushWorker registers workers with the pool. Workers cannot join once
// the pool has started.
func (pool *WorkerPool) PushWorker(workers ...Worker) error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.started {
		return errors.New("cannot push worker to already started worker pool")
	}

	pool.workers = append(pool.workers, workers...)
	return nil
}

// Start spawns a goroutine per registered worker. It does not block.
func (pool *WorkerPool) Start() error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.started {
		return errors.New("cannot start an already started worker pool")
	}
	pool.started = true

	for _, w := range pool.workers {
		pool.wg.Add(1)
		go func(w Worker) {
			defer pool.wg.Done()
			w.Start()
		}(w)
	}

	return nil
}

// WakeupWorkers signals every sleeping worker in the pool. Workers that
// are already working are left alone, and a worker mid-transition simply
// misses a signal it did not need.
func (pool *WorkerPool) WakeupWorkers() error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if !pool.started {
		return errors.New("cannot wakeup workers on worker pool that is not started")
	}

	for _, w := range pool.workers {
		if w.Status() != Sleeping {
			continue
		}

		select {
		case w.WakeupChan() <- 1:
		default:
		}
	}

	return nil
}

// Close closes every worker's wakeup channel and waits for the worker
// goroutines to finish their current task and return.
func (pool *WorkerPool) Close() {
	pool.mu.Lock()
	if !pool.started {
		pool.mu.Unlock()
		return
	}

	for _, w := range pool.workers {
		w.Close()
	}
	pool.mu.Unlock()

	pool.wg.Wait()

	pool.mu.Lock()
	pool.started = false
	pool.mu.Unlock()
}
