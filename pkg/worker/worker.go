package worker

import (
	"sync/atomic"

	"github.com/avtoolkit/clipforge/pkg/logger"
)

var log = logger.Get("Worker")

type WakeupChan chan int

type Status int32

const (
	Sleeping Status = iota
	Working
	Finished
)

// Task is the unit of work executed by a worker. Implementations are
// expected to loop internally, calling Worker.Sleep when they run out of
// work, and to return once Sleep reports the worker has been closed.
type Task func(Worker) error

type Worker interface {
	Start()
	Status() Status
	WakeupChan() WakeupChan
	Label() string
	Sleep() bool
	Close()
}

type taskWorker struct {
	label      string
	task       Task
	wakeupChan WakeupChan

	// status is read by the pool from other goroutines when deciding
	// which workers to wake, so access must be atomic.
	status atomic.Int32
}

func NewWorker(label string, task Task) *taskWorker {
	worker := &taskWorker{
		label:      label,
		task:       task,
		wakeupChan: make(WakeupChan),
	}
	worker.setStatus(Sleeping)

	return worker
}

func (worker *taskWorker) Start() {
	log.Emit(logger.NEW, "Starting worker %s\n", worker.label)
	worker.setStatus(Working)
	if err := worker.task(worker); err != nil {
		log.Emit(logger.ERROR, "Worker %s has reported an error(%T): %v\n", worker.label, err, err.Error())
	}

	worker.setStatus(Finished)
	log.Emit(logger.STOP, "Worker %s has stopped\n", worker.label)
}

func (worker *taskWorker) Status() Status {
	return Status(worker.status.Load())
}

func (worker *taskWorker) setStatus(status Status) {
	worker.status.Store(int32(status))
}

func (worker *taskWorker) WakeupChan() WakeupChan {
	return worker.wakeupChan
}

// Close closes the worker by closing its wakeup channel. Note that this
// does not interrupt a task that is currently running.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

func (worker *taskWorker) Label() string {
	return worker.label
}

// Sleep blocks until the wakeup channel is signalled from another
// goroutine. Returns false if the channel was closed, indicating
// the worker should quit.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.setStatus(Sleeping)

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.setStatus(Working)
	} else {
		worker.setStatus(Finished)
	}

	return isAlive
}
