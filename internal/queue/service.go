// Package queue implements the batch processing service: it watches a
// directory for video files and runs each through the editor, applying
// either the file's paired image insertion or the directory's edit plan.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rjeczalik/notify"

	"github.com/avtoolkit/clipforge/internal/editor"
	"github.com/avtoolkit/clipforge/internal/event"
	"github.com/avtoolkit/clipforge/internal/ffmpeg"
	"github.com/avtoolkit/clipforge/internal/plan"
	"github.com/avtoolkit/clipforge/pkg/logger"
	"github.com/avtoolkit/clipforge/pkg/worker"
)

var (
	log = logger.Get("QueueServ")

	videoExtensions = map[string]struct{}{
		".mov": {}, ".mp4": {}, ".mkv": {}, ".avi": {},
	}
	imageExtensions = []string{".jpg", ".png"}
)

// Videos paired with an image get the image spliced in at the start of
// the timeline for this long.
const pairedImageDuration = 800 * time.Millisecond

// Service watches a directory and processes the videos that appear in it.
// Jobs are executed by a fixed worker pool; total ffmpeg thread usage is
// capped by the configured budget.
type Service struct {
	*sync.Mutex

	config       Config
	editorConfig editor.Config
	editPlan     *plan.Plan
	scanner      plan.FaceScanner
	eventBus     event.EventCoordinator

	jobs            []*Job
	seen            map[string]struct{}
	consumedThreads int
	pool            *worker.WorkerPool

	runCtx context.Context
}

// New creates the batch service. editPlan and scanner may be nil: without a
// plan, only image-paired videos are processed; without a scanner, plans
// containing an autorotate step will fail their jobs.
func New(config Config, editorConfig editor.Config, editPlan *plan.Plan, scanner plan.FaceScanner, eventBus event.EventCoordinator) (*Service, error) {
	if info, err := os.Stat(config.WatchPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("watch path '%s' is not a directory", config.WatchPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.WatchPath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("watch path '%s' could not be created: %w", config.WatchPath, err)
		}
	} else {
		return nil, fmt.Errorf("watch path '%s' could not be accessed: %w", config.WatchPath, err)
	}

	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}

	service := &Service{
		Mutex:        &sync.Mutex{},
		config:       config,
		editorConfig: editorConfig,
		editPlan:     editPlan,
		scanner:      scanner,
		eventBus:     eventBus,
		jobs:         make([]*Job, 0),
		seen:         make(map[string]struct{}),
		pool:         worker.NewWorkerPool(),
	}

	for i := 0; i < config.Parallelism; i++ {
		label := fmt.Sprintf("queue-worker-%d", i)
		service.pool.PushWorker(worker.NewWorker(label, service.workerLoop))
	}

	return service, nil
}

// Run is the main entry point of this service. It listens to file system
// change events for the watch directory and regularly polls it regardless,
// blocking until the provided context is cancelled. Cancellation waits for
// in-flight jobs to stop.
func (service *Service) Run(ctx context.Context) error {
	service.runCtx = ctx

	fsEvents := make(chan notify.EventInfo, 128)
	if err := notify.Watch(service.config.WatchPath, fsEvents, notify.All); err != nil {
		return fmt.Errorf("failed to watch '%s': %w", service.config.WatchPath, err)
	}
	defer notify.Stop(fsEvents)

	forceSync := time.NewTicker(service.config.ForceSyncDuration())
	defer forceSync.Stop()

	if err := service.pool.Start(); err != nil {
		return err
	}
	defer service.pool.Close()

	service.DiscoverNewFiles()

	for {
		select {
		case <-fsEvents:
			service.DiscoverNewFiles()
		case <-forceSync.C:
			service.DiscoverNewFiles()
		case <-ctx.Done():
			log.Emit(logger.STOP, "Shutting down (context cancelled), waiting for running jobs\n")
			return nil
		}
	}
}

// DiscoverNewFiles scans the watch directory for videos that have not been
// queued yet. Files modified too recently are skipped (not marked as seen)
// so they are retried on the next sync.
func (service *Service) DiscoverNewFiles() {
	entries, err := os.ReadDir(service.config.WatchPath)
	if err != nil {
		log.Emit(logger.ERROR, "Failed to scan watch directory: %v\n", err)
		return
	}

	service.Lock()
	queued := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(service.config.WatchPath, entry.Name())
		if _, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			continue
		}
		if _, ok := service.seen[path]; ok {
			continue
		}

		fileInfo, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(fileInfo.ModTime()) < service.config.RequiredModTimeAgeDuration() {
			log.Emit(logger.VERBOSE, "Skipping %s, modified too recently\n", path)
			continue
		}

		service.seen[path] = struct{}{}
		job := newJob(path, pairedImagePath(path))
		service.jobs = append(service.jobs, job)
		queued++

		log.Emit(logger.NEW, "Queued %s\n", job)
		service.eventBus.Dispatch(event.JobQueuedEvent, job.snapshot())
	}
	service.Unlock()

	if queued > 0 {
		service.pool.WakeupWorkers()
	}
}

// AllJobs returns snapshots of every job known to the service.
func (service *Service) AllJobs() []Snapshot {
	service.Lock()
	defer service.Unlock()

	snapshots := make([]Snapshot, len(service.jobs))
	for i, job := range service.jobs {
		snapshots[i] = job.snapshot()
	}

	return snapshots
}

// Job returns a snapshot of the job with the given ID, if known.
func (service *Service) Job(id uuid.UUID) (Snapshot, bool) {
	service.Lock()
	defer service.Unlock()

	for _, job := range service.jobs {
		if job.ID == id {
			return job.snapshot(), true
		}
	}

	return Snapshot{}, false
}

// workerLoop is the task run by each pool worker: claim the next waiting
// job that fits in the thread budget, process it, repeat. The worker
// sleeps when no job is claimable and exits when its pool is closed.
func (service *Service) workerLoop(w worker.Worker) error {
	for {
		job := service.claimNextJob()
		if job == nil {
			if !w.Sleep() {
				return nil
			}
			continue
		}

		service.processJob(service.runCtx, job)
	}
}

func (service *Service) claimNextJob() *Job {
	service.Lock()
	defer service.Unlock()

	for _, job := range service.jobs {
		if job.Status != Waiting {
			continue
		}
		if service.consumedThreads+service.editorConfig.WriteThreads > service.config.ThreadBudget {
			log.Emit(logger.VERBOSE, "Thread budget exhausted (%d/%d), deferring %s\n",
				service.consumedThreads, service.config.ThreadBudget, job)
			return nil
		}

		job.Status = Working
		job.StartedAt = time.Now()
		service.consumedThreads += service.editorConfig.WriteThreads
		return job
	}

	return nil
}

func (service *Service) processJob(ctx context.Context, job *Job) {
	log.Emit(logger.INFO, "Processing %s\n", job)
	service.eventBus.Dispatch(event.JobUpdateEvent, job.snapshot())

	err := service.runJob(ctx, job)

	service.Lock()
	switch {
	case err == nil:
		job.Status = Complete
	case errors.Is(err, context.Canceled):
		job.Status = Cancelled
	default:
		job.Status = Troubled
		job.Trouble = err
	}
	job.FinishedAt = time.Now()
	service.consumedThreads -= service.editorConfig.WriteThreads
	snapshot := job.snapshot()
	service.Unlock()

	if err != nil {
		log.Emit(logger.ERROR, "Job %s failed: %v\n", job.ID, err)
	} else {
		log.Emit(logger.SUCCESS, "Job %s complete: %s\n", job.ID, job.OutputPath)
	}

	service.eventBus.Dispatch(event.JobCompleteEvent, snapshot)
	if service.config.ReportDirPath != "" {
		if reportErr := writeReport(service.config.ReportDirPath, job); reportErr != nil {
			log.Emit(logger.WARNING, "Failed to write report for job %s: %v\n", job.ID, reportErr)
		}
	}

	// Finished jobs free thread budget, so someone may be able to work now.
	service.pool.WakeupWorkers()
}

func (service *Service) runJob(ctx context.Context, job *Job) error {
	ed := editor.New(service.editorConfig)
	ed.OnProgress = func(progress *ffmpeg.Progress) {
		service.Lock()
		job.LastProgress = progress
		snapshot := job.snapshot()
		service.Unlock()

		service.eventBus.Dispatch(event.JobProgressEvent, snapshot)
	}

	if err := ed.Load(ctx, job.SourcePath); err != nil {
		return err
	}

	switch {
	case job.ImagePath != "":
		if err := ed.InsertImage(job.ImagePath, editor.InsertOptions{Duration: pairedImageDuration}); err != nil {
			return err
		}
	case service.editPlan != nil:
		if err := service.editPlan.Apply(ctx, ed, service.scanner); err != nil {
			return err
		}
	default:
		return errors.New("no paired image and no edit plan configured")
	}

	output, err := ed.Export(ctx, "")
	if err != nil {
		return err
	}

	service.Lock()
	job.OutputPath = output
	service.Unlock()

	return nil
}

// pairedImagePath finds a same-stem image next to the video, if any.
func pairedImagePath(videoPath string) string {
	stem := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	for _, ext := range imageExtensions {
		candidate := stem + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	return ""
}
