package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avtoolkit/clipforge/internal/ffmpeg"
)

type JobStatus int

const (
	Waiting JobStatus = iota
	Working
	Complete
	Troubled
	Cancelled
)

func (status JobStatus) String() string {
	switch status {
	case Waiting:
		return "WAITING"
	case Working:
		return "WORKING"
	case Complete:
		return "COMPLETE"
	case Troubled:
		return "TROUBLED"
	case Cancelled:
		return "CANCELLED"
	}

	return fmt.Sprintf("UNKNOWN[%d]", status)
}

// Job is one video file queued for processing. A job either inserts its
// paired image (a same-stem .jpg/.png next to the video) or applies the
// directory's edit plan.
type Job struct {
	ID           uuid.UUID
	SourcePath   string
	ImagePath    string
	Status       JobStatus
	OutputPath   string
	QueuedAt     time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
	LastProgress *ffmpeg.Progress
	Trouble      error
}

func newJob(sourcePath string, imagePath string) *Job {
	return &Job{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		ImagePath:  imagePath,
		Status:     Waiting,
		QueuedAt:   time.Now(),
	}
}

func (job *Job) String() string {
	return fmt.Sprintf("Job{ID=%s source=%s status=%s}", job.ID, job.SourcePath, job.Status)
}

// Snapshot is an immutable copy of a job's state, safe to hand to event
// handlers running on other goroutines.
type Snapshot struct {
	ID         uuid.UUID
	SourcePath string
	Status     JobStatus
	OutputPath string
	Progress   *ffmpeg.Progress
	Error      string
}

func (job *Job) snapshot() Snapshot {
	snap := Snapshot{
		ID:         job.ID,
		SourcePath: job.SourcePath,
		Status:     job.Status,
		OutputPath: job.OutputPath,
		Progress:   job.LastProgress,
	}
	if job.Trouble != nil {
		snap.Error = job.Trouble.Error()
	}

	return snap
}
