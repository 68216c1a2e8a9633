package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// Report is the JSON document written next to the processed footage when
// report output is enabled.
type Report struct {
	JobID       string    `json:"job_id"`
	Source      string    `json:"source"`
	Output      string    `json:"output,omitempty"`
	PairedImage string    `json:"paired_image,omitempty"`
	Status      string    `json:"status"`
	QueuedAt    time.Time `json:"queued_at"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Error       string    `json:"error,omitempty"`
}

// writeReport persists the job outcome atomically, so a crash mid-write
// never leaves a truncated report behind.
func writeReport(dir string, job *Job) error {
	if err := os.MkdirAll(dir, os.ModeDir|os.ModePerm); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	report := Report{
		JobID:       job.ID.String(),
		Source:      job.SourcePath,
		Output:      job.OutputPath,
		PairedImage: job.ImagePath,
		Status:      job.Status.String(),
		QueuedAt:    job.QueuedAt,
		StartedAt:   job.StartedAt,
		FinishedAt:  job.FinishedAt,
	}
	if job.Trouble != nil {
		report.Error = job.Trouble.Error()
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.json", job.ID))
	return renameio.WriteFile(path, raw, 0o644)
}
