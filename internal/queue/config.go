package queue

import "time"

// Config customises how the batch service detects and processes files.
type Config struct {
	// WatchPath is the directory monitored for new video files.
	WatchPath string `yaml:"path" env:"WATCH_PATH"`

	// PlanPath optionally points at the edit plan applied to every video
	// that has no paired image.
	PlanPath string `yaml:"plan" env:"WATCH_PLAN"`

	// ReportDirPath, when set, receives a JSON report per finished job.
	ReportDirPath string `yaml:"report_dir" env:"WATCH_REPORT_DIR"`

	// The service uses a directory watcher, but a 'force' sync runs on a
	// regular interval to protect against the watcher failing.
	ForceSyncSeconds int `yaml:"force_sync_seconds" env:"WATCH_FORCE_SYNC_SECONDS" env-default:"30"`

	// A newly detected file is likely an in-progress copy or download. As
	// we cannot know when it completes, we wait for its modtime to be at
	// least this far in the past before queueing it.
	RequiredModTimeAgeSeconds int `yaml:"min_modtime_age_seconds" env:"WATCH_MIN_MODTIME_AGE_SECONDS" env-default:"10"`

	// Parallelism is the number of workers processing jobs concurrently.
	Parallelism int `yaml:"parallelism" env:"WATCH_PARALLELISM" env-default:"2"`

	// ThreadBudget caps the total ffmpeg threads consumed by running jobs.
	ThreadBudget int `yaml:"thread_budget" env:"WATCH_THREAD_BUDGET" env-default:"8"`
}

func (config *Config) RequiredModTimeAgeDuration() time.Duration {
	return time.Duration(config.RequiredModTimeAgeSeconds) * time.Second
}

func (config *Config) ForceSyncDuration() time.Duration {
	return time.Duration(config.ForceSyncSeconds) * time.Second
}
