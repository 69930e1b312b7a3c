package batch

import (
	"context"
	"math"
	"time"
)

// Status is the lifecycle state of one batch job run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Default knobs applied when a JobConfig leaves them unset.
const (
	DefaultBatchSize      = 1000
	DefaultMaxConcurrency = 5
	DefaultRetryAttempts  = 3
)

// ProcessFunc handles a single item. A returned error marks the attempt
// as failed and triggers the retry policy.
type ProcessFunc func(ctx context.Context, item interface{}) error

// JobConfig describes one batch job run. It is read-only for the
// duration of the run.
type JobConfig struct {
	JobID   string
	JobType string
	Source  DataSource

	// BatchSize is the page size fetched from the source (default 1000).
	BatchSize int
	// MaxConcurrency caps the number of pages processed at once (default 5).
	MaxConcurrency int
	// RetryAttempts is the total number of tries per item (default 3).
	RetryAttempts int

	Process ProcessFunc

	// Optional lifecycle callbacks. Each receives a point-in-time copy of
	// the job instance, safe to retain.
	OnProgress func(JobInstance)
	OnComplete func(JobInstance)
	OnError    func(JobInstance, error)
}

// withDefaults returns a copy of the config with unset knobs filled in.
func (c JobConfig) withDefaults() JobConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	return c
}

// JobInstance is the observable state of one batch job run. Values handed
// to callbacks and query calls are copies; the processor owns the live
// record.
type JobInstance struct {
	JobID          string     `json:"job_id"`
	JobType        string     `json:"job_type"`
	Status         Status     `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	DurationMS     int64      `json:"duration_ms"`
	TotalItems     int        `json:"total_items"`
	ProcessedItems int        `json:"processed_items"`
	FailedItems    int        `json:"failed_items"`
	Progress       int        `json:"progress"`
	Error          string     `json:"error,omitempty"`
}

// computeProgress derives the integer percentage for the current
// counters. While the job is still running the value is held below 100
// so that 100 is only ever reported together with a completed status.
func (j *JobInstance) computeProgress() int {
	if j.TotalItems <= 0 {
		return 0
	}
	p := int(math.Round(float64(j.ProcessedItems+j.FailedItems) / float64(j.TotalItems) * 100))
	if p > 100 {
		p = 100
	}
	if p >= 100 && j.Status == StatusRunning {
		p = 99
	}
	return p
}
