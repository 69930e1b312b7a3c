package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/plazahq/plaza/api/internal/batch"
)

var (
	// ErrUnknownJobType indicates a dispatch for a job type that was never
	// registered.
	ErrUnknownJobType = errors.New("unknown batch job type")

	// ErrDuplicateJobType indicates two registrations under the same type.
	ErrDuplicateJobType = errors.New("batch job type already registered")
)

// JobType identifies one registered batch-job implementation.
type JobType string

const (
	JobTypePointsExpiry JobType = "points_expiry"
	JobTypeDailyDigest  JobType = "daily_digest"
)

// RunOptions carries per-invocation overrides for a batch job. Zero
// values defer to the job's (and the engine's) defaults.
type RunOptions struct {
	JobID          string
	BatchSize      int
	MaxConcurrency int
	RetryAttempts  int
}

// BatchJob is one named bulk-work implementation, runnable on demand or
// from a recurring trigger.
type BatchJob interface {
	Type() JobType
	Run(ctx context.Context, opts RunOptions) (*batch.JobInstance, error)
}

// Registry maps job types to their implementations. It replaces
// string-keyed runtime lookups with an explicit table populated at
// startup, so an unknown type fails with a typed error.
type Registry struct {
	mu   sync.RWMutex
	jobs map[JobType]BatchJob
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[JobType]BatchJob)}
}

// Register adds a batch job implementation.
func (r *Registry) Register(job BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Type()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJobType, job.Type())
	}
	r.jobs[job.Type()] = job
	return nil
}

// Resolve returns the implementation for t.
func (r *Registry) Resolve(t JobType) (BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, t)
	}
	return job, nil
}

// Types lists the registered job types in stable order.
func (r *Registry) Types() []JobType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]JobType, 0, len(r.jobs))
	for t := range r.jobs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
