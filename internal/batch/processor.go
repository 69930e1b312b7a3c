package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plazahq/plaza/api/internal/metrics"
	"github.com/plazahq/plaza/api/internal/store"
)

var (
	// ErrJobNotFound indicates no live job and no persisted snapshot exists
	// for the requested id.
	ErrJobNotFound = errors.New("batch job not found")

	// ErrJobAlreadyRunning indicates a job with the same id is still live.
	ErrJobAlreadyRunning = errors.New("batch job already running")

	// ErrNilProcessFunc indicates a job config without a process function.
	ErrNilProcessFunc = errors.New("process function is required")
)

// SnapshotStore persists whole-record progress snapshots keyed by job id,
// for out-of-process status queries. Writes are last-writer-wins; Get
// reports a missing key by wrapping store.ErrNotFound.
type SnapshotStore interface {
	SetWithExpiry(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

const (
	snapshotKeyPrefix  = "batch:job:"
	defaultSnapshotTTL = 24 * time.Hour
	defaultRetryBase   = time.Second
)

// ProcessorConfig holds construction-time dependencies for a Processor.
type ProcessorConfig struct {
	Logger  *slog.Logger
	Store   SnapshotStore
	Metrics *metrics.Collector

	// SnapshotTTL is the retention window for persisted snapshots
	// (default 24h).
	SnapshotTTL time.Duration
	// RetryBaseDelay is the first inter-attempt delay; each further
	// attempt doubles it (default 1s).
	RetryBaseDelay time.Duration
}

// Processor drives batch jobs to completion: it pages items out of a
// data source, processes each page under a bounded concurrency budget
// with per-item retry, and reports progress to callbacks and to the
// snapshot store. One Processor instance serves the whole process; all
// live-job state is owned here rather than in package-level registries.
type Processor struct {
	log       *slog.Logger
	store     SnapshotStore
	metrics   *metrics.Collector
	ttl       time.Duration
	retryBase time.Duration

	mu   sync.RWMutex
	jobs map[string]*jobState
}

// jobState is the live, mutable record for one run. All field access
// goes through its mutex; callbacks and queries only ever see copies.
type jobState struct {
	mu   sync.Mutex
	inst JobInstance
}

func (s *jobState) snapshot() JobInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst
}

// addResults folds one page's outcome into the counters. It reports
// false when the job is no longer running, in which case bookkeeping
// stops (a cancelled job's in-flight pages finish silently).
func (s *jobState) addResults(processed, failed int) (JobInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst.Status != StatusRunning {
		return s.inst, false
	}
	s.inst.ProcessedItems += processed
	s.inst.FailedItems += failed
	s.inst.Progress = s.inst.computeProgress()
	return s.inst, true
}

// finish performs the terminal transition. It reports false when the
// job already left the running state (cancellation won the race).
func (s *jobState) finish(status Status, errMsg string) (JobInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst.Status != StatusRunning {
		return s.inst, false
	}
	now := time.Now()
	s.inst.Status = status
	s.inst.EndTime = &now
	s.inst.DurationMS = now.Sub(s.inst.StartTime).Milliseconds()
	s.inst.Error = errMsg
	if status == StatusCompleted {
		s.inst.Progress = 100
	}
	return s.inst, true
}

// NewProcessor creates a batch processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	ttl := cfg.SnapshotTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	retryBase := cfg.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}
	return &Processor{
		log:       log,
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		ttl:       ttl,
		retryBase: retryBase,
		jobs:      make(map[string]*jobState),
	}
}

// Execute runs one batch job to a terminal state and returns its final
// snapshot. Item-level failures are absorbed into the failed counter; a
// page fetch failure fails the whole job and is returned to the caller
// after the error callback fires.
func (p *Processor) Execute(ctx context.Context, cfg JobConfig) (*JobInstance, error) {
	cfg = cfg.withDefaults()
	if cfg.Process == nil {
		return nil, ErrNilProcessFunc
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: nil source", ErrUnsupportedSource)
	}
	if cfg.JobID == "" {
		cfg.JobID = uuid.NewString()
	}

	st := &jobState{inst: JobInstance{
		JobID:     cfg.JobID,
		JobType:   cfg.JobType,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}}

	p.mu.Lock()
	if _, exists := p.jobs[cfg.JobID]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, cfg.JobID)
	}
	p.jobs[cfg.JobID] = st
	p.mu.Unlock()

	p.metrics.JobStarted()
	p.log.Info("batch job started",
		slog.String("job_id", cfg.JobID),
		slog.String("job_type", cfg.JobType),
	)

	total, err := cfg.Source.TotalCount(ctx)
	if err != nil {
		return p.fail(ctx, st, cfg, fmt.Errorf("fetching total count: %w", err))
	}

	st.mu.Lock()
	st.inst.TotalItems = total
	st.mu.Unlock()

	if total == 0 {
		return p.complete(ctx, st, cfg)
	}

	batches := (total + cfg.BatchSize - 1) / cfg.BatchSize
	sem := NewSemaphore(cfg.MaxConcurrency)

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	record := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	for i := 0; i < batches; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			permit, err := sem.Acquire(ctx)
			if err != nil {
				record(err)
				return
			}
			defer permit.Release()
			if err := p.processBatch(ctx, st, cfg, index); err != nil {
				record(err)
			}
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return p.fail(ctx, st, cfg, firstErr)
	}
	return p.complete(ctx, st, cfg)
}

// processBatch fetches and processes one page. Items inside the page run
// concurrently with each other; a single item exhausting its retries is
// recorded as one failed item and the rest of the page proceeds. Only a
// page fetch failure propagates up.
func (p *Processor) processBatch(ctx context.Context, st *jobState, cfg JobConfig, index int) error {
	if st.snapshot().Status != StatusRunning {
		// Cancelled mid-run; skip pages that have not started yet.
		return nil
	}

	offset := index * cfg.BatchSize
	items, err := cfg.Source.Page(ctx, offset, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetching page at offset %d: %w", offset, err)
	}
	if len(items) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		cntMu  sync.Mutex
		okCnt  int
		badCnt int
	)
	for _, item := range items {
		wg.Add(1)
		go func(item interface{}) {
			defer wg.Done()
			err := p.processItemWithRetry(ctx, cfg, item)
			cntMu.Lock()
			if err != nil {
				badCnt++
			} else {
				okCnt++
			}
			cntMu.Unlock()
		}(item)
	}
	wg.Wait()

	inst, running := st.addResults(okCnt, badCnt)
	if !running {
		return nil
	}
	p.metrics.ItemsProcessed(okCnt)
	p.metrics.ItemsFailed(badCnt)
	p.persist(ctx, inst)
	if cfg.OnProgress != nil {
		cfg.OnProgress(inst)
	}
	return nil
}

// processItemWithRetry attempts one item up to cfg.RetryAttempts times,
// doubling the delay between attempts (1s, 2s, 4s, ...). The last error
// is surfaced once retries are exhausted.
func (p *Processor) processItemWithRetry(ctx context.Context, cfg JobConfig, item interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		lastErr = p.processItem(ctx, cfg, item)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.RetryAttempts {
			break
		}
		delay := p.retryBase << (attempt - 1)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}

// processItem invokes the caller's process function, converting a panic
// into an error so one bad item cannot take the whole job down.
func (p *Processor) processItem(ctx context.Context, cfg JobConfig, item interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return cfg.Process(ctx, item)
}

// JobStatus returns the live instance for the id, falling back to the
// last persisted snapshot, then to ErrJobNotFound.
func (p *Processor) JobStatus(ctx context.Context, jobID string) (*JobInstance, error) {
	p.mu.RLock()
	st, ok := p.jobs[jobID]
	p.mu.RUnlock()
	if ok {
		inst := st.snapshot()
		return &inst, nil
	}

	if p.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	raw, err := p.store.Get(ctx, snapshotKeyPrefix+jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("reading job snapshot: %w", err)
	}
	var inst JobInstance
	if err := json.Unmarshal([]byte(raw), &inst); err != nil {
		return nil, fmt.Errorf("decoding job snapshot: %w", err)
	}
	return &inst, nil
}

// RunningJobs returns point-in-time copies of every live job.
func (p *Processor) RunningJobs() []JobInstance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]JobInstance, 0, len(p.jobs))
	for _, st := range p.jobs {
		out = append(out, st.snapshot())
	}
	return out
}

// Cancel transitions a live job to cancelled and removes it from the
// running set. In-flight pages are not pre-empted; they finish without
// further bookkeeping. Cancelling an unknown id returns ErrJobNotFound.
func (p *Processor) Cancel(ctx context.Context, jobID string) error {
	p.mu.Lock()
	st, ok := p.jobs[jobID]
	if ok {
		delete(p.jobs, jobID)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	inst, transitioned := st.finish(StatusCancelled, "")
	if !transitioned {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	p.persist(ctx, inst)
	p.metrics.JobFinished(string(StatusCancelled), time.Duration(inst.DurationMS)*time.Millisecond)
	p.log.Info("batch job cancelled", slog.String("job_id", jobID))
	return nil
}

// complete marks the job completed, persists the final snapshot, fires
// the completion callback, and removes the job from the running set.
func (p *Processor) complete(ctx context.Context, st *jobState, cfg JobConfig) (*JobInstance, error) {
	inst, transitioned := st.finish(StatusCompleted, "")
	p.remove(cfg.JobID)
	if !transitioned {
		// Cancelled while the last pages drained; the cancel path already
		// persisted the terminal snapshot.
		return &inst, nil
	}
	p.persist(ctx, inst)
	p.metrics.JobFinished(string(StatusCompleted), time.Duration(inst.DurationMS)*time.Millisecond)
	p.log.Info("batch job completed",
		slog.String("job_id", inst.JobID),
		slog.Int("processed", inst.ProcessedItems),
		slog.Int("failed", inst.FailedItems),
		slog.Int64("duration_ms", inst.DurationMS),
	)
	if cfg.OnComplete != nil {
		cfg.OnComplete(inst)
	}
	return &inst, nil
}

// fail marks the job failed, persists, fires the error callback, and
// re-raises the error to the caller.
func (p *Processor) fail(ctx context.Context, st *jobState, cfg JobConfig, cause error) (*JobInstance, error) {
	inst, transitioned := st.finish(StatusFailed, cause.Error())
	p.remove(cfg.JobID)
	if !transitioned {
		return &inst, cause
	}
	p.persist(ctx, inst)
	p.metrics.JobFinished(string(StatusFailed), time.Duration(inst.DurationMS)*time.Millisecond)
	p.log.Error("batch job failed",
		slog.String("job_id", inst.JobID),
		slog.String("error", cause.Error()),
	)
	if cfg.OnError != nil {
		cfg.OnError(inst, cause)
	}
	return &inst, cause
}

func (p *Processor) remove(jobID string) {
	p.mu.Lock()
	delete(p.jobs, jobID)
	p.mu.Unlock()
}

// persist writes a whole-record snapshot overwrite. Snapshot persistence
// is best-effort: a store outage degrades external visibility, not the
// job itself.
func (p *Processor) persist(ctx context.Context, inst JobInstance) {
	if p.store == nil {
		return
	}
	if err := p.store.SetWithExpiry(ctx, snapshotKeyPrefix+inst.JobID, inst, p.ttl); err != nil {
		p.log.Warn("failed to persist job snapshot",
			slog.String("job_id", inst.JobID),
			slog.String("error", err.Error()),
		)
	}
}
