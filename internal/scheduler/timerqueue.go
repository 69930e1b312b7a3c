package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrPastExecuteTime indicates a one-time job was scheduled for a time
// that is not strictly in the future. No timer is armed.
var ErrPastExecuteTime = errors.New("execute time is not in the future")

// TaskFunc is the work fired by a one-time job. Errors (and panics) are
// logged and swallowed at the firing point; a failing task must never
// take the scheduler down.
type TaskFunc func(ctx context.Context) error

// OneTimeJob is the observable registry record for a pending timer.
type OneTimeJob struct {
	JobID       string    `json:"job_id"`
	ExecuteTime time.Time `json:"execute_time"`
	CreatedAt   time.Time `json:"created_at"`
}

// timerEntry is one armed timer. index is maintained by the heap.
type timerEntry struct {
	OneTimeJob
	task  TaskFunc
	index int
}

// timerHeap orders entries by execute time, earliest first.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].ExecuteTime.Before(h[j].ExecuteTime) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

const defaultTaskTimeout = 5 * time.Minute

// TimerQueue holds every pending one-time job in a single min-heap
// drained by one goroutine, instead of arming one OS timer per job.
// Each entry is individually cancellable through its job id.
type TimerQueue struct {
	log         *slog.Logger
	taskTimeout time.Duration

	mu      sync.Mutex
	heap    timerHeap
	entries map[string]*timerEntry // latest entry per job id
	wake    chan struct{}

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewTimerQueue creates a stopped timer queue.
func NewTimerQueue(log *slog.Logger) *TimerQueue {
	if log == nil {
		log = slog.Default()
	}
	return &TimerQueue{
		log:         log,
		taskTimeout: defaultTaskTimeout,
		entries:     make(map[string]*timerEntry),
		wake:        make(chan struct{}, 1),
	}
}

// Start begins draining the queue. A second call is a no-op.
func (q *TimerQueue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run()
}

// Stop halts the drain loop. Pending entries stay registered; tasks
// already firing run to completion. Safe to call on a queue that never
// started.
func (q *TimerQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	stopCh := q.stopCh
	q.mu.Unlock()

	close(stopCh)
	q.wg.Wait()
}

// Schedule arms a one-time job firing at executeTime. Times not strictly
// in the future are rejected with ErrPastExecuteTime. Scheduling again
// under the same job id does not deduplicate: the previous timer still
// fires, it merely loses its registry entry. Callers own idempotent id
// choice (see Has).
func (q *TimerQueue) Schedule(jobID string, executeTime time.Time, task TaskFunc) error {
	if !executeTime.After(time.Now()) {
		return fmt.Errorf("%w: %s at %s", ErrPastExecuteTime, jobID, executeTime.Format(time.RFC3339))
	}
	entry := &timerEntry{
		OneTimeJob: OneTimeJob{
			JobID:       jobID,
			ExecuteTime: executeTime,
			CreatedAt:   time.Now(),
		},
		task: task,
	}

	q.mu.Lock()
	heap.Push(&q.heap, entry)
	q.entries[jobID] = entry
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Cancel disarms the pending entry for jobID. It reports whether an
// entry existed.
func (q *TimerQueue) Cancel(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[jobID]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, entry.index)
	delete(q.entries, jobID)
	return true
}

// Clear disarms every pending entry.
func (q *TimerQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.heap = nil
	q.entries = make(map[string]*timerEntry)
}

// Has reports whether a pending entry exists for jobID.
func (q *TimerQueue) Has(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[jobID]
	return ok
}

// Jobs returns the pending registry contents, earliest first.
func (q *TimerQueue) Jobs() []OneTimeJob {
	q.mu.Lock()
	out := make([]OneTimeJob, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.OneTimeJob)
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ExecuteTime.Before(out[j].ExecuteTime)
	})
	return out
}

// run is the drain loop: sleep until the earliest entry is due, fire
// everything due, repeat. A wake signal re-evaluates the head after a
// new entry lands.
func (q *TimerQueue) run() {
	defer q.wg.Done()

	q.mu.Lock()
	stopCh := q.stopCh
	q.mu.Unlock()

	for {
		var timerC <-chan time.Time
		var timer *time.Timer

		q.mu.Lock()
		if len(q.heap) > 0 {
			delay := time.Until(q.heap[0].ExecuteTime)
			if delay < 0 {
				delay = 0
			}
			timer = time.NewTimer(delay)
			timerC = timer.C
		}
		q.mu.Unlock()

		select {
		case <-stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-q.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
			q.fireDue()
		}
	}
}

// fireDue pops every entry whose time has come and fires each in its own
// goroutine, removing its registry record.
func (q *TimerQueue) fireDue() {
	now := time.Now()

	q.mu.Lock()
	var due []*timerEntry
	for len(q.heap) > 0 && !q.heap[0].ExecuteTime.After(now) {
		entry := heap.Pop(&q.heap).(*timerEntry)
		if q.entries[entry.JobID] == entry {
			delete(q.entries, entry.JobID)
		}
		due = append(due, entry)
	}
	q.mu.Unlock()

	for _, entry := range due {
		go q.fire(entry)
	}
}

// fire runs one task, containing any error or panic.
func (q *TimerQueue) fire(entry *timerEntry) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("one-time job panicked",
				slog.String("job_id", entry.JobID),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.taskTimeout)
	defer cancel()

	q.log.Info("firing one-time job", slog.String("job_id", entry.JobID))
	if err := entry.task(ctx); err != nil {
		q.log.Error("one-time job failed",
			slog.String("job_id", entry.JobID),
			slog.String("error", err.Error()),
		)
	}
}
