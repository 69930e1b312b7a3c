package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduledTask describes one registered recurring task.
type ScheduledTask struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
	PrevRun  time.Time `json:"prev_run,omitempty"`
}

// Recurring is the recurring-scheduler collaborator the manager
// delegates to.
type Recurring interface {
	Register(name, schedule string, task TaskFunc) error
	Tasks() []ScheduledTask
	StopTask(name string) bool
	Start()
	Stop()
}

const defaultRecurringTimeout = 10 * time.Minute

// CronScheduler implements Recurring on robfig/cron. Task errors and
// panics are contained at the trigger boundary.
type CronScheduler struct {
	log         *slog.Logger
	cron        *cron.Cron
	taskTimeout time.Duration

	mu      sync.Mutex
	entries map[string]cronEntry
	started bool
}

type cronEntry struct {
	id       cron.EntryID
	schedule string
}

// NewCronScheduler creates a stopped cron-backed scheduler using the
// standard five-field spec plus the @-descriptors.
func NewCronScheduler(log *slog.Logger) *CronScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &CronScheduler{
		log:         log,
		cron:        cron.New(),
		taskTimeout: defaultRecurringTimeout,
		entries:     make(map[string]cronEntry),
	}
}

// Register adds a named task on the given cron schedule. Registering an
// existing name fails.
func (s *CronScheduler) Register(name, schedule string, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("recurring task %q already registered", name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.runTask(name, task)
	})
	if err != nil {
		return fmt.Errorf("registering recurring task %q: %w", name, err)
	}
	s.entries[name] = cronEntry{id: id, schedule: schedule}
	return nil
}

// runTask executes one trigger, containing errors and panics.
func (s *CronScheduler) runTask(name string, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("recurring task panicked",
				slog.String("task", name),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	if err := task(ctx); err != nil {
		s.log.Error("recurring task failed",
			slog.String("task", name),
			slog.String("error", err.Error()),
		)
	}
}

// Tasks lists the registered recurring tasks.
func (s *CronScheduler) Tasks() []ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledTask, 0, len(s.entries))
	for name, e := range s.entries {
		entry := s.cron.Entry(e.id)
		out = append(out, ScheduledTask{
			Name:     name,
			Schedule: e.schedule,
			NextRun:  entry.Next,
			PrevRun:  entry.Prev,
		})
	}
	return out
}

// StopTask removes one recurring task by name, reporting whether it
// existed.
func (s *CronScheduler) StopTask(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return false
	}
	s.cron.Remove(e.id)
	delete(s.entries, name)
	return true
}

// Start begins firing triggers. A second call is a no-op.
func (s *CronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop halts triggering and waits for in-flight task functions. Safe on
// a scheduler that never started.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}
