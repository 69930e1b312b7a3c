package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plazahq/plaza/api/internal/batch"
	"github.com/plazahq/plaza/api/internal/model"
)

// ErrJobNotFound indicates no batch job, one-time timer, or recurring
// task exists under the id.
var ErrJobNotFound = errors.New("no job found for id")

// How far ahead of the business entity each dynamic one-time job fires.
const (
	eventStartReminderLead = time.Hour
	couponExpiryLead       = 24 * time.Hour
)

// Default recurring schedules (standard five-field cron).
const (
	defaultPointsExpirySchedule = "0 * * * *"  // hourly
	defaultDailyDigestSchedule  = "0 8 * * *"  // 08:00 daily
	defaultScheduleRefreshSpec  = "@every 30m" // re-derive dynamic schedules
)

// BatchProcessor is the slice of the batch engine the manager drives.
type BatchProcessor interface {
	JobStatus(ctx context.Context, jobID string) (*batch.JobInstance, error)
	RunningJobs() []batch.JobInstance
	Cancel(ctx context.Context, jobID string) error
}

// EventsService supplies upcoming events and applies status transitions.
type EventsService interface {
	GetUpcomingEvents(ctx context.Context) ([]*model.Event, error)
	UpdateEventStatus(ctx context.Context, eventID, status string) error
}

// CouponsService supplies active coupons and their holders.
type CouponsService interface {
	GetActiveCoupons(ctx context.Context) ([]*model.Coupon, error)
	GetCouponHolders(ctx context.Context, couponID string) ([]*model.CouponHolder, error)
}

// NotificationsService delivers reminders produced by dynamic schedules.
type NotificationsService interface {
	SendEventNotification(ctx context.Context, n model.EventNotification) error
	SendNotification(ctx context.Context, n model.Notification) error
}

// ManagerConfig holds the manager's collaborators. Events, Coupons, and
// Notifications may be nil, in which case the corresponding dynamic
// schedules are skipped.
type ManagerConfig struct {
	Logger        *slog.Logger
	Processor     BatchProcessor
	Recurring     Recurring
	Timers        *TimerQueue
	Events        EventsService
	Coupons       CouponsService
	Notifications NotificationsService
	BatchJobs     []BatchJob

	// DefaultRunOptions applies to recurring batch runs. Zero fields
	// fall back to the batch engine defaults.
	DefaultRunOptions RunOptions

	PointsExpirySchedule string
	DailyDigestSchedule  string
	ScheduleRefreshSpec  string
}

// Manager is the orchestration layer above the batch engine: it owns the
// typed batch-job registry and the one-time timer registry, delegates
// recurring work to the cron collaborator, and derives one-time
// schedules from live business entities. One Manager instance is
// constructed at startup and handed to callers; there is no package
// state.
type Manager struct {
	log           *slog.Logger
	processor     BatchProcessor
	registry      *Registry
	timers        *TimerQueue
	recurring     Recurring
	events        EventsService
	coupons       CouponsService
	notifications NotificationsService
	batchJobs     []BatchJob
	defaultOpts   RunOptions

	pointsExpirySchedule string
	dailyDigestSchedule  string
	scheduleRefreshSpec  string

	mu          sync.Mutex
	initialized bool
}

// NewManager wires a manager from its collaborators.
func NewManager(cfg ManagerConfig) *Manager {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	timers := cfg.Timers
	if timers == nil {
		timers = NewTimerQueue(log)
	}
	recurring := cfg.Recurring
	if recurring == nil {
		recurring = NewCronScheduler(log)
	}
	m := &Manager{
		log:                  log,
		processor:            cfg.Processor,
		registry:             NewRegistry(),
		timers:               timers,
		recurring:            recurring,
		events:               cfg.Events,
		coupons:              cfg.Coupons,
		notifications:        cfg.Notifications,
		batchJobs:            cfg.BatchJobs,
		defaultOpts:          cfg.DefaultRunOptions,
		pointsExpirySchedule: cfg.PointsExpirySchedule,
		dailyDigestSchedule:  cfg.DailyDigestSchedule,
		scheduleRefreshSpec:  cfg.ScheduleRefreshSpec,
	}
	if m.pointsExpirySchedule == "" {
		m.pointsExpirySchedule = defaultPointsExpirySchedule
	}
	if m.dailyDigestSchedule == "" {
		m.dailyDigestSchedule = defaultDailyDigestSchedule
	}
	if m.scheduleRefreshSpec == "" {
		m.scheduleRefreshSpec = defaultScheduleRefreshSpec
	}
	return m
}

// Initialize registers the batch-job implementations, arms the recurring
// triggers, and computes the initial dynamic schedules. It is
// idempotent: a second call is a no-op. Registration failures propagate;
// dynamic scheduling is best-effort and only logged.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	for _, job := range m.batchJobs {
		if err := m.registry.Register(job); err != nil {
			return fmt.Errorf("registering batch jobs: %w", err)
		}
	}

	if err := m.registerRecurringTasks(); err != nil {
		return err
	}

	m.timers.Start()
	m.recurring.Start()

	m.computeDynamicSchedules(ctx)

	m.initialized = true
	m.log.Info("scheduling manager initialized",
		slog.Int("batch_jobs", len(m.batchJobs)),
		slog.Int("one_time_jobs", len(m.timers.Jobs())),
	)
	return nil
}

// registerRecurringTasks arms the fixed schedules: the hourly points
// expiry sweep, the daily digest run, and the periodic dynamic-schedule
// refresh that picks up entities created after startup.
func (m *Manager) registerRecurringTasks() error {
	tasks := []struct {
		name     string
		schedule string
		task     TaskFunc
	}{
		{
			name:     "points-expiry-sweep",
			schedule: m.pointsExpirySchedule,
			task: func(ctx context.Context) error {
				_, err := m.ExecuteImmediateBatchJob(ctx, JobTypePointsExpiry, m.defaultOpts)
				return err
			},
		},
		{
			name:     "daily-digest",
			schedule: m.dailyDigestSchedule,
			task: func(ctx context.Context) error {
				_, err := m.ExecuteImmediateBatchJob(ctx, JobTypeDailyDigest, m.defaultOpts)
				return err
			},
		},
		{
			name:     "dynamic-schedule-refresh",
			schedule: m.scheduleRefreshSpec,
			task: func(ctx context.Context) error {
				m.computeDynamicSchedules(ctx)
				return nil
			},
		},
	}
	for _, t := range tasks {
		if err := m.recurring.Register(t.name, t.schedule, t.task); err != nil {
			return fmt.Errorf("registering recurring tasks: %w", err)
		}
	}
	return nil
}

// ScheduleOneTimeJob arms a timer firing task exactly once at
// executeTime. Past times are logged and rejected. Job ids are not
// deduplicated; callers own idempotent id choice.
func (m *Manager) ScheduleOneTimeJob(jobID string, executeTime time.Time, task TaskFunc) error {
	if err := m.timers.Schedule(jobID, executeTime, task); err != nil {
		m.log.Warn("rejected one-time job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return err
	}
	m.log.Info("scheduled one-time job",
		slog.String("job_id", jobID),
		slog.Time("execute_time", executeTime),
	)
	return nil
}

// ExecuteImmediateBatchJob runs a registered batch job synchronously,
// outside any timer. Unknown types fail with ErrUnknownJobType.
func (m *Manager) ExecuteImmediateBatchJob(ctx context.Context, jobType JobType, opts RunOptions) (*batch.JobInstance, error) {
	job, err := m.registry.Resolve(jobType)
	if err != nil {
		return nil, err
	}
	return job.Run(ctx, opts)
}

// GetJobStatus delegates to the batch engine (live registry, then the
// persisted snapshot).
func (m *Manager) GetJobStatus(ctx context.Context, jobID string) (*batch.JobInstance, error) {
	return m.processor.JobStatus(ctx, jobID)
}

// GetRunningJobs delegates to the batch engine.
func (m *Manager) GetRunningJobs() []batch.JobInstance {
	return m.processor.RunningJobs()
}

// GetScheduledTasks lists the recurring tasks.
func (m *Manager) GetScheduledTasks() []ScheduledTask {
	return m.recurring.Tasks()
}

// GetOneTimeJobs lists the pending one-time registry contents.
func (m *Manager) GetOneTimeJobs() []OneTimeJob {
	return m.timers.Jobs()
}

// CancelJob tries each layer in order: live batch job, one-time timer,
// recurring task. It returns as soon as one reports success.
func (m *Manager) CancelJob(ctx context.Context, jobID string) error {
	err := m.processor.Cancel(ctx, jobID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, batch.ErrJobNotFound) {
		return err
	}
	if m.timers.Cancel(jobID) {
		m.log.Info("cancelled one-time job", slog.String("job_id", jobID))
		return nil
	}
	if m.recurring.StopTask(jobID) {
		m.log.Info("stopped recurring task", slog.String("task", jobID))
		return nil
	}
	return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
}

// Shutdown stops the recurring triggers, disarms every one-time timer,
// and clears the registry. Safe to call even if Initialize never ran or
// failed partway.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.initialized = false
	m.mu.Unlock()

	m.recurring.Stop()
	m.timers.Stop()
	m.timers.Clear()
	m.log.Info("scheduling manager shut down")
}

// computeDynamicSchedules derives one-time jobs from live business
// entities. Each category is best-effort: a failure in one is logged
// and does not block the other.
func (m *Manager) computeDynamicSchedules(ctx context.Context) {
	if m.events != nil && m.notifications != nil {
		if err := m.scheduleEventJobs(ctx); err != nil {
			m.log.Error("computing event schedules", slog.String("error", err.Error()))
		}
	}
	if m.coupons != nil && m.notifications != nil {
		if err := m.scheduleCouponJobs(ctx); err != nil {
			m.log.Error("computing coupon schedules", slog.String("error", err.Error()))
		}
	}
}

// scheduleEventJobs arms, per upcoming event, a start reminder one hour
// before start and a status transition at the end time. Stable job ids
// keep the periodic refresh idempotent.
func (m *Manager) scheduleEventJobs(ctx context.Context) error {
	events, err := m.events.GetUpcomingEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetching upcoming events: %w", err)
	}

	for _, ev := range events {
		ev := ev

		startID := "event-start:" + ev.ID
		if !m.timers.Has(startID) {
			err := m.timers.Schedule(startID, ev.StartTime.Add(-eventStartReminderLead), func(ctx context.Context) error {
				return m.notifications.SendEventNotification(ctx, model.EventNotification{
					EventID:   ev.ID,
					Title:     ev.Title,
					StartTime: ev.StartTime,
					Audience:  ev.TargetAudience,
				})
			})
			if err != nil && !errors.Is(err, ErrPastExecuteTime) {
				m.log.Error("scheduling event start reminder",
					slog.String("event_id", ev.ID),
					slog.String("error", err.Error()),
				)
			}
		}

		if ev.EndTime == nil {
			continue
		}
		endID := "event-end:" + ev.ID
		if !m.timers.Has(endID) {
			endTime := *ev.EndTime
			err := m.timers.Schedule(endID, endTime, func(ctx context.Context) error {
				return m.events.UpdateEventStatus(ctx, ev.ID, model.EventStatusEnded)
			})
			if err != nil && !errors.Is(err, ErrPastExecuteTime) {
				m.log.Error("scheduling event end transition",
					slog.String("event_id", ev.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}

// scheduleCouponJobs arms, per active coupon, an expiry reminder one day
// before it lapses, fanned out to every holder. A failure notifying one
// holder does not abort the rest.
func (m *Manager) scheduleCouponJobs(ctx context.Context) error {
	coupons, err := m.coupons.GetActiveCoupons(ctx)
	if err != nil {
		return fmt.Errorf("fetching active coupons: %w", err)
	}

	for _, c := range coupons {
		c := c
		jobID := "coupon-expiry:" + c.ID
		if m.timers.Has(jobID) {
			continue
		}
		err := m.timers.Schedule(jobID, c.ExpiresAt.Add(-couponExpiryLead), func(ctx context.Context) error {
			return m.notifyCouponHolders(ctx, c)
		})
		if err != nil && !errors.Is(err, ErrPastExecuteTime) {
			m.log.Error("scheduling coupon expiry reminder",
				slog.String("coupon_id", c.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// notifyCouponHolders sends the expiry reminder to every holder,
// tolerating per-holder delivery failures.
func (m *Manager) notifyCouponHolders(ctx context.Context, coupon *model.Coupon) error {
	holders, err := m.coupons.GetCouponHolders(ctx, coupon.ID)
	if err != nil {
		return fmt.Errorf("fetching holders for coupon %s: %w", coupon.ID, err)
	}

	failed := 0
	for _, h := range holders {
		n := model.Notification{
			ID:     uuid.NewString(),
			UserID: h.UserID,
			Title:  "Coupon expiring soon",
			Body:   fmt.Sprintf("Coupon %s expires on %s.", coupon.Code, coupon.ExpiresAt.Format("Jan 2, 2006")),
			Data: map[string]string{
				"coupon_id": coupon.ID,
				"code":      coupon.Code,
			},
			CreatedAt: time.Now(),
		}
		if err := m.notifications.SendNotification(ctx, n); err != nil {
			failed++
			m.log.Error("notifying coupon holder",
				slog.String("coupon_id", coupon.ID),
				slog.String("user_id", h.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
	if failed > 0 {
		m.log.Warn("coupon expiry reminders partially delivered",
			slog.String("coupon_id", coupon.ID),
			slog.Int("failed", failed),
			slog.Int("total", len(holders)),
		)
	}
	return nil
}
