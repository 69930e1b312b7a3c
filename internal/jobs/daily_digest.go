package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/plazahq/plaza/api/internal/batch"
	"github.com/plazahq/plaza/api/internal/model"
	"github.com/plazahq/plaza/api/internal/scheduler"
)

// UserDirectory defines the interface for paging digest recipients.
type UserDirectory interface {
	CountDigestSubscribers(ctx context.Context) (int, error)
	DigestSubscribersPage(ctx context.Context, offset, limit int) ([]*model.User, error)
}

// Notifier delivers the per-user digest notification.
type Notifier interface {
	SendNotification(ctx context.Context, n model.Notification) error
}

// DailyDigestJob fans the daily digest out to every opted-in user. A
// failed delivery counts as one failed item and does not stop the rest
// of the run.
type DailyDigestJob struct {
	log       *slog.Logger
	processor *batch.Processor
	users     UserDirectory
	notifier  Notifier
}

// NewDailyDigestJob creates the daily digest batch job.
func NewDailyDigestJob(log *slog.Logger, processor *batch.Processor, users UserDirectory, notifier Notifier) *DailyDigestJob {
	if log == nil {
		log = slog.Default()
	}
	return &DailyDigestJob{log: log, processor: processor, users: users, notifier: notifier}
}

// Type returns the registry tag for this job.
func (j *DailyDigestJob) Type() scheduler.JobType {
	return scheduler.JobTypeDailyDigest
}

// Run executes one digest fan-out through the batch engine.
func (j *DailyDigestJob) Run(ctx context.Context, opts scheduler.RunOptions) (*batch.JobInstance, error) {
	jobID := opts.JobID
	if jobID == "" {
		jobID = "daily-digest-" + uuid.NewString()
	}

	source := &batch.FuncSource{
		Count: j.users.CountDigestSubscribers,
		FetchPage: func(ctx context.Context, offset, limit int) ([]interface{}, error) {
			users, err := j.users.DigestSubscribersPage(ctx, offset, limit)
			if err != nil {
				return nil, err
			}
			items := make([]interface{}, len(users))
			for i, u := range users {
				items[i] = u
			}
			return items, nil
		},
	}

	return j.processor.Execute(ctx, batch.JobConfig{
		JobID:          jobID,
		JobType:        string(scheduler.JobTypeDailyDigest),
		Source:         source,
		BatchSize:      opts.BatchSize,
		MaxConcurrency: opts.MaxConcurrency,
		RetryAttempts:  opts.RetryAttempts,
		Process: func(ctx context.Context, item interface{}) error {
			user, ok := item.(*model.User)
			if !ok {
				return fmt.Errorf("unexpected item type %T", item)
			}
			return j.notifier.SendNotification(ctx, model.Notification{
				ID:     uuid.NewString(),
				UserID: user.ID,
				Title:  "Your Plaza daily digest",
				Body:   fmt.Sprintf("Hi %s, here is what is happening around you today.", user.DisplayName),
				Data: map[string]string{
					"kind": "daily_digest",
				},
			})
		},
		OnComplete: func(inst batch.JobInstance) {
			j.log.Info("daily digest finished",
				slog.String("job_id", inst.JobID),
				slog.Int("delivered", inst.ProcessedItems),
				slog.Int("failed", inst.FailedItems),
			)
		},
	})
}
