package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/plazahq/plaza/api/internal/batch"
	"github.com/plazahq/plaza/api/internal/model"
	"github.com/plazahq/plaza/api/internal/scheduler"
)

// LoyaltyService defines the interface for paging and revoking expired
// points entries.
type LoyaltyService interface {
	CountExpiredEntries(ctx context.Context, asOf time.Time) (int, error)
	ExpiredEntriesPage(ctx context.Context, asOf time.Time, offset, limit int) ([]*model.PointsEntry, error)
	RevokeExpired(ctx context.Context, entry *model.PointsEntry) error
}

// PointsExpiryJob revokes loyalty-point entries whose expiry has passed.
// The expiry cutoff is fixed once per run so every page sees the same
// population.
type PointsExpiryJob struct {
	log       *slog.Logger
	processor *batch.Processor
	loyalty   LoyaltyService
}

// NewPointsExpiryJob creates the points expiry batch job.
func NewPointsExpiryJob(log *slog.Logger, processor *batch.Processor, loyalty LoyaltyService) *PointsExpiryJob {
	if log == nil {
		log = slog.Default()
	}
	return &PointsExpiryJob{log: log, processor: processor, loyalty: loyalty}
}

// Type returns the registry tag for this job.
func (j *PointsExpiryJob) Type() scheduler.JobType {
	return scheduler.JobTypePointsExpiry
}

// Run executes one expiry sweep through the batch engine.
func (j *PointsExpiryJob) Run(ctx context.Context, opts scheduler.RunOptions) (*batch.JobInstance, error) {
	asOf := time.Now()
	jobID := opts.JobID
	if jobID == "" {
		jobID = "points-expiry-" + uuid.NewString()
	}

	source := &batch.FuncSource{
		Count: func(ctx context.Context) (int, error) {
			return j.loyalty.CountExpiredEntries(ctx, asOf)
		},
		FetchPage: func(ctx context.Context, offset, limit int) ([]interface{}, error) {
			entries, err := j.loyalty.ExpiredEntriesPage(ctx, asOf, offset, limit)
			if err != nil {
				return nil, err
			}
			items := make([]interface{}, len(entries))
			for i, e := range entries {
				items[i] = e
			}
			return items, nil
		},
	}

	return j.processor.Execute(ctx, batch.JobConfig{
		JobID:          jobID,
		JobType:        string(scheduler.JobTypePointsExpiry),
		Source:         source,
		BatchSize:      opts.BatchSize,
		MaxConcurrency: opts.MaxConcurrency,
		RetryAttempts:  opts.RetryAttempts,
		Process: func(ctx context.Context, item interface{}) error {
			entry, ok := item.(*model.PointsEntry)
			if !ok {
				return fmt.Errorf("unexpected item type %T", item)
			}
			return j.loyalty.RevokeExpired(ctx, entry)
		},
		OnComplete: func(inst batch.JobInstance) {
			j.log.Info("points expiry sweep finished",
				slog.String("job_id", inst.JobID),
				slog.Int("revoked", inst.ProcessedItems),
				slog.Int("failed", inst.FailedItems),
			)
		},
	})
}
