package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plazahq/plaza/api/internal/batch"
	"github.com/plazahq/plaza/api/internal/model"
	"github.com/plazahq/plaza/api/internal/scheduler"
)

// ============================================================================
// Mock Loyalty Service
// ============================================================================

type mockLoyalty struct {
	mu      sync.Mutex
	entries []*model.PointsEntry
	revoked []string

	countFunc  func(ctx context.Context, asOf time.Time) (int, error)
	pageFunc   func(ctx context.Context, asOf time.Time, offset, limit int) ([]*model.PointsEntry, error)
	revokeFunc func(ctx context.Context, entry *model.PointsEntry) error
}

func (m *mockLoyalty) CountExpiredEntries(ctx context.Context, asOf time.Time) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, asOf)
	}
	return len(m.entries), nil
}

func (m *mockLoyalty) ExpiredEntriesPage(ctx context.Context, asOf time.Time, offset, limit int) ([]*model.PointsEntry, error) {
	if m.pageFunc != nil {
		return m.pageFunc(ctx, asOf, offset, limit)
	}
	if offset >= len(m.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	return m.entries[offset:end], nil
}

func (m *mockLoyalty) RevokeExpired(ctx context.Context, entry *model.PointsEntry) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, entry)
	}
	m.mu.Lock()
	m.revoked = append(m.revoked, entry.ID)
	m.mu.Unlock()
	return nil
}

func expiredEntries(n int) []*model.PointsEntry {
	entries := make([]*model.PointsEntry, n)
	for i := range entries {
		entries[i] = &model.PointsEntry{
			ID:        "points:" + string(rune('a'+i)),
			UserID:    "user:1",
			Points:    10,
			Status:    model.PointsStatusActive,
			ExpiresAt: time.Now().Add(-time.Hour),
		}
	}
	return entries
}

func newJobProcessor() *batch.Processor {
	return batch.NewProcessor(batch.ProcessorConfig{
		RetryBaseDelay: time.Millisecond,
	})
}

// ============================================================================
// Run
// ============================================================================

func TestPointsExpiryJob_Type(t *testing.T) {
	t.Parallel()

	job := NewPointsExpiryJob(nil, newJobProcessor(), &mockLoyalty{})
	if job.Type() != scheduler.JobTypePointsExpiry {
		t.Errorf("type = %s, want points_expiry", job.Type())
	}
}

func TestPointsExpiryJob_RevokesEveryExpiredEntry(t *testing.T) {
	t.Parallel()

	loyalty := &mockLoyalty{entries: expiredEntries(7)}
	job := NewPointsExpiryJob(nil, newJobProcessor(), loyalty)

	inst, err := job.Run(context.Background(), scheduler.RunOptions{BatchSize: 3})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if inst.Status != batch.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", inst.Status)
	}
	if inst.ProcessedItems != 7 {
		t.Errorf("processed = %d, want 7", inst.ProcessedItems)
	}

	loyalty.mu.Lock()
	defer loyalty.mu.Unlock()
	if len(loyalty.revoked) != 7 {
		t.Errorf("revoked %d entries, want 7", len(loyalty.revoked))
	}
}

func TestPointsExpiryJob_GeneratesJobID(t *testing.T) {
	t.Parallel()

	loyalty := &mockLoyalty{entries: expiredEntries(1)}
	job := NewPointsExpiryJob(nil, newJobProcessor(), loyalty)

	inst, err := job.Run(context.Background(), scheduler.RunOptions{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if inst.JobID == "" {
		t.Error("expected a generated job id")
	}
}

func TestPointsExpiryJob_UsesProvidedJobID(t *testing.T) {
	t.Parallel()

	loyalty := &mockLoyalty{entries: expiredEntries(1)}
	job := NewPointsExpiryJob(nil, newJobProcessor(), loyalty)

	inst, err := job.Run(context.Background(), scheduler.RunOptions{JobID: "sweep-42"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if inst.JobID != "sweep-42" {
		t.Errorf("job id = %s, want sweep-42", inst.JobID)
	}
}

func TestPointsExpiryJob_RevokeFailuresCounted(t *testing.T) {
	t.Parallel()

	loyalty := &mockLoyalty{entries: expiredEntries(4)}
	loyalty.revokeFunc = func(ctx context.Context, entry *model.PointsEntry) error {
		if entry.ID == "points:b" {
			return errors.New("row locked")
		}
		return nil
	}
	job := NewPointsExpiryJob(nil, newJobProcessor(), loyalty)

	inst, err := job.Run(context.Background(), scheduler.RunOptions{RetryAttempts: 1})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if inst.Status != batch.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", inst.Status)
	}
	if inst.ProcessedItems != 3 || inst.FailedItems != 1 {
		t.Errorf("processed/failed = %d/%d, want 3/1", inst.ProcessedItems, inst.FailedItems)
	}
}

func TestPointsExpiryJob_CountErrorFailsRun(t *testing.T) {
	t.Parallel()

	countErr := errors.New("db unreachable")
	loyalty := &mockLoyalty{
		countFunc: func(ctx context.Context, asOf time.Time) (int, error) {
			return 0, countErr
		},
	}
	job := NewPointsExpiryJob(nil, newJobProcessor(), loyalty)

	_, err := job.Run(context.Background(), scheduler.RunOptions{})
	if !errors.Is(err, countErr) {
		t.Errorf("expected count error, got: %v", err)
	}
}

func TestPointsExpiryJob_FixedCutoffAcrossPages(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		cutoffs []time.Time
	)
	loyalty := &mockLoyalty{entries: expiredEntries(5)}
	loyalty.pageFunc = func(ctx context.Context, asOf time.Time, offset, limit int) ([]*model.PointsEntry, error) {
		mu.Lock()
		cutoffs = append(cutoffs, asOf)
		mu.Unlock()
		if offset >= len(loyalty.entries) {
			return nil, nil
		}
		end := offset + limit
		if end > len(loyalty.entries) {
			end = len(loyalty.entries)
		}
		return loyalty.entries[offset:end], nil
	}
	job := NewPointsExpiryJob(nil, newJobProcessor(), loyalty)

	if _, err := job.Run(context.Background(), scheduler.RunOptions{BatchSize: 2}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(cutoffs) < 2 {
		t.Fatalf("expected multiple pages, got %d", len(cutoffs))
	}
	for _, c := range cutoffs[1:] {
		if !c.Equal(cutoffs[0]) {
			t.Error("every page should see the same expiry cutoff")
		}
	}
}
