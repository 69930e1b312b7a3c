package service

import (
	"context"
	"fmt"
	"time"

	"github.com/plazahq/plaza/api/internal/model"
)

// PointsRepositoryInterface defines the repository interface
type PointsRepositoryInterface interface {
	CountExpired(ctx context.Context, asOf time.Time) (int, error)
	ExpiredPage(ctx context.Context, asOf time.Time, offset, limit int) ([]*model.PointsEntry, error)
	MarkRevoked(ctx context.Context, entryID string) error
}

// LoyaltyService handles loyalty-points bookkeeping. The expiry batch
// job pages expired entries through this service and revokes them one
// at a time.
type LoyaltyService struct {
	repo PointsRepositoryInterface
}

// NewLoyaltyService creates a new loyalty service.
func NewLoyaltyService(repo PointsRepositoryInterface) *LoyaltyService {
	return &LoyaltyService{repo: repo}
}

// CountExpiredEntries returns how many active entries have passed their
// expiry as of now.
func (s *LoyaltyService) CountExpiredEntries(ctx context.Context, asOf time.Time) (int, error) {
	return s.repo.CountExpired(ctx, asOf)
}

// ExpiredEntriesPage returns one page of expired, still-active entries.
func (s *LoyaltyService) ExpiredEntriesPage(ctx context.Context, asOf time.Time, offset, limit int) ([]*model.PointsEntry, error) {
	return s.repo.ExpiredPage(ctx, asOf, offset, limit)
}

// RevokeExpired revokes a single expired entry. Entries that have not
// actually expired are rejected; the batch job counts that as an item
// failure rather than silently revoking live points.
func (s *LoyaltyService) RevokeExpired(ctx context.Context, entry *model.PointsEntry) error {
	if entry == nil {
		return ErrPointsEntryNotFound
	}
	if entry.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("%w: %s", ErrEntryNotExpired, entry.ID)
	}
	if entry.Status != model.PointsStatusActive {
		return nil
	}
	return s.repo.MarkRevoked(ctx, entry.ID)
}
