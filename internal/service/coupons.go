package service

import (
	"context"
	"time"

	"github.com/plazahq/plaza/api/internal/model"
)

// CouponRepositoryInterface defines the repository interface
type CouponRepositoryInterface interface {
	GetActive(ctx context.Context, asOf time.Time) ([]*model.Coupon, error)
	GetHolders(ctx context.Context, couponID string) ([]*model.CouponHolder, error)
}

// CouponService exposes the coupon reads the scheduling subsystem needs:
// active coupons for expiry reminders and their holders for fan-out.
type CouponService struct {
	repo CouponRepositoryInterface
}

// NewCouponService creates a new coupon service.
func NewCouponService(repo CouponRepositoryInterface) *CouponService {
	return &CouponService{repo: repo}
}

// GetActiveCoupons returns unexpired, active coupons.
func (s *CouponService) GetActiveCoupons(ctx context.Context) ([]*model.Coupon, error) {
	return s.repo.GetActive(ctx, time.Now())
}

// GetCouponHolders returns every user holding the coupon.
func (s *CouponService) GetCouponHolders(ctx context.Context, couponID string) ([]*model.CouponHolder, error) {
	return s.repo.GetHolders(ctx, couponID)
}
