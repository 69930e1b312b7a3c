package model

import "time"

// Coupon represents a discount coupon with a hard expiry.
type Coupon struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description *string   `json:"description,omitempty"`
	DiscountPct int       `json:"discount_pct"`
	Active      bool      `json:"active"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedOn   time.Time `json:"created_on"`
}

// CouponHolder links a user to a coupon they have claimed.
type CouponHolder struct {
	ID        string    `json:"id"`
	CouponID  string    `json:"coupon_id"`
	UserID    string    `json:"user_id"`
	ClaimedOn time.Time `json:"claimed_on"`
}
