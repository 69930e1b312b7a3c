package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in callers predictable.

// ===== Event Errors =====
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrInvalidEventStatus = errors.New("invalid event status")
)

// ===== Coupon Errors =====
var (
	ErrCouponNotFound = errors.New("coupon not found")
)

// ===== Loyalty Errors =====
var (
	ErrPointsEntryNotFound = errors.New("points entry not found")
	ErrEntryNotExpired     = errors.New("points entry has not expired")
)

// ===== Notification Errors =====
var (
	ErrNotificationsDisabled = errors.New("notifications are disabled")
	ErrEmptyNotification     = errors.New("notification has no recipient")
)
