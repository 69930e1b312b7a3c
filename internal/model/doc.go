// Package model defines the domain entities the Plaza scheduling
// subsystem operates on.
//
// The batch and scheduler packages move these records around without
// owning their full lifecycle: events and coupons drive dynamic
// one-time schedules, points entries feed the expiry sweep, and users
// page through the daily digest fan-out.
//
// # JSON Serialization
//
// All models use json struct tags matching the SurrealDB field names:
//
//	type Coupon struct {
//	    ID        string    `json:"id"`
//	    Code      string    `json:"code"`
//	    ExpiresAt time.Time `json:"expires_at"`
//	}
package model
