// Package jobs implements the named batch-job types the scheduling
// manager can run: each type adapts a domain service into a batch
// engine data source and per-item processor.
//
// # Job Types
//
//   - PointsExpiryJob: revokes loyalty-point entries past their expiry
//   - DailyDigestJob: sends the daily digest to opted-in users
//
// Jobs are registered with the scheduling manager at startup and run
// either from their recurring trigger or on demand through
// ExecuteImmediateBatchJob.
package jobs
