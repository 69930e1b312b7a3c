// Package repository implements SurrealDB data access for the
// scheduling subsystem's domain slice: events, coupons, loyalty points,
// and digest recipients.
//
// Repositories that back batch data sources (points, users) expose a
// count query plus an offset/limit page query so the batch engine can
// walk them in bounded chunks.
package repository
