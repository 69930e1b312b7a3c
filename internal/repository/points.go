package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/plazahq/plaza/api/internal/database"
	"github.com/plazahq/plaza/api/internal/model"
)

// PointsRepository handles loyalty points data access
type PointsRepository struct {
	db database.Database
}

// NewPointsRepository creates a new points repository
func NewPointsRepository(db database.Database) *PointsRepository {
	return &PointsRepository{db: db}
}

// CountExpired counts active entries whose expiry has passed as of asOf
func (r *PointsRepository) CountExpired(ctx context.Context, asOf time.Time) (int, error) {
	query := `
		SELECT count() AS count FROM points_entry
		WHERE status = "active" AND expires_at <= $as_of
		GROUP ALL
	`
	vars := map[string]interface{}{"as_of": asOf}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return extractCount(result), nil
}

// ExpiredPage retrieves one page of expired, still-active entries.
// Ordering by id keeps pages stable while the sweep revokes earlier
// pages.
func (r *PointsRepository) ExpiredPage(ctx context.Context, asOf time.Time, offset, limit int) ([]*model.PointsEntry, error) {
	query := `
		SELECT * FROM points_entry
		WHERE status = "active" AND expires_at <= $as_of
		ORDER BY id ASC
		LIMIT $limit START $offset
	`
	vars := map[string]interface{}{
		"as_of":  asOf,
		"limit":  limit,
		"offset": offset,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return parsePointsEntriesResult(result)
}

// MarkRevoked flips a single entry to revoked
func (r *PointsRepository) MarkRevoked(ctx context.Context, entryID string) error {
	query := `
		UPDATE points_entry SET status = "revoked"
		WHERE id = type::record($entry_id) AND status = "active"
	`
	vars := map[string]interface{}{"entry_id": entryID}

	return r.db.Execute(ctx, query, vars)
}

// Helper functions

func parsePointsEntryResult(result interface{}) (*model.PointsEntry, error) {
	data, err := normalizeRecord(result)
	if err != nil {
		return nil, err
	}
	if uid, ok := data["user_id"]; ok {
		data["user_id"] = extractRecordID(uid)
	}
	if v, ok := data["expires_at"]; ok {
		data["expires_at"] = parseTime(v)
	}
	if v, ok := data["earned_on"]; ok {
		data["earned_on"] = parseTime(v)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var entry model.PointsEntry
	if err := json.Unmarshal(jsonBytes, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func parsePointsEntriesResult(results []interface{}) ([]*model.PointsEntry, error) {
	entries := make([]*model.PointsEntry, 0)

	for _, result := range results {
		if resp, ok := result.(map[string]interface{}); ok {
			if status, ok := resp["status"].(string); ok && status == "OK" {
				if resultData, ok := resp["result"].([]interface{}); ok {
					for _, item := range resultData {
						entry, err := parsePointsEntryResult(item)
						if err == nil && entry != nil {
							entries = append(entries, entry)
						}
					}
				}
			}
		}
	}

	return entries, nil
}
