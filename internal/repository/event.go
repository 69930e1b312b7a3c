package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/plazahq/plaza/api/internal/database"
	"github.com/plazahq/plaza/api/internal/model"
)

// EventRepository handles event data access
type EventRepository struct {
	db database.Database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.Database) *EventRepository {
	return &EventRepository{db: db}
}

// GetUpcoming retrieves published events starting within the horizon.
// Events already underway are included so end-of-event transitions can
// still be scheduled after a restart.
func (r *EventRepository) GetUpcoming(ctx context.Context, from time.Time, horizon time.Duration) ([]*model.Event, error) {
	query := `
		SELECT * FROM event
		WHERE status IN ["published", "ongoing"]
		AND start_time <= $until
		AND (end_time = NONE OR end_time >= $from)
		ORDER BY start_time ASC
	`
	vars := map[string]interface{}{
		"from":  from,
		"until": from.Add(horizon),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return parseEventsResult(result)
}

// UpdateStatus transitions an event to a new status
func (r *EventRepository) UpdateStatus(ctx context.Context, eventID, status string) error {
	query := `
		UPDATE event SET status = $status, updated_on = time::now()
		WHERE id = type::record($event_id)
	`
	vars := map[string]interface{}{
		"event_id": eventID,
		"status":   status,
	}

	return r.db.Execute(ctx, query, vars)
}

// Helper functions

func parseEventResult(result interface{}) (*model.Event, error) {
	if result == nil {
		return nil, database.ErrNotFound
	}

	// Navigate through SurrealDB response structure
	if resp, ok := result.(map[string]interface{}); ok {
		if status, ok := resp["status"].(string); ok && status == "OK" {
			if resultData, ok := resp["result"].([]interface{}); ok {
				if len(resultData) == 0 {
					return nil, database.ErrNotFound
				}
				result = resultData[0]
			}
		}
	}

	if arr, ok := result.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, database.ErrNotFound
		}
		result = arr[0]
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}

	// Convert record IDs and datetimes before JSON marshaling
	if id, ok := data["id"]; ok {
		data["id"] = extractRecordID(id)
	}
	if v, ok := data["start_time"]; ok {
		data["start_time"] = parseTime(v)
	}
	if v, ok := data["end_time"]; ok && v != nil {
		data["end_time"] = parseTime(v)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var event model.Event
	if err := json.Unmarshal(jsonBytes, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

func parseEventsResult(results []interface{}) ([]*model.Event, error) {
	events := make([]*model.Event, 0)

	for _, result := range results {
		if resp, ok := result.(map[string]interface{}); ok {
			if status, ok := resp["status"].(string); ok && status == "OK" {
				if resultData, ok := resp["result"].([]interface{}); ok {
					for _, item := range resultData {
						event, err := parseEventResult(item)
						if err == nil && event != nil {
							events = append(events, event)
						}
					}
				}
			}
		}
	}

	return events, nil
}
