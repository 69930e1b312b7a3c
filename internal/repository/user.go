package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/plazahq/plaza/api/internal/database"
	"github.com/plazahq/plaza/api/internal/model"
)

// UserRepository handles the user reads the digest job needs
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// CountDigestSubscribers counts users opted in to the daily digest
func (r *UserRepository) CountDigestSubscribers(ctx context.Context) (int, error) {
	query := `SELECT count() AS count FROM user WHERE digest_opt_in = true GROUP ALL`

	result, err := r.db.QueryOne(ctx, query, nil)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return extractCount(result), nil
}

// DigestSubscribersPage retrieves one page of opted-in users
func (r *UserRepository) DigestSubscribersPage(ctx context.Context, offset, limit int) ([]*model.User, error) {
	query := `
		SELECT * FROM user
		WHERE digest_opt_in = true
		ORDER BY id ASC
		LIMIT $limit START $offset
	`
	vars := map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return parseUsersResult(result)
}

// Helper functions

func parseUserResult(result interface{}) (*model.User, error) {
	data, err := normalizeRecord(result)
	if err != nil {
		return nil, err
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(jsonBytes, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func parseUsersResult(results []interface{}) ([]*model.User, error) {
	users := make([]*model.User, 0)

	for _, result := range results {
		if resp, ok := result.(map[string]interface{}); ok {
			if status, ok := resp["status"].(string); ok && status == "OK" {
				if resultData, ok := resp["result"].([]interface{}); ok {
					for _, item := range resultData {
						user, err := parseUserResult(item)
						if err == nil && user != nil {
							users = append(users, user)
						}
					}
				}
			}
		}
	}

	return users, nil
}
