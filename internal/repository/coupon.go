package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/plazahq/plaza/api/internal/database"
	"github.com/plazahq/plaza/api/internal/model"
)

// CouponRepository handles coupon data access
type CouponRepository struct {
	db database.Database
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db database.Database) *CouponRepository {
	return &CouponRepository{db: db}
}

// GetActive retrieves active coupons that have not yet expired as of asOf
func (r *CouponRepository) GetActive(ctx context.Context, asOf time.Time) ([]*model.Coupon, error) {
	query := `
		SELECT * FROM coupon
		WHERE active = true AND expires_at > $as_of
		ORDER BY expires_at ASC
	`
	vars := map[string]interface{}{"as_of": asOf}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return parseCouponsResult(result)
}

// GetHolders retrieves every holder record for a coupon
func (r *CouponRepository) GetHolders(ctx context.Context, couponID string) ([]*model.CouponHolder, error) {
	query := `
		SELECT * FROM coupon_holder
		WHERE coupon_id = $coupon_id
		ORDER BY claimed_on ASC
	`
	vars := map[string]interface{}{"coupon_id": couponID}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return parseCouponHoldersResult(result)
}

// Helper functions

func parseCouponResult(result interface{}) (*model.Coupon, error) {
	data, err := normalizeRecord(result)
	if err != nil {
		return nil, err
	}
	if v, ok := data["expires_at"]; ok {
		data["expires_at"] = parseTime(v)
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var coupon model.Coupon
	if err := json.Unmarshal(jsonBytes, &coupon); err != nil {
		return nil, err
	}

	return &coupon, nil
}

func parseCouponsResult(results []interface{}) ([]*model.Coupon, error) {
	coupons := make([]*model.Coupon, 0)

	for _, result := range results {
		if resp, ok := result.(map[string]interface{}); ok {
			if status, ok := resp["status"].(string); ok && status == "OK" {
				if resultData, ok := resp["result"].([]interface{}); ok {
					for _, item := range resultData {
						coupon, err := parseCouponResult(item)
						if err == nil && coupon != nil {
							coupons = append(coupons, coupon)
						}
					}
				}
			}
		}
	}

	return coupons, nil
}

func parseCouponHoldersResult(results []interface{}) ([]*model.CouponHolder, error) {
	holders := make([]*model.CouponHolder, 0)

	for _, result := range results {
		if resp, ok := result.(map[string]interface{}); ok {
			if status, ok := resp["status"].(string); ok && status == "OK" {
				if resultData, ok := resp["result"].([]interface{}); ok {
					for _, item := range resultData {
						data, err := normalizeRecord(item)
						if err != nil {
							continue
						}
						if cid, ok := data["coupon_id"]; ok {
							data["coupon_id"] = extractRecordID(cid)
						}
						if uid, ok := data["user_id"]; ok {
							data["user_id"] = extractRecordID(uid)
						}

						jsonBytes, err := json.Marshal(data)
						if err != nil {
							continue
						}

						var holder model.CouponHolder
						if err := json.Unmarshal(jsonBytes, &holder); err == nil {
							holders = append(holders, &holder)
						}
					}
				}
			}
		}
	}

	return holders, nil
}

// normalizeRecord unwraps a single SurrealDB row into a map with a
// string record id.
func normalizeRecord(result interface{}) (map[string]interface{}, error) {
	if result == nil {
		return nil, database.ErrNotFound
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

	if id, ok := data["id"]; ok {
		data["id"] = extractRecordID(id)
	}

	return data, nil
}
