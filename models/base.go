package models

import (
	"context"
	"errors"
	"log"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/utils"
)

type Resource interface {
	GetBusinessId() string
}

// MigrateTable runs AutoMigrate for every entity. Startup can skip this with
// SKIP_MIGRATIONS=true and run it as a separate job instead.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Product{},
		&Provider{},
		&Warehouse{},
		&Purchase{},
		&PurchaseItem{},
		&ImportCost{},
		&ImportCostDetail{},
	)
	if err != nil {
		log.Printf("auto-migrate failed: %v", err)
	}
}

// first find in redis, then in db, using ctx's business_id in WHERE, cache result
// (may return RecordNotFound error)
func GetResource[T Resource](ctx context.Context, id int, associations ...string) (*T, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	// find in redis
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		return nil, err
	}
	// if not found in redis
	if result == nil {
		// fetch from db
		result, err = utils.FetchModel[T](ctx, businessId, id, associations...)
		if err != nil {
			return nil, err
		}

		// store in redis
		if err := utils.StoreRedis[T](result, id); err != nil {
			return nil, err
		}
	} else {
		// if found in redis
		// check if business ids match
		if (*result).GetBusinessId() != businessId {
			return nil, errors.New("cannot access resource owned by other business")
		}
	}

	return result, nil
}

// flip is_active and drop the cache entry
func ToggleActiveModel[T Resource](ctx context.Context, businessId string, id int, isActive bool) (*T, error) {
	result, err := utils.FetchModel[T](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(result).Update("is_active", isActive).Error
	if err != nil {
		return nil, err
	}
	if err := utils.InvalidateRedis[T](id); err != nil {
		return nil, err
	}
	return result, nil
}
