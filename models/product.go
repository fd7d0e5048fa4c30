package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID             int                   `gorm:"primary_key" json:"id"`
	BusinessId     string                `gorm:"index;not null" json:"business_id"`
	Sku            string                `gorm:"size:100;not null" json:"sku" binding:"required"`
	Name           string                `gorm:"size:255;not null" json:"name" binding:"required"`
	Description    string                `gorm:"type:text" json:"description"`
	Classification ProductClassification `gorm:"type:smallint;not null" json:"classification" binding:"required"`
	Unit           string                `gorm:"size:50" json:"unit"`
	ProviderId     int                   `gorm:"index" json:"provider_id"`
	PurchasePrice  decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	// LandedUnitCost is the unit cost from the most recent import-cost
	// allocation that touched this product.
	LandedUnitCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"landed_unit_cost"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p Product) GetBusinessId() string {
	return p.BusinessId
}

type NewProduct struct {
	Sku            string                `json:"sku" binding:"required"`
	Name           string                `json:"name" binding:"required"`
	Description    string                `json:"description"`
	Classification ProductClassification `json:"classification" binding:"required"`
	Unit           string                `json:"unit"`
	ProviderId     int                   `json:"provider_id"`
	PurchasePrice  decimal.Decimal       `json:"purchase_price"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, businessId string, id int) error {
	if _, err := input.Classification.Code(); err != nil {
		return err
	}
	if input.PurchasePrice.IsNegative() {
		return errors.New("purchase price must not be negative")
	}
	if err := utils.ValidateUnique[Product](ctx, businessId, "sku", input.Sku, id); err != nil {
		return err
	}
	if input.ProviderId > 0 {
		if err := utils.ValidateResourceId[Provider](ctx, businessId, input.ProviderId); err != nil {
			return errors.New("provider not found")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	product := Product{
		BusinessId:     businessId,
		Sku:            input.Sku,
		Name:           input.Name,
		Description:    input.Description,
		Classification: input.Classification,
		Unit:           input.Unit,
		ProviderId:     input.ProviderId,
		PurchasePrice:  input.PurchasePrice,
		IsActive:       utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&product).Error
	if err != nil {
		if utils.IsDuplicateEntry(err) {
			return nil, errors.New("duplicate sku")
		}
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&product).Updates(map[string]interface{}{
		"Sku":            input.Sku,
		"Name":           input.Name,
		"Description":    input.Description,
		"Classification": input.Classification,
		"Unit":           input.Unit,
		"ProviderId":     input.ProviderId,
		"PurchasePrice":  input.PurchasePrice,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.InvalidateRedis[Product](id); err != nil {
		return nil, err
	}

	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// check if product appears in any purchase
	var count int64
	if err := db.WithContext(ctx).Model(&PurchaseItem{}).
		Where("product_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("product has purchases")
	}

	// db action
	err = db.WithContext(ctx).Delete(&product).Error
	if err != nil {
		return nil, err
	}
	if err := utils.InvalidateRedis[Product](id); err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return GetResource[Product](ctx, id)
}

func ListProduct(ctx context.Context, name *string) ([]*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveProduct(ctx context.Context, id int, isActive bool) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Product](ctx, businessId, id, isActive)
}
