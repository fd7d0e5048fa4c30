package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/utils"
)

type Provider struct {
	ID           int          `gorm:"primary_key" json:"id"`
	BusinessId   string       `gorm:"index;not null" json:"business_id"`
	Name         string       `gorm:"size:255;not null" json:"name" binding:"required"`
	TaxId        string       `gorm:"size:50" json:"tax_id"`
	PaymentTerms PaymentTerms `gorm:"type:smallint;not null" json:"payment_terms" binding:"required"`
	Email        string       `gorm:"size:255" json:"email"`
	Phone        string       `gorm:"size:20" json:"phone"`
	Address      string       `gorm:"type:text" json:"address"`
	Country      string       `gorm:"size:100" json:"country"`
	IsActive     *bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p Provider) GetBusinessId() string {
	return p.BusinessId
}

type NewProvider struct {
	Name         string       `json:"name" binding:"required"`
	TaxId        string       `json:"tax_id"`
	PaymentTerms PaymentTerms `json:"payment_terms" binding:"required"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	Country      string       `json:"country"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProvider) validate(ctx context.Context, businessId string, id int) error {
	if _, err := input.PaymentTerms.Code(); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Provider](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if len(strings.TrimSpace(input.Email)) > 0 && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateProvider(ctx context.Context, input *NewProvider) (*Provider, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	provider := Provider{
		BusinessId:   businessId,
		Name:         input.Name,
		TaxId:        input.TaxId,
		PaymentTerms: input.PaymentTerms,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		Country:      input.Country,
		IsActive:     utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&provider).Error
	if err != nil {
		if utils.IsDuplicateEntry(err) {
			return nil, errors.New("duplicate name")
		}
		return nil, err
	}
	return &provider, nil
}

func UpdateProvider(ctx context.Context, id int, input *NewProvider) (*Provider, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	provider, err := utils.FetchModel[Provider](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&provider).Updates(map[string]interface{}{
		"Name":         input.Name,
		"TaxId":        input.TaxId,
		"PaymentTerms": input.PaymentTerms,
		"Email":        input.Email,
		"Phone":        input.Phone,
		"Address":      input.Address,
		"Country":      input.Country,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.InvalidateRedis[Provider](id); err != nil {
		return nil, err
	}

	return provider, nil
}

func DeleteProvider(ctx context.Context, id int) (*Provider, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	provider, err := utils.FetchModel[Provider](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// check if provider has purchases
	var count int64
	if err := db.WithContext(ctx).Model(&Purchase{}).
		Where("provider_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("provider has purchases")
	}

	// db action
	err = db.WithContext(ctx).Delete(&provider).Error
	if err != nil {
		return nil, err
	}
	if err := utils.InvalidateRedis[Provider](id); err != nil {
		return nil, err
	}
	return provider, nil
}

func GetProvider(ctx context.Context, id int) (*Provider, error) {
	return GetResource[Provider](ctx, id)
}

func ListProvider(ctx context.Context, name *string) ([]*Provider, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Provider

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

func ToggleActiveProvider(ctx context.Context, id int, isActive bool) (*Provider, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Provider](ctx, businessId, id, isActive)
}
