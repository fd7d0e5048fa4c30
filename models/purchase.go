package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Purchase struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	ProviderId    int             `gorm:"index;not null" json:"provider_id" binding:"required"`
	WarehouseId   int             `gorm:"index;not null" json:"warehouse_id" binding:"required"`
	InvoiceNumber string          `gorm:"size:100;not null" json:"invoice_number" binding:"required"`
	PurchaseDate  time.Time       `gorm:"not null" json:"purchase_date" binding:"required"`
	CurrencyNote  string          `gorm:"size:50" json:"currency_note"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CurrentStatus PurchaseStatus  `gorm:"type:enum('Draft','Confirmed','Costed','Cancelled');not null" json:"current_status"`
	FobTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fob_total"`
	// sum(item subtotals)
	Items     []PurchaseItem `json:"purchase_items"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p Purchase) GetBusinessId() string {
	return p.BusinessId
}

type PurchaseItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	PurchaseId int             `gorm:"index;not null" json:"purchase_id"`
	ProductId  int             `gorm:"index;not null" json:"product_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
}

type NewPurchase struct {
	ProviderId    int               `json:"provider_id" binding:"required"`
	WarehouseId   int               `json:"warehouse_id" binding:"required"`
	InvoiceNumber string            `json:"invoice_number" binding:"required"`
	PurchaseDate  time.Time         `json:"purchase_date" binding:"required"`
	CurrencyNote  string            `json:"currency_note"`
	Notes         string            `json:"notes"`
	Items         []NewPurchaseItem `json:"items" binding:"required,dive"`
}

type NewPurchaseItem struct {
	ProductId int             `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

func (input *NewPurchase) validate(ctx context.Context, businessId string) error {
	if len(input.Items) == 0 {
		return errors.New("purchase needs at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return errors.New("item quantity must be positive")
		}
		if item.UnitPrice.LessThanOrEqual(decimal.Zero) {
			return errors.New("item unit price must be positive")
		}
	}
	if err := utils.ValidateResourceId[Provider](ctx, businessId, input.ProviderId); err != nil {
		return errors.New("provider not found")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return errors.New("warehouse not found")
	}
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		productIds = append(productIds, item.ProductId)
	}
	for _, productId := range utils.UniqueSlice(productIds) {
		if err := utils.ValidateResourceId[Product](ctx, businessId, productId); err != nil {
			return errors.New("product not found")
		}
	}
	return nil
}

func CreatePurchase(ctx context.Context, input *NewPurchase) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	purchase := Purchase{
		BusinessId:    businessId,
		ProviderId:    input.ProviderId,
		WarehouseId:   input.WarehouseId,
		InvoiceNumber: input.InvoiceNumber,
		PurchaseDate:  input.PurchaseDate,
		CurrencyNote:  input.CurrencyNote,
		Notes:         input.Notes,
		CurrentStatus: PurchaseStatusDraft,
	}

	fobTotal := decimal.Zero
	for _, item := range input.Items {
		subtotal := item.Quantity.Mul(item.UnitPrice)
		fobTotal = fobTotal.Add(subtotal)
		purchase.Items = append(purchase.Items, PurchaseItem{
			ProductId: item.ProductId,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  subtotal,
		})
	}
	purchase.FobTotal = fobTotal

	// header + items in one transaction
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&purchase).Error
	})
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// UpdatePurchase replaces the header fields and the full item set.
// Only Draft purchases can change; costed documents are immutable.
func UpdatePurchase(ctx context.Context, id int, input *NewPurchase) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	purchase, err := utils.FetchModel[Purchase](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if purchase.CurrentStatus != PurchaseStatusDraft {
		return nil, errors.New("only draft purchases can be updated")
	}

	items := make([]PurchaseItem, 0, len(input.Items))
	fobTotal := decimal.Zero
	for _, item := range input.Items {
		subtotal := item.Quantity.Mul(item.UnitPrice)
		fobTotal = fobTotal.Add(subtotal)
		items = append(items, PurchaseItem{
			PurchaseId: id,
			ProductId:  item.ProductId,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Subtotal:   subtotal,
		})
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&purchase).Updates(map[string]interface{}{
			"ProviderId":    input.ProviderId,
			"WarehouseId":   input.WarehouseId,
			"InvoiceNumber": input.InvoiceNumber,
			"PurchaseDate":  input.PurchaseDate,
			"CurrencyNote":  input.CurrencyNote,
			"Notes":         input.Notes,
			"FobTotal":      fobTotal,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("purchase_id = ?", id).Delete(&PurchaseItem{}).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}

	purchase.Items = items
	return purchase, nil
}

func ConfirmPurchase(ctx context.Context, id int) (*Purchase, error) {
	return changePurchaseStatus(ctx, id, PurchaseStatusDraft, PurchaseStatusConfirmed)
}

func CancelPurchase(ctx context.Context, id int) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	purchase, err := utils.FetchModel[Purchase](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if purchase.CurrentStatus == PurchaseStatusCosted {
		return nil, errors.New("costed purchases cannot be cancelled")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&purchase).
		Update("current_status", PurchaseStatusCancelled).Error
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

func changePurchaseStatus(ctx context.Context, id int, from, to PurchaseStatus) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	purchase, err := utils.FetchModel[Purchase](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if purchase.CurrentStatus != from {
		return nil, errors.New("purchase is " + string(purchase.CurrentStatus) + ", expected " + string(from))
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&purchase).
		Update("current_status", to).Error
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Purchase](ctx, businessId, id, "Items")
}

// GetPurchaseWithItems returns a non-cancelled purchase and its line items.
// Cancelled or missing purchases surface as RecordNotFound, which the
// import-cost flow reports before any allocation is attempted.
func GetPurchaseWithItems(ctx context.Context, id int) (*Purchase, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var purchase Purchase
	err := db.WithContext(ctx).
		Where("business_id = ? AND current_status <> ?", businessId, PurchaseStatusCancelled).
		Preload("Items").
		First(&purchase, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &purchase, nil
}

func ListPurchase(ctx context.Context, providerId *int, status *PurchaseStatus) ([]*Purchase, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Purchase

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if providerId != nil && *providerId > 0 {
		dbCtx = dbCtx.Where("provider_id = ?", *providerId)
	}
	if status != nil && status.Valid() {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	// db query
	err := dbCtx.Preload("Items").Order("purchase_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
