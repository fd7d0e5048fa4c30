package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/landedcost"
	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ImportCost persists one cost-breakdown submission together with the totals
// the allocation engine derived from it. Category notes are free text the
// screens attach; they never feed the computation.
type ImportCost struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	PurchaseId int    `gorm:"index;not null" json:"purchase_id"`

	MaritimeTransport           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"maritime_transport"`
	MaritimeTransportNote       string          `gorm:"size:255" json:"maritime_transport_note"`
	LandTransport               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"land_transport"`
	LandTransportNote           string          `gorm:"size:255" json:"land_transport_note"`
	ForeignInsurance            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"foreign_insurance"`
	ForeignInsuranceNote        string          `gorm:"size:255" json:"foreign_insurance_note"`
	PortExpenses                decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"port_expenses"`
	PortExpensesNote            string          `gorm:"size:255" json:"port_expenses_note"`
	IntermediaryCommissions     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"intermediary_commissions"`
	IntermediaryCommissionsNote string          `gorm:"size:255" json:"intermediary_commissions_note"`
	OtherExpensesI              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"other_expenses_i"`
	OtherExpensesINote          string          `gorm:"size:255" json:"other_expenses_i_note"`

	CustomsDuties            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"customs_duties"`
	CustomsDutiesNote        string          `gorm:"size:255" json:"customs_duties_note"`
	CustomsVat               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"customs_vat"`
	CustomsVatNote           string          `gorm:"size:255" json:"customs_vat_note"`
	NationalTransport        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"national_transport"`
	NationalTransportNote    string          `gorm:"size:255" json:"national_transport_note"`
	HandlingStorage          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"handling_storage"`
	HandlingStorageNote      string          `gorm:"size:255" json:"handling_storage_note"`
	ChamberOfCommerce        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"chamber_of_commerce"`
	ChamberOfCommerceNote    string          `gorm:"size:255" json:"chamber_of_commerce_note"`
	SanitaryRegistry         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sanitary_registry"`
	SanitaryRegistryNote     string          `gorm:"size:255" json:"sanitary_registry_note"`
	FinancialCommissions     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"financial_commissions"`
	FinancialCommissionsNote string          `gorm:"size:255" json:"financial_commissions_note"`
	OtherCommissions         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"other_commissions"`
	OtherCommissionsNote     string          `gorm:"size:255" json:"other_commissions_note"`
	OtherExpensesII          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"other_expenses_ii"`
	OtherExpensesIINote      string          `gorm:"size:255" json:"other_expenses_ii_note"`
	OptionalExpenses         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"optional_expenses"`
	OptionalExpensesNote     string          `gorm:"size:255" json:"optional_expenses_note"`

	// Supplied by the caller, never re-derived from the categories above.
	TotalWarehouseCost decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_warehouse_cost"`
	CfIva              decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cf_iva"`

	// Engine output.
	FobValue              decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"fob_value"`
	CifValue              decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cif_value"`
	NetTotalWarehouseCost decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"net_total_warehouse_cost"`

	Details   []ImportCostDetail `json:"details"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ic ImportCost) GetBusinessId() string {
	return ic.BusinessId
}

// ImportCostDetail is one allocation row per purchased product, in purchase
// item order.
type ImportCostDetail struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ImportCostId int             `gorm:"index;not null" json:"import_cost_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	Coefficient  decimal.Decimal `gorm:"type:decimal(20,10);not null" json:"coefficient"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
}

type NewImportCost struct {
	MaritimeTransport           decimal.Decimal `json:"maritime_transport"`
	MaritimeTransportNote       string          `json:"maritime_transport_note"`
	LandTransport               decimal.Decimal `json:"land_transport"`
	LandTransportNote           string          `json:"land_transport_note"`
	ForeignInsurance            decimal.Decimal `json:"foreign_insurance"`
	ForeignInsuranceNote        string          `json:"foreign_insurance_note"`
	PortExpenses                decimal.Decimal `json:"port_expenses"`
	PortExpensesNote            string          `json:"port_expenses_note"`
	IntermediaryCommissions     decimal.Decimal `json:"intermediary_commissions"`
	IntermediaryCommissionsNote string          `json:"intermediary_commissions_note"`
	OtherExpensesI              decimal.Decimal `json:"other_expenses_i"`
	OtherExpensesINote          string          `json:"other_expenses_i_note"`

	CustomsDuties            decimal.Decimal `json:"customs_duties"`
	CustomsDutiesNote        string          `json:"customs_duties_note"`
	CustomsVat               decimal.Decimal `json:"customs_vat"`
	CustomsVatNote           string          `json:"customs_vat_note"`
	NationalTransport        decimal.Decimal `json:"national_transport"`
	NationalTransportNote    string          `json:"national_transport_note"`
	HandlingStorage          decimal.Decimal `json:"handling_storage"`
	HandlingStorageNote      string          `json:"handling_storage_note"`
	ChamberOfCommerce        decimal.Decimal `json:"chamber_of_commerce"`
	ChamberOfCommerceNote    string          `json:"chamber_of_commerce_note"`
	SanitaryRegistry         decimal.Decimal `json:"sanitary_registry"`
	SanitaryRegistryNote     string          `json:"sanitary_registry_note"`
	FinancialCommissions     decimal.Decimal `json:"financial_commissions"`
	FinancialCommissionsNote string          `json:"financial_commissions_note"`
	OtherCommissions         decimal.Decimal `json:"other_commissions"`
	OtherCommissionsNote     string          `json:"other_commissions_note"`
	OtherExpensesII          decimal.Decimal `json:"other_expenses_ii"`
	OtherExpensesIINote      string          `json:"other_expenses_ii_note"`
	OptionalExpenses         decimal.Decimal `json:"optional_expenses"`
	OptionalExpensesNote     string          `json:"optional_expenses_note"`

	TotalWarehouseCost decimal.Decimal `json:"total_warehouse_cost"`
	CfIva              decimal.Decimal `json:"cf_iva"`

	// UpdateProductCosts controls whether each product's landed unit cost is
	// refreshed from the allocation.
	UpdateProductCosts *bool `json:"update_product_costs"`
}

// every monetary field must be >= 0 before the engine runs
func (input *NewImportCost) validate() error {
	fields := map[string]decimal.Decimal{
		"maritime_transport":       input.MaritimeTransport,
		"land_transport":           input.LandTransport,
		"foreign_insurance":        input.ForeignInsurance,
		"port_expenses":            input.PortExpenses,
		"intermediary_commissions": input.IntermediaryCommissions,
		"other_expenses_i":         input.OtherExpensesI,
		"customs_duties":           input.CustomsDuties,
		"customs_vat":              input.CustomsVat,
		"national_transport":       input.NationalTransport,
		"handling_storage":         input.HandlingStorage,
		"chamber_of_commerce":      input.ChamberOfCommerce,
		"sanitary_registry":        input.SanitaryRegistry,
		"financial_commissions":    input.FinancialCommissions,
		"other_commissions":        input.OtherCommissions,
		"other_expenses_ii":        input.OtherExpensesII,
		"optional_expenses":        input.OptionalExpenses,
		"total_warehouse_cost":     input.TotalWarehouseCost,
		"cf_iva":                   input.CfIva,
	}
	for name, value := range fields {
		if value.IsNegative() {
			return errors.New(name + " must not be negative")
		}
	}
	return nil
}

func (input *NewImportCost) costBreakdown() landedcost.CostBreakdown {
	return landedcost.CostBreakdown{
		MaritimeTransport:       input.MaritimeTransport,
		LandTransport:           input.LandTransport,
		ForeignInsurance:        input.ForeignInsurance,
		PortExpenses:            input.PortExpenses,
		IntermediaryCommissions: input.IntermediaryCommissions,
		OtherExpensesI:          input.OtherExpensesI,
		CustomsDuties:           input.CustomsDuties,
		CustomsVat:              input.CustomsVat,
		NationalTransport:       input.NationalTransport,
		HandlingStorage:         input.HandlingStorage,
		ChamberOfCommerce:       input.ChamberOfCommerce,
		SanitaryRegistry:        input.SanitaryRegistry,
		FinancialCommissions:    input.FinancialCommissions,
		OtherCommissions:        input.OtherCommissions,
		OtherExpensesII:         input.OtherExpensesII,
		OptionalExpenses:        input.OptionalExpenses,
		TotalWarehouseCost:      input.TotalWarehouseCost,
		CfIva:                   input.CfIva,
	}
}

// ApplyImportCost runs the landed-cost allocation for a purchase and persists
// the outcome: one ImportCost header plus one detail row per product, the
// purchase marked Costed, and (optionally) each product's landed unit cost
// refreshed.
//
// The purchase fetch happens first; a missing or cancelled purchase is
// reported before the engine runs. Only Confirmed purchases can be costed.
// The Confirmed -> Costed transition is a conditional UPDATE inside the
// transaction, so of two racing applies exactly one commits; the redis lock
// on top only rejects the loser early.
func ApplyImportCost(ctx context.Context, purchaseId int, input *NewImportCost) (*ImportCost, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	if locker := config.GetRedisLock(); locker != nil {
		lockKey := fmt.Sprintf("import-cost:%s:%d", businessId, purchaseId)
		lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
		switch {
		case err == nil:
			defer lock.Release(context.WithoutCancel(ctx))
		case errors.Is(err, redislock.ErrNotObtained):
			return nil, errors.New("import cost apply already in progress")
		default:
			// redis trouble is not a reason to refuse; the transaction below
			// still guards the transition
			config.LogError(config.GetLogger(), "importCost.go", "ApplyImportCost", "redislock", purchaseId, err)
		}
	}

	purchase, err := GetPurchaseWithItems(ctx, purchaseId)
	if err != nil {
		return nil, err
	}
	if purchase.CurrentStatus == PurchaseStatusCosted {
		return nil, errors.New("purchase already costed")
	}
	if purchase.CurrentStatus != PurchaseStatusConfirmed {
		return nil, errors.New("only confirmed purchases can be costed")
	}

	items := make([]landedcost.LineItem, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		items = append(items, landedcost.LineItem{
			ProductId: item.ProductId,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	result, err := landedcost.Allocate(items, input.costBreakdown())
	if err != nil {
		return nil, err
	}

	importCost := ImportCost{
		BusinessId: businessId,
		PurchaseId: purchaseId,

		MaritimeTransport:           input.MaritimeTransport,
		MaritimeTransportNote:       input.MaritimeTransportNote,
		LandTransport:               input.LandTransport,
		LandTransportNote:           input.LandTransportNote,
		ForeignInsurance:            input.ForeignInsurance,
		ForeignInsuranceNote:        input.ForeignInsuranceNote,
		PortExpenses:                input.PortExpenses,
		PortExpensesNote:            input.PortExpensesNote,
		IntermediaryCommissions:     input.IntermediaryCommissions,
		IntermediaryCommissionsNote: input.IntermediaryCommissionsNote,
		OtherExpensesI:              input.OtherExpensesI,
		OtherExpensesINote:          input.OtherExpensesINote,

		CustomsDuties:            input.CustomsDuties,
		CustomsDutiesNote:        input.CustomsDutiesNote,
		CustomsVat:               input.CustomsVat,
		CustomsVatNote:           input.CustomsVatNote,
		NationalTransport:        input.NationalTransport,
		NationalTransportNote:    input.NationalTransportNote,
		HandlingStorage:          input.HandlingStorage,
		HandlingStorageNote:      input.HandlingStorageNote,
		ChamberOfCommerce:        input.ChamberOfCommerce,
		ChamberOfCommerceNote:    input.ChamberOfCommerceNote,
		SanitaryRegistry:         input.SanitaryRegistry,
		SanitaryRegistryNote:     input.SanitaryRegistryNote,
		FinancialCommissions:     input.FinancialCommissions,
		FinancialCommissionsNote: input.FinancialCommissionsNote,
		OtherCommissions:         input.OtherCommissions,
		OtherCommissionsNote:     input.OtherCommissionsNote,
		OtherExpensesII:          input.OtherExpensesII,
		OtherExpensesIINote:      input.OtherExpensesIINote,
		OptionalExpenses:         input.OptionalExpenses,
		OptionalExpensesNote:     input.OptionalExpensesNote,

		TotalWarehouseCost: input.TotalWarehouseCost,
		CfIva:              input.CfIva,

		FobValue:              result.FobValue,
		CifValue:              result.CifValue,
		NetTotalWarehouseCost: result.NetTotalWarehouseCost,
	}
	for _, alloc := range result.ItemAllocations {
		importCost.Details = append(importCost.Details, ImportCostDetail{
			ProductId:   alloc.ProductId,
			Coefficient: alloc.Coefficient,
			UnitCost:    alloc.UnitCost,
		})
	}

	updateProducts := input.UpdateProductCosts == nil || *input.UpdateProductCosts

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional transition is the real double-apply guard: the UPDATE
		// takes the row lock, so a racing apply blocks here and then matches
		// zero rows.
		res := tx.Model(&Purchase{}).
			Where("id = ? AND current_status = ?", purchaseId, PurchaseStatusConfirmed).
			Update("current_status", PurchaseStatusCosted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("purchase already costed")
		}

		if err := tx.Create(&importCost).Error; err != nil {
			return err
		}
		if updateProducts {
			for _, alloc := range result.ItemAllocations {
				if err := tx.Model(&Product{}).Where("id = ? AND business_id = ?", alloc.ProductId, businessId).
					Update("landed_unit_cost", alloc.UnitCost).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updateProducts {
		for _, alloc := range result.ItemAllocations {
			if err := utils.InvalidateRedis[Product](alloc.ProductId); err != nil {
				config.LogError(config.GetLogger(), "importCost.go", "ApplyImportCost", "invalidate product cache", alloc.ProductId, err)
			}
		}
	}

	return &importCost, nil
}

func GetImportCost(ctx context.Context, id int) (*ImportCost, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[ImportCost](ctx, businessId, id, "Details")
}

func ListImportCostByPurchase(ctx context.Context, purchaseId int) ([]*ImportCost, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*ImportCost
	err := db.WithContext(ctx).
		Where("business_id = ? AND purchase_id = ?", businessId, purchaseId).
		Preload("Details").
		Order("created_at").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
