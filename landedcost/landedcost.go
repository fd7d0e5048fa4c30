package landedcost

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput wraps every degenerate-input failure of Allocate.
// Callers should test with errors.Is.
var ErrInvalidInput = errors.New("invalid allocation input")

func invalidInput(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

type LineItem struct {
	ProductId int
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// CostBreakdown is one import-cost submission. Only the CIF group and the two
// aggregates participate in the computation; the remaining categories are
// carried so one struct mirrors the persisted record.
//
// TotalWarehouseCost and CfIva are trusted as supplied. They are NOT
// re-derived from the category fields: several categories carry their own VAT
// sub-amounts upstream, so the aggregate can legitimately differ from the sum
// of the values seen here.
type CostBreakdown struct {
	// CIF group: the shipment costs customs valuation includes.
	MaritimeTransport       decimal.Decimal
	LandTransport           decimal.Decimal
	ForeignInsurance        decimal.Decimal
	PortExpenses            decimal.Decimal
	IntermediaryCommissions decimal.Decimal
	OtherExpensesI          decimal.Decimal

	// Post-importation categories, excluded from CIF.
	CustomsDuties        decimal.Decimal
	CustomsVat           decimal.Decimal
	NationalTransport    decimal.Decimal
	HandlingStorage      decimal.Decimal
	ChamberOfCommerce    decimal.Decimal
	SanitaryRegistry     decimal.Decimal
	FinancialCommissions decimal.Decimal
	OtherCommissions     decimal.Decimal
	OtherExpensesII      decimal.Decimal
	OptionalExpenses     decimal.Decimal

	TotalWarehouseCost decimal.Decimal
	CfIva              decimal.Decimal
}

type ItemAllocation struct {
	ProductId   int
	Coefficient decimal.Decimal
	UnitCost    decimal.Decimal
}

type Result struct {
	FobValue              decimal.Decimal
	CifValue              decimal.Decimal
	NetTotalWarehouseCost decimal.Decimal
	ItemAllocations       []ItemAllocation
}

// Allocate distributes an import-cost submission over a purchase's line items
// proportionally to each item's share of the FOB value, and derives the
// per-unit landed cost of every product.
//
// It is a pure function: no I/O, no shared state, safe to call concurrently.
// Either a complete Result is returned or an error; there is no partial state.
func Allocate(items []LineItem, costs CostBreakdown) (*Result, error) {
	if len(items) == 0 {
		return nil, invalidInput("no purchase items")
	}

	// FOB: sum of full-precision subtotals. No rounding before summation.
	fob := decimal.Zero
	subtotals := make([]decimal.Decimal, len(items))
	for i, item := range items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, invalidInput("non-positive quantity")
		}
		subtotals[i] = item.Quantity.Mul(item.UnitPrice)
		fob = fob.Add(subtotals[i])
	}
	if fob.IsZero() {
		// coefficient division would be undefined
		return nil, invalidInput("cannot allocate zero FOB")
	}

	cif := fob.
		Add(costs.MaritimeTransport).
		Add(costs.LandTransport).
		Add(costs.ForeignInsurance).
		Add(costs.PortExpenses).
		Add(costs.IntermediaryCommissions).
		Add(costs.OtherExpensesI)

	// Net total warehouse cost. May go negative when CfIva exceeds the total;
	// passed through unmodified. Per-item math below uses the full-precision
	// value, the reported field is rounded separately.
	ntwc := costs.TotalWarehouseCost.Sub(costs.CfIva)

	allocations := make([]ItemAllocation, len(items))
	for i, item := range items {
		coefficient := subtotals[i].Div(fob)
		unitCost := ntwc.Mul(coefficient).Div(item.Quantity).Round(2)
		allocations[i] = ItemAllocation{
			ProductId:   item.ProductId,
			Coefficient: coefficient,
			UnitCost:    unitCost,
		}
	}

	return &Result{
		FobValue:              fob.Round(2),
		CifValue:              cif.Round(2),
		NetTotalWarehouseCost: ntwc.Round(2),
		ItemAllocations:       allocations,
	}, nil
}
