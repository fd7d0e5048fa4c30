package landedcost

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func item(productId int, qty, price string) LineItem {
	return LineItem{ProductId: productId, Quantity: d(qty), UnitPrice: d(price)}
}

func TestAllocate_WorkedExample(t *testing.T) {
	items := []LineItem{
		item(1, "10", "5.00"),
		item(2, "5", "20.00"),
	}
	costs := CostBreakdown{
		MaritimeTransport:  d("10"),
		LandTransport:      d("5"),
		TotalWarehouseCost: d("200"),
		CfIva:              d("20"),
	}

	result, err := Allocate(items, costs)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if !result.FobValue.Equal(d("150.00")) {
		t.Errorf("FobValue = %s, want 150.00", result.FobValue)
	}
	if !result.CifValue.Equal(d("165.00")) {
		t.Errorf("CifValue = %s, want 165.00", result.CifValue)
	}
	if !result.NetTotalWarehouseCost.Equal(d("180.00")) {
		t.Errorf("NetTotalWarehouseCost = %s, want 180.00", result.NetTotalWarehouseCost)
	}

	if len(result.ItemAllocations) != 2 {
		t.Fatalf("got %d allocations, want 2", len(result.ItemAllocations))
	}
	if got := result.ItemAllocations[0]; got.ProductId != 1 || !got.UnitCost.Equal(d("6.00")) {
		t.Errorf("allocation[0] = {%d %s}, want {1 6.00}", got.ProductId, got.UnitCost)
	}
	if got := result.ItemAllocations[1]; got.ProductId != 2 || !got.UnitCost.Equal(d("24.00")) {
		t.Errorf("allocation[1] = {%d %s}, want {2 24.00}", got.ProductId, got.UnitCost)
	}
}

func TestAllocate_CoefficientsSumToOne(t *testing.T) {
	cases := [][]LineItem{
		{item(1, "1", "0.01")},
		{item(1, "10", "5"), item(2, "5", "20")},
		{item(1, "3", "33.33"), item(2, "7", "0.07"), item(3, "11", "149.99")},
		{item(1, "1", "1"), item(2, "1", "1"), item(3, "1", "1")},
	}

	tolerance := d("0.000000001")
	for _, items := range cases {
		result, err := Allocate(items, CostBreakdown{TotalWarehouseCost: d("100")})
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		sum := decimal.Zero
		for _, alloc := range result.ItemAllocations {
			sum = sum.Add(alloc.Coefficient)
		}
		if sum.Sub(d("1")).Abs().GreaterThan(tolerance) {
			t.Errorf("coefficients sum to %s for %d items, want 1 within 1e-9", sum, len(items))
		}
	}
}

func TestAllocate_SingleItem(t *testing.T) {
	result, err := Allocate([]LineItem{item(7, "4", "12.50")}, CostBreakdown{
		TotalWarehouseCost: d("130"),
		CfIva:              d("10"),
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !result.ItemAllocations[0].Coefficient.Equal(d("1")) {
		t.Errorf("coefficient = %s, want 1", result.ItemAllocations[0].Coefficient)
	}
	// 120 / 4
	if !result.ItemAllocations[0].UnitCost.Equal(d("30.00")) {
		t.Errorf("unit cost = %s, want 30.00", result.ItemAllocations[0].UnitCost)
	}
}

func TestAllocate_CifCategoryExclusion(t *testing.T) {
	items := []LineItem{item(1, "2", "50")}
	base := CostBreakdown{
		MaritimeTransport:  d("30"),
		TotalWarehouseCost: d("150"),
	}

	baseline, err := Allocate(items, base)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// A non-CIF category must not move CifValue.
	withDuty := base
	withDuty.CustomsDuties = d("40")
	result, err := Allocate(items, withDuty)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !result.CifValue.Equal(baseline.CifValue) {
		t.Errorf("customs duty changed CifValue: %s -> %s", baseline.CifValue, result.CifValue)
	}

	// A CIF category must move CifValue by exactly its delta.
	moreFreight := base
	moreFreight.MaritimeTransport = base.MaritimeTransport.Add(d("12.34"))
	result, err = Allocate(items, moreFreight)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !result.CifValue.Sub(baseline.CifValue).Equal(d("12.34")) {
		t.Errorf("CifValue delta = %s, want 12.34", result.CifValue.Sub(baseline.CifValue))
	}
}

func TestAllocate_NegativeNetCostPassesThrough(t *testing.T) {
	result, err := Allocate([]LineItem{item(1, "5", "10")}, CostBreakdown{
		TotalWarehouseCost: d("50"),
		CfIva:              d("80"),
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !result.NetTotalWarehouseCost.Equal(d("-30.00")) {
		t.Errorf("NetTotalWarehouseCost = %s, want -30.00", result.NetTotalWarehouseCost)
	}
	if !result.ItemAllocations[0].UnitCost.Equal(d("-6.00")) {
		t.Errorf("unit cost = %s, want -6.00", result.ItemAllocations[0].UnitCost)
	}
}

func TestAllocate_InvalidInputs(t *testing.T) {
	costs := CostBreakdown{TotalWarehouseCost: d("100")}

	cases := []struct {
		name  string
		items []LineItem
	}{
		{"empty items", nil},
		{"zero quantity", []LineItem{item(1, "0", "10")}},
		{"negative quantity", []LineItem{item(1, "2", "5"), item(2, "-1", "5")}},
		{"zero FOB", []LineItem{item(1, "3", "0"), item(2, "2", "0")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Allocate(tc.items, costs)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if result != nil {
				t.Fatalf("expected nil result on error, got %+v", result)
			}
		})
	}
}

func TestAllocate_UsesFullPrecisionNetCost(t *testing.T) {
	// NTWC = 1.009. Per-unit math from the full-precision value:
	// 1.009 / 2 = 0.5045 -> 0.50. Starting from the rounded report value
	// instead would give 1.01 / 2 = 0.505 -> 0.51.
	result, err := Allocate([]LineItem{item(1, "2", "10")}, CostBreakdown{
		TotalWarehouseCost: d("1.009"),
		CfIva:              d("0"),
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !result.ItemAllocations[0].UnitCost.Equal(d("0.50")) {
		t.Errorf("unit cost = %s, want 0.50", result.ItemAllocations[0].UnitCost)
	}
	if !result.NetTotalWarehouseCost.Equal(d("1.01")) {
		t.Errorf("NetTotalWarehouseCost = %s, want 1.01", result.NetTotalWarehouseCost)
	}
}

func TestAllocate_RoundingIsPerItem(t *testing.T) {
	// Three equal items sharing 100: each gets 33.33, summing to 99.99.
	// The 0.01 drift is accepted, never redistributed.
	items := []LineItem{item(1, "1", "10"), item(2, "1", "10"), item(3, "1", "10")}
	result, err := Allocate(items, CostBreakdown{TotalWarehouseCost: d("100")})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	total := decimal.Zero
	for _, alloc := range result.ItemAllocations {
		if !alloc.UnitCost.Equal(d("33.33")) {
			t.Errorf("unit cost = %s, want 33.33", alloc.UnitCost)
		}
		total = total.Add(alloc.UnitCost)
	}
	if !total.Equal(d("99.99")) {
		t.Errorf("summed unit costs = %s, want 99.99", total)
	}
}

func TestAllocate_OrderPreserved(t *testing.T) {
	items := []LineItem{item(9, "1", "1"), item(3, "1", "2"), item(5, "1", "3")}
	result, err := Allocate(items, CostBreakdown{TotalWarehouseCost: d("60")})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for i, alloc := range result.ItemAllocations {
		if alloc.ProductId != items[i].ProductId {
			t.Errorf("allocation[%d].ProductId = %d, want %d", i, alloc.ProductId, items[i].ProductId)
		}
	}
}
