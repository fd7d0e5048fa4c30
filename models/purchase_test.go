package models

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

// Degenerate item sets are rejected before any database lookups run, so these
// paths are testable without a connection.
func TestNewPurchaseValidateRejectsBadItems(t *testing.T) {
	ctx := context.Background()

	empty := &NewPurchase{ProviderId: 1, WarehouseId: 1, InvoiceNumber: "INV-1"}
	if err := empty.validate(ctx, "biz"); err == nil {
		t.Error("empty item set accepted")
	}

	zeroQty := &NewPurchase{
		ProviderId: 1, WarehouseId: 1, InvoiceNumber: "INV-1",
		Items: []NewPurchaseItem{
			{ProductId: 1, Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(5)},
		},
	}
	if err := zeroQty.validate(ctx, "biz"); err == nil {
		t.Error("zero quantity accepted")
	}

	negativePrice := &NewPurchase{
		ProviderId: 1, WarehouseId: 1, InvoiceNumber: "INV-1",
		Items: []NewPurchaseItem{
			{ProductId: 1, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(-3)},
		},
	}
	if err := negativePrice.validate(ctx, "biz"); err == nil {
		t.Error("negative unit price accepted")
	}
}
