package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewImportCostValidateRejectsNegatives(t *testing.T) {
	input := &NewImportCost{
		TotalWarehouseCost: decimal.NewFromInt(100),
	}
	if err := input.validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	input.CustomsDuties = decimal.NewFromInt(-1)
	if err := input.validate(); err == nil {
		t.Error("negative customs_duties accepted")
	}

	input.CustomsDuties = decimal.Zero
	input.CfIva = decimal.NewFromInt(-5)
	if err := input.validate(); err == nil {
		t.Error("negative cf_iva accepted")
	}
}

func TestNewImportCostCfIvaMayExceedTotal(t *testing.T) {
	// Recoverable VAT larger than the total is unusual but legal; the engine
	// passes the negative net cost through.
	input := &NewImportCost{
		TotalWarehouseCost: decimal.NewFromInt(50),
		CfIva:              decimal.NewFromInt(80),
	}
	if err := input.validate(); err != nil {
		t.Fatalf("cf_iva > total rejected: %v", err)
	}
}

func TestNewImportCostCostBreakdownMapping(t *testing.T) {
	input := &NewImportCost{
		MaritimeTransport:  decimal.NewFromInt(10),
		LandTransport:      decimal.NewFromInt(5),
		CustomsDuties:      decimal.NewFromInt(7),
		TotalWarehouseCost: decimal.NewFromInt(200),
		CfIva:              decimal.NewFromInt(20),
	}
	costs := input.costBreakdown()

	if !costs.MaritimeTransport.Equal(input.MaritimeTransport) {
		t.Errorf("MaritimeTransport = %s", costs.MaritimeTransport)
	}
	if !costs.LandTransport.Equal(input.LandTransport) {
		t.Errorf("LandTransport = %s", costs.LandTransport)
	}
	if !costs.CustomsDuties.Equal(input.CustomsDuties) {
		t.Errorf("CustomsDuties = %s", costs.CustomsDuties)
	}
	if !costs.TotalWarehouseCost.Equal(input.TotalWarehouseCost) {
		t.Errorf("TotalWarehouseCost = %s", costs.TotalWarehouseCost)
	}
	if !costs.CfIva.Equal(input.CfIva) {
		t.Errorf("CfIva = %s", costs.CfIva)
	}
}
