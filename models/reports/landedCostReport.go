package reports

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/models"
	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type LandedCostDetailRow struct {
	ProductId   int             `json:"ProductId"`
	ProductName *string         `json:"ProductName,omitempty"`
	Sku         *string         `json:"Sku,omitempty"`
	Quantity    decimal.Decimal `json:"Quantity"`
	UnitPrice   decimal.Decimal `json:"UnitPrice"`
	Coefficient decimal.Decimal `json:"Coefficient"`
	UnitCost    decimal.Decimal `json:"UnitCost"`
}

type LandedCostReport struct {
	ImportCost *models.ImportCost     `json:"ImportCost"`
	Rows       []*LandedCostDetailRow `json:"Rows"`
}

// GetLandedCostReport joins one import-cost allocation with product names and
// the purchase quantities the coefficients were computed from.
func GetLandedCostReport(ctx context.Context, importCostId int) (*LandedCostReport, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	importCost, err := models.GetImportCost(ctx, importCostId)
	if err != nil {
		return nil, err
	}

	sql := `
SELECT
    icd.product_id,
    products.name AS product_name,
    products.sku,
    pi.quantity,
    pi.unit_price,
    icd.coefficient,
    icd.unit_cost
FROM
    import_cost_details icd
    LEFT JOIN products ON products.id = icd.product_id
    LEFT JOIN purchase_items pi
        ON pi.product_id = icd.product_id AND pi.purchase_id = @purchaseId
WHERE
    icd.import_cost_id = @importCostId
ORDER BY icd.id;
`
	var rows []*LandedCostDetailRow
	db := config.GetDB()
	err = db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"purchaseId":   importCost.PurchaseId,
		"importCostId": importCostId,
	}).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return &LandedCostReport{ImportCost: importCost, Rows: rows}, nil
}

// ExportLandedCostExcel renders the report as a one-sheet workbook: header
// totals first, then one row per allocated product.
func ExportLandedCostExcel(ctx context.Context, importCostId int) (*excelize.File, error) {

	report, err := GetLandedCostReport(ctx, importCostId)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "LandedCost"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheet, "A1", "Purchase")
	f.SetCellValue(sheet, "B1", report.ImportCost.PurchaseId)
	f.SetCellValue(sheet, "A2", "FOB Value")
	f.SetCellValue(sheet, "B2", report.ImportCost.FobValue.InexactFloat64())
	f.SetCellValue(sheet, "A3", "CIF Value")
	f.SetCellValue(sheet, "B3", report.ImportCost.CifValue.InexactFloat64())
	f.SetCellValue(sheet, "A4", "Net Total Warehouse Cost")
	f.SetCellValue(sheet, "B4", report.ImportCost.NetTotalWarehouseCost.InexactFloat64())

	headers := []string{"Sku", "Product", "Quantity", "Unit Price", "Coefficient", "Unit Cost"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 6)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, h)
	}

	for i, row := range report.Rows {
		rowNo := 7 + i
		sku := ""
		if row.Sku != nil {
			sku = *row.Sku
		}
		name := fmt.Sprint(row.ProductId)
		if row.ProductName != nil {
			name = *row.ProductName
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNo), sku)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNo), name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNo), row.Quantity.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNo), row.UnitPrice.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNo), row.Coefficient.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNo), row.UnitCost.InexactFloat64())
	}

	return f, nil
}
