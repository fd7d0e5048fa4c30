package main

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"
	"strconv"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/landedcost"
	"bitbucket.org/andeansoft/procurement_backend/models"
	"bitbucket.org/andeansoft/procurement_backend/models/reports"
	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, landedcost.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		if isServerError(err) {
			config.LogError(config.GetLogger(), "api.go", "respondError", "unexpected error", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// isServerError reports whether err is an infrastructure failure rather than a
// bad request. Duplicate-entry errors never reach here; models translate them.
func isServerError(err error) bool {
	var mysqlErr *mysql.MySQLError
	var netErr net.Error
	return errors.As(err, &mysqlErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction)
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

/* products */

func createProductHandler(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func updateProductHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func deleteProductHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	product, err := models.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func getProductHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func listProductHandler(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	result, err := models.ListProduct(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type toggleActiveInput struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleActiveProductHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input toggleActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	product, err := models.ToggleActiveProduct(c.Request.Context(), id, *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

/* providers */

func createProviderHandler(c *gin.Context) {
	var input models.NewProvider
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	provider, err := models.CreateProvider(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, provider)
}

func updateProviderHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewProvider
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	provider, err := models.UpdateProvider(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

func deleteProviderHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	provider, err := models.DeleteProvider(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

func getProviderHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	provider, err := models.GetProvider(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

func listProviderHandler(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	result, err := models.ListProvider(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func toggleActiveProviderHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input toggleActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	provider, err := models.ToggleActiveProvider(c.Request.Context(), id, *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

/* warehouses */

func createWarehouseHandler(c *gin.Context) {
	var input models.NewWarehouse
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	warehouse, err := models.CreateWarehouse(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, warehouse)
}

func updateWarehouseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewWarehouse
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	warehouse, err := models.UpdateWarehouse(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func deleteWarehouseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	warehouse, err := models.DeleteWarehouse(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func getWarehouseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	warehouse, err := models.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func listWarehouseHandler(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	result, err := models.ListWarehouse(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func toggleActiveWarehouseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input toggleActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	warehouse, err := models.ToggleActiveWarehouse(c.Request.Context(), id, *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

/* purchases */

func createPurchaseHandler(c *gin.Context) {
	var input models.NewPurchase
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	purchase, err := models.CreatePurchase(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

func updatePurchaseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewPurchase
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	purchase, err := models.UpdatePurchase(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func getPurchaseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	purchase, err := models.GetPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func listPurchaseHandler(c *gin.Context) {
	var providerId *int
	if v := c.Query("provider_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			providerId = &n
		}
	}
	var status *models.PurchaseStatus
	if v := c.Query("status"); v != "" {
		s := models.PurchaseStatus(v)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &s
	}
	result, err := models.ListPurchase(c.Request.Context(), providerId, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func confirmPurchaseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	purchase, err := models.ConfirmPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func cancelPurchaseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	purchase, err := models.CancelPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

/* import costs */

func applyImportCostHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewImportCost
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	importCost, err := models.ApplyImportCost(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, importCost)
}

func getImportCostHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	importCost, err := models.GetImportCost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, importCost)
}

func listImportCostByPurchaseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	result, err := models.ListImportCostByPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func getLandedCostReportHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	report, err := reports.GetLandedCostReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func exportImportCostHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx, span := tracer.Start(c.Request.Context(), "exportImportCost")
	defer span.End()

	f, err := reports.ExportLandedCostExcel(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="landed-cost.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "api.go", "exportImportCostHandler", "excelize write", id, err)
	}
}
