package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/andeansoft/procurement_backend/config"
	"bitbucket.org/andeansoft/procurement_backend/models"
	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Regression: applying an import cost must persist the header totals and one
// detail row per item, flip the purchase to Costed, refresh product landed
// costs, and refuse a second application.
func TestApplyImportCost_EndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "procurement_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	businessID := uuid.NewString()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)
	ctx = utils.SetUserIdInContext(ctx, 1)

	provider, err := models.CreateProvider(ctx, &models.NewProvider{
		Name:         "Importadora Andina",
		PaymentTerms: models.PaymentTermsNet30,
	})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{
		Name:   "Central Warehouse",
		Region: models.BranchRegionCapital,
	})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}

	widget, err := models.CreateProduct(ctx, &models.NewProduct{
		Sku:            "WID-001",
		Name:           "Widget",
		Classification: models.ClassificationFinishedGood,
	})
	if err != nil {
		t.Fatalf("CreateProduct(widget): %v", err)
	}
	gadget, err := models.CreateProduct(ctx, &models.NewProduct{
		Sku:            "GAD-001",
		Name:           "Gadget",
		Classification: models.ClassificationFinishedGood,
	})
	if err != nil {
		t.Fatalf("CreateProduct(gadget): %v", err)
	}

	purchase, err := models.CreatePurchase(ctx, &models.NewPurchase{
		ProviderId:    provider.ID,
		WarehouseId:   warehouse.ID,
		InvoiceNumber: "INV-1001",
		PurchaseDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Items: []models.NewPurchaseItem{
			{ProductId: widget.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(5)},
			{ProductId: gadget.ID, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(20)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if _, err := models.ConfirmPurchase(ctx, purchase.ID); err != nil {
		t.Fatalf("ConfirmPurchase: %v", err)
	}

	importCost, err := models.ApplyImportCost(ctx, purchase.ID, &models.NewImportCost{
		MaritimeTransport:  decimal.NewFromInt(10),
		LandTransport:      decimal.NewFromInt(5),
		TotalWarehouseCost: decimal.NewFromInt(200),
		CfIva:              decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("ApplyImportCost: %v", err)
	}

	if importCost.FobValue.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Errorf("FobValue = %s, want 150", importCost.FobValue)
	}
	if importCost.CifValue.Cmp(decimal.NewFromInt(165)) != 0 {
		t.Errorf("CifValue = %s, want 165", importCost.CifValue)
	}
	if importCost.NetTotalWarehouseCost.Cmp(decimal.NewFromInt(180)) != 0 {
		t.Errorf("NetTotalWarehouseCost = %s, want 180", importCost.NetTotalWarehouseCost)
	}
	if len(importCost.Details) != 2 {
		t.Fatalf("got %d details, want 2", len(importCost.Details))
	}
	if importCost.Details[0].UnitCost.Cmp(decimal.NewFromInt(6)) != 0 {
		t.Errorf("widget unit cost = %s, want 6", importCost.Details[0].UnitCost)
	}
	if importCost.Details[1].UnitCost.Cmp(decimal.NewFromInt(24)) != 0 {
		t.Errorf("gadget unit cost = %s, want 24", importCost.Details[1].UnitCost)
	}

	// purchase is now Costed
	updated, err := models.GetPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("GetPurchase: %v", err)
	}
	if updated.CurrentStatus != models.PurchaseStatusCosted {
		t.Errorf("purchase status = %s, want Costed", updated.CurrentStatus)
	}

	// product landed costs refreshed
	widgetAfter, err := models.GetProduct(ctx, widget.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if widgetAfter.LandedUnitCost.Cmp(decimal.NewFromInt(6)) != 0 {
		t.Errorf("widget landed unit cost = %s, want 6", widgetAfter.LandedUnitCost)
	}

	// second application must be refused
	if _, err := models.ApplyImportCost(ctx, purchase.ID, &models.NewImportCost{
		TotalWarehouseCost: decimal.NewFromInt(100),
	}); err == nil {
		t.Error("second ApplyImportCost succeeded, want refusal")
	}

	// a missing purchase surfaces as RecordNotFound before allocation
	if _, err := models.ApplyImportCost(ctx, 987654, &models.NewImportCost{
		TotalWarehouseCost: decimal.NewFromInt(100),
	}); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Errorf("missing purchase: err = %v, want ErrorRecordNotFound", err)
	}

	// a draft purchase cannot be costed; it must be confirmed first
	second, err := models.CreatePurchase(ctx, &models.NewPurchase{
		ProviderId:    provider.ID,
		WarehouseId:   warehouse.ID,
		InvoiceNumber: "INV-1002",
		PurchaseDate:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Items: []models.NewPurchaseItem{
			{ProductId: widget.ID, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchase(second): %v", err)
	}
	if _, err := models.ApplyImportCost(ctx, second.ID, &models.NewImportCost{
		TotalWarehouseCost: decimal.NewFromInt(100),
	}); err == nil {
		t.Error("costing a draft purchase succeeded, want refusal")
	}

	// racing applies for the same purchase: exactly one may commit
	if _, err := models.ConfirmPurchase(ctx, second.ID); err != nil {
		t.Fatalf("ConfirmPurchase(second): %v", err)
	}
	applyErrs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := models.ApplyImportCost(ctx, second.ID, &models.NewImportCost{
				TotalWarehouseCost: decimal.NewFromInt(100),
			})
			applyErrs <- err
		}()
	}
	wg.Wait()
	close(applyErrs)
	succeeded := 0
	for err := range applyErrs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("%d concurrent applies committed, want exactly 1", succeeded)
	}
	applied, err := models.ListImportCostByPurchase(ctx, second.ID)
	if err != nil {
		t.Fatalf("ListImportCostByPurchase: %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("purchase has %d import costs, want 1", len(applied))
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procurement-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procurement-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=procurement_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
