package models

import "testing"

func TestProductClassificationCodes(t *testing.T) {
	labels := []ProductClassification{
		ClassificationRawMaterial,
		ClassificationFinishedGood,
		ClassificationSparePart,
		ClassificationConsumable,
	}
	seen := map[int64]bool{}
	for _, label := range labels {
		code, err := label.Code()
		if err != nil {
			t.Fatalf("Code(%s): %v", label, err)
		}
		if seen[code] {
			t.Errorf("code %d assigned twice", code)
		}
		seen[code] = true

		back, err := ProductClassificationFromCode(code)
		if err != nil {
			t.Fatalf("FromCode(%d): %v", code, err)
		}
		if back != label {
			t.Errorf("FromCode(Code(%s)) = %s", label, back)
		}
	}

	if _, err := ProductClassification("Unknown").Code(); err == nil {
		t.Error("expected error for unknown label")
	}
	if _, err := ProductClassificationFromCode(99); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestPaymentTermsScanRoundTrip(t *testing.T) {
	code, err := PaymentTermsNet30.Code()
	if err != nil {
		t.Fatalf("Code: %v", err)
	}

	var scanned PaymentTerms
	if err := scanned.Scan(code); err != nil {
		t.Fatalf("Scan(int64): %v", err)
	}
	if scanned != PaymentTermsNet30 {
		t.Errorf("Scan(int64) = %s, want Net30", scanned)
	}

	// mysql driver may hand back []byte for numeric columns
	scanned = ""
	if err := scanned.Scan([]byte("3")); err != nil {
		t.Fatalf("Scan([]byte): %v", err)
	}
	if scanned != PaymentTermsNet30 {
		t.Errorf("Scan([]byte) = %s, want Net30", scanned)
	}

	if err := scanned.Scan("not a code"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestBranchRegionFromCodeRejectsUnknown(t *testing.T) {
	if _, err := BranchRegionFromCode(0); err == nil {
		t.Error("expected error for code 0")
	}
}

func TestPurchaseStatusValid(t *testing.T) {
	for _, s := range []PurchaseStatus{PurchaseStatusDraft, PurchaseStatusConfirmed, PurchaseStatusCosted, PurchaseStatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s reported invalid", s)
		}
	}
	if PurchaseStatus("Shipped").Valid() {
		t.Error("Shipped reported valid")
	}
}
