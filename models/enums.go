package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Closed enumerations with fixed label <-> storage-code tables: each type
// stores a numeric code in MySQL (driver.Valuer / sql.Scanner) and serializes
// its label over JSON.

type ProductClassification string

const (
	ClassificationRawMaterial  ProductClassification = "RawMaterial"
	ClassificationFinishedGood ProductClassification = "FinishedGood"
	ClassificationSparePart    ProductClassification = "SparePart"
	ClassificationConsumable   ProductClassification = "Consumable"
)

var productClassificationCodes = map[ProductClassification]int64{
	ClassificationRawMaterial:  1,
	ClassificationFinishedGood: 2,
	ClassificationSparePart:    3,
	ClassificationConsumable:   4,
}

// Code returns the storage code for the label.
func (c ProductClassification) Code() (int64, error) {
	code, ok := productClassificationCodes[c]
	if !ok {
		return 0, fmt.Errorf("invalid product classification %q", string(c))
	}
	return code, nil
}

// ProductClassificationFromCode returns the label for a storage code.
func ProductClassificationFromCode(code int64) (ProductClassification, error) {
	for label, c := range productClassificationCodes {
		if c == code {
			return label, nil
		}
	}
	return "", fmt.Errorf("unknown product classification code %d", code)
}

func (c ProductClassification) Value() (driver.Value, error) {
	return c.Code()
}

func (c *ProductClassification) Scan(value interface{}) error {
	code, err := scanEnumCode(value)
	if err != nil {
		return err
	}
	label, err := ProductClassificationFromCode(code)
	if err != nil {
		return err
	}
	*c = label
	return nil
}

type PaymentTerms string

const (
	PaymentTermsCash         PaymentTerms = "Cash"
	PaymentTermsNet15        PaymentTerms = "Net15"
	PaymentTermsNet30        PaymentTerms = "Net30"
	PaymentTermsNet60        PaymentTerms = "Net60"
	PaymentTermsDueOnReceipt PaymentTerms = "DueOnReceipt"
)

var paymentTermsCodes = map[PaymentTerms]int64{
	PaymentTermsCash:         1,
	PaymentTermsNet15:        2,
	PaymentTermsNet30:        3,
	PaymentTermsNet60:        4,
	PaymentTermsDueOnReceipt: 5,
}

func (t PaymentTerms) Code() (int64, error) {
	code, ok := paymentTermsCodes[t]
	if !ok {
		return 0, fmt.Errorf("invalid payment terms %q", string(t))
	}
	return code, nil
}

func PaymentTermsFromCode(code int64) (PaymentTerms, error) {
	for label, c := range paymentTermsCodes {
		if c == code {
			return label, nil
		}
	}
	return "", fmt.Errorf("unknown payment terms code %d", code)
}

func (t PaymentTerms) Value() (driver.Value, error) {
	return t.Code()
}

func (t *PaymentTerms) Scan(value interface{}) error {
	code, err := scanEnumCode(value)
	if err != nil {
		return err
	}
	label, err := PaymentTermsFromCode(code)
	if err != nil {
		return err
	}
	*t = label
	return nil
}

type BranchRegion string

const (
	BranchRegionCapital  BranchRegion = "Capital"
	BranchRegionCoast    BranchRegion = "Coast"
	BranchRegionHighland BranchRegion = "Highland"
	BranchRegionEast     BranchRegion = "East"
)

var branchRegionCodes = map[BranchRegion]int64{
	BranchRegionCapital:  1,
	BranchRegionCoast:    2,
	BranchRegionHighland: 3,
	BranchRegionEast:     4,
}

func (r BranchRegion) Code() (int64, error) {
	code, ok := branchRegionCodes[r]
	if !ok {
		return 0, fmt.Errorf("invalid branch region %q", string(r))
	}
	return code, nil
}

func BranchRegionFromCode(code int64) (BranchRegion, error) {
	for label, c := range branchRegionCodes {
		if c == code {
			return label, nil
		}
	}
	return "", fmt.Errorf("unknown branch region code %d", code)
}

func (r BranchRegion) Value() (driver.Value, error) {
	return r.Code()
}

func (r *BranchRegion) Scan(value interface{}) error {
	code, err := scanEnumCode(value)
	if err != nil {
		return err
	}
	label, err := BranchRegionFromCode(code)
	if err != nil {
		return err
	}
	*r = label
	return nil
}

// PurchaseStatus is stored as its label.
type PurchaseStatus string

const (
	PurchaseStatusDraft     PurchaseStatus = "Draft"
	PurchaseStatusConfirmed PurchaseStatus = "Confirmed"
	PurchaseStatusCosted    PurchaseStatus = "Costed"
	PurchaseStatusCancelled PurchaseStatus = "Cancelled"
)

func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchaseStatusDraft, PurchaseStatusConfirmed, PurchaseStatusCosted, PurchaseStatusCancelled:
		return true
	}
	return false
}

func scanEnumCode(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case []byte:
		var code int64
		if _, err := fmt.Sscan(string(v), &code); err != nil {
			return 0, err
		}
		return code, nil
	default:
		return 0, errors.New("enum code must be an integer")
	}
}
