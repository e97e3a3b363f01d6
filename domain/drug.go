package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinimumStock is the reorder level applied when none is given.
const DefaultMinimumStock = 10

type Drug struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	GenericName  *string         `db:"generic_name" json:"genericName,omitempty"`
	Dosage       string          `db:"dosage" json:"dosage"`
	Form         string          `db:"form" json:"form"`
	Manufacturer string          `db:"manufacturer" json:"manufacturer"`
	BatchNumber  string          `db:"batch_number" json:"batchNumber"`
	ExpiryDate   time.Time       `db:"expiry_date" json:"expiryDate"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unitPrice"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"sellingPrice"`
	MinimumStock int64           `db:"minimum_stock" json:"minimumStock"`
	Category     string          `db:"category" json:"category"`
	Description  *string         `db:"description" json:"description,omitempty"`
	Barcode      *string         `db:"barcode" json:"barcode,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Status classifies the drug against now. See ClassifyStock.
func (d Drug) Status(now time.Time) StockStatus {
	return ClassifyStock(d.Quantity, d.MinimumStock, d.ExpiryDate, now)
}

// DrugUpdate carries a partial update; nil fields are left untouched.
type DrugUpdate struct {
	Name         *string
	GenericName  *string
	Dosage       *string
	Form         *string
	Manufacturer *string
	BatchNumber  *string
	ExpiryDate   *time.Time
	Quantity     *int64
	UnitPrice    *decimal.Decimal
	SellingPrice *decimal.Decimal
	MinimumStock *int64
	Category     *string
	Description  *string
	Barcode      *string
}

// Apply copies every non-nil field of u onto d.
func (u DrugUpdate) Apply(d *Drug) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.GenericName != nil {
		d.GenericName = u.GenericName
	}
	if u.Dosage != nil {
		d.Dosage = *u.Dosage
	}
	if u.Form != nil {
		d.Form = *u.Form
	}
	if u.Manufacturer != nil {
		d.Manufacturer = *u.Manufacturer
	}
	if u.BatchNumber != nil {
		d.BatchNumber = *u.BatchNumber
	}
	if u.ExpiryDate != nil {
		d.ExpiryDate = *u.ExpiryDate
	}
	if u.Quantity != nil {
		d.Quantity = *u.Quantity
	}
	if u.UnitPrice != nil {
		d.UnitPrice = *u.UnitPrice
	}
	if u.SellingPrice != nil {
		d.SellingPrice = *u.SellingPrice
	}
	if u.MinimumStock != nil {
		d.MinimumStock = *u.MinimumStock
	}
	if u.Category != nil {
		d.Category = *u.Category
	}
	if u.Description != nil {
		d.Description = u.Description
	}
	if u.Barcode != nil {
		d.Barcode = u.Barcode
	}
}
