package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentInsurance PaymentMethod = "insurance"
)

type Sale struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"userId"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"totalAmount"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	CustomerName  *string         `db:"customer_name" json:"customerName,omitempty"`
	CustomerPhone *string         `db:"customer_phone" json:"customerPhone,omitempty"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	Items         []SaleItem      `db:"-" json:"items,omitempty"`
}

type SaleItem struct {
	ID         int64           `db:"id" json:"id"`
	SaleID     int64           `db:"sale_id" json:"saleId"`
	DrugID     int64           `db:"drug_id" json:"drugId"`
	Quantity   int64           `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unitPrice"`
	TotalPrice decimal.Decimal `db:"total_price" json:"totalPrice"`
}

// PriceScale is the number of fractional digits stored for a price.
const PriceScale = 2

// CheckPrice rejects negative prices and prices with more than PriceScale
// fractional digits, which a NUMERIC(10,2) column would round.
func CheckPrice(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return Invalid(field, "min")
	}
	if !v.Equal(v.Round(PriceScale)) {
		return Invalid(field, fmt.Sprintf("decimals=%d", PriceScale))
	}
	return nil
}

// LineTotal returns quantity × unit price.
func LineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// NewSale is the input for recording a sale. Unit prices are taken from the
// drug's selling price at the time of sale.
type NewSale struct {
	UserID        int64
	PaymentMethod PaymentMethod
	CustomerName  *string
	CustomerPhone *string
	Notes         *string
	Items         []NewLine
}

// NewLine is one requested line of a sale or purchase order.
// UnitPrice is only honoured for purchase orders.
type NewLine struct {
	DrugID    int64
	Quantity  int64
	UnitPrice decimal.Decimal
}
