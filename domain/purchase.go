package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseApproved  PurchaseStatus = "approved"
	PurchaseReceived  PurchaseStatus = "received"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

var purchaseTransitions = map[PurchaseStatus][]PurchaseStatus{
	PurchasePending:  {PurchaseApproved, PurchaseCancelled},
	PurchaseApproved: {PurchaseReceived, PurchaseCancelled},
}

// CanTransition reports whether an order may move from s to next.
// Received and cancelled orders are final.
func (s PurchaseStatus) CanTransition(next PurchaseStatus) bool {
	for _, allowed := range purchaseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Purchase struct {
	ID           int64           `db:"id" json:"id"`
	SupplierID   int64           `db:"supplier_id" json:"supplierId"`
	UserID       int64           `db:"user_id" json:"userId"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status       PurchaseStatus  `db:"status" json:"status"`
	OrderDate    time.Time       `db:"order_date" json:"orderDate"`
	ReceivedDate *time.Time      `db:"received_date" json:"receivedDate,omitempty"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	Items        []PurchaseItem  `db:"-" json:"items,omitempty"`
}

type PurchaseItem struct {
	ID         int64           `db:"id" json:"id"`
	PurchaseID int64           `db:"purchase_id" json:"purchaseId"`
	DrugID     int64           `db:"drug_id" json:"drugId"`
	Quantity   int64           `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unitPrice"`
	TotalPrice decimal.Decimal `db:"total_price" json:"totalPrice"`
}

type NewPurchase struct {
	SupplierID int64
	UserID     int64
	Notes      *string
	Items      []NewLine
}

// PurchaseUpdate is a partial update of an order.
type PurchaseUpdate struct {
	SupplierID *int64
	Status     *PurchaseStatus
	Notes      *string
}
