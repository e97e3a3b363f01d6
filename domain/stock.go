package domain

import "time"

// StockStatus is the derived availability state of a drug.
type StockStatus string

const (
	StatusInStock    StockStatus = "in-stock"
	StatusLowStock   StockStatus = "low-stock"
	StatusOutOfStock StockStatus = "out-of-stock"
	StatusExpired    StockStatus = "expired"
)

// Valid reports whether s is one of the four classifier outputs.
func (s StockStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusOutOfStock, StatusExpired:
		return true
	}
	return false
}

// ClassifyStock maps a drug's quantity, reorder level and expiry to exactly one status.
// Expiry wins over every stock level, so an expired drug with zero quantity is StatusExpired.
// A drug expiring exactly at now is not yet expired.
func ClassifyStock(quantity, minimumStock int64, expiry, now time.Time) StockStatus {
	switch {
	case expiry.Before(now):
		return StatusExpired
	case quantity <= 0:
		return StatusOutOfStock
	case IsLowStock(quantity, minimumStock):
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// IsLowStock is the reorder threshold check shared by the classifier and the
// dashboard's low stock count. It ignores expiry and includes zero quantity.
func IsLowStock(quantity, minimumStock int64) bool {
	return quantity <= minimumStock
}

// DrugStatus pairs a drug with its classified status.
type DrugStatus struct {
	DrugID       int64       `json:"drugId"`
	Name         string      `json:"name"`
	Quantity     int64       `json:"quantity"`
	MinimumStock int64       `json:"minimumStock"`
	ExpiryDate   time.Time   `json:"expiryDate"`
	Status       StockStatus `json:"status"`
}

// ClassifyAll maps ClassifyStock over drugs, preserving order.
func ClassifyAll(drugs []Drug, now time.Time) []DrugStatus {
	out := make([]DrugStatus, len(drugs))
	for i, d := range drugs {
		out[i] = DrugStatus{
			DrugID:       d.ID,
			Name:         d.Name,
			Quantity:     d.Quantity,
			MinimumStock: d.MinimumStock,
			ExpiryDate:   d.ExpiryDate,
			Status:       d.Status(now),
		}
	}
	return out
}
