// Package dashboard reduces inventory, sales and requests to the headline
// numbers shown on the dashboard.
package dashboard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"medeasy/pharmacy/domain"
)

// StockLevel is the part of a drug the dashboard needs.
type StockLevel struct {
	Quantity     int64 `db:"quantity"`
	MinimumStock int64 `db:"minimum_stock"`
}

// Snapshot is one consistent read of the three collections.
type Snapshot struct {
	Drugs           []StockLevel
	SaleTotals      []decimal.Decimal
	RequestStatuses []domain.RequestStatus
}

type Stats struct {
	TotalDrugs      int64           `json:"totalDrugs"`
	TotalSales      int64           `json:"totalSales"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	LowStockCount   int64           `json:"lowStockCount"`
	PendingRequests int64           `json:"pendingRequests"`
}

// Aggregate computes Stats from s. Low stock ignores expiry: an expired drug
// at or under its minimum still needs reordering.
func Aggregate(s Snapshot) Stats {
	stats := Stats{
		TotalDrugs:   int64(len(s.Drugs)),
		TotalSales:   int64(len(s.SaleTotals)),
		TotalRevenue: decimal.Sum(decimal.Zero, s.SaleTotals...),
	}
	for _, d := range s.Drugs {
		if domain.IsLowStock(d.Quantity, d.MinimumStock) {
			stats.LowStockCount++
		}
	}
	for _, st := range s.RequestStatuses {
		if st == domain.RequestPending {
			stats.PendingRequests++
		}
	}
	return stats
}

// SnapshotSource reads a Snapshot atomically.
type SnapshotSource interface {
	DashboardSnapshot(ctx context.Context) (Snapshot, error)
}

type Service struct {
	src SnapshotSource
}

func NewService(src SnapshotSource) *Service {
	return &Service{src: src}
}

// Stats loads a snapshot and aggregates it. A failed read yields no partial result.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	snap, err := s.src.DashboardSnapshot(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard snapshot: %w", err)
	}
	return Aggregate(snap), nil
}
