package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/dashboard"
)

// DashboardSnapshot reads stock levels, sale totals and request statuses in a
// single read transaction.
func (s *Store) DashboardSnapshot(ctx context.Context) (dashboard.Snapshot, error) {
	snap := dashboard.Snapshot{
		Drugs:           []dashboard.StockLevel{},
		RequestStatuses: []domain.RequestStatus{},
	}
	err := s.readTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &snap.Drugs, `SELECT quantity, minimum_stock FROM drugs`); err != nil {
			return fmt.Errorf("read drugs: %w", err)
		}
		if err := tx.SelectContext(ctx, &snap.SaleTotals, `SELECT total_amount FROM sales`); err != nil {
			return fmt.Errorf("read sales: %w", err)
		}
		if err := tx.SelectContext(ctx, &snap.RequestStatuses, `SELECT status FROM requests`); err != nil {
			return fmt.Errorf("read requests: %w", err)
		}
		return nil
	})
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	return snap, nil
}
