package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"medeasy/pharmacy/domain"
)

const purchaseColumns = `id, supplier_id, user_id, total_amount, status, order_date, received_date, notes`

// CreatePurchase places a pending order with its items.
func (s *Store) CreatePurchase(ctx context.Context, in domain.NewPurchase) (*domain.Purchase, error) {
	if len(in.Items) == 0 {
		return nil, domain.Invalid("items", "min")
	}
	p := &domain.Purchase{
		SupplierID:  in.SupplierID,
		UserID:      in.UserID,
		Status:      domain.PurchasePending,
		OrderDate:   s.now(),
		Notes:       in.Notes,
		TotalAmount: decimal.Zero,
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getSupplier(ctx, tx, in.SupplierID); err != nil {
			return err
		}
		items := make([]domain.PurchaseItem, len(in.Items))
		for i, line := range in.Items {
			if line.Quantity <= 0 {
				return domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "min")
			}
			if err := domain.CheckPrice(fmt.Sprintf("items[%d].unitPrice", i), line.UnitPrice); err != nil {
				return err
			}
			if _, err := getDrug(ctx, tx, line.DrugID); err != nil {
				return err
			}
			items[i] = domain.PurchaseItem{
				DrugID:     line.DrugID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
				TotalPrice: domain.LineTotal(line.Quantity, line.UnitPrice),
			}
			p.TotalAmount = p.TotalAmount.Add(items[i].TotalPrice)
		}

		err := tx.QueryRowxContext(ctx, `INSERT INTO purchases (supplier_id, user_id, total_amount, status, order_date, notes)
                VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			p.SupplierID, p.UserID, p.TotalAmount, p.Status, p.OrderDate, p.Notes).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("create purchase: %w", mapError(err))
		}
		for i := range items {
			items[i].PurchaseID = p.ID
			err := tx.QueryRowxContext(ctx, `INSERT INTO purchase_items (purchase_id, drug_id, quantity, unit_price, total_price) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				items[i].PurchaseID, items[i].DrugID, items[i].Quantity, items[i].UnitPrice, items[i].TotalPrice).Scan(&items[i].ID)
			if err != nil {
				return fmt.Errorf("save purchase item: %w", mapError(err))
			}
		}
		p.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPurchases returns orders newest first, without items.
func (s *Store) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	purchases := []domain.Purchase{}
	if err := s.db.SelectContext(ctx, &purchases, `SELECT `+purchaseColumns+` FROM purchases ORDER BY order_date DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

func (s *Store) GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	return getPurchase(ctx, s.db, id)
}

func getPurchase(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Purchase, error) {
	var p domain.Purchase
	if err := sqlx.GetContext(ctx, q, &p, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id); err != nil {
		if errors.Is(mapError(err), domain.ErrNotFound) {
			return nil, notFound("purchase", id)
		}
		return nil, fmt.Errorf("get purchase %d: %w", id, err)
	}
	p.Items = []domain.PurchaseItem{}
	if err := sqlx.SelectContext(ctx, q, &p.Items, `SELECT id, purchase_id, drug_id, quantity, unit_price, total_price FROM purchase_items WHERE purchase_id = $1 ORDER BY id`, id); err != nil {
		return nil, fmt.Errorf("purchase %d items: %w", id, err)
	}
	return &p, nil
}

// UpdatePurchase applies a partial update. A status change must follow the
// order workflow; moving to received restocks every item's drug and stamps
// the receipt date. Only pending orders may change supplier.
func (s *Store) UpdatePurchase(ctx context.Context, id int64, upd domain.PurchaseUpdate) (*domain.Purchase, error) {
	var out *domain.Purchase
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		p, err := getPurchase(ctx, tx, id)
		if err != nil {
			return err
		}
		prev := p.Status
		now := s.now()

		if upd.SupplierID != nil && *upd.SupplierID != p.SupplierID {
			if p.Status != domain.PurchasePending {
				return fmt.Errorf("purchase %d is %s: %w", id, p.Status, domain.ErrInvalidTransition)
			}
			if _, err := getSupplier(ctx, tx, *upd.SupplierID); err != nil {
				return err
			}
			p.SupplierID = *upd.SupplierID
		}
		if upd.Notes != nil {
			p.Notes = blankToNil(upd.Notes)
		}
		if upd.Status != nil && *upd.Status != p.Status {
			if !p.Status.CanTransition(*upd.Status) {
				return fmt.Errorf("purchase %d: %s -> %s: %w", id, p.Status, *upd.Status, domain.ErrInvalidTransition)
			}
			p.Status = *upd.Status
			if p.Status == domain.PurchaseReceived {
				p.ReceivedDate = &now
			}
		}

		if err := savePurchase(ctx, tx, p, prev); err != nil {
			return err
		}
		if prev != domain.PurchaseReceived && p.Status == domain.PurchaseReceived {
			for _, item := range p.Items {
				res, err := tx.ExecContext(ctx, `UPDATE drugs SET quantity = quantity + $1, updated_at = $2 WHERE id = $3`, item.Quantity, now, item.DrugID)
				if err != nil {
					return fmt.Errorf("restock drug %d: %w", item.DrugID, mapError(err))
				}
				if n, _ := res.RowsAffected(); n == 0 {
					return notFound("drug", item.DrugID)
				}
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// savePurchase writes p only if its stored status is still prev. A concurrent
// writer that moved the order first makes this fail with
// domain.ErrInvalidTransition, so a receipt restocks at most once.
func savePurchase(ctx context.Context, ex sqlx.ExecerContext, p *domain.Purchase, prev domain.PurchaseStatus) error {
	res, err := ex.ExecContext(ctx, `UPDATE purchases SET supplier_id = $1, status = $2, notes = $3, received_date = $4 WHERE id = $5 AND status = $6`,
		p.SupplierID, p.Status, p.Notes, p.ReceivedDate, p.ID, prev)
	if err != nil {
		return fmt.Errorf("update purchase %d: %w", p.ID, mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("purchase %d is no longer %s: %w", p.ID, prev, domain.ErrInvalidTransition)
	}
	return nil
}
