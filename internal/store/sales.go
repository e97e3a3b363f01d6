package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"medeasy/pharmacy/domain"
)

const saleColumns = `id, user_id, total_amount, payment_method, customer_name, customer_phone, notes, created_at`

// CreateSale records a sale and its items and decrements stock, all in one
// transaction. Each line is priced at the drug's current selling price.
// Stock is decremented with a conditional update so concurrent sales can
// never drive a quantity below zero; a short line fails the whole sale with
// domain.ErrInsufficientStock. Expired drugs cannot be sold.
func (s *Store) CreateSale(ctx context.Context, in domain.NewSale) (*domain.Sale, error) {
	if len(in.Items) == 0 {
		return nil, domain.Invalid("items", "min")
	}
	now := s.now()
	sale := &domain.Sale{
		UserID:        in.UserID,
		PaymentMethod: in.PaymentMethod,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Notes:         in.Notes,
		CreatedAt:     now,
		TotalAmount:   decimal.Zero,
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		items := make([]domain.SaleItem, len(in.Items))
		for i, line := range in.Items {
			if line.Quantity <= 0 {
				return domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "min")
			}
			drug, err := getDrug(ctx, tx, line.DrugID)
			if err != nil {
				return err
			}
			if drug.Status(now) == domain.StatusExpired {
				return fmt.Errorf("drug %d (%s) expired on %s: %w", drug.ID, drug.Name, drug.ExpiryDate.Format("2006-01-02"), domain.ErrConflict)
			}
			items[i] = domain.SaleItem{
				DrugID:     drug.ID,
				Quantity:   line.Quantity,
				UnitPrice:  drug.SellingPrice,
				TotalPrice: domain.LineTotal(line.Quantity, drug.SellingPrice),
			}
			sale.TotalAmount = sale.TotalAmount.Add(items[i].TotalPrice)
		}

		err := tx.QueryRowxContext(ctx, `INSERT INTO sales (user_id, total_amount, payment_method, customer_name, customer_phone, notes, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			sale.UserID, sale.TotalAmount, sale.PaymentMethod, sale.CustomerName, sale.CustomerPhone, sale.Notes, sale.CreatedAt).Scan(&sale.ID)
		if err != nil {
			return fmt.Errorf("create sale: %w", mapError(err))
		}

		for i := range items {
			item := &items[i]
			item.SaleID = sale.ID
			if err := decrementStock(ctx, tx, item.DrugID, item.Quantity, now); err != nil {
				return err
			}
			err := tx.QueryRowxContext(ctx, `INSERT INTO sale_items (sale_id, drug_id, quantity, unit_price, total_price) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				item.SaleID, item.DrugID, item.Quantity, item.UnitPrice, item.TotalPrice).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("save sale item: %w", mapError(err))
			}
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func decrementStock(ctx context.Context, tx *sqlx.Tx, drugID, qty int64, now time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE drugs SET quantity = quantity - $1, updated_at = $2 WHERE id = $3 AND quantity >= $4`,
		qty, now, drugID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock of drug %d: %w", drugID, mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("drug %d: %w", drugID, domain.ErrInsufficientStock)
	}
	return nil
}

// ListSales returns sales newest first, without items.
func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	sales := []domain.Sale{}
	if err := s.db.SelectContext(ctx, &sales, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// GetSale returns one sale with its items.
func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.db.GetContext(ctx, &sale, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id); err != nil {
		if errors.Is(mapError(err), domain.ErrNotFound) {
			return nil, notFound("sale", id)
		}
		return nil, fmt.Errorf("get sale %d: %w", id, err)
	}
	sale.Items = []domain.SaleItem{}
	if err := s.db.SelectContext(ctx, &sale.Items, `SELECT id, sale_id, drug_id, quantity, unit_price, total_price FROM sale_items WHERE sale_id = $1 ORDER BY id`, id); err != nil {
		return nil, fmt.Errorf("sale %d items: %w", id, err)
	}
	return &sale, nil
}

// SalesBetween returns sales created in [from, to) with their items, newest first.
// Zero bounds are open.
func (s *Store) SalesBetween(ctx context.Context, from, to time.Time) ([]domain.Sale, error) {
	var (
		args    []any
		clauses []string
	)
	if !from.IsZero() {
		args = append(args, from.UTC())
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to.UTC())
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := `SELECT ` + saleColumns + ` FROM sales`
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	sales := []domain.Sale{}
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, fmt.Errorf("sales report: %w", err)
	}
	if len(sales) == 0 {
		return sales, nil
	}

	ids := make([]int64, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
	}
	itemsQuery, itemsArgs, err := sqlx.In(`SELECT id, sale_id, drug_id, quantity, unit_price, total_price FROM sale_items WHERE sale_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare sale items query: %w", err)
	}
	itemsQuery = s.db.Rebind(itemsQuery)

	var rows []domain.SaleItem
	if err := s.db.SelectContext(ctx, &rows, itemsQuery, itemsArgs...); err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	itemsBySale := make(map[int64][]domain.SaleItem)
	for _, row := range rows {
		itemsBySale[row.SaleID] = append(itemsBySale[row.SaleID], row)
	}
	for i := range sales {
		sales[i].Items = itemsBySale[sales[i].ID]
	}
	return sales, nil
}

// SalesSummary counts sales created in [from, to) and sums their totals exactly.
func (s *Store) SalesSummary(ctx context.Context, from, to time.Time) (int64, decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := s.db.SelectContext(ctx, &totals, `SELECT total_amount FROM sales WHERE created_at >= $1 AND created_at < $2`, from.UTC(), to.UTC()); err != nil {
		return 0, decimal.Zero, fmt.Errorf("sales summary: %w", err)
	}
	return int64(len(totals)), decimal.Sum(decimal.Zero, totals...), nil
}
