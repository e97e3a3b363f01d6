package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"medeasy/pharmacy/domain"
)

const drugColumns = `id, name, generic_name, dosage, form, manufacturer, batch_number, expiry_date, quantity,
        unit_price, selling_price, minimum_stock, category, description, barcode, created_at, updated_at`

// ListDrugs returns drugs ordered by name. A non-empty search matches the
// brand or generic name case-insensitively.
func (s *Store) ListDrugs(ctx context.Context, search string) ([]domain.Drug, error) {
	drugs := []domain.Drug{}
	query := `SELECT ` + drugColumns + ` FROM drugs`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query += ` WHERE LOWER(name) LIKE $1 OR LOWER(COALESCE(generic_name, '')) LIKE $2`
		args = append(args, like, like)
	}
	query += ` ORDER BY name, id`
	if err := s.db.SelectContext(ctx, &drugs, query, args...); err != nil {
		return nil, fmt.Errorf("list drugs: %w", err)
	}
	return drugs, nil
}

func (s *Store) GetDrug(ctx context.Context, id int64) (*domain.Drug, error) {
	return getDrug(ctx, s.db, id)
}

func getDrug(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Drug, error) {
	var d domain.Drug
	if err := sqlx.GetContext(ctx, q, &d, `SELECT `+drugColumns+` FROM drugs WHERE id = $1`, id); err != nil {
		if errors.Is(mapError(err), domain.ErrNotFound) {
			return nil, notFound("drug", id)
		}
		return nil, fmt.Errorf("get drug %d: %w", id, err)
	}
	return &d, nil
}

// CreateDrug inserts d and fills in its id and timestamps.
func (s *Store) CreateDrug(ctx context.Context, d *domain.Drug) error {
	now := s.now()
	if err := checkDrugPrices(d); err != nil {
		return err
	}
	d.CreatedAt, d.UpdatedAt = now, now
	d.ExpiryDate = d.ExpiryDate.UTC()
	return insertDrug(ctx, s.db, d)
}

func checkDrugPrices(d *domain.Drug) error {
	if err := domain.CheckPrice("unitPrice", d.UnitPrice); err != nil {
		return err
	}
	return domain.CheckPrice("sellingPrice", d.SellingPrice)
}

func insertDrug(ctx context.Context, q sqlx.QueryerContext, d *domain.Drug) error {
	err := q.QueryRowxContext(ctx, `INSERT INTO drugs (name, generic_name, dosage, form, manufacturer, batch_number, expiry_date, quantity,
                unit_price, selling_price, minimum_stock, category, description, barcode, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`,
		d.Name, d.GenericName, d.Dosage, d.Form, d.Manufacturer, d.BatchNumber, d.ExpiryDate, d.Quantity,
		d.UnitPrice, d.SellingPrice, d.MinimumStock, d.Category, d.Description, d.Barcode, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("create drug %q: %w", d.Name, mapError(err))
	}
	return nil
}

// UpdateDrug applies a partial update and refreshes updatedAt.
func (s *Store) UpdateDrug(ctx context.Context, id int64, upd domain.DrugUpdate) (*domain.Drug, error) {
	var out *domain.Drug
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		d, err := getDrug(ctx, tx, id)
		if err != nil {
			return err
		}
		upd.Apply(d)
		// an empty optional field clears it
		d.GenericName, d.Description, d.Barcode = blankToNil(d.GenericName), blankToNil(d.Description), blankToNil(d.Barcode)
		if d.Quantity < 0 {
			return domain.Invalid("quantity", "min")
		}
		if d.MinimumStock < 0 {
			return domain.Invalid("minimumStock", "min")
		}
		if err := checkDrugPrices(d); err != nil {
			return err
		}
		d.ExpiryDate = d.ExpiryDate.UTC()
		d.UpdatedAt = s.now()
		if err := saveDrug(ctx, tx, d, upd.Quantity); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

// saveDrug writes every column of d except quantity, which is only set when
// quantity is non-nil. Stock moves made by sales or receipts after d was read
// are kept; d.Quantity is refreshed from the stored row.
func saveDrug(ctx context.Context, q sqlx.QueryerContext, d *domain.Drug, quantity *int64) error {
	err := q.QueryRowxContext(ctx, `UPDATE drugs SET name = $1, generic_name = $2, dosage = $3, form = $4, manufacturer = $5, batch_number = $6,
                expiry_date = $7, quantity = COALESCE($8, quantity), unit_price = $9, selling_price = $10, minimum_stock = $11, category = $12,
                description = $13, barcode = $14, updated_at = $15 WHERE id = $16 RETURNING quantity`,
		d.Name, d.GenericName, d.Dosage, d.Form, d.Manufacturer, d.BatchNumber, d.ExpiryDate, quantity,
		d.UnitPrice, d.SellingPrice, d.MinimumStock, d.Category, d.Description, d.Barcode, d.UpdatedAt, d.ID).Scan(&d.Quantity)
	if err != nil {
		if errors.Is(mapError(err), domain.ErrNotFound) {
			return notFound("drug", d.ID)
		}
		return fmt.Errorf("update drug %d: %w", d.ID, mapError(err))
	}
	return nil
}

// DeleteDrug hard-deletes a drug. Drugs referenced by sales or orders cannot be
// deleted and yield domain.ErrConflict.
func (s *Store) DeleteDrug(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drugs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete drug %d: %w", id, mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("drug", id)
	}
	return nil
}

// ExpiringDrugs lists drugs whose expiry date is on or before cutoff, soonest first.
// Already expired drugs are included.
func (s *Store) ExpiringDrugs(ctx context.Context, cutoff time.Time) ([]domain.Drug, error) {
	drugs := []domain.Drug{}
	if err := s.db.SelectContext(ctx, &drugs, `SELECT `+drugColumns+` FROM drugs
                WHERE expiry_date <= $1
                ORDER BY expiry_date ASC, name`, cutoff.UTC()); err != nil {
		return nil, fmt.Errorf("expiring drugs: %w", err)
	}
	return drugs, nil
}

// ImportDrugs inserts a batch of drugs in one transaction. Rows whose barcode
// already exists are skipped; the number of inserted rows is returned.
func (s *Store) ImportDrugs(ctx context.Context, drugs []domain.Drug) (int, error) {
	inserted := 0
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `INSERT INTO drugs (name, generic_name, dosage, form, manufacturer, batch_number, expiry_date, quantity,
                unit_price, selling_price, minimum_stock, category, description, barcode, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
            ON CONFLICT (barcode) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare drug import: %w", err)
		}
		defer stmt.Close()

		now := s.now()
		for _, d := range drugs {
			res, err := stmt.ExecContext(ctx, d.Name, d.GenericName, d.Dosage, d.Form, d.Manufacturer, d.BatchNumber, d.ExpiryDate.UTC(), d.Quantity,
				d.UnitPrice, d.SellingPrice, d.MinimumStock, d.Category, d.Description, d.Barcode, now, now)
			if err != nil {
				return fmt.Errorf("import drug %q: %w", d.Name, mapError(err))
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
