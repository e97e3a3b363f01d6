package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medeasy/pharmacy/domain"
)

const supplierColumns = `id, name, contact_person, email, phone, address, created_at`

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers := []domain.Supplier{}
	if err := s.db.SelectContext(ctx, &suppliers, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *Store) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	return getSupplier(ctx, s.db, id)
}

func getSupplier(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Supplier, error) {
	var sup domain.Supplier
	if err := sqlx.GetContext(ctx, q, &sup, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id); err != nil {
		if errors.Is(mapError(err), domain.ErrNotFound) {
			return nil, notFound("supplier", id)
		}
		return nil, fmt.Errorf("get supplier %d: %w", id, err)
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sup *domain.Supplier) error {
	sup.CreatedAt = s.now()
	err := s.db.QueryRowxContext(ctx, `INSERT INTO suppliers (name, contact_person, email, phone, address, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sup.Name, sup.ContactPerson, sup.Email, sup.Phone, sup.Address, sup.CreatedAt).Scan(&sup.ID)
	if err != nil {
		return fmt.Errorf("create supplier %q: %w", sup.Name, mapError(err))
	}
	return nil
}
