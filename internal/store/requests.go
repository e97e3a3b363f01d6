package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"medeasy/pharmacy/domain"
)

const requestColumns = `id, user_id, type, title, description, priority, status, created_at, updated_at`

// ListRequests returns requests newest first, narrowed by f.
func (s *Store) ListRequests(ctx context.Context, f domain.RequestFilter) ([]domain.Request, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	requests := []domain.Request{}
	if err := s.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*domain.Request, error) {
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Request, error) {
	var r domain.Request
	if err := sqlx.GetContext(ctx, q, &r, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id); err != nil {
		if errors.Is(mapError(err), domain.ErrNotFound) {
			return nil, notFound("request", id)
		}
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	return &r, nil
}

// CreateRequest inserts r as pending. An empty priority defaults to medium.
func (s *Store) CreateRequest(ctx context.Context, r *domain.Request) error {
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Status = domain.RequestPending
	if r.Priority == "" {
		r.Priority = domain.PriorityMedium
	}
	err := s.db.QueryRowxContext(ctx, `INSERT INTO requests (user_id, type, title, description, priority, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		r.UserID, r.Type, r.Title, r.Description, r.Priority, r.Status, r.CreatedAt, r.UpdatedAt).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("create request: %w", mapError(err))
	}
	return nil
}

// UpdateRequest applies a partial update and refreshes updatedAt. authorize is
// called with the current row before anything changes, so ownership checks
// see the same state that is written.
func (s *Store) UpdateRequest(ctx context.Context, id int64, upd domain.RequestUpdate, authorize func(domain.Request) error) (*domain.Request, error) {
	var out *domain.Request
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		r, err := getRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(*r); err != nil {
				return err
			}
		}
		prev := r.Status
		if upd.Status != nil && *upd.Status != r.Status {
			if !r.Status.CanTransition(*upd.Status) {
				return fmt.Errorf("request %d: %s -> %s: %w", id, r.Status, *upd.Status, domain.ErrInvalidTransition)
			}
			r.Status = *upd.Status
		}
		if upd.Type != nil {
			r.Type = *upd.Type
		}
		if upd.Title != nil {
			r.Title = *upd.Title
		}
		if upd.Description != nil {
			r.Description = *upd.Description
		}
		if upd.Priority != nil {
			r.Priority = *upd.Priority
		}
		r.UpdatedAt = s.now()

		if err := saveRequest(ctx, tx, r, prev); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// saveRequest writes r only if its stored status is still prev, so two
// reviewers racing on the same pending request cannot both decide it.
func saveRequest(ctx context.Context, ex sqlx.ExecerContext, r *domain.Request, prev domain.RequestStatus) error {
	res, err := ex.ExecContext(ctx, `UPDATE requests SET type = $1, title = $2, description = $3, priority = $4, status = $5, updated_at = $6
            WHERE id = $7 AND status = $8`,
		r.Type, r.Title, r.Description, r.Priority, r.Status, r.UpdatedAt, r.ID, prev)
	if err != nil {
		return fmt.Errorf("update request %d: %w", r.ID, mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("request %d is no longer %s: %w", r.ID, prev, domain.ErrInvalidTransition)
	}
	return nil
}
