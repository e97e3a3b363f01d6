package store

import (
	"context"
	"fmt"
	"strings"

	"medeasy/pharmacy/domain"
)

const userColumns = `id, username, password, name, role, initials, created_at`

// CreateUser inserts u. The password must already be hashed.
// A taken username yields domain.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Initials == "" {
		u.Initials = domain.InitialsFor(u.Name)
	}
	u.CreatedAt = s.now()
	err := s.db.QueryRowxContext(ctx, `INSERT INTO users (username, password, name, role, initials, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		u.Username, u.Password, u.Name, u.Role, u.Initials, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, mapError(err))
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, mapError(err))
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("user %d: %w", id, mapError(err))
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdatePassword stores a new password hash for the user.
func (s *Store) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("user", id)
	}
	return nil
}
