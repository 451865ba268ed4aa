package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopdesk/catalog-service/internal/models"
)

// ErrEmailTaken is returned when registering an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, password_hash, COALESCE(first_name, ''), COALESCE(last_name, ''),
	role, approved, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.Approved, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts u. The very first account becomes an approved admin so
// a fresh install can approve everyone else.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	err := s.pool.QueryRow(ctx, `
		WITH first AS (SELECT NOT EXISTS (SELECT 1 FROM users) AS is_first)
		INSERT INTO users (email, password_hash, first_name, last_name, role, approved)
		SELECT $1, $2, NULLIF($3, ''), NULLIF($4, ''),
		       CASE WHEN first.is_first THEN 'admin' ELSE $5 END,
		       first.is_first OR $6
		FROM first
		RETURNING id, role, approved, created_at
	`, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Approved,
	).Scan(&u.ID, &u.Role, &u.Approved, &u.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

// GetUserByEmail looks up an account by (case-insensitive) email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetUserByID looks up an account by id.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ListUsers returns every account, pending approvals first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY approved ASC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetUserApproval approves or revokes an account.
func (s *Store) SetUserApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET approved = $1 WHERE id = $2 RETURNING `+userColumns, approved, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}
