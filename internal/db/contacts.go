package db

import (
	"context"
	"fmt"

	"github.com/shopdesk/catalog-service/internal/models"
)

// ListContacts returns every imported customer contact, newest first.
func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, COALESCE(phone, ''), COALESCE(department, ''),
		       COALESCE(role, ''), COALESCE(notes, ''), created_at
		FROM system_users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Department, &c.Role, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// CreateContact inserts c and fills in its id and creation time.
func (s *Store) CreateContact(ctx context.Context, c *models.Contact) error {
	return insertContact(ctx, s.pool, c)
}

// BulkCreateContacts inserts every contact in one transaction.
func (s *Store) BulkCreateContacts(ctx context.Context, contacts []models.Contact) ([]models.Contact, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created := make([]models.Contact, len(contacts))
	copy(created, contacts)
	for i := range created {
		if err := insertContact(ctx, tx, &created[i]); err != nil {
			return nil, fmt.Errorf("insert contact %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func insertContact(ctx context.Context, q queryRower, c *models.Contact) error {
	return q.QueryRow(ctx, `
		INSERT INTO system_users (name, email, phone, department, role, notes)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id, created_at
	`, c.Name, c.Email, c.Phone, c.Department, c.Role, c.Notes).Scan(&c.ID, &c.CreatedAt)
}
