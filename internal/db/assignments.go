package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopdesk/catalog-service/internal/models"
)

const assignmentSelect = `
	SELECT a.id, a.product_id, a.user_email, a.user_name, a.assigned_by, a.assigned_at,
	       p.id, p.name, COALESCE(p.description, ''), p.price, p.category,
	       COALESCE(p.sku, ''), COALESCE(p.image_url, ''), p.created_at
	FROM user_assignments a
	JOIN products p ON p.id = a.product_id`

// CreateAssignments assigns each product to the customer in one transaction.
func (s *Store) CreateAssignments(ctx context.Context, productIDs []uuid.UUID, email, name, assignedBy string) ([]models.Assignment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	assignments := make([]models.Assignment, 0, len(productIDs))
	for _, pid := range productIDs {
		a := models.Assignment{ProductID: pid, UserEmail: email, UserName: name, AssignedBy: assignedBy}
		err := tx.QueryRow(ctx, `
			INSERT INTO user_assignments (product_id, user_email, user_name, assigned_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id, assigned_at
		`, pid, email, name, assignedBy).Scan(&a.ID, &a.AssignedAt)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListAssignments returns every assignment with its product, newest first.
func (s *Store) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	rows, err := s.pool.Query(ctx, assignmentSelect+` ORDER BY a.assigned_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// ListAssignmentsByEmail returns one customer's assignments, newest first.
func (s *Store) ListAssignmentsByEmail(ctx context.Context, email string) ([]models.Assignment, error) {
	rows, err := s.pool.Query(ctx, assignmentSelect+` WHERE lower(a.user_email) = lower($1) ORDER BY a.assigned_at DESC`, email)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// DeleteAssignment removes one assignment.
func (s *Store) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_assignments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectAssignments(rows pgx.Rows) ([]models.Assignment, error) {
	defer rows.Close()

	assignments := []models.Assignment{}
	for rows.Next() {
		var (
			a models.Assignment
			p models.Product
		)
		err := rows.Scan(
			&a.ID, &a.ProductID, &a.UserEmail, &a.UserName, &a.AssignedBy, &a.AssignedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.SKU, &p.ImageURL, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		a.Product = &p
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
