package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopdesk/catalog-service/internal/models"
)

const paymentLinkColumns = `id, user_email, user_name, amount, currency, status,
	COALESCE(processor_link_id, ''), COALESCE(url, ''), due_date, COALESCE(notes, ''),
	product_ids, created_at, paid_at`

func scanPaymentLink(row pgx.Row) (*models.PaymentLink, error) {
	var l models.PaymentLink
	err := row.Scan(
		&l.ID, &l.UserEmail, &l.UserName, &l.Amount, &l.Currency, &l.Status,
		&l.ProcessorLinkID, &l.URL, &l.DueDate, &l.Notes,
		&l.ProductIDs, &l.CreatedAt, &l.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreatePaymentLink inserts l and fills in its id and creation time.
func (s *Store) CreatePaymentLink(ctx context.Context, l *models.PaymentLink) error {
	if l.Status == "" {
		l.Status = models.PaymentPending
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO payment_links (user_email, user_name, amount, currency, status,
		                           processor_link_id, url, due_date, notes, product_ids)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), $10)
		RETURNING id, created_at
	`, l.UserEmail, l.UserName, l.Amount, l.Currency, l.Status,
		l.ProcessorLinkID, l.URL, l.DueDate, l.Notes, l.ProductIDs,
	).Scan(&l.ID, &l.CreatedAt)
}

// ListPaymentLinks returns every payment link, newest first.
func (s *Store) ListPaymentLinks(ctx context.Context) ([]models.PaymentLink, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+paymentLinkColumns+` FROM payment_links ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []models.PaymentLink{}
	for rows.Next() {
		l, err := scanPaymentLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// GetPaymentLink returns one payment link.
func (s *Store) GetPaymentLink(ctx context.Context, id uuid.UUID) (*models.PaymentLink, error) {
	l, err := scanPaymentLink(s.pool.QueryRow(ctx, `SELECT `+paymentLinkColumns+` FROM payment_links WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

// UpdatePaymentLink applies the non-nil fields of u. Moving to paid stamps paid_at.
func (s *Store) UpdatePaymentLink(ctx context.Context, id uuid.UUID, u models.PaymentLinkUpdate) (*models.PaymentLink, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.Status != nil {
		add("status", *u.Status)
		if *u.Status == models.PaymentPaid {
			sets = append(sets, "paid_at = COALESCE(paid_at, now())")
		}
	}
	if u.DueDate != nil {
		add("due_date", *u.DueDate)
	}
	if u.Notes != nil {
		add("notes", *u.Notes)
	}
	if len(sets) == 0 {
		return s.GetPaymentLink(ctx, id)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE payment_links SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), paymentLinkColumns)
	l, err := scanPaymentLink(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

// MarkPaymentLinkPaid flags the link issued by the processor as paid.
func (s *Store) MarkPaymentLinkPaid(ctx context.Context, processorLinkID string, paidAt time.Time) (*models.PaymentLink, error) {
	l, err := scanPaymentLink(s.pool.QueryRow(ctx, `
		UPDATE payment_links
		SET status = $1, paid_at = $2
		WHERE processor_link_id = $3
		RETURNING `+paymentLinkColumns,
		models.PaymentPaid, paidAt, processorLinkID,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

// DeletePaymentLink removes a payment link record. The hosted link itself is
// left to expire at the processor.
func (s *Store) DeletePaymentLink(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM payment_links WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
