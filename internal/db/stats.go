package db

import (
	"context"

	"github.com/shopdesk/catalog-service/internal/models"
)

// GetStats returns the dashboard counters. Active users are distinct
// customers holding at least one assignment; revenue sums paid links.
func (s *Store) GetStats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(DISTINCT lower(user_email)) FROM user_assignments),
			(SELECT COUNT(*) FROM payment_links),
			(SELECT COALESCE(SUM(amount), 0) FROM payment_links WHERE status = 'paid')
	`).Scan(&st.TotalProducts, &st.ActiveUsers, &st.PaymentLinks, &st.Revenue)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
