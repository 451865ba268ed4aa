package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopdesk/catalog-service/internal/models"
)

const productColumns = `id, name, COALESCE(description, ''), price, category,
	COALESCE(sku, ''), COALESCE(image_url, ''), created_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.SKU, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]models.Product, error) {
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// ListProducts returns the catalog, newest first.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// SearchProducts matches query case-insensitively against name and
// description. An empty category or "all" disables the category filter.
func (s *Store) SearchProducts(ctx context.Context, query, category string) ([]models.Product, error) {
	if category == "all" {
		category = ""
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE (name ILIKE $1 OR description ILIKE $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
	`, likePattern(query), category)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// GetProduct returns one product.
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetProductsByIDs returns the products with the given ids in the order the
// ids were given. Unknown ids are skipped.
func (s *Store) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	found, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// CreateProduct inserts p and fills in its id and creation time.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return insertProduct(ctx, s.pool, p)
}

// BulkCreateProducts inserts every product in one transaction; either all
// rows are stored or none are.
func (s *Store) BulkCreateProducts(ctx context.Context, products []models.Product) ([]models.Product, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created := make([]models.Product, len(products))
	copy(created, products)
	for i := range created {
		if err := insertProduct(ctx, tx, &created[i]); err != nil {
			return nil, fmt.Errorf("insert product %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertProduct(ctx context.Context, q queryRower, p *models.Product) error {
	return q.QueryRow(ctx, `
		INSERT INTO products (name, description, price, category, sku, image_url)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id, created_at
	`, p.Name, p.Description, p.Price, p.Category, p.SKU, p.ImageURL).Scan(&p.ID, &p.CreatedAt)
}

// UpdateProduct applies the non-nil fields of u and returns the stored row.
func (s *Store) UpdateProduct(ctx context.Context, id uuid.UUID, u models.ProductUpdate) (*models.Product, error) {
	sets, args := productUpdateSets(u)
	if len(sets) == 0 {
		return s.GetProduct(ctx, id)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), productColumns)

	p, err := scanProduct(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// productUpdateSets builds the SET clauses for u with positional arguments
// starting at $1.
func productUpdateSets(u models.ProductUpdate) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Price != nil {
		add("price", *u.Price)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.SKU != nil {
		add("sku", *u.SKU)
	}
	if u.ImageURL != nil {
		add("image_url", *u.ImageURL)
	}
	return sets, args
}

// DeleteProduct removes a product and, by cascade, its assignments.
func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// likePattern escapes ILIKE metacharacters in q and wraps it for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}
