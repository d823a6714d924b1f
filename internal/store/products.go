package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Product is one marketplace listing.
type Product struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PriceCents  int64      `json:"price_cents"`
	ImageURL    string     `json:"image_url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ListProducts returns products, newest first.
func (s *Store) ListProducts(ctx context.Context, limit int) ([]Product, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, description, price_cents, image_url, created_at, updated_at
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var products []Product
	for rows.Next() {
		var (
			p         Product
			createdAt int64
			updatedAt sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		if updatedAt.Valid {
			value := time.Unix(updatedAt.Int64, 0).UTC()
			p.UpdatedAt = &value
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

// CreateProduct inserts a product and returns it with its assigned ID.
func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.DB == nil {
		return Product{}, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	result, err := s.DB.ExecContext(ctx, `
		INSERT INTO products (name, description, price_cents, image_url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.PriceCents, p.ImageURL, p.CreatedAt.Unix())
	if err != nil {
		return Product{}, fmt.Errorf("store product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Product{}, fmt.Errorf("product id: %w", err)
	}

	p.ID = id
	return p, nil
}

// DeleteProduct removes a product by ID.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("product %d not found", id)
	}

	return nil
}
