package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/online-storefront/internal/model"
)

// ProductRepo provides persistence for catalog products. Creation runs in
// a caller-supplied transaction so that the product row and its stock row
// are seeded atomically.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying handle for handler-managed transactions.
func (r *ProductRepo) DB() *sql.DB { return r.db }

// CatalogItem is a product joined with its stock availability for the
// public catalog. Quantity on hand is never exposed to customers, only
// whether the product can currently be ordered.
type CatalogItem struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  uint32 `json:"price_cents"`
	InStock     bool   `json:"in_stock"`
}

// CreateTx inserts a product row within the caller's transaction and
// populates the generated ID.
func (r *ProductRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Product) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO products (name, description, price_cents, is_active) VALUES (?, ?, ?, ?)`,
		p.Name, p.Description, p.PriceCents, p.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID returns a product or ErrProductNotFound.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, price_cents, is_active, created_at, updated_at
		 FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Product{}, ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// Update overwrites the mutable fields of a product. It returns
// ErrProductNotFound when no row matched.
func (r *ProductRepo) Update(ctx context.Context, p model.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price_cents = ?, is_active = ? WHERE id = ?`,
		p.Name, p.Description, p.PriceCents, p.IsActive, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Deactivate soft-deletes a product by clearing is_active. The stock row
// and movement history are kept for auditability.
func (r *ProductRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListCatalog returns all active products with their availability derived
// from the stock table. Products without a stock row count as out of
// stock.
func (r *ProductRepo) ListCatalog(ctx context.Context) ([]CatalogItem, error) {
	const q = `SELECT p.id, p.name, p.description, p.price_cents,
	                  COALESCE(s.quantity, 0) > 0
	           FROM products p
	           LEFT JOIN stock s ON s.product_id = p.id
	           WHERE p.is_active = 1
	           ORDER BY p.name, p.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]CatalogItem, 0)
	for rows.Next() {
		var it CatalogItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.PriceCents, &it.InStock); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListAll returns every product regardless of active flag, for the admin
// dashboard.
func (r *ProductRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	const q = `SELECT id, name, description, price_cents, is_active, created_at, updated_at
	           FROM products ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// PricesFor returns the unit price in cents for each requested active
// product. Missing or inactive products are absent from the result map;
// callers treat that as a not-found condition.
func (r *ProductRepo) PricesFor(ctx context.Context, ids []uint64) (map[uint64]uint32, error) {
	prices := make(map[uint64]uint32, len(ids))
	if len(ids) == 0 {
		return prices, nil
	}
	query := `SELECT id, price_cents FROM products WHERE is_active = 1 AND id IN (`
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var price uint32
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}
