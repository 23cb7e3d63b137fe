package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/online-storefront/internal/model"
)

// OrderRepo provides persistence for orders and their line items. Order
// creation always happens inside a transaction shared with the stock
// decrements so an unfulfillable order leaves no trace in any table.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so the order handler can open the
// transaction spanning orders, order_items and stock.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new order within the caller's transaction and
// populates the generated ID on the provided record.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, status, total_cents) VALUES (?, ?, ?)`,
		o.UserID, o.Status, o.TotalCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// CreateItemsBulkTx inserts all line items of an order in a single
// statement within the caller's transaction. Passing an empty slice has no
// effect and returns nil.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents) VALUES `
	args := make([]interface{}, 0, len(items)*4)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, it.OrderID, it.ProductID, it.Quantity, it.UnitPriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// OrderDetail is an order joined with its line items, as returned to the
// customer who placed it.
type OrderDetail struct {
	ID         uint64            `json:"id"`
	Status     string            `json:"status"`
	TotalCents uint64            `json:"total_cents"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderDetailItem `json:"items"`
}

// OrderDetailItem is one line of an OrderDetail.
type OrderDetailItem struct {
	ProductID      uint64 `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents uint32 `json:"unit_price_cents"`
}

// GetByIDForUser returns a single order for the given user, enforcing
// ownership. ErrOrderNotFound is returned when no matching row exists.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID, userID uint64) (*OrderDetail, error) {
	var det OrderDetail
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, total_cents, created_at FROM orders WHERE id = ? AND user_id = ?`,
		orderID, userID).Scan(&det.ID, &det.Status, &det.TotalCents, &det.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, []uint64{det.ID})
	if err != nil {
		return nil, err
	}
	det.Items = items[det.ID]
	if det.Items == nil {
		det.Items = []OrderDetailItem{}
	}
	return &det, nil
}

// ListByUser returns all orders for the given user, newest first, with
// line items populated in a single follow-up query.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, total_cents, created_at FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]OrderDetail, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		var d OrderDetail
		if err := rows.Scan(&d.ID, &d.Status, &d.TotalCents, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Items = []OrderDetailItem{}
		details = append(details, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range details {
		if list, ok := items[details[i].ID]; ok {
			details[i].Items = list
		}
	}
	return details, nil
}

// itemsFor loads the line items of the given orders keyed by order id.
func (r *OrderRepo) itemsFor(ctx context.Context, orderIDs []uint64) (map[uint64][]OrderDetailItem, error) {
	placeholders := make([]string, 0, len(orderIDs))
	args := make([]interface{}, 0, len(orderIDs))
	for _, id := range orderIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price_cents
	          FROM order_items oi
	          JOIN products p ON p.id = oi.product_id
	          WHERE oi.order_id IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY oi.order_id, oi.id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]OrderDetailItem, len(orderIDs))
	for rows.Next() {
		var orderID uint64
		var it OrderDetailItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
