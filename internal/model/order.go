package model

import "time"

// Order statuses. An order row only ever exists in a committed state: when
// any line item cannot be fulfilled the whole transaction — order, items and
// stock decrements — is rolled back together.
const (
	OrderStatusPlaced    = "PLACED"
	OrderStatusCancelled = "CANCELLED"
)

// Order mirrors the `orders` table.
//
// Fields:
//
//	ID         – primary key identifier of the order.
//	UserID     – customer who placed the order.
//	Status     – one of the OrderStatus* constants.
//	TotalCents – sum of item unit prices times quantities, in cents.
//	CreatedAt  – timestamp of creation.
//	UpdatedAt  – timestamp of last update.
type Order struct {
	ID         uint64    // orders.id
	UserID     uint64    // orders.user_id
	Status     string    // orders.status
	TotalCents uint64    // orders.total_cents
	CreatedAt  time.Time // orders.created_at
	UpdatedAt  time.Time // orders.updated_at
}

// OrderItem mirrors the `order_items` table. UnitPriceCents snapshots the
// product price at purchase time so later price changes do not rewrite
// history.
type OrderItem struct {
	ID             uint64 // order_items.id
	OrderID        uint64 // order_items.order_id
	ProductID      uint64 // order_items.product_id
	Quantity       int64  // order_items.quantity
	UnitPriceCents uint32 // order_items.unit_price_cents
}
