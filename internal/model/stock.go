package model

import "time"

// StockRecord is the authoritative per-product quantity-on-hand row in the
// `stock` table. Quantity never goes negative: every mutation that would
// drive it below zero fails atomically and leaves the row unchanged.
// MinQuantity is a reorder threshold with no hard invariant relative to
// Quantity.
//
// Fields:
//
//	ProductID   – unique key referencing products.id.
//	Quantity    – current quantity on hand (>= 0).
//	MinQuantity – reorder threshold (>= 0).
//	UpdatedAt   – timestamp of last mutation.
type StockRecord struct {
	ProductID   uint64    // stock.product_id
	Quantity    int64     // stock.quantity
	MinQuantity int64     // stock.min_quantity
	UpdatedAt   time.Time // stock.updated_at
}

// StockMovement is one immutable audit row in the append-only
// `stock_movements` table. It records a single quantity change; the current
// quantity is read from StockRecord, never derived by summing movements.
//
// Fields:
//
//	ID            – auto-increment identifier, also the history order key.
//	ProductID     – product whose stock changed (indexed for history reads).
//	Delta         – signed change applied (negative for decrements).
//	QuantityAfter – quantity on hand immediately after the change.
//	Reason        – caller-supplied reason string (e.g. "sale", "restock").
//	ActorID       – user who caused the change.
//	CreatedAt     – timestamp of the change.
type StockMovement struct {
	ID            uint64    // stock_movements.id
	ProductID     uint64    // stock_movements.product_id
	Delta         int64     // stock_movements.delta
	QuantityAfter int64     // stock_movements.quantity_after
	Reason        string    // stock_movements.reason
	ActorID       uint64    // stock_movements.actor_id
	CreatedAt     time.Time // stock_movements.created_at
}
