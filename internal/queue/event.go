// Package queue defines message payloads exchanged over the message broker
// and the background consumer that reacts to them.
package queue

// OrderPlacedEvent is published after an order transaction commits. It
// carries enough information for downstream consumers to send the
// confirmation email and write audit logs without querying the primary
// database.
type OrderPlacedEvent struct {
	OrderID       uint64           `json:"order_id"`
	UserID        uint64           `json:"user_id"`
	CustomerName  string           `json:"customer_name"`
	CustomerEmail string           `json:"customer_email"`
	Items         []OrderItemEvent `json:"items"`
	TotalCents    uint64           `json:"total_cents"`
	PlacedAt      string           `json:"placed_at"`
}

// OrderItemEvent is one line item of an OrderPlacedEvent.
type OrderItemEvent struct {
	ProductID      uint64 `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents uint32 `json:"unit_price_cents"`
}
