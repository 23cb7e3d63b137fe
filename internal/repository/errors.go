// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrStockNotFound indicates that no stock row exists for a
// product, while InsufficientStockError signals that a decrement would
// have driven quantity below zero and was therefore refused without
// mutating anything.
package repository

import (
	"errors"
	"fmt"
)

// ErrProductNotFound is returned when a product lookup matches no row.
// Handlers should translate this into an HTTP 404 response.
var ErrProductNotFound = errors.New("product not found")

// ErrStockNotFound is returned when no stock record exists for the
// requested product. Handlers should translate this into an HTTP 404
// response.
var ErrStockNotFound = errors.New("stock record not found")

// ErrOrderNotFound is returned when an order lookup matches no row for
// the calling user. Handlers should translate this into an HTTP 404.
var ErrOrderNotFound = errors.New("order not found")

// ErrNonPositiveAmount is returned when an increment or decrement is
// requested with an amount <= 0. Handlers should translate this into an
// HTTP 400 response.
var ErrNonPositiveAmount = errors.New("amount must be positive")

// ErrNegativeQuantity is returned when a direct quantity overwrite is
// requested with a negative value. Handlers should translate this into
// an HTTP 400 response.
var ErrNegativeQuantity = errors.New("quantity must not be negative")

// InsufficientStockError is returned when a decrement (or one line item
// of an order batch) asks for more units than are on hand. The stock row
// is left untouched. It is always recoverable: handlers translate it
// into an HTTP 409 carrying the requested and available quantities so
// the client can adjust and retry.
type InsufficientStockError struct {
	ProductID uint64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
