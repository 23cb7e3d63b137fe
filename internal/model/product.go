package model

import "time"

// Product mirrors the `products` table. Prices are stored in cents to avoid
// floating point arithmetic on money.
//
// Fields:
//
//	ID          – primary key identifier of the product.
//	Name        – product display name.
//	Description – free-form description shown in the catalog.
//	PriceCents  – unit price in cents.
//	IsActive    – inactive products are hidden from the public catalog.
//	CreatedAt   – timestamp of creation.
//	UpdatedAt   – timestamp of last update.
type Product struct {
	ID          uint64    // products.id
	Name        string    // products.name
	Description string    // products.description
	PriceCents  uint32    // products.price_cents
	IsActive    bool      // products.is_active
	CreatedAt   time.Time // products.created_at
	UpdatedAt   time.Time // products.updated_at
}
