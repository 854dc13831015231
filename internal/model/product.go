package model

import "time"

// Product represents a row in the `products` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – product name, at most 100 characters.
//	Description – free text, at most 500 characters.
//	Price       – price between 0 and 500 with two decimals.
//	CreatedAt   – creation timestamp (UTC).
type Product struct {
	ID          uint64    // products.id
	Name        string    // products.name
	Description string    // products.description
	Price       float64   // products.price
	CreatedAt   time.Time // products.created_at
}
