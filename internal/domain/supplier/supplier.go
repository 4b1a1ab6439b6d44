// Package supplier holds the growers and wholesalers purchases are made from.
package supplier

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a supplier does not exist.
var ErrNotFound = errors.New("supplier not found")

// Supplier is a business the shop buys stock from.
type Supplier struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Repository defines persistence operations for suppliers.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Supplier, error)
	Upsert(ctx context.Context, s Supplier) error
}
