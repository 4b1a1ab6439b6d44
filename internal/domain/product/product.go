package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// NotFoundError names the product that could not be resolved.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Is makes errors.Is(err, ErrNotFound) hold for a *NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Product is a sellable catalog item: a single stem, a supply or an
// arrangement assembled from other products.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    string
	Description string
	ImageURL    string
	Assembly    []Component
}

// Component is one bill-of-materials entry of an assembled product.
type Component struct {
	ProductID string
	Quantity  int
}

// IsAssembly reports whether the product is built from components.
func (p Product) IsAssembly() bool {
	return len(p.Assembly) > 0
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
}
