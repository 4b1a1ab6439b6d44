package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/florist/internal/domain/product"
)

const (
	productColumns = `id, name, price, category, description, image_url`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	listComponentsSQL = `SELECT product_id, component_id, quantity
		FROM product_components WHERE product_id = ANY($1) ORDER BY product_id, component_id`

	upsertProductSQL = `INSERT INTO products (id, name, price, category, description, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url`

	deleteComponentsSQL = `DELETE FROM product_components WHERE product_id = $1`

	insertComponentSQL = `INSERT INTO product_components (product_id, component_id, quantity) VALUES ($1, $2, $3)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Products are returned with their bill of materials.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return r.withComponents(ctx, products)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &product.NotFoundError{ProductID: id}
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	products, err := r.withComponents(ctx, []product.Product{p})
	if err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given IDs. Unknown IDs are
// skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return r.withComponents(ctx, products)
}

// Upsert creates or replaces a product together with its components.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Price, p.Category, p.Description, p.ImageURL,
	); err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	if _, err := tx.Exec(ctx, deleteComponentsSQL, p.ID); err != nil {
		return errors.Wrapf(err, "clear components of %q", p.ID)
	}
	for _, c := range p.Assembly {
		if _, err := tx.Exec(ctx, insertComponentSQL, p.ID, c.ProductID, c.Quantity); err != nil {
			return errors.Wrapf(err, "insert component %q of %q", c.ProductID, p.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (r *ProductRepository) withComponents(ctx context.Context, products []product.Product) ([]product.Product, error) {
	if len(products) == 0 {
		return products, nil
	}

	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.db.Query(ctx, listComponentsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list components")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			owner string
			c     product.Component
		)
		if err := rows.Scan(&owner, &c.ProductID, &c.Quantity); err != nil {
			return nil, errors.Wrap(err, "scan component")
		}
		if i, ok := index[owner]; ok {
			products[i].Assembly = append(products[i].Assembly, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list components")
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Description, &p.ImageURL)
	return p, err
}
