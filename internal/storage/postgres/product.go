package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
)

const (
	productColumns = `id, name, selling_price, original_price, unit, stock,
		category, image_url, bulk_threshold_qty, bulk_bundle_price`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products
		(id, name, selling_price, original_price, unit, stock, category, image_url, bulk_threshold_qty, bulk_bundle_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	updateProductSQL = `UPDATE products SET
		name = $2, selling_price = $3, original_price = $4, unit = $5, stock = $6,
		category = $7, image_url = $8, bulk_threshold_qty = $9, bulk_bundle_price = $10,
		updated_at = now()
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products
		(id, name, selling_price, original_price, unit, stock, category, image_url, bulk_threshold_qty, bulk_bundle_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, selling_price = EXCLUDED.selling_price,
			original_price = EXCLUDED.original_price, unit = EXCLUDED.unit,
			stock = EXCLUDED.stock, category = EXCLUDED.category,
			image_url = EXCLUDED.image_url,
			bulk_threshold_qty = EXCLUDED.bulk_threshold_qty,
			bulk_bundle_price = EXCLUDED.bulk_bundle_price,
			updated_at = now()`

	// The stock CHECK constraint is the backstop; the WHERE clause turns a
	// would-be violation into zero affected rows instead of an SQL error.
	adjustStockSQL = `UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products in the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Missing IDs are
// simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL, productArgs(p)...)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update replaces all editable fields of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL, productArgs(p)...)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Upsert inserts a product or replaces it wholesale. Used by the seed tool.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL, productArgs(p)...)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product from the catalog.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// AdjustStock atomically shifts a product's stock by delta. A negative delta
// that would take stock below zero affects no rows and returns
// catalog.ErrInsufficientStock.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	tag, err := r.pool.Exec(ctx, adjustStockSQL, id, delta)
	if err != nil {
		return fmt.Errorf("adjusting stock for product %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, productExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("adjusting stock for product %q: %w", id, err)
	}
	if !exists {
		return catalog.ErrNotFound
	}
	return catalog.ErrInsufficientStock
}

func productArgs(p *catalog.Product) []any {
	var thresholdQty *int32
	var bundlePrice *decimal.Decimal
	if p.BulkRule != nil {
		qty := int32(p.BulkRule.ThresholdQty)
		thresholdQty = &qty
		bundlePrice = &p.BulkRule.BundlePrice
	}
	return []any{
		p.ID, p.Name, p.SellingPrice, p.OriginalPrice, p.Unit, p.Stock,
		p.Category, p.ImageURL, thresholdQty, bundlePrice,
	}
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p            catalog.Product
		sellingPrice decimal.Decimal
		thresholdQty *int32
		bundlePrice  *decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &sellingPrice, &p.OriginalPrice, &p.Unit, &p.Stock,
		&p.Category, &p.ImageURL, &thresholdQty, &bundlePrice,
	)
	p.SellingPrice = sellingPrice
	if thresholdQty != nil && bundlePrice != nil {
		p.BulkRule = &catalog.BulkRule{
			ThresholdQty: int(*thresholdQty),
			BundlePrice:  *bundlePrice,
		}
	}
	return p, err
}
