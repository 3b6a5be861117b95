package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
)

const (
	couponColumns = `code, discount_amount, min_order_amount, expiry_date, active`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1)`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE active = TRUE ORDER BY code`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY code`

	createCouponSQL = `INSERT INTO coupons (code, discount_amount, min_order_amount, expiry_date, active)
		VALUES ($1, $2, $3, $4, $5)`

	updateCouponSQL = `UPDATE coupons SET
		code = $2, discount_amount = $3, min_order_amount = $4, expiry_date = $5, active = $6
		WHERE code = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = $1`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_amount, min_order_amount, expiry_date, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			discount_amount = EXCLUDED.discount_amount,
			min_order_amount = EXCLUDED.min_order_amount,
			expiry_date = EXCLUDED.expiry_date,
			active = EXCLUDED.active`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code, case-insensitively. Inactive and
// expired coupons are still returned; classifying them is the validator's
// job.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// ListActive returns all active coupons.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// List returns every coupon, active or not.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Create inserts a new coupon. A duplicate code fails with
// coupon.ErrCodeExists.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.Code, c.DiscountAmount, c.MinOrderAmount, c.ExpiryDate, c.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update replaces the coupon stored under originalCode. Renaming onto an
// existing code fails with coupon.ErrCodeExists.
func (r *CouponRepository) Update(ctx context.Context, originalCode string, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		originalCode, c.Code, c.DiscountAmount, c.MinOrderAmount, c.ExpiryDate, c.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("updating coupon %q: %w", originalCode, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert inserts a coupon or replaces its terms. Used by the seed tool.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, c.DiscountAmount, c.MinOrderAmount, c.ExpiryDate, c.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// Delete removes a coupon.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c        coupon.Coupon
		discount decimal.Decimal
		minOrder decimal.Decimal
	)
	err := row.Scan(&c.Code, &discount, &minOrder, &c.ExpiryDate, &c.Active)
	c.DiscountAmount = discount
	c.MinOrderAmount = minOrder
	return c, err
}
