package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, username, mobile_number, items, subtotal, discount_total,
		 delivery_charge, final_total, coupon_code, status, latitude, longitude, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	// Decrementing below zero affects no rows; RowsAffected is the signal
	// that tells competing checkouts apart.
	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	productStockSQL = `SELECT name, stock FROM products WHERE id = $1`

	updateMobileSQL = `UPDATE users SET mobile_number = $2 WHERE id = $1`

	orderColumns = `id, user_id, username, mobile_number, items, subtotal, discount_total,
		delivery_charge, final_total, coupon_code, status, latitude, longitude, address, created_at`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Commit persists the order, decrements stock for every line item, and
// records the buyer's mobile number, all inside one transaction. Any
// shortfall rolls the whole placement back; no order row or partial
// decrement survives a failure.
func (r *OrderRepository) Commit(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.Username, o.MobileNumber, itemsJSON,
		o.Subtotal, o.DiscountTotal, o.DeliveryCharge, o.FinalTotal,
		o.CouponCode, string(o.Status),
		o.Location.Lat, o.Location.Lng, o.Location.Address,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for %q: %w", item.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return stockShortfall(ctx, tx, item)
		}
	}

	if o.MobileNumber != "" {
		if _, err := tx.Exec(ctx, updateMobileSQL, o.UserID, o.MobileNumber); err != nil {
			return fmt.Errorf("updating mobile for user %s: %w", o.UserID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// stockShortfall classifies a failed decrement: the product is either gone
// or short on stock.
func stockShortfall(ctx context.Context, tx pgx.Tx, item order.Item) error {
	var (
		name  string
		stock int
	)
	err := tx.QueryRow(ctx, productStockSQL, item.ProductID).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return &order.ProductGoneError{ProductName: item.Name}
	}
	if err != nil {
		return fmt.Errorf("inspecting stock for %q: %w", item.ProductID, err)
	}
	return &order.InsufficientStockError{
		ProductID:   item.ProductID,
		ProductName: name,
		Available:   stock,
		Requested:   item.Quantity,
	}
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %s: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the fulfilment status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string

		subtotal, discountTotal, deliveryCharge, finalTotal decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Username, &o.MobileNumber, &itemsJSON,
		&subtotal, &discountTotal, &deliveryCharge, &finalTotal,
		&o.CouponCode, &status,
		&o.Location.Lat, &o.Location.Lng, &o.Location.Address,
		&o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items for order %q: %w", o.ID, err)
	}
	o.Subtotal = subtotal
	o.DiscountTotal = discountTotal
	o.DeliveryCharge = deliveryCharge
	o.FinalTotal = finalTotal
	o.Status = order.Status(status)
	return o, nil
}
