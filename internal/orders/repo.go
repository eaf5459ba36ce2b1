package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-flowershop/internal/postgres"
)

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	OwnerUserID string
	Status      Status
}

// Store persists orders. Status updates are last-write-wins.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, to Status, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type Repo struct{ DB *pgxpool.Pool }

// Create assigns the order id and writes the order with its lines in one tx.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, owner_user_id, customer_name, customer_phone, customer_address, customer_note,
		                   payment_method, shipping_fee, total_price, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.OwnerUserID, o.Customer.Name, o.Customer.Phone, o.Customer.Address, o.Customer.Note,
		string(o.PaymentMethod), o.ShippingFee, o.TotalPrice, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if name, ok := postgres.Violation(err); ok {
		return fmt.Errorf("%w: violates %s", ErrInvalidCheckout, name)
	}
	if err != nil {
		return err
	}

	for i, it := range o.Items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, name, image_ref, size_name, unit_price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			o.ID, i, it.ProductID, it.Name, it.ImageRef, it.SizeName, it.UnitPrice, it.Quantity,
		); err != nil {
			if name, ok := postgres.Violation(err); ok {
				return fmt.Errorf("%w: violates %s", ErrInvalidCheckout, name)
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

const selectOrders = `SELECT id, owner_user_id, customer_name, customer_phone, customer_address, customer_note,
       payment_method, shipping_fee, total_price, status, created_at, updated_at
FROM orders`

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrders+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}
	items, err := r.items(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	q := selectOrders + ` WHERE ($1 = '' OR owner_user_id = $1) AND ($2 = '' OR status = $2) ORDER BY created_at DESC`
	rows, err := r.DB.Query(ctx, q, f.OwnerUserID, string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []Order
		ids []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(to), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Delete is a no-op for unknown ids. order_items cascade.
func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

func (r *Repo) items(ctx context.Context, orderIDs []string) (map[string][]OrderLine, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, name, image_ref, size_name, unit_price, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]OrderLine, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      OrderLine
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.ImageRef, &it.SizeName, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o              Order
		method, status string
	)
	err := row.Scan(&o.ID, &o.OwnerUserID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address, &o.Customer.Note,
		&method, &o.ShippingFee, &o.TotalPrice, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.PaymentMethod = PaymentMethod(method)
	if o.Status, err = ParseStatus(status); err != nil {
		return Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	return o, nil
}
