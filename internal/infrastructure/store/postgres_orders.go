package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/order"
)

const orderColumns = `
	o.id, o.order_code, o.customer_id, o.delivery_zone, o.delivery_address,
	o.delivery_fee, o.subtotal, o.total, o.payment_method, o.payment_status,
	o.order_status, o.shipping_address, COALESCE(o.note, ''), o.is_pos,
	COALESCE(o.idempotency_key, ''), o.created_at, o.updated_at,
	c.id, c.full_name, c.phone, c.created_at, c.updated_at`

const orderFrom = `
	FROM orders o
	JOIN customers c ON c.id = o.customer_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o        order.Order
		c        customer.Customer
		shipping []byte
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.CustomerID, &o.DeliveryZone, &o.DeliveryAddress,
		&o.DeliveryFee, &o.Subtotal, &o.Total, &o.PaymentMethod, &o.PaymentStatus,
		&o.Status, &shipping, &o.Note, &o.IsPOS,
		&o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt,
		&c.ID, &c.FullName, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	o.Customer = &c
	return &o, nil
}

func (r pgReader) loadOrder(ctx context.Context, where string, args []any, lock bool) (*order.Order, error) {
	query := "SELECT " + orderColumns + orderFrom + " WHERE " + where
	if lock {
		query += " FOR UPDATE OF o"
	}
	o, err := scanOrder(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if o.Items, err = r.orderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.PaymentSlips, err = r.paymentSlips(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r pgReader) orderItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, variant_id, product_name_snapshot, sku_snapshot,
		       size_snapshot, color_snapshot, cost_price_snapshot, sale_price,
		       discount, qty, line_total
		FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.ProductNameSnapshot, &it.SKUSnapshot,
			&it.SizeSnapshot, &it.ColorSnapshot, &it.CostPriceSnapshot, &it.SalePrice,
			&it.Discount, &it.Qty, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r pgReader) paymentSlips(ctx context.Context, orderID string) ([]order.PaymentSlip, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, slip_url, payment_method, created_at
		FROM payment_slips WHERE order_id = $1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment slips: %w", err)
	}
	defer rows.Close()

	var slips []order.PaymentSlip
	for rows.Next() {
		var s order.PaymentSlip
		if err := rows.Scan(&s.ID, &s.OrderID, &s.SlipURL, &s.PaymentMethod, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment slip: %w", err)
		}
		slips = append(slips, s)
	}
	return slips, rows.Err()
}

func (r pgReader) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	if !isUUID(id) {
		return nil, order.ErrOrderNotFound
	}
	return r.loadOrder(ctx, "o.id = $1", []any{id}, false)
}

func (r pgReader) GetOrderByCode(ctx context.Context, code string) (*order.Order, error) {
	return r.loadOrder(ctx, "o.order_code = $1", []any{code}, false)
}

func (r pgReader) GetOrderByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	if key == "" {
		return nil, order.ErrOrderNotFound
	}
	return r.loadOrder(ctx, "o.idempotency_key = $1", []any{key}, false)
}

func (r pgReader) ListOrders(ctx context.Context, f OrderFilter) ([]order.Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("o.order_status = $%d", len(args)))
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		conds = append(conds, fmt.Sprintf("o.payment_status = $%d", len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(o.order_code ILIKE $%d OR c.full_name ILIKE $%d OR c.phone ILIKE $%d)", n, n, n))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*)"+orderFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := "SELECT " + orderColumns + orderFrom + where + " ORDER BY o.created_at DESC, o.id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ============================================
// Transactional writes
// ============================================

func (t *pgTx) FindCustomerByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	var c customer.Customer
	err := t.q.QueryRowContext(ctx, `
		SELECT id, full_name, phone, created_at, updated_at
		FROM customers WHERE phone = $1 FOR UPDATE`, phone,
	).Scan(&c.ID, &c.FullName, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customer.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &c, nil
}

// CreateCustomer inserts the customer. A concurrent insert of the same phone
// resolves to the existing row (renamed), and c is updated to match it.
func (t *pgTx) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	err := t.q.QueryRowContext(ctx, `
		INSERT INTO customers (id, full_name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		c.ID, c.FullName, c.Phone, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE customers SET full_name = $2, updated_at = $3 WHERE id = $1`,
		c.ID, c.FullName, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return expectOne(res, customer.ErrCustomerNotFound)
}

func (t *pgTx) CreateOrder(ctx context.Context, o *order.Order) error {
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	_, err = t.q.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_code, customer_id, delivery_zone, delivery_address,
			delivery_fee, subtotal, total, payment_method, payment_status,
			order_status, shipping_address, note, is_pos, idempotency_key,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		o.ID, o.Code, o.CustomerID, o.DeliveryZone, o.DeliveryAddress,
		o.DeliveryFee, o.Subtotal, o.Total, o.PaymentMethod, o.PaymentStatus,
		o.Status, shipping, nullString(o.Note), o.IsPOS, nullString(o.IdempotencyKey),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		code, constraint := pgCode(err)
		if code == pqUniqueViolation {
			switch constraint {
			case "orders_order_code_key":
				return order.ErrOrderCodeConflict
			case "orders_idempotency_key_key":
				return order.ErrDuplicateIdempotencyKey
			}
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, it := range o.Items {
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, variant_id, position, product_name_snapshot, sku_snapshot,
				size_snapshot, color_snapshot, cost_price_snapshot, sale_price,
				discount, qty, line_total
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			it.ID, o.ID, it.VariantID, i, it.ProductNameSnapshot, it.SKUSnapshot,
			it.SizeSnapshot, it.ColorSnapshot, it.CostPriceSnapshot, it.SalePrice,
			it.Discount, it.Qty, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (*order.Order, error) {
	if !isUUID(id) {
		return nil, order.ErrOrderNotFound
	}
	return t.loadOrder(ctx, "o.id = $1", []any{id}, true)
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE orders SET order_status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectOne(res, order.ErrOrderNotFound)
}

func (t *pgTx) UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus, at time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return expectOne(res, order.ErrOrderNotFound)
}

func (t *pgTx) CreatePaymentSlip(ctx context.Context, s *order.PaymentSlip) error {
	if !isUUID(s.OrderID) {
		return order.ErrOrderNotFound
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO payment_slips (id, order_id, slip_url, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.OrderID, s.SlipURL, s.PaymentMethod, s.CreatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == pqForeignKeyViolation {
			return order.ErrOrderNotFound
		}
		return fmt.Errorf("failed to insert payment slip: %w", err)
	}
	return nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
