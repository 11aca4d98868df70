package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/product"
	"github.com/lib/pq"
)

// variantColumns expects $1 to be the reservation cutoff.
const variantColumns = `
	v.id, v.product_id, p.name, v.sku, v.size, v.color, v.cost_price,
	v.sale_price, v.stock_on_hand,
	COALESCE((SELECT SUM(r.qty) FROM stock_reservations r
	          WHERE r.variant_id = v.id AND r.released_at IS NULL AND r.expires_at > $1), 0),
	v.is_active, v.created_at, v.updated_at`

const variantFrom = `
	FROM product_variants v
	JOIN products p ON p.id = v.product_id`

func scanVariant(row rowScanner) (*inventory.Variant, error) {
	var v inventory.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.SKU, &v.Size, &v.Color, &v.CostPrice,
		&v.SalePrice, &v.StockOnHand, &v.ReservedQty, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r pgReader) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	if !isUUID(id) {
		return nil, product.ErrProductNotFound
	}
	var p product.Product
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r pgReader) GetVariant(ctx context.Context, id string, asOf time.Time) (*inventory.Variant, error) {
	if !isUUID(id) {
		return nil, inventory.ErrVariantNotFound
	}
	v, err := scanVariant(r.q.QueryRowContext(ctx,
		"SELECT "+variantColumns+variantFrom+" WHERE v.id = $2", asOf, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return v, nil
}

func (r pgReader) ListVariants(ctx context.Context, f VariantFilter) ([]inventory.Variant, error) {
	if f.ProductID != "" && !isUUID(f.ProductID) {
		return nil, nil
	}
	args := []any{f.AsOf}
	var conds []string
	if f.ProductID != "" {
		args = append(args, f.ProductID)
		conds = append(conds, fmt.Sprintf("v.product_id = $%d", len(args)))
	}
	if f.ActiveOnly {
		conds = append(conds, "v.is_active AND p.is_active")
	}
	orderBy := " ORDER BY p.name, v.sku"
	if f.MaxStock != nil {
		args = append(args, *f.MaxStock)
		conds = append(conds, fmt.Sprintf("v.stock_on_hand <= $%d", len(args)))
		orderBy = " ORDER BY v.stock_on_hand ASC, v.sku"
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := r.q.QueryContext(ctx, "SELECT "+variantColumns+variantFrom+where+orderBy, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var out []inventory.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

const transactionColumns = `
	t.id, t.variant_id, t.type, t.qty, t.ref_type, COALESCE(t.ref_id, ''),
	COALESCE(t.note, ''), COALESCE(t.created_by_user_id, ''), COALESCE(u.full_name, ''), t.created_at`

const transactionFrom = `
	FROM inventory_transactions t
	LEFT JOIN users u ON u.id = t.created_by_user_id`

func (r pgReader) queryTransactions(ctx context.Context, query string, args ...any) ([]inventory.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory transactions: %w", err)
	}
	defer rows.Close()

	var out []inventory.Transaction
	for rows.Next() {
		var t inventory.Transaction
		if err := rows.Scan(&t.ID, &t.VariantID, &t.Type, &t.Qty, &t.RefType, &t.RefID,
			&t.Note, &t.CreatedByUserID, &t.CreatedByName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r pgReader) ListTransactions(ctx context.Context, variantID string) ([]inventory.Transaction, error) {
	if !isUUID(variantID) {
		return nil, nil
	}
	return r.queryTransactions(ctx,
		"SELECT "+transactionColumns+transactionFrom+" WHERE t.variant_id = $1 ORDER BY t.created_at DESC, t.id",
		variantID)
}

func (r pgReader) RecentTransactions(ctx context.Context, limit int) ([]inventory.Transaction, error) {
	return r.queryTransactions(ctx,
		"SELECT "+transactionColumns+transactionFrom+" ORDER BY t.created_at DESC, t.id LIMIT $1",
		limit)
}

func (r pgReader) SumTransactions(ctx context.Context, variantID string) (int, error) {
	if !isUUID(variantID) {
		return 0, nil
	}
	var sum int
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(qty), 0) FROM inventory_transactions WHERE variant_id = $1`, variantID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum inventory transactions: %w", err)
	}
	return sum, nil
}

// ============================================
// Transactional writes
// ============================================

func (t *pgTx) CreateProduct(ctx context.Context, p *product.Product) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO products (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Description, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (t *pgTx) CreateVariant(ctx context.Context, v *inventory.Variant) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO product_variants (
			id, product_id, sku, size, color, cost_price, sale_price,
			stock_on_hand, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.ProductID, v.SKU, v.Size, v.Color, v.CostPrice, v.SalePrice,
		v.StockOnHand, v.IsActive, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		switch code, _ := pgCode(err); code {
		case pqUniqueViolation:
			return inventory.ErrDuplicateSKU
		case pqForeignKeyViolation:
			return product.ErrProductNotFound
		}
		return fmt.Errorf("failed to insert variant: %w", err)
	}
	return nil
}

// LockVariants takes the row locks in ascending id order so that two
// checkouts touching the same variants cannot deadlock. Rows are read by a
// second statement after the locks are held, so reserved_qty includes holds
// committed while this transaction waited.
func (t *pgTx) LockVariants(ctx context.Context, ids []string, asOf time.Time) (map[string]*inventory.Variant, error) {
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)
	out := make(map[string]*inventory.Variant, len(sorted))
	if len(sorted) == 0 {
		return out, nil
	}

	if _, err := t.q.ExecContext(ctx,
		`SELECT id FROM product_variants WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`,
		pq.Array(sorted)); err != nil {
		return nil, fmt.Errorf("failed to lock variants: %w", err)
	}

	rows, err := t.q.QueryContext(ctx,
		"SELECT "+variantColumns+variantFrom+" WHERE v.id = ANY($2::uuid[]) ORDER BY v.id",
		asOf, pq.Array(sorted))
	if err != nil {
		return nil, fmt.Errorf("failed to read locked variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		out[v.ID] = v
	}
	return out, rows.Err()
}

func (t *pgTx) UpdateVariantStock(ctx context.Context, v *inventory.Variant) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE product_variants SET stock_on_hand = $2, updated_at = $3 WHERE id = $1`,
		v.ID, v.StockOnHand, v.UpdatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == pqCheckViolation {
			return inventory.ErrNegativeStock
		}
		return fmt.Errorf("failed to update variant stock: %w", err)
	}
	return expectOne(res, inventory.ErrVariantNotFound)
}

func (t *pgTx) AppendTransaction(ctx context.Context, tx inventory.Transaction) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO inventory_transactions (
			id, variant_id, type, qty, ref_type, ref_id, note, created_by_user_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tx.ID, tx.VariantID, tx.Type, tx.Qty, tx.RefType, nullString(tx.RefID),
		nullString(tx.Note), nullString(tx.CreatedByUserID), tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append inventory transaction: %w", err)
	}
	return nil
}

func (t *pgTx) CreateReservation(ctx context.Context, r *inventory.Reservation) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO stock_reservations (id, variant_id, qty, reference, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.VariantID, r.Qty, nullString(r.Reference), r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (t *pgTx) LockReservation(ctx context.Context, id string) (*inventory.Reservation, error) {
	if !isUUID(id) {
		return nil, inventory.ErrReservationNotFound
	}
	var (
		r        inventory.Reservation
		released sql.NullTime
	)
	err := t.q.QueryRowContext(ctx, `
		SELECT id, variant_id, qty, COALESCE(reference, ''), expires_at, released_at, created_at
		FROM stock_reservations WHERE id = $1 FOR UPDATE`, id,
	).Scan(&r.ID, &r.VariantID, &r.Qty, &r.Reference, &r.ExpiresAt, &released, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock reservation: %w", err)
	}
	if released.Valid {
		r.ReleasedAt = &released.Time
	}
	return &r, nil
}

func (t *pgTx) ReleaseReservation(ctx context.Context, id string, at time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE stock_reservations SET released_at = COALESCE(released_at, $2) WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}
	return expectOne(res, inventory.ErrReservationNotFound)
}

func (t *pgTx) ReleaseReservationsByReference(ctx context.Context, reference string, at time.Time) (int, error) {
	res, err := t.q.ExecContext(ctx, `
		UPDATE stock_reservations SET released_at = $2
		WHERE reference = $1 AND released_at IS NULL AND expires_at > $2`, reference, at)
	if err != nil {
		return 0, fmt.Errorf("failed to release reservations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
