package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/domain/product"
)

// MemoryStore is an in-memory Store. Transactions are serialized by a single
// writer lock and work on a private copy of the state that replaces the live
// state only on success, which gives the same all-or-nothing behaviour as a
// database transaction.
type MemoryStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *memState
	fault   func(op string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// AddUser registers a staff user so ledger rows can show the actor's name.
func (s *MemoryStore) AddUser(id, fullName string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	next.users[id] = fullName
	s.state = next
}

// SetFault installs a hook consulted before every transactional write.
// A non-nil return fails that write. Used by tests to simulate storage errors.
func (s *MemoryStore) SetFault(fn func(op string) error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.fault = fn
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	if err := fn(&memTx{state: working, fault: s.fault}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = working
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) read() *memState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// The live state is replaced, never mutated, after a commit, so readers can
// use a snapshot pointer without holding the lock.

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return s.read().getOrder(id)
}

func (s *MemoryStore) GetOrderByCode(ctx context.Context, code string) (*order.Order, error) {
	return s.read().getOrderByCode(code)
}

func (s *MemoryStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	return s.read().getOrderByIdempotencyKey(key)
}

func (s *MemoryStore) ListOrders(ctx context.Context, f OrderFilter) ([]order.Order, int, error) {
	orders, total := s.read().listOrders(f)
	return orders, total, nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	return s.read().getProduct(id)
}

func (s *MemoryStore) GetVariant(ctx context.Context, id string, asOf time.Time) (*inventory.Variant, error) {
	return s.read().getVariant(id, asOf)
}

func (s *MemoryStore) ListVariants(ctx context.Context, f VariantFilter) ([]inventory.Variant, error) {
	return s.read().listVariants(f), nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, variantID string) ([]inventory.Transaction, error) {
	return s.read().listTransactions(variantID), nil
}

func (s *MemoryStore) RecentTransactions(ctx context.Context, limit int) ([]inventory.Transaction, error) {
	return s.read().recentTransactions(limit), nil
}

func (s *MemoryStore) SumTransactions(ctx context.Context, variantID string) (int, error) {
	return inventory.SumLedger(s.read().listTransactions(variantID)), nil
}

// ============================================
// State
// ============================================

type memState struct {
	users        map[string]string
	customers    map[string]customer.Customer
	products     map[string]product.Product
	variants     map[string]inventory.Variant
	reservations map[string]inventory.Reservation
	orders       map[string]order.Order
	orderSeq     []string
	ledger       []inventory.Transaction
}

func newMemState() *memState {
	return &memState{
		users:        make(map[string]string),
		customers:    make(map[string]customer.Customer),
		products:     make(map[string]product.Product),
		variants:     make(map[string]inventory.Variant),
		reservations: make(map[string]inventory.Reservation),
		orders:       make(map[string]order.Order),
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		users:        make(map[string]string, len(st.users)),
		customers:    make(map[string]customer.Customer, len(st.customers)),
		products:     make(map[string]product.Product, len(st.products)),
		variants:     make(map[string]inventory.Variant, len(st.variants)),
		reservations: make(map[string]inventory.Reservation, len(st.reservations)),
		orders:       make(map[string]order.Order, len(st.orders)),
		orderSeq:     append([]string(nil), st.orderSeq...),
		ledger:       append([]inventory.Transaction(nil), st.ledger...),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.variants {
		c.variants[k] = v
	}
	for k, v := range st.reservations {
		c.reservations[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = copyOrder(v)
	}
	return c
}

func copyOrder(o order.Order) order.Order {
	o.Items = append([]order.Item(nil), o.Items...)
	o.PaymentSlips = append([]order.PaymentSlip(nil), o.PaymentSlips...)
	o.Customer = nil
	return o
}

func (st *memState) hydrate(o order.Order) *order.Order {
	out := copyOrder(o)
	if c, ok := st.customers[o.CustomerID]; ok {
		out.Customer = &c
	}
	sort.SliceStable(out.PaymentSlips, func(i, j int) bool {
		return out.PaymentSlips[i].CreatedAt.After(out.PaymentSlips[j].CreatedAt)
	})
	return &out
}

func (st *memState) getOrder(id string) (*order.Order, error) {
	o, ok := st.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return st.hydrate(o), nil
}

func (st *memState) getOrderByCode(code string) (*order.Order, error) {
	for _, o := range st.orders {
		if o.Code == code {
			return st.hydrate(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (st *memState) getOrderByIdempotencyKey(key string) (*order.Order, error) {
	if key == "" {
		return nil, order.ErrOrderNotFound
	}
	for _, o := range st.orders {
		if o.IdempotencyKey == key {
			return st.hydrate(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (st *memState) listOrders(f OrderFilter) ([]order.Order, int) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []order.Order
	// newest insert first; stable sort below keeps that for equal timestamps
	for i := len(st.orderSeq) - 1; i >= 0; i-- {
		o := st.orders[st.orderSeq[i]]
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		h := st.hydrate(o)
		if search != "" && !matchesSearch(h, search) {
			continue
		}
		matched = append(matched, *h)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return matched[start:end], total
}

func matchesSearch(o *order.Order, search string) bool {
	if strings.Contains(strings.ToLower(o.Code), search) {
		return true
	}
	if o.Customer == nil {
		return false
	}
	return strings.Contains(strings.ToLower(o.Customer.FullName), search) ||
		strings.Contains(strings.ToLower(o.Customer.Phone), search)
}

func (st *memState) getProduct(id string) (*product.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return &p, nil
}

func (st *memState) reservedQty(variantID string, asOf time.Time) int {
	total := 0
	for _, r := range st.reservations {
		if r.VariantID == variantID && r.Active(asOf) {
			total += r.Qty
		}
	}
	return total
}

func (st *memState) hydrateVariant(v inventory.Variant, asOf time.Time) *inventory.Variant {
	if p, ok := st.products[v.ProductID]; ok {
		v.ProductName = p.Name
	}
	v.ReservedQty = st.reservedQty(v.ID, asOf)
	return &v
}

func (st *memState) getVariant(id string, asOf time.Time) (*inventory.Variant, error) {
	v, ok := st.variants[id]
	if !ok {
		return nil, inventory.ErrVariantNotFound
	}
	return st.hydrateVariant(v, asOf), nil
}

func (st *memState) listVariants(f VariantFilter) []inventory.Variant {
	var out []inventory.Variant
	for _, v := range st.variants {
		if f.ProductID != "" && v.ProductID != f.ProductID {
			continue
		}
		if f.ActiveOnly && !v.IsActive {
			continue
		}
		if f.MaxStock != nil && v.StockOnHand > *f.MaxStock {
			continue
		}
		out = append(out, *st.hydrateVariant(v, f.AsOf))
	}
	if f.MaxStock != nil {
		sort.Slice(out, func(i, j int) bool {
			if out[i].StockOnHand != out[j].StockOnHand {
				return out[i].StockOnHand < out[j].StockOnHand
			}
			return out[i].SKU < out[j].SKU
		})
		return out
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

func (st *memState) annotate(t inventory.Transaction) inventory.Transaction {
	if t.CreatedByUserID != "" {
		t.CreatedByName = st.users[t.CreatedByUserID]
	}
	return t
}

func (st *memState) listTransactions(variantID string) []inventory.Transaction {
	var out []inventory.Transaction
	for i := len(st.ledger) - 1; i >= 0; i-- {
		if st.ledger[i].VariantID == variantID {
			out = append(out, st.annotate(st.ledger[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (st *memState) recentTransactions(limit int) []inventory.Transaction {
	out := make([]inventory.Transaction, 0, len(st.ledger))
	for i := len(st.ledger) - 1; i >= 0; i-- {
		out = append(out, st.annotate(st.ledger[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ============================================
// Transaction
// ============================================

type memTx struct {
	state *memState
	fault func(op string) error
}

func (t *memTx) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.fault != nil {
		if err := t.fault(op); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (t *memTx) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return t.state.getOrder(id)
}

func (t *memTx) GetOrderByCode(ctx context.Context, code string) (*order.Order, error) {
	return t.state.getOrderByCode(code)
}

func (t *memTx) GetOrderByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	return t.state.getOrderByIdempotencyKey(key)
}

func (t *memTx) ListOrders(ctx context.Context, f OrderFilter) ([]order.Order, int, error) {
	orders, total := t.state.listOrders(f)
	return orders, total, nil
}

func (t *memTx) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	return t.state.getProduct(id)
}

func (t *memTx) GetVariant(ctx context.Context, id string, asOf time.Time) (*inventory.Variant, error) {
	return t.state.getVariant(id, asOf)
}

func (t *memTx) ListVariants(ctx context.Context, f VariantFilter) ([]inventory.Variant, error) {
	return t.state.listVariants(f), nil
}

func (t *memTx) ListTransactions(ctx context.Context, variantID string) ([]inventory.Transaction, error) {
	return t.state.listTransactions(variantID), nil
}

func (t *memTx) RecentTransactions(ctx context.Context, limit int) ([]inventory.Transaction, error) {
	return t.state.recentTransactions(limit), nil
}

func (t *memTx) SumTransactions(ctx context.Context, variantID string) (int, error) {
	return inventory.SumLedger(t.state.listTransactions(variantID)), nil
}

func (t *memTx) FindCustomerByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	for _, c := range t.state.customers {
		if c.Phone == phone {
			return &c, nil
		}
	}
	return nil, customer.ErrCustomerNotFound
}

func (t *memTx) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	if err := t.check(ctx, "CreateCustomer"); err != nil {
		return err
	}
	for _, existing := range t.state.customers {
		if existing.Phone == c.Phone {
			return fmt.Errorf("customer phone %s already exists", c.Phone)
		}
	}
	t.state.customers[c.ID] = *c
	return nil
}

func (t *memTx) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	if err := t.check(ctx, "UpdateCustomer"); err != nil {
		return err
	}
	if _, ok := t.state.customers[c.ID]; !ok {
		return customer.ErrCustomerNotFound
	}
	t.state.customers[c.ID] = *c
	return nil
}

func (t *memTx) CreateProduct(ctx context.Context, p *product.Product) error {
	if err := t.check(ctx, "CreateProduct"); err != nil {
		return err
	}
	t.state.products[p.ID] = *p
	return nil
}

func (t *memTx) CreateVariant(ctx context.Context, v *inventory.Variant) error {
	if err := t.check(ctx, "CreateVariant"); err != nil {
		return err
	}
	if _, ok := t.state.products[v.ProductID]; !ok {
		return product.ErrProductNotFound
	}
	for _, existing := range t.state.variants {
		if existing.SKU == v.SKU {
			return inventory.ErrDuplicateSKU
		}
	}
	stored := *v
	stored.ProductName = ""
	stored.ReservedQty = 0
	t.state.variants[v.ID] = stored
	return nil
}

func (t *memTx) LockVariants(ctx context.Context, ids []string, asOf time.Time) (map[string]*inventory.Variant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]*inventory.Variant, len(ids))
	for _, id := range ids {
		if v, ok := t.state.variants[id]; ok {
			out[id] = t.state.hydrateVariant(v, asOf)
		}
	}
	return out, nil
}

func (t *memTx) UpdateVariantStock(ctx context.Context, v *inventory.Variant) error {
	if err := t.check(ctx, "UpdateVariantStock"); err != nil {
		return err
	}
	stored, ok := t.state.variants[v.ID]
	if !ok {
		return inventory.ErrVariantNotFound
	}
	if v.StockOnHand < 0 {
		return inventory.ErrNegativeStock
	}
	stored.StockOnHand = v.StockOnHand
	stored.UpdatedAt = v.UpdatedAt
	t.state.variants[v.ID] = stored
	return nil
}

func (t *memTx) AppendTransaction(ctx context.Context, tx inventory.Transaction) error {
	if err := t.check(ctx, "AppendTransaction"); err != nil {
		return err
	}
	tx.CreatedByName = ""
	t.state.ledger = append(t.state.ledger, tx)
	return nil
}

func (t *memTx) CreateReservation(ctx context.Context, r *inventory.Reservation) error {
	if err := t.check(ctx, "CreateReservation"); err != nil {
		return err
	}
	t.state.reservations[r.ID] = *r
	return nil
}

func (t *memTx) LockReservation(ctx context.Context, id string) (*inventory.Reservation, error) {
	r, ok := t.state.reservations[id]
	if !ok {
		return nil, inventory.ErrReservationNotFound
	}
	return &r, nil
}

func (t *memTx) ReleaseReservation(ctx context.Context, id string, at time.Time) error {
	if err := t.check(ctx, "ReleaseReservation"); err != nil {
		return err
	}
	r, ok := t.state.reservations[id]
	if !ok {
		return inventory.ErrReservationNotFound
	}
	if r.ReleasedAt == nil {
		r.ReleasedAt = &at
		t.state.reservations[id] = r
	}
	return nil
}

func (t *memTx) ReleaseReservationsByReference(ctx context.Context, reference string, at time.Time) (int, error) {
	if err := t.check(ctx, "ReleaseReservationsByReference"); err != nil {
		return 0, err
	}
	n := 0
	for id, r := range t.state.reservations {
		if r.Reference == reference && r.Active(at) {
			r.ReleasedAt = &at
			t.state.reservations[id] = r
			n++
		}
	}
	return n, nil
}

func (t *memTx) CreateOrder(ctx context.Context, o *order.Order) error {
	if err := t.check(ctx, "CreateOrder"); err != nil {
		return err
	}
	for _, existing := range t.state.orders {
		if existing.Code == o.Code {
			return order.ErrOrderCodeConflict
		}
		if o.IdempotencyKey != "" && existing.IdempotencyKey == o.IdempotencyKey {
			return order.ErrDuplicateIdempotencyKey
		}
	}
	t.state.orders[o.ID] = copyOrder(*o)
	t.state.orderSeq = append(t.state.orderSeq, o.ID)
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, id string) (*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.state.getOrder(id)
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	if err := t.check(ctx, "UpdateOrderStatus"); err != nil {
		return err
	}
	o, ok := t.state.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	t.state.orders[id] = o
	return nil
}

func (t *memTx) UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus, at time.Time) error {
	if err := t.check(ctx, "UpdatePaymentStatus"); err != nil {
		return err
	}
	o, ok := t.state.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.PaymentStatus = status
	o.UpdatedAt = at
	t.state.orders[id] = o
	return nil
}

func (t *memTx) CreatePaymentSlip(ctx context.Context, s *order.PaymentSlip) error {
	if err := t.check(ctx, "CreatePaymentSlip"); err != nil {
		return err
	}
	o, ok := t.state.orders[s.OrderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.PaymentSlips = append(o.PaymentSlips, *s)
	t.state.orders[s.OrderID] = o
	return nil
}
