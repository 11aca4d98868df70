package query

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"github.com/example/clothing-shop/internal/readmodel"
	"go.uber.org/zap"
)

const (
	DefaultPage         = 1
	DefaultLimit        = 10
	MaxLimit            = 100
	DefaultRecentMoves  = 20
	defaultLowThreshold = 5
)

type Handler struct {
	store             store.Reader
	logger            *zap.Logger
	lowStockThreshold int
	now               func() time.Time
}

type Option func(*Handler)

func WithLowStockThreshold(n int) Option {
	return func(h *Handler) {
		if n >= 0 {
			h.lowStockThreshold = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(st store.Reader, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:             st,
		logger:            logger.With(zap.String("component", "query_handler")),
		lowStockThreshold: defaultLowThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListOrders filters the admin listing. Zero Page and Limit take the
// defaults; Limit is capped at MaxLimit.
type ListOrders struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	Search        string
}

// Orders
func (h *Handler) ListOrders(ctx context.Context, q ListOrders) (*OrderPage, error) {
	var v validation.Error
	v.Check(q.Page >= 0, "page", "must not be negative")
	v.Check(q.Limit >= 0, "limit", "must not be negative")

	f := store.OrderFilter{Search: strings.TrimSpace(q.Search)}
	if q.Status != "" {
		s, err := order.ParseStatus(strings.ToUpper(q.Status))
		v.Check(err == nil, "status", "is not a known order status")
		f.Status = s
	}
	if q.PaymentStatus != "" {
		s, err := order.ParsePaymentStatus(strings.ToUpper(q.PaymentStatus))
		v.Check(err == nil, "paymentStatus", "is not a known payment status")
		f.PaymentStatus = s
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	page, limit := q.Page, q.Limit
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	f.Offset = (page - 1) * limit
	f.Limit = limit

	orders, total, err := h.store.ListOrders(ctx, f)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		return nil, err
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return &OrderPage{Data: orders, Meta: readmodel.NewPageMeta(total, page, limit)}, nil
}

func (h *Handler) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return h.store.GetOrder(ctx, id)
}

// TrackOrder returns the customer projection of an order. A wrong phone is
// indistinguishable from an unknown code.
func (h *Handler) TrackOrder(ctx context.Context, code, phone string) (*TrackedOrder, error) {
	code = strings.TrimSpace(code)
	phone = customer.NormalizePhone(phone)

	var v validation.Error
	v.Check(code != "", "orderCode", "is required")
	v.Check(phone != "", "phone", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	o, err := h.store.GetOrderByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			h.logger.Error("failed to load order for tracking", zap.Error(err))
		}
		return nil, err
	}
	if o.Customer == nil || subtle.ConstantTimeCompare([]byte(o.Customer.Phone), []byte(phone)) != 1 {
		return nil, order.ErrOrderNotFound
	}

	tracked := readmodel.NewTrackedOrder(o)
	return &tracked, nil
}

// Inventory
func (h *Handler) InventoryHistory(ctx context.Context, variantID string) ([]InventoryEntry, error) {
	if _, err := h.store.GetVariant(ctx, variantID, h.now()); err != nil {
		return nil, err
	}
	txs, err := h.store.ListTransactions(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return readmodel.NewInventoryEntries(txs), nil
}

// VariantAvailability lists active variants with their sellable quantity.
// An empty productID lists the whole catalog.
func (h *Handler) VariantAvailability(ctx context.Context, productID string) ([]VariantAvailability, error) {
	variants, err := h.store.ListVariants(ctx, store.VariantFilter{
		ProductID:  strings.TrimSpace(productID),
		ActiveOnly: true,
		AsOf:       h.now(),
	})
	if err != nil {
		return nil, err
	}
	out := make([]VariantAvailability, 0, len(variants))
	for _, v := range variants {
		out = append(out, readmodel.NewVariantAvailability(v))
	}
	return out, nil
}

// LowStock lists active variants at or below threshold, lowest first. A
// negative threshold uses the configured one.
func (h *Handler) LowStock(ctx context.Context, threshold int) ([]VariantAvailability, error) {
	if threshold < 0 {
		threshold = h.lowStockThreshold
	}
	variants, err := h.store.ListVariants(ctx, store.VariantFilter{
		ActiveOnly: true,
		MaxStock:   &threshold,
		AsOf:       h.now(),
	})
	if err != nil {
		return nil, err
	}
	out := make([]VariantAvailability, 0, len(variants))
	for _, v := range variants {
		out = append(out, readmodel.NewVariantAvailability(v))
	}
	return out, nil
}

func (h *Handler) RecentMoves(ctx context.Context, limit int) ([]InventoryEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentMoves
	}
	txs, err := h.store.RecentTransactions(ctx, min(limit, MaxLimit))
	if err != nil {
		return nil, err
	}
	return readmodel.NewInventoryEntries(txs), nil
}

// Reconcile compares the stock counter with the ledger sum.
func (h *Handler) Reconcile(ctx context.Context, variantID string) (*Reconciliation, error) {
	v, err := h.store.GetVariant(ctx, variantID, h.now())
	if err != nil {
		return nil, err
	}
	sum, err := h.store.SumTransactions(ctx, variantID)
	if err != nil {
		return nil, err
	}

	r := &Reconciliation{
		VariantID: v.ID,
		SKU:       v.SKU,
		OnHand:    v.StockOnHand,
		LedgerSum: sum,
		Balanced:  v.StockOnHand == sum,
	}
	if !r.Balanced {
		h.logger.Warn("inventory ledger out of balance",
			zap.String("variant_id", v.ID),
			zap.Int("on_hand", r.OnHand),
			zap.Int("ledger_sum", r.LedgerSum))
	}
	return r, nil
}
