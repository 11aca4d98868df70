package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/clothing-shop/internal/command"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store    *store.MemoryStore
	commands *command.Handler
	queries  *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	clock := func() time.Time { return testNow }
	return &fixture{
		store:    st,
		commands: command.NewHandler(st, nil, zap.NewNop(), command.WithClock(clock)),
		queries:  NewHandler(st, zap.NewNop(), WithClock(clock), WithLowStockThreshold(3)),
	}
}

func (f *fixture) variant(t *testing.T, product, sku string, stock int, active bool) *inventory.Variant {
	t.Helper()
	p, err := f.commands.CreateProduct(context.Background(), command.CreateProduct{Name: product})
	require.NoError(t, err)
	v, err := f.commands.CreateVariant(context.Background(), command.CreateVariant{
		ProductID: p.ID,
		VariantInput: inventory.VariantInput{
			SKU:         sku,
			Size:        "L",
			Color:       "Navy",
			SalePrice:   decimal.RequireFromString("15.00"),
			StockOnHand: stock,
			IsActive:    &active,
		},
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) order(t *testing.T, name, phone, variantID string, qty int) *order.Order {
	t.Helper()
	o, err := f.commands.CreateOrder(context.Background(), command.CreateOrder{
		Customer:        command.CustomerInfo{FullName: name, Phone: phone},
		DeliveryZone:    order.ZoneProvince,
		DeliveryAddress: "Siem Reap",
		DeliveryFee:     decimal.RequireFromString("2.00"),
		PaymentMethod:   order.MethodCOD,
		Items:           []command.OrderLine{{VariantID: variantID, Qty: qty}},
	})
	require.NoError(t, err)
	return o
}

// ============================================
// Order Listing Tests
// ============================================

func TestHandler_ListOrders_DefaultsAndMeta(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "Hoodie", "HD-L", 50, true)
	for i := 0; i < 12; i++ {
		f.order(t, "Customer", fmt.Sprintf("0970000%03d", i), v.ID, 1)
	}

	page, err := f.queries.ListOrders(context.Background(), ListOrders{})

	require.NoError(t, err)
	assert.Len(t, page.Data, DefaultLimit)
	assert.Equal(t, 12, page.Meta.Total)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, 2, page.Meta.TotalPages)

	page, err = f.queries.ListOrders(context.Background(), ListOrders{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
}

func TestHandler_ListOrders_CapsLimit(t *testing.T) {
	f := newFixture(t)

	page, err := f.queries.ListOrders(context.Background(), ListOrders{Limit: 1000})

	require.NoError(t, err)
	assert.Equal(t, MaxLimit, page.Meta.Limit)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestHandler_ListOrders_FiltersAndSearch(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "Hoodie", "HD-L", 50, true)
	first := f.order(t, "Srey Leak", "011111111", v.ID, 1)
	f.order(t, "Vuthy Chea", "022222222", v.ID, 1)

	_, err := f.commands.UpdateOrderStatus(context.Background(), command.UpdateOrderStatus{OrderID: first.ID, Status: order.StatusShipped})
	require.NoError(t, err)

	page, err := f.queries.ListOrders(context.Background(), ListOrders{Status: "shipped"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, first.ID, page.Data[0].ID)

	page, err = f.queries.ListOrders(context.Background(), ListOrders{Search: "VUTHY"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Vuthy Chea", page.Data[0].Customer.FullName)

	page, err = f.queries.ListOrders(context.Background(), ListOrders{Search: "0111"})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	page, err = f.queries.ListOrders(context.Background(), ListOrders{PaymentStatus: "UNPAID"})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
}

func TestHandler_ListOrders_InvalidFilter(t *testing.T) {
	f := newFixture(t)

	_, err := f.queries.ListOrders(context.Background(), ListOrders{Status: "LOST", Page: -1})

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestHandler_GetOrder(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "Hoodie", "HD-L", 5, true)
	o := f.order(t, "Srey Leak", "011111111", v.ID, 2)

	got, err := f.queries.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Code, got.Code)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "Srey Leak", got.Customer.FullName)

	_, err = f.queries.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

// ============================================
// Tracking Tests
// ============================================

func TestHandler_TrackOrder(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "Hoodie", "HD-L", 5, true)
	o := f.order(t, "Srey Leak", "011 111 111", v.ID, 2)

	tracked, err := f.queries.TrackOrder(context.Background(), o.Code, "011111111")

	require.NoError(t, err)
	assert.Equal(t, o.Code, tracked.OrderCode)
	assert.Equal(t, order.StatusNew, tracked.Status)
	assert.Equal(t, "Srey Leak", tracked.CustomerName)
	require.Len(t, tracked.Items, 1)
	assert.Equal(t, "Hoodie", tracked.Items[0].ProductName)
	assert.True(t, o.Total.Equal(tracked.Total))
}

func TestHandler_TrackOrder_MismatchLooksLikeNotFound(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "Hoodie", "HD-L", 5, true)
	o := f.order(t, "Srey Leak", "011111111", v.ID, 1)

	_, wrongPhone := f.queries.TrackOrder(context.Background(), o.Code, "099999999")
	_, unknownCode := f.queries.TrackOrder(context.Background(), "NC-20240502-0000", "011111111")

	assert.ErrorIs(t, wrongPhone, order.ErrOrderNotFound)
	assert.ErrorIs(t, unknownCode, order.ErrOrderNotFound)
	assert.Equal(t, unknownCode.Error(), wrongPhone.Error())
}

func TestHandler_TrackOrder_RequiresBothFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.queries.TrackOrder(context.Background(), " ", "")

	assert.ErrorIs(t, err, validation.ErrValidation)
}

// ============================================
// Inventory Tests
// ============================================

func TestHandler_InventoryHistory(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser("staff-1", "Kim Sopheap")
	v := f.variant(t, "Hoodie", "HD-L", 5, true)
	f.order(t, "Srey Leak", "011111111", v.ID, 2)
	_, err := f.commands.ReceiveStock(context.Background(), command.ReceiveStock{VariantID: v.ID, Qty: 4, ActorID: "staff-1"})
	require.NoError(t, err)

	entries, err := f.queries.InventoryHistory(context.Background(), v.ID)

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, inventory.TypeIn, entries[0].Type)
	assert.Equal(t, "Kim Sopheap", entries[0].ActorName)
	assert.Equal(t, inventory.TypeDeduct, entries[1].Type)
	assert.Equal(t, "System", entries[1].ActorName)
	assert.Equal(t, inventory.TypeInitialStock, entries[2].Type)

	_, err = f.queries.InventoryHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, inventory.ErrVariantNotFound)
}

func TestHandler_VariantAvailability(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "Hoodie", "HD-L", 5, true)
	f.variant(t, "Retired Tee", "RT-M", 9, false)

	_, err := f.commands.ReserveStock(context.Background(), command.ReserveStock{VariantID: v.ID, Qty: 2})
	require.NoError(t, err)

	rows, err := f.queries.VariantAvailability(context.Background(), "")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "HD-L", rows[0].SKU)
	assert.Equal(t, 5, rows[0].OnHand)
	assert.Equal(t, 2, rows[0].Reserved)
	assert.Equal(t, 3, rows[0].Available)
}

func TestHandler_LowStock(t *testing.T) {
	f := newFixture(t)
	f.variant(t, "Hoodie", "HD-L", 10, true)
	f.variant(t, "Cap", "CAP-1", 3, true)
	f.variant(t, "Scarf", "SC-1", 0, true)

	rows, err := f.queries.LowStock(context.Background(), -1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SC-1", rows[0].SKU)
	assert.Equal(t, "CAP-1", rows[1].SKU)

	rows, err = f.queries.LowStock(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestHandler_RecentMoves(t *testing.T) {
	f := newFixture(t)
	a := f.variant(t, "Hoodie", "HD-L", 10, true)
	b := f.variant(t, "Cap", "CAP-1", 3, true)
	_, err := f.commands.AdjustStock(context.Background(), command.AdjustStock{VariantID: a.ID, NewStock: 8})
	require.NoError(t, err)

	moves, err := f.queries.RecentMoves(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, inventory.TypeAdjust, moves[0].Type)
	assert.Equal(t, b.ID, moves[1].VariantID)
}

func TestHandler_Reconcile(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "Hoodie", "HD-L", 10, true)
	o := f.order(t, "Srey Leak", "011111111", v.ID, 4)
	_, err := f.commands.UpdateOrderStatus(context.Background(), command.UpdateOrderStatus{OrderID: o.ID, Status: order.StatusCancelled})
	require.NoError(t, err)

	r, err := f.queries.Reconcile(context.Background(), v.ID)

	require.NoError(t, err)
	assert.True(t, r.Balanced)
	assert.Equal(t, 10, r.OnHand)
	assert.Equal(t, 10, r.LedgerSum)

	_, err = f.queries.Reconcile(context.Background(), "missing")
	assert.ErrorIs(t, err, inventory.ErrVariantNotFound)
}
