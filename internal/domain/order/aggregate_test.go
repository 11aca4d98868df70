package order

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestVariant() *inventory.Variant {
	return &inventory.Variant{
		ID:          "var-1",
		ProductName: "Oversized Tee",
		SKU:         "OT-L-BLK",
		Size:        "L",
		Color:       "Black",
		CostPrice:   dec("4.20"),
		SalePrice:   dec("12.00"),
		StockOnHand: 10,
	}
}

// ============================================
// Status Parsing Tests
// ============================================

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParsePaymentStatus(t *testing.T) {
	s, err := ParsePaymentStatus("PENDING_VERIFICATION")
	require.NoError(t, err)
	assert.Equal(t, PaymentPendingVerification, s)

	_, err = ParsePaymentStatus("SETTLED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// ============================================
// State Transition Tests
// ============================================

func TestOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		expected bool
	}{
		{StatusNew, StatusProcessing, true},
		{StatusNew, StatusCancelled, true},
		{StatusNew, StatusShipped, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusNew, false},
		{StatusCancelled, StatusNew, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			o := &Order{Status: tt.from}
			assert.Equal(t, tt.expected, o.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_CanTransitionPaymentTo(t *testing.T) {
	tests := []struct {
		from     PaymentStatus
		to       PaymentStatus
		expected bool
	}{
		{PaymentUnpaid, PaymentPendingVerification, true},
		{PaymentUnpaid, PaymentPaid, false},
		{PaymentPendingVerification, PaymentPaid, true},
		{PaymentPendingVerification, PaymentFailed, true},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentFailed, PaymentPaid, false},
		{PaymentRefunded, PaymentPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			o := &Order{PaymentStatus: tt.from}
			assert.Equal(t, tt.expected, o.CanTransitionPaymentTo(tt.to))
		})
	}
}

func TestTransitionPolicy_Permissive(t *testing.T) {
	policy := TransitionPolicy{}
	o := &Order{Status: StatusDelivered, PaymentStatus: PaymentRefunded}

	assert.NoError(t, policy.CheckStatus(o, StatusNew))
	assert.NoError(t, policy.CheckPaymentStatus(o, PaymentUnpaid))
	assert.ErrorIs(t, policy.CheckStatus(o, Status("LOST")), ErrInvalidStatus)
}

func TestTransitionPolicy_Strict(t *testing.T) {
	policy := TransitionPolicy{Strict: true}
	o := &Order{Status: StatusDelivered, PaymentStatus: PaymentUnpaid}

	err := policy.CheckStatus(o, StatusNew)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "DELIVERED to NEW")

	assert.NoError(t, policy.CheckStatus(o, StatusDelivered), "same status is a no-op")
	assert.NoError(t, policy.CheckPaymentStatus(o, PaymentPendingVerification))
	assert.ErrorIs(t, policy.CheckPaymentStatus(o, PaymentPaid), ErrInvalidTransition)
}

func TestStockEffectOf(t *testing.T) {
	assert.Equal(t, StockRestore, StockEffectOf(StatusNew, StatusCancelled))
	assert.Equal(t, StockRestore, StockEffectOf(StatusShipped, StatusCancelled))
	assert.Equal(t, StockUnchanged, StockEffectOf(StatusCancelled, StatusCancelled))
	assert.Equal(t, StockRededuct, StockEffectOf(StatusCancelled, StatusProcessing))
	assert.Equal(t, StockUnchanged, StockEffectOf(StatusNew, StatusProcessing))
}

// ============================================
// Line Item and Totals Tests
// ============================================

func TestNewItem_SnapshotsVariant(t *testing.T) {
	v := newTestVariant()

	item, err := NewItem("item-1", "order-1", v, dec("12.00"), dec("2.50"), 3)

	require.NoError(t, err)
	assert.Equal(t, "var-1", item.VariantID)
	assert.Equal(t, "Oversized Tee", item.ProductNameSnapshot)
	assert.Equal(t, "OT-L-BLK", item.SKUSnapshot)
	assert.Equal(t, "L", item.SizeSnapshot)
	assert.Equal(t, "Black", item.ColorSnapshot)
	assert.True(t, dec("4.20").Equal(item.CostPriceSnapshot))
	assert.True(t, dec("28.50").Equal(item.LineTotal), "got %s", item.LineTotal)

	v.ProductName = "Renamed Tee"
	v.SalePrice = dec("99")
	assert.Equal(t, "Oversized Tee", item.ProductNameSnapshot)
}

func TestNewItem_Invalid(t *testing.T) {
	v := newTestVariant()

	tests := []struct {
		name      string
		salePrice string
		discount  string
		qty       int
	}{
		{"zero qty", "10", "0", 0},
		{"negative qty", "10", "0", -1},
		{"negative price", "-1", "0", 1},
		{"negative discount", "10", "-1", 1},
		{"sub-cent price", "10.005", "0", 3},
		{"sub-cent discount", "10", "0.015", 1},
		{"discount above price", "10", "10.01", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewItem("item-1", "order-1", v, dec(tt.salePrice), dec(tt.discount), tt.qty)
			assert.ErrorIs(t, err, validation.ErrValidation)
		})
	}
}

func TestOrder_SetTotals(t *testing.T) {
	v := newTestVariant()
	a, err := NewItem("i1", "o1", v, dec("10.00"), dec("0"), 3)
	require.NoError(t, err)
	b, err := NewItem("i2", "o1", v, dec("0.10"), dec("0"), 3)
	require.NoError(t, err)

	o := &Order{DeliveryFee: dec("1.50"), Items: []Item{a, b}}
	o.SetTotals()

	assert.Equal(t, "30.30", o.Subtotal.StringFixed(2))
	assert.Equal(t, "31.80", o.Total.StringFixed(2))
	assert.True(t, o.Reconciles())
	assert.Equal(t, 6, o.ItemCount())

	o.Total = dec("31.81")
	assert.False(t, o.Reconciles())
}

// ============================================
// Order Code Tests
// ============================================

func TestCodeGenerator_Format(t *testing.T) {
	g := NewCodeGenerator("NC", 4, time.UTC)
	now := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)

	pattern := regexp.MustCompile(`^NC-20240101-[1-9]\d{3}$`)
	for i := 0; i < 200; i++ {
		assert.Regexp(t, pattern, g.Generate(now))
	}
}

func TestCodeGenerator_Bounds(t *testing.T) {
	g := NewCodeGenerator("NC", 4, time.UTC)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	g.intN = func(n int) int { return 0 }
	assert.Equal(t, "NC-20240101-1000", g.Generate(now))

	g.intN = func(n int) int { return n - 1 }
	assert.Equal(t, "NC-20240101-9999", g.Generate(now))
}

func TestCodeGenerator_UsesLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	g := NewCodeGenerator("NC", 4, loc)
	g.intN = func(int) int { return 234 }

	// 20:00 UTC on Jan 1 is already Jan 2 in UTC+7.
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "NC-20240102-1234", g.Generate(now))
}

// ============================================
// Event Tests
// ============================================

func TestNewOrderCreated(t *testing.T) {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	o := &Order{
		ID:            "order-1",
		Code:          "NC-20240101-1234",
		Customer:      &customer.Customer{FullName: "Sok Dara", Phone: "012345678"},
		Total:         dec("31.50"),
		PaymentMethod: MethodABA,
		PaymentStatus: PaymentUnpaid,
		Items:         []Item{{Qty: 2}, {Qty: 1}},
		CreatedAt:     created,
	}

	e := NewOrderCreated(o)

	assert.Equal(t, "order-1", e.OrderID)
	assert.Equal(t, "NC-20240101-1234", e.OrderCode)
	assert.Equal(t, "Sok Dara", e.CustomerName)
	assert.Equal(t, "012345678", e.CustomerPhone)
	assert.True(t, dec("31.50").Equal(e.Total))
	assert.Equal(t, 3, e.ItemCount)
	assert.Equal(t, created, e.CreatedAt)
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrOrderCodeConflict, ErrDuplicateIdempotencyKey))
	assert.False(t, errors.Is(ErrInvalidTransition, ErrInvalidStatus))
}
