package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentUnpaid              PaymentStatus = "UNPAID"
	PaymentPendingVerification PaymentStatus = "PENDING_VERIFICATION"
	PaymentPaid                PaymentStatus = "PAID"
	PaymentFailed              PaymentStatus = "FAILED"
	PaymentRefunded            PaymentStatus = "REFUNDED"
)

type DeliveryZone string

const (
	ZonePhnomPenh DeliveryZone = "PP"
	ZoneProvince  DeliveryZone = "PROVINCE"
)

type PaymentMethod string

const (
	MethodABA  PaymentMethod = "ABA"
	MethodWing PaymentMethod = "WING"
	MethodCOD  PaymentMethod = "COD"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidTransition       = errors.New("invalid order status transition")
	ErrOrderCodeConflict       = errors.New("order code conflict")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s PaymentStatus) Valid() bool {
	_, ok := validPaymentTransitions[s]
	return ok
}

func (z DeliveryZone) Valid() bool {
	return z == ZonePhnomPenh || z == ZoneProvince
}

func (m PaymentMethod) Valid() bool {
	return m == MethodABA || m == MethodWing || m == MethodCOD
}

func ParseStatus(s string) (Status, error) {
	if st := Status(s); st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	if st := PaymentStatus(s); st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ShippingAddress is the address snapshot stored with the order.
type ShippingAddress struct {
	DetailedAddress string `json:"detailed_address"`
}

// Item is a line-item snapshot taken at purchase time.
type Item struct {
	ID                  string          `json:"id"`
	OrderID             string          `json:"order_id"`
	VariantID           string          `json:"variant_id"`
	ProductNameSnapshot string          `json:"product_name_snapshot"`
	SKUSnapshot         string          `json:"sku_snapshot"`
	SizeSnapshot        string          `json:"size_snapshot"`
	ColorSnapshot       string          `json:"color_snapshot"`
	CostPriceSnapshot   decimal.Decimal `json:"cost_price_snapshot"`
	SalePrice           decimal.Decimal `json:"sale_price"`
	Discount            decimal.Decimal `json:"discount"`
	Qty                 int             `json:"qty"`
	LineTotal           decimal.Decimal `json:"line_total"`
}

// NewItem snapshots the variant and prices one line.
func NewItem(id, orderID string, v *inventory.Variant, salePrice, discount decimal.Decimal, qty int) (Item, error) {
	var verr validation.Error
	verr.Check(qty > 0, "qty", "must be positive")
	verr.Money(salePrice, "sale_price")
	verr.Money(discount, "discount")
	verr.Check(discount.LessThanOrEqual(salePrice), "discount", "must not exceed sale price")
	if err := verr.Err(); err != nil {
		return Item{}, err
	}

	return Item{
		ID:                  id,
		OrderID:             orderID,
		VariantID:           v.ID,
		ProductNameSnapshot: v.ProductName,
		SKUSnapshot:         v.SKU,
		SizeSnapshot:        v.Size,
		ColorSnapshot:       v.Color,
		CostPriceSnapshot:   v.CostPrice,
		SalePrice:           salePrice,
		Discount:            discount,
		Qty:                 qty,
		LineTotal:           LineTotal(salePrice, discount, qty),
	}, nil
}

// LineTotal is (salePrice - discount) * qty.
func LineTotal(salePrice, discount decimal.Decimal, qty int) decimal.Decimal {
	return salePrice.Sub(discount).Mul(decimal.NewFromInt(int64(qty)))
}

// PaymentSlip is evidence of a bank transfer.
type PaymentSlip struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id"`
	SlipURL       string        `json:"slip_url"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time     `json:"created_at"`
}

type Order struct {
	ID              string             `json:"id"`
	Code            string             `json:"order_code"`
	CustomerID      string             `json:"customer_id"`
	Customer        *customer.Customer `json:"customer,omitempty"`
	DeliveryZone    DeliveryZone       `json:"delivery_zone"`
	DeliveryAddress string             `json:"delivery_address"`
	DeliveryFee     decimal.Decimal    `json:"delivery_fee"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Total           decimal.Decimal    `json:"total"`
	PaymentMethod   PaymentMethod      `json:"payment_method"`
	PaymentStatus   PaymentStatus      `json:"payment_status"`
	Status          Status             `json:"order_status"`
	ShippingAddress ShippingAddress    `json:"shipping_address"`
	Note            string             `json:"note,omitempty"`
	IsPOS           bool               `json:"is_pos"`
	IdempotencyKey  string             `json:"-"`
	Items           []Item             `json:"items,omitempty"`
	PaymentSlips    []PaymentSlip      `json:"payment_slips,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// SetTotals stores subtotal and total from the items and fee. It is only
// called at creation; stored values are never re-derived afterwards.
func (o *Order) SetTotals() {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.DeliveryFee)
}

// Reconciles reports whether the stored totals agree with the stored lines.
func (o *Order) Reconciles() bool {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		if !it.LineTotal.Equal(LineTotal(it.SalePrice, it.Discount, it.Qty)) {
			return false
		}
		subtotal = subtotal.Add(it.LineTotal)
	}
	return o.Subtotal.Equal(subtotal) && o.Total.Equal(o.Subtotal.Add(o.DeliveryFee))
}

// ItemCount is the total number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Qty
	}
	return n
}
