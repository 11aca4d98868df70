package command

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/shopspring/decimal"
)

const maxIdempotencyKeyLen = 128

// Order Commands
type CustomerInfo struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// OrderLine is one requested item. A missing sale price means the variant's
// current catalog price.
type OrderLine struct {
	VariantID string              `json:"variant_id"`
	Qty       int                 `json:"qty"`
	SalePrice decimal.NullDecimal `json:"sale_price"`
	Discount  decimal.Decimal     `json:"discount"`
}

type CreateOrder struct {
	Customer        CustomerInfo        `json:"customer"`
	DeliveryZone    order.DeliveryZone  `json:"delivery_zone"`
	DeliveryAddress string              `json:"delivery_address"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	PaymentMethod   order.PaymentMethod `json:"payment_method"`
	Items           []OrderLine         `json:"items"`
	Note            string              `json:"note"`
	IsPOS           bool                `json:"is_pos"`
	IdempotencyKey  string              `json:"idempotency_key"`
	// ReservationRef releases the caller's own holds inside the checkout.
	ReservationRef string `json:"reservation_ref"`
	ActorID        string `json:"-"`
}

func (c *CreateOrder) normalize() {
	c.Customer.FullName = strings.TrimSpace(c.Customer.FullName)
	c.Customer.Phone = customer.NormalizePhone(c.Customer.Phone)
	c.DeliveryAddress = strings.TrimSpace(c.DeliveryAddress)
	c.Note = strings.TrimSpace(c.Note)
	c.IdempotencyKey = strings.TrimSpace(c.IdempotencyKey)
	c.ReservationRef = strings.TrimSpace(c.ReservationRef)
}

func (c CreateOrder) Validate() error {
	var v validation.Error
	v.Check(c.Customer.FullName != "", "customer.full_name", "is required")
	v.Check(c.Customer.Phone != "", "customer.phone", "is required")
	v.Check(c.DeliveryZone.Valid(), "delivery_zone", "must be PP or PROVINCE")
	v.Check(c.PaymentMethod.Valid(), "payment_method", "must be ABA, WING or COD")
	v.Money(c.DeliveryFee, "delivery_fee")
	v.Check(len(c.IdempotencyKey) <= maxIdempotencyKeyLen, "idempotency_key", "is too long")
	v.Check(len(c.Items) > 0, "items", "must not be empty")

	for i, line := range c.Items {
		field := fmt.Sprintf("items[%d]", i)
		v.Check(strings.TrimSpace(line.VariantID) != "", field+".variant_id", "is required")
		v.Check(line.Qty > 0, field+".qty", "must be positive")
		v.Money(line.Discount, field+".discount")
		if line.SalePrice.Valid {
			v.Money(line.SalePrice.Decimal, field+".sale_price")
			v.Check(line.Discount.LessThanOrEqual(line.SalePrice.Decimal), field+".discount", "must not exceed sale price")
		}
	}
	return v.Err()
}

type UpdateOrderStatus struct {
	OrderID string       `json:"order_id"`
	Status  order.Status `json:"status"`
	ActorID string       `json:"-"`
}

type UpdatePaymentStatus struct {
	OrderID string              `json:"order_id"`
	Status  order.PaymentStatus `json:"payment_status"`
}

type UploadPaymentSlip struct {
	OrderID       string              `json:"order_id"`
	SlipURL       string              `json:"slip_url"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
}

func (c UploadPaymentSlip) Validate() error {
	var v validation.Error
	u, err := url.Parse(strings.TrimSpace(c.SlipURL))
	v.Check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "", "slip_url", "must be an http(s) URL")
	v.Check(c.PaymentMethod == "" || c.PaymentMethod.Valid(), "payment_method", "must be ABA, WING or COD")
	return v.Err()
}

// Catalog Commands
type CreateProduct struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateVariant struct {
	ProductID string `json:"product_id"`
	inventory.VariantInput
	ActorID string `json:"-"`
}

// Stock Commands
type ReceiveStock struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
	Note      string `json:"note"`
	ActorID   string `json:"-"`
}

type AdjustStock struct {
	VariantID string `json:"variant_id"`
	NewStock  int    `json:"new_stock"`
	Note      string `json:"note"`
	ActorID   string `json:"-"`
}

type ReserveStock struct {
	VariantID string        `json:"variant_id"`
	Qty       int           `json:"qty"`
	TTL       time.Duration `json:"-"`
	Reference string        `json:"reference"`
}

type ReleaseReservation struct {
	ReservationID string `json:"reservation_id"`
}
