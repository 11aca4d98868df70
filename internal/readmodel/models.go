package readmodel

import (
	"time"

	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/shopspring/decimal"
)

// PageMeta describes one page of a listing
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPageMeta computes the page count for total rows at limit per page.
func NewPageMeta(total, page, limit int) PageMeta {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageMeta{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// OrderPage is the admin order listing
type OrderPage struct {
	Data []order.Order `json:"data"`
	Meta PageMeta      `json:"meta"`
}

// TrackedItem is the customer-safe view of a line item
type TrackedItem struct {
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Qty         int             `json:"qty"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// TrackedOrder is what an unauthenticated customer may see about an order.
// Cost prices, internal ids and staff notes are left out.
type TrackedOrder struct {
	OrderCode     string              `json:"order_code"`
	Status        order.Status        `json:"order_status"`
	PaymentStatus order.PaymentStatus `json:"payment_status"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	DeliveryZone  order.DeliveryZone  `json:"delivery_zone"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Total         decimal.Decimal     `json:"total"`
	CustomerName  string              `json:"customer_name"`
	Items         []TrackedItem       `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewTrackedOrder projects an order for customer tracking.
func NewTrackedOrder(o *order.Order) TrackedOrder {
	t := TrackedOrder{
		OrderCode:     o.Code,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		DeliveryZone:  o.DeliveryZone,
		DeliveryFee:   o.DeliveryFee,
		Subtotal:      o.Subtotal,
		Total:         o.Total,
		Items:         make([]TrackedItem, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt,
	}
	if o.Customer != nil {
		t.CustomerName = o.Customer.FullName
	}
	for _, it := range o.Items {
		t.Items = append(t.Items, TrackedItem{
			ProductName: it.ProductNameSnapshot,
			Size:        it.SizeSnapshot,
			Color:       it.ColorSnapshot,
			Qty:         it.Qty,
			LineTotal:   it.LineTotal,
		})
	}
	return t
}

// PlacedOrder answers a storefront checkout. The order id is kept because
// the customer needs it to upload a payment slip.
type PlacedOrder struct {
	ID string `json:"id"`
	TrackedOrder
}

func NewPlacedOrder(o *order.Order) PlacedOrder {
	return PlacedOrder{ID: o.ID, TrackedOrder: NewTrackedOrder(o)}
}

// InventoryEntry is one ledger row with the actor resolved for display
type InventoryEntry struct {
	inventory.Transaction
	ActorName string `json:"actor_name"`
}

func NewInventoryEntries(txs []inventory.Transaction) []InventoryEntry {
	out := make([]InventoryEntry, 0, len(txs))
	for _, t := range txs {
		out = append(out, InventoryEntry{Transaction: t, ActorName: t.ActorName()})
	}
	return out
}

// VariantAvailability is the POS catalog row
type VariantAvailability struct {
	VariantID   string          `json:"variant_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	OnHand      int             `json:"on_hand"`
	Reserved    int             `json:"reserved"`
	Available   int             `json:"available"`
}

func NewVariantAvailability(v inventory.Variant) VariantAvailability {
	return VariantAvailability{
		VariantID:   v.ID,
		ProductID:   v.ProductID,
		ProductName: v.ProductName,
		SKU:         v.SKU,
		Size:        v.Size,
		Color:       v.Color,
		SalePrice:   v.SalePrice,
		OnHand:      v.StockOnHand,
		Reserved:    v.ReservedQty,
		Available:   v.AvailableStock(),
	}
}

// Reconciliation compares a variant's counter with its ledger
type Reconciliation struct {
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	OnHand    int    `json:"on_hand"`
	LedgerSum int    `json:"ledger_sum"`
	Balanced  bool   `json:"balanced"`
}
