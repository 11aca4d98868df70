package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/shopspring/decimal"
)

var (
	ErrVariantNotFound     = errors.New("variant not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrNegativeStock       = errors.New("stock cannot go negative")
	ErrDuplicateSKU        = errors.New("sku already exists")
	ErrReservationNotFound = errors.New("reservation not found")
)

// InsufficientStockError names the variant that could not cover the request.
type InsufficientStockError struct {
	VariantID   string `json:"variant_id"`
	Description string `json:"description"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Description, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Variant is the sellable unit and the owner of the on-hand counter.
type Variant struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	StockOnHand int             `json:"stock_on_hand"`
	// ReservedQty is derived from active reservations, never stored on the row.
	ReservedQty int       `json:"reserved_qty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvailableStock is on-hand minus reserved, floored at zero.
func (v *Variant) AvailableStock() int {
	available := v.StockOnHand - v.ReservedQty
	if available < 0 {
		return 0
	}
	return available
}

// Description renders "Product (Size / Color)" for error messages and alerts.
func (v *Variant) Description() string {
	var attrs []string
	if v.Size != "" {
		attrs = append(attrs, v.Size)
	}
	if v.Color != "" {
		attrs = append(attrs, v.Color)
	}
	name := v.ProductName
	if name == "" {
		name = v.SKU
	}
	if len(attrs) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(attrs, " / "))
}

// Movement is one requested change to a variant's on-hand stock.
type Movement struct {
	Type    TransactionType
	Delta   int
	RefType RefType
	RefID   string
	Note    string
	ActorID string
}

// Apply mutates the on-hand counter and returns the ledger row that explains
// the change. The variant is left untouched when an error is returned.
func (v *Variant) Apply(m Movement, txID string, now time.Time) (Transaction, error) {
	if m.Delta == 0 {
		return Transaction{}, ErrInvalidQuantity
	}
	next := v.StockOnHand + m.Delta
	if next < 0 {
		if m.Type == TypeDeduct || m.Type == TypeOut {
			return Transaction{}, &InsufficientStockError{
				VariantID:   v.ID,
				Description: v.Description(),
				Requested:   -m.Delta,
				Available:   v.StockOnHand,
			}
		}
		return Transaction{}, fmt.Errorf("%w: variant %s has %d, delta %d", ErrNegativeStock, v.ID, v.StockOnHand, m.Delta)
	}

	v.StockOnHand = next
	v.UpdatedAt = now

	return Transaction{
		ID:              txID,
		VariantID:       v.ID,
		Type:            m.Type,
		Qty:             m.Delta,
		RefType:         m.RefType,
		RefID:           m.RefID,
		Note:            m.Note,
		CreatedByUserID: m.ActorID,
		CreatedAt:       now,
	}, nil
}

// CheckAvailable reports whether qty more units can be promised.
func (v *Variant) CheckAvailable(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if available := v.AvailableStock(); qty > available {
		return &InsufficientStockError{
			VariantID:   v.ID,
			Description: v.Description(),
			Requested:   qty,
			Available:   available,
		}
	}
	return nil
}

// VariantInput is the strict create payload for a variant.
type VariantInput struct {
	SKU         string          `json:"sku"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	StockOnHand int             `json:"stock_on_hand"`
	IsActive    *bool           `json:"is_active"`
}

func (in VariantInput) Validate() error {
	var v validation.Error
	v.Check(strings.TrimSpace(in.SKU) != "", "sku", "is required")
	v.Money(in.CostPrice, "cost_price")
	v.Money(in.SalePrice, "sale_price")
	v.Check(in.StockOnHand >= 0, "stock_on_hand", "must not be negative")
	return v.Err()
}

// Active defaults to true when the caller leaves it out.
func (in VariantInput) Active() bool {
	return in.IsActive == nil || *in.IsActive
}
