package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Order"

const (
	EventOrderCreated = "OrderCreated"
)

// OrderCreated is published after a checkout commits.
type OrderCreated struct {
	OrderID       string          `json:"order_id"`
	OrderCode     string          `json:"order_code"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	IsPOS         bool            `json:"is_pos"`
	ItemCount     int             `json:"item_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

func NewOrderCreated(o *Order) OrderCreated {
	e := OrderCreated{
		OrderID:       o.ID,
		OrderCode:     o.Code,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		IsPOS:         o.IsPOS,
		ItemCount:     o.ItemCount(),
		CreatedAt:     o.CreatedAt,
	}
	if o.Customer != nil {
		e.CustomerName = o.Customer.FullName
		e.CustomerPhone = o.Customer.Phone
	}
	return e
}
