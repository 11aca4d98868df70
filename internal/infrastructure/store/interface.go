package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/domain/product"
)

// ErrConcurrentUpdate is returned when the database aborts a transaction
// because of a serialization failure or deadlock. Callers must resubmit.
var ErrConcurrentUpdate = errors.New("concurrent update detected")

// ErrTimeout is returned when a statement exceeds the configured timeout.
var ErrTimeout = errors.New("storage statement timed out")

// OrderFilter selects a page of orders, newest first.
type OrderFilter struct {
	Status        order.Status
	PaymentStatus order.PaymentStatus
	// Search is a case-insensitive substring of order code, customer name or phone.
	Search string
	Offset int
	Limit  int
}

// VariantFilter selects variants. AsOf decides which reservations count.
type VariantFilter struct {
	ProductID  string
	ActiveOnly bool
	// MaxStock keeps variants with stock_on_hand <= *MaxStock.
	MaxStock *int
	AsOf     time.Time
}

// Reader holds the read operations shared by the store and its transactions.
type Reader interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	GetOrderByCode(ctx context.Context, code string) (*order.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*order.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]order.Order, int, error)

	GetProduct(ctx context.Context, id string) (*product.Product, error)
	GetVariant(ctx context.Context, id string, asOf time.Time) (*inventory.Variant, error)
	ListVariants(ctx context.Context, f VariantFilter) ([]inventory.Variant, error)

	ListTransactions(ctx context.Context, variantID string) ([]inventory.Transaction, error)
	RecentTransactions(ctx context.Context, limit int) ([]inventory.Transaction, error)
	SumTransactions(ctx context.Context, variantID string) (int, error)
}

// Tx is the unit of work. Everything written through a Tx commits or rolls
// back together.
type Tx interface {
	Reader

	FindCustomerByPhone(ctx context.Context, phone string) (*customer.Customer, error)
	CreateCustomer(ctx context.Context, c *customer.Customer) error
	UpdateCustomer(ctx context.Context, c *customer.Customer) error

	CreateProduct(ctx context.Context, p *product.Product) error
	CreateVariant(ctx context.Context, v *inventory.Variant) error

	// LockVariants row-locks the given variants in id order and returns the
	// ones that exist, with ReservedQty computed as of asOf.
	LockVariants(ctx context.Context, ids []string, asOf time.Time) (map[string]*inventory.Variant, error)
	UpdateVariantStock(ctx context.Context, v *inventory.Variant) error
	AppendTransaction(ctx context.Context, t inventory.Transaction) error

	CreateReservation(ctx context.Context, r *inventory.Reservation) error
	LockReservation(ctx context.Context, id string) (*inventory.Reservation, error)
	ReleaseReservation(ctx context.Context, id string, at time.Time) error
	// ReleaseReservationsByReference releases every active hold with the reference.
	ReleaseReservationsByReference(ctx context.Context, reference string, at time.Time) (int, error)

	// CreateOrder inserts the order and its items. A duplicate code yields
	// order.ErrOrderCodeConflict, a duplicate idempotency key
	// order.ErrDuplicateIdempotencyKey.
	CreateOrder(ctx context.Context, o *order.Order) error
	LockOrder(ctx context.Context, id string) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.Status, at time.Time) error
	UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus, at time.Time) error
	CreatePaymentSlip(ctx context.Context, s *order.PaymentSlip) error
}

// Store is the storage handle owned by the process entry point.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
