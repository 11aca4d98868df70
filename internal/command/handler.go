package command

import (
	"context"
	"sync"
	"time"

	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/event"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxCodeAttempts = 5
	defaultReservationTTL  = 15 * time.Minute
	defaultPublishTimeout  = 5 * time.Second
)

// EventPublisher delivers events to the message bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e event.Event) error
}

// Handler executes every state-changing operation of the shop core.
type Handler struct {
	store     store.Store
	publisher EventPublisher
	logger    *zap.Logger

	policy          order.TransitionPolicy
	codes           order.CodeSource
	maxCodeAttempts int
	reservationTTL  time.Duration
	publishTimeout  time.Duration
	now             func() time.Time
	newID           func() string

	inflight sync.WaitGroup
}

// Option configures a Handler.
type Option func(*Handler)

// WithStrictTransitions enforces the fulfillment and payment transition tables.
func WithStrictTransitions(strict bool) Option {
	return func(h *Handler) { h.policy.Strict = strict }
}

func WithCodeSource(codes order.CodeSource) Option {
	return func(h *Handler) { h.codes = codes }
}

func WithMaxCodeAttempts(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxCodeAttempts = n
		}
	}
}

func WithReservationTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl > 0 {
			h.reservationTTL = ttl
		}
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.publishTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(h *Handler) { h.newID = newID }
}

// NewHandler wires the handler. publisher may be nil, in which case no
// events are emitted.
func NewHandler(st store.Store, publisher EventPublisher, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:           st,
		publisher:       publisher,
		logger:          logger.With(zap.String("component", "command_handler")),
		codes:           order.NewCodeGenerator("NC", 4, time.UTC),
		maxCodeAttempts: defaultMaxCodeAttempts,
		reservationTTL:  defaultReservationTTL,
		publishTimeout:  defaultPublishTimeout,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait blocks until in-flight event publishes have finished.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// moveStock is the single write path for stock: check, mutate, then append
// the ledger row, all on the caller's transaction.
func (h *Handler) moveStock(ctx context.Context, tx store.Tx, v *inventory.Variant, m inventory.Movement, now time.Time) (inventory.Transaction, error) {
	entry, err := v.Apply(m, h.newID(), now)
	if err != nil {
		return inventory.Transaction{}, err
	}
	if err := tx.UpdateVariantStock(ctx, v); err != nil {
		return inventory.Transaction{}, err
	}
	if err := tx.AppendTransaction(ctx, entry); err != nil {
		return inventory.Transaction{}, err
	}
	return entry, nil
}
