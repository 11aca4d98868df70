package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/event"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"go.uber.org/zap"
)

// CreateOrder places an order against live stock. Either the customer
// upsert, the order, every stock decrement and every ledger row commit
// together, or nothing does. A repeated idempotency key returns the order
// created by the first request.
func (h *Handler) CreateOrder(ctx context.Context, cmd CreateOrder) (*order.Order, error) {
	cmd.normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if cmd.IdempotencyKey != "" {
		existing, err := h.store.GetOrderByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, order.ErrOrderNotFound) {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		o, err := h.placeOrder(ctx, cmd, h.codes.Generate(h.now()))
		switch {
		case err == nil:
			h.logger.Info("order created",
				zap.String("order_id", o.ID),
				zap.String("order_code", o.Code),
				zap.String("total", o.Total.StringFixed(2)),
				zap.Bool("is_pos", o.IsPOS))
			h.publishOrderCreated(o)
			return o, nil

		case errors.Is(err, order.ErrOrderCodeConflict):
			if attempt >= h.maxCodeAttempts {
				return nil, fmt.Errorf("%w: gave up after %d attempts", order.ErrOrderCodeConflict, attempt)
			}
			h.logger.Warn("order code collision, retrying", zap.Int("attempt", attempt))

		case errors.Is(err, order.ErrDuplicateIdempotencyKey):
			// A concurrent request with the same key committed first.
			if existing, lookupErr := h.store.GetOrderByIdempotencyKey(ctx, cmd.IdempotencyKey); lookupErr == nil {
				return existing, nil
			}
			return nil, err

		default:
			return nil, err
		}
	}
}

func (h *Handler) placeOrder(ctx context.Context, cmd CreateOrder, code string) (*order.Order, error) {
	var created *order.Order

	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		now := h.now()

		cust, err := h.upsertCustomer(ctx, tx, cmd.Customer, now)
		if err != nil {
			return err
		}

		if cmd.ReservationRef != "" {
			if _, err := tx.ReleaseReservationsByReference(ctx, cmd.ReservationRef, now); err != nil {
				return err
			}
		}

		variants, err := tx.LockVariants(ctx, variantIDs(cmd.Items), now)
		if err != nil {
			return err
		}

		o := &order.Order{
			ID:              h.newID(),
			Code:            code,
			CustomerID:      cust.ID,
			Customer:        cust,
			DeliveryZone:    cmd.DeliveryZone,
			DeliveryAddress: cmd.DeliveryAddress,
			DeliveryFee:     cmd.DeliveryFee,
			PaymentMethod:   cmd.PaymentMethod,
			PaymentStatus:   order.PaymentUnpaid,
			Status:          order.StatusNew,
			ShippingAddress: order.ShippingAddress{DetailedAddress: cmd.DeliveryAddress},
			Note:            cmd.Note,
			IsPOS:           cmd.IsPOS,
			IdempotencyKey:  cmd.IdempotencyKey,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		// Lines are checked in the order given; demand for a variant that
		// appears on several lines is cumulative.
		demand := make(map[string]int, len(variants))
		for _, line := range cmd.Items {
			v, ok := variants[line.VariantID]
			if !ok {
				return fmt.Errorf("%w: %s", inventory.ErrVariantNotFound, line.VariantID)
			}
			demand[v.ID] += line.Qty
			if err := v.CheckAvailable(demand[v.ID]); err != nil {
				return err
			}

			price := v.SalePrice
			if line.SalePrice.Valid {
				price = line.SalePrice.Decimal
			}
			item, err := order.NewItem(h.newID(), o.ID, v, price, line.Discount, line.Qty)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, item)
		}
		o.SetTotals()

		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}

		note := "Order Placement " + o.Code
		for _, item := range o.Items {
			_, err := h.moveStock(ctx, tx, variants[item.VariantID], inventory.Movement{
				Type:    inventory.TypeDeduct,
				Delta:   -item.Qty,
				RefType: inventory.RefOrder,
				RefID:   o.ID,
				Note:    note,
				ActorID: cmd.ActorID,
			}, now)
			if err != nil {
				return err
			}
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// upsertCustomer finds the customer by phone, creating or renaming as needed.
func (h *Handler) upsertCustomer(ctx context.Context, tx store.Tx, info CustomerInfo, now time.Time) (*customer.Customer, error) {
	c, err := tx.FindCustomerByPhone(ctx, info.Phone)
	switch {
	case err == nil:
		if c.Rename(info.FullName, now) {
			if err := tx.UpdateCustomer(ctx, c); err != nil {
				return nil, err
			}
		}
		return c, nil

	case errors.Is(err, customer.ErrCustomerNotFound):
		c = &customer.Customer{
			ID:        h.newID(),
			FullName:  info.FullName,
			Phone:     info.Phone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateCustomer(ctx, c); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, err
	}
}

func variantIDs(lines []OrderLine) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.VariantID] {
			seen[l.VariantID] = true
			ids = append(ids, l.VariantID)
		}
	}
	return ids
}

// publishOrderCreated emits the notification event in the background. Its
// outcome never reaches the caller of CreateOrder.
func (h *Handler) publishOrderCreated(o *order.Order) {
	if h.publisher == nil {
		return
	}

	e, err := event.New(o.ID, order.AggregateType, order.EventOrderCreated, order.NewOrderCreated(o), h.now())
	if err != nil {
		h.logger.Error("failed to build order event", zap.Error(err), zap.String("order_id", o.ID))
		return
	}

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer func() {
			if p := recover(); p != nil {
				h.logger.Error("panic while publishing order event", zap.Any("panic", p), zap.String("order_id", o.ID))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), h.publishTimeout)
		defer cancel()
		if err := h.publisher.PublishEvent(ctx, e); err != nil {
			h.logger.Error("failed to publish order event",
				zap.Error(err),
				zap.String("order_id", o.ID),
				zap.String("order_code", o.Code))
		}
	}()
}
