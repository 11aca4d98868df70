package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"go.uber.org/zap"
)

// UpdateOrderStatus writes the fulfillment status. Cancelling returns every
// line's quantity to stock in the same transaction; reinstating a cancelled
// order takes it again. Writing the current status is a no-op.
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	if !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", order.ErrInvalidStatus, cmd.Status)
	}

	var (
		updated *order.Order
		from    order.Status
	)
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := h.policy.CheckStatus(o, cmd.Status); err != nil {
			return err
		}
		from = o.Status
		if from == cmd.Status {
			updated = o
			return nil
		}

		now := h.now()
		switch order.StockEffectOf(from, cmd.Status) {
		case order.StockRestore:
			err = h.moveOrderStock(ctx, tx, o, 1, inventory.TypeIn, "Order Cancelled - "+o.Code, cmd.ActorID)
		case order.StockRededuct:
			err = h.moveOrderStock(ctx, tx, o, -1, inventory.TypeDeduct, "Order Reinstated - "+o.Code, cmd.ActorID)
		}
		if err != nil {
			return err
		}

		if err := tx.UpdateOrderStatus(ctx, o.ID, cmd.Status, now); err != nil {
			return err
		}
		o.Status = cmd.Status
		o.UpdatedAt = now
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != cmd.Status {
		h.logger.Info("order status updated",
			zap.String("order_id", updated.ID),
			zap.String("order_code", updated.Code),
			zap.String("from", string(from)),
			zap.String("to", string(cmd.Status)))
	}
	return updated, nil
}

// moveOrderStock applies sign*qty for every line of o. Lines for the same
// variant are locked once and applied in order. A negative sign first checks
// the whole demand against available stock.
func (h *Handler) moveOrderStock(ctx context.Context, tx store.Tx, o *order.Order, sign int, typ inventory.TransactionType, note, actorID string) error {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.VariantID)
	}
	now := h.now()
	variants, err := tx.LockVariants(ctx, ids, now)
	if err != nil {
		return err
	}

	// Taking stock back must not eat into active reservations.
	if sign < 0 {
		demand := make(map[string]int, len(o.Items))
		for _, item := range o.Items {
			demand[item.VariantID] += item.Qty
		}
		for id, qty := range demand {
			v, ok := variants[id]
			if !ok {
				return fmt.Errorf("%w: %s", inventory.ErrVariantNotFound, id)
			}
			if err := v.CheckAvailable(qty); err != nil {
				return err
			}
		}
	}

	for _, item := range o.Items {
		v, ok := variants[item.VariantID]
		if !ok {
			return fmt.Errorf("%w: %s", inventory.ErrVariantNotFound, item.VariantID)
		}
		_, err := h.moveStock(ctx, tx, v, inventory.Movement{
			Type:    typ,
			Delta:   sign * item.Qty,
			RefType: inventory.RefOrder,
			RefID:   o.ID,
			Note:    note,
			ActorID: actorID,
		}, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdatePaymentStatus writes the payment status. It never touches stock.
func (h *Handler) UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatus) (*order.Order, error) {
	if !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", order.ErrInvalidStatus, cmd.Status)
	}

	var updated *order.Order
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := h.policy.CheckPaymentStatus(o, cmd.Status); err != nil {
			return err
		}
		if o.PaymentStatus != cmd.Status {
			now := h.now()
			if err := tx.UpdatePaymentStatus(ctx, o.ID, cmd.Status, now); err != nil {
				return err
			}
			o.PaymentStatus = cmd.Status
			o.UpdatedAt = now
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("payment status updated",
		zap.String("order_id", updated.ID),
		zap.String("payment_status", string(updated.PaymentStatus)))
	return updated, nil
}

// UploadPaymentSlip records a transfer slip. An unpaid order moves to
// PENDING_VERIFICATION with it; any other payment status is left alone.
func (h *Handler) UploadPaymentSlip(ctx context.Context, cmd UploadPaymentSlip) (*order.PaymentSlip, error) {
	cmd.SlipURL = strings.TrimSpace(cmd.SlipURL)
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var slip *order.PaymentSlip
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}

		now := h.now()
		method := cmd.PaymentMethod
		if method == "" {
			method = o.PaymentMethod
		}
		s := &order.PaymentSlip{
			ID:            h.newID(),
			OrderID:       o.ID,
			SlipURL:       cmd.SlipURL,
			PaymentMethod: method,
			CreatedAt:     now,
		}
		if err := tx.CreatePaymentSlip(ctx, s); err != nil {
			return err
		}

		if o.PaymentStatus == order.PaymentUnpaid {
			if err := tx.UpdatePaymentStatus(ctx, o.ID, order.PaymentPendingVerification, now); err != nil {
				return err
			}
		}
		slip = s
		return nil
	})
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.logger.Debug("payment slip for unknown order", zap.String("order_id", cmd.OrderID))
		}
		return nil, err
	}

	h.logger.Info("payment slip uploaded",
		zap.String("order_id", slip.OrderID),
		zap.String("slip_id", slip.ID))
	return slip, nil
}
