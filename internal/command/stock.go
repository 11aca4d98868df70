package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"go.uber.org/zap"
)

// lockVariant locks a single variant row for a stock movement.
func (h *Handler) lockVariant(ctx context.Context, tx store.Tx, id string) (*inventory.Variant, error) {
	variants, err := tx.LockVariants(ctx, []string{id}, h.now())
	if err != nil {
		return nil, err
	}
	v, ok := variants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", inventory.ErrVariantNotFound, id)
	}
	return v, nil
}

// ReceiveStock books a goods receipt as an IN row.
func (h *Handler) ReceiveStock(ctx context.Context, cmd ReceiveStock) (*inventory.Transaction, error) {
	var v validation.Error
	v.Check(strings.TrimSpace(cmd.VariantID) != "", "variant_id", "is required")
	v.Check(cmd.Qty > 0, "qty", "must be positive")
	if err := v.Err(); err != nil {
		return nil, err
	}

	var entry inventory.Transaction
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		variant, err := h.lockVariant(ctx, tx, cmd.VariantID)
		if err != nil {
			return err
		}
		entry, err = h.moveStock(ctx, tx, variant, inventory.Movement{
			Type:    inventory.TypeIn,
			Delta:   cmd.Qty,
			RefType: inventory.RefStockReceipt,
			Note:    strings.TrimSpace(cmd.Note),
			ActorID: cmd.ActorID,
		}, h.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("stock received", zap.String("variant_id", cmd.VariantID), zap.Int("qty", cmd.Qty))
	return &entry, nil
}

// AdjustStock sets on-hand stock to an absolute count after a physical
// count. It returns nil without writing when the count already matches.
func (h *Handler) AdjustStock(ctx context.Context, cmd AdjustStock) (*inventory.Transaction, error) {
	var v validation.Error
	v.Check(strings.TrimSpace(cmd.VariantID) != "", "variant_id", "is required")
	v.Check(cmd.NewStock >= 0, "new_stock", "must not be negative")
	if err := v.Err(); err != nil {
		return nil, err
	}

	var entry *inventory.Transaction
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		variant, err := h.lockVariant(ctx, tx, cmd.VariantID)
		if err != nil {
			return err
		}
		delta := cmd.NewStock - variant.StockOnHand
		if delta == 0 {
			return nil
		}

		note := strings.TrimSpace(cmd.Note)
		if note == "" {
			note = fmt.Sprintf("Stock adjusted from %d to %d", variant.StockOnHand, cmd.NewStock)
		}
		t, err := h.moveStock(ctx, tx, variant, inventory.Movement{
			Type:    inventory.TypeAdjust,
			Delta:   delta,
			RefType: inventory.RefManualAdjustment,
			Note:    note,
			ActorID: cmd.ActorID,
		}, h.now())
		if err != nil {
			return err
		}
		entry = &t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		h.logger.Info("stock adjusted", zap.String("variant_id", cmd.VariantID), zap.Int("delta", entry.Qty))
	}
	return entry, nil
}

// ReserveStock places a short-lived hold. Holds reduce available stock until
// they expire or are released; they never touch on-hand stock or the ledger.
func (h *Handler) ReserveStock(ctx context.Context, cmd ReserveStock) (*inventory.Reservation, error) {
	var v validation.Error
	v.Check(strings.TrimSpace(cmd.VariantID) != "", "variant_id", "is required")
	v.Check(cmd.Qty > 0, "qty", "must be positive")
	v.Check(cmd.TTL >= 0, "ttl", "must not be negative")
	if err := v.Err(); err != nil {
		return nil, err
	}
	ttl := cmd.TTL
	if ttl == 0 {
		ttl = h.reservationTTL
	}

	var created *inventory.Reservation
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		variant, err := h.lockVariant(ctx, tx, cmd.VariantID)
		if err != nil {
			return err
		}
		if err := variant.CheckAvailable(cmd.Qty); err != nil {
			return err
		}

		now := h.now()
		r := &inventory.Reservation{
			ID:        h.newID(),
			VariantID: variant.ID,
			Qty:       cmd.Qty,
			Reference: strings.TrimSpace(cmd.Reference),
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
		if err := tx.CreateReservation(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Debug("stock reserved",
		zap.String("reservation_id", created.ID),
		zap.String("variant_id", created.VariantID),
		zap.Int("qty", created.Qty),
		zap.Time("expires_at", created.ExpiresAt))
	return created, nil
}

// ReleaseReservation ends a hold early. Releasing twice is harmless.
func (h *Handler) ReleaseReservation(ctx context.Context, cmd ReleaseReservation) error {
	return h.store.WithTx(ctx, func(tx store.Tx) error {
		r, err := tx.LockReservation(ctx, cmd.ReservationID)
		if err != nil {
			return err
		}
		if r.ReleasedAt != nil {
			return nil
		}
		return tx.ReleaseReservation(ctx, r.ID, h.now())
	})
}
