package command

import (
	"context"
	"strings"

	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/product"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"go.uber.org/zap"
)

func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	p, err := product.New(h.newID(), cmd.Name, cmd.Description, h.now())
	if err != nil {
		return nil, err
	}

	err = h.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// CreateVariant inserts the variant with zero stock and books any initial
// stock through the ledger, so the counter and the ledger agree from the
// first row.
func (h *Handler) CreateVariant(ctx context.Context, cmd CreateVariant) (*inventory.Variant, error) {
	cmd.SKU = strings.TrimSpace(cmd.SKU)
	cmd.Size = strings.TrimSpace(cmd.Size)
	cmd.Color = strings.TrimSpace(cmd.Color)
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var created *inventory.Variant
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, cmd.ProductID)
		if err != nil {
			return err
		}

		now := h.now()
		v := &inventory.Variant{
			ID:          h.newID(),
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         cmd.SKU,
			Size:        cmd.Size,
			Color:       cmd.Color,
			CostPrice:   cmd.CostPrice,
			SalePrice:   cmd.SalePrice,
			IsActive:    cmd.Active(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateVariant(ctx, v); err != nil {
			return err
		}

		if cmd.StockOnHand > 0 {
			_, err := h.moveStock(ctx, tx, v, inventory.Movement{
				Type:    inventory.TypeInitialStock,
				Delta:   cmd.StockOnHand,
				RefType: inventory.RefVariant,
				RefID:   v.ID,
				Note:    "Initial stock",
				ActorID: cmd.ActorID,
			}, now)
			if err != nil {
				return err
			}
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("variant created",
		zap.String("variant_id", created.ID),
		zap.String("sku", created.SKU),
		zap.Int("stock_on_hand", created.StockOnHand))
	return created, nil
}
