package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/event"
	"github.com/example/clothing-shop/internal/telegram"
	"go.uber.org/zap"
)

// Sender delivers a formatted alert to staff
type Sender interface {
	Configured() bool
	SendHTML(ctx context.Context, text string) error
}

// Handler processes events for sending notifications
type Handler struct {
	sender       Sender
	adminBaseURL string
	logger       *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender, adminBaseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		sender:       sender,
		adminBaseURL: adminBaseURL,
		logger:       logger.With(zap.String("component", "notifier")),
	}
}

// HandleEvent processes an event from Kafka. Undecodable messages are
// reported as errors; events of other types are ignored.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var e event.Event
	if err := json.Unmarshal(value, &e); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	// Only process OrderCreated events
	if e.EventType == order.EventOrderCreated {
		return h.handleOrderCreated(ctx, e)
	}
	return nil
}

func (h *Handler) handleOrderCreated(ctx context.Context, e event.Event) error {
	var data order.OrderCreated
	if err := e.Decode(&data); err != nil {
		return err
	}

	log := h.logger.With(zap.String("order_id", data.OrderID), zap.String("order_code", data.OrderCode))
	if !h.sender.Configured() {
		log.Warn("telegram not configured, skipping order alert")
		return nil
	}

	if err := h.sender.SendHTML(ctx, telegram.BuildOrderCreatedMessage(data, h.adminBaseURL)); err != nil {
		log.Error("failed to send order alert", zap.Error(err))
		return err
	}

	log.Info("order alert sent")
	return nil
}
