package webhook_handlers

import (
	"context"
	"encoding/json"

	"ledger-shopify-sync/internal/application"
	"ledger-shopify-sync/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events
type OrderHandler struct {
	orders   *application.OrderSynchronizer
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(orders *application.OrderSynchronizer, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		validate: validator.New(),
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == domain.TopicOrderCreate ||
		topic == domain.TopicOrderUpdate ||
		topic == domain.TopicOrderCancelled
}

// Handle processes an order webhook event
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.SyncResult, error) {
	var payload domain.OrderPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Malformed order payload")
		return &domain.SyncResult{Status: "skipped", Message: "malformed payload"}, nil
	}
	if err := h.validate.Struct(payload); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Invalid order payload")
		return &domain.SyncResult{Status: "skipped", Message: "invalid payload: " + err.Error()}, nil
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("orderId", payload.ID).
		Str("financialStatus", payload.FinancialStatus).
		Str("fulfillmentStatus", payload.FulfillmentStatus).
		Msg("Processing order webhook event")

	if event.Topic == domain.TopicOrderCancelled {
		return h.orders.Cancel(ctx, payload.ID)
	}
	return h.orders.ImportOrder(ctx, event.Store, payload)
}
