package webhook_handlers

import (
	"context"
	"encoding/json"

	"ledger-shopify-sync/internal/application"
	"ledger-shopify-sync/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// InventoryHandler handles inventory-level webhook events
type InventoryHandler struct {
	reconciler *application.InventoryReconciler
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewInventoryHandler creates a new inventory webhook handler
func NewInventoryHandler(reconciler *application.InventoryReconciler, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		reconciler: reconciler,
		validate:   validator.New(),
		logger:     logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *InventoryHandler) CanHandle(topic string) bool {
	return topic == domain.TopicInventoryLevelUpdate
}

// Handle processes an inventory-level webhook event
func (h *InventoryHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.SyncResult, error) {
	var payload domain.InventoryLevelPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Malformed inventory payload")
		return &domain.SyncResult{Status: "skipped", Message: "malformed payload"}, nil
	}
	if err := h.validate.Struct(payload); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Invalid inventory payload")
		return &domain.SyncResult{Status: "skipped", Message: "invalid payload: " + err.Error()}, nil
	}

	h.logger.Info().
		Str("shop", event.Shop).
		Int64("inventoryItemId", payload.InventoryItemID).
		Int("available", payload.Available).
		Msg("Processing inventory webhook event")

	return h.reconciler.ApplyExternalChange(ctx, event.Store, payload)
}
