package webhook_handlers

import (
	"context"
	"encoding/json"

	"ledger-shopify-sync/internal/application"
	"ledger-shopify-sync/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	catalog  *application.CatalogSynchronizer
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(catalog *application.CatalogSynchronizer, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:  catalog,
		validate: validator.New(),
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == domain.TopicProductCreate ||
		topic == domain.TopicProductUpdate
}

// Handle processes a product webhook event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.SyncResult, error) {
	var payload domain.ProductPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Malformed product payload")
		return &domain.SyncResult{Status: "skipped", Message: "malformed payload"}, nil
	}
	if err := h.validate.Struct(payload); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Invalid product payload")
		return &domain.SyncResult{Status: "skipped", Message: "invalid payload: " + err.Error()}, nil
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("productId", payload.ID).
		Str("title", payload.Title).
		Msg("Processing product webhook event")

	return h.catalog.ImportProduct(ctx, event.Store, payload)
}
