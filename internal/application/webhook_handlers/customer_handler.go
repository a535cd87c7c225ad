package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"ledger-shopify-sync/internal/application"
	"ledger-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	customers *application.CustomerSynchronizer
	logger    zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(customers *application.CustomerSynchronizer, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		logger:    logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomerCreate ||
		topic == domain.TopicCustomerUpdate
}

// Handle processes a customer webhook event
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.SyncResult, error) {
	var payload domain.CustomerPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Malformed customer payload")
		return &domain.SyncResult{Status: "skipped", Message: "malformed payload"}, nil
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("customerId", payload.ID).
		Str("email", payload.Email).
		Msg("Processing customer webhook event")

	customer, err := h.customers.ResolveOrCreate(ctx, &payload)
	if err != nil {
		return nil, err
	}
	return &domain.SyncResult{
		Status:  "success",
		Message: fmt.Sprintf("customer %s synced", customer.ID),
	}, nil
}
