package application

import (
	"context"
	"fmt"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// ManagedTopics is the full topic set every synced store must be subscribed
// to at the callback URL.
var ManagedTopics = []string{
	domain.TopicInventoryLevelUpdate,
	domain.TopicOrderCreate,
	domain.TopicOrderUpdate,
	domain.TopicOrderCancelled,
	domain.TopicProductCreate,
	domain.TopicProductUpdate,
	domain.TopicCustomerCreate,
	domain.TopicCustomerUpdate,
}

// WebhookManager keeps each store's storefront webhook subscriptions in line
// with the managed topic set. Ensure operations are idempotent.
type WebhookManager struct {
	storefront  ports.StorefrontClient
	stores      ports.StoreRepository
	callbackURL string
	logger      zerolog.Logger
}

// NewWebhookManager creates a new webhook manager
func NewWebhookManager(
	storefront ports.StorefrontClient,
	stores ports.StoreRepository,
	callbackURL string,
	logger zerolog.Logger,
) *WebhookManager {
	return &WebhookManager{
		storefront:  storefront,
		stores:      stores,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// EnsureAll registers missing subscriptions for every active store. Per-store
// failures are logged and do not block the remaining stores.
func (m *WebhookManager) EnsureAll(ctx context.Context) error {
	stores, err := m.stores.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stores: %w", err)
	}

	for _, store := range stores {
		if err := m.EnsureStore(ctx, store); err != nil {
			m.logger.Error().
				Err(err).
				Str("storeId", store.ID).
				Msg("Failed to ensure webhooks for store")
		}
	}
	return nil
}

// EnsureStore registers any managed topic the store is not yet subscribed to
// at the callback URL
func (m *WebhookManager) EnsureStore(ctx context.Context, store *domain.Store) error {
	registered, err := m.storefront.ListWebhooks(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}

	subscribed := make(map[string]bool, len(registered))
	for _, w := range registered {
		if w.Address == m.callbackURL {
			subscribed[w.Topic] = true
		}
	}

	for _, topic := range ManagedTopics {
		if subscribed[topic] {
			continue
		}
		if err := m.storefront.RegisterWebhook(ctx, store, topic, m.callbackURL); err != nil {
			return fmt.Errorf("failed to register %s: %w", topic, err)
		}
	}
	return nil
}

// RemoveStore deregisters every subscription this manager created for a
// store, identified by the callback URL
func (m *WebhookManager) RemoveStore(ctx context.Context, store *domain.Store) error {
	registered, err := m.storefront.ListWebhooks(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}

	for _, w := range registered {
		if w.Address != m.callbackURL {
			continue
		}
		if err := m.storefront.RemoveWebhook(ctx, store, w.ID); err != nil {
			return fmt.Errorf("failed to remove webhook %d: %w", w.ID, err)
		}
		m.logger.Info().
			Str("storeId", store.ID).
			Str("topic", w.Topic).
			Msg("Webhook removed")
	}
	return nil
}
