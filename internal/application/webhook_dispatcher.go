package application

import (
	"context"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookHandler processes one inbound event topic family.
type WebhookHandler interface {
	// CanHandle returns true if this handler can process the given topic
	CanHandle(topic string) bool
	// Handle processes the event, returning a structured result. Errors are
	// reserved for infrastructure failure; business skips come back as a
	// skipped result.
	Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.SyncResult, error)
}

// WebhookDispatcher routes inbound push events to the right synchronizer. It
// resolves the owning store from the shop-domain header, discards
// self-originated inventory events by their suppression marker, and always
// produces a structured result so the storefront's delivery retry policy is
// never tripped by an opaque failure.
type WebhookDispatcher struct {
	stores   ports.StoreRepository
	handlers []WebhookHandler
	feed     ports.EventPublisher
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher. feed may be nil.
func NewWebhookDispatcher(stores ports.StoreRepository, feed ports.EventPublisher, logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		stores: stores,
		feed:   feed,
		logger: logger,
	}
}

// RegisterHandler adds a handler to the dispatch chain
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch routes one inbound event and returns its structured result
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) *domain.SyncResult {
	result := d.dispatch(ctx, event)

	if d.feed != nil {
		storeID := ""
		if event.Store != nil {
			storeID = event.Store.ID
		}
		d.feed.Publish(&domain.SyncEvent{
			StoreID: storeID,
			Topic:   event.Topic,
			Status:  result.Status,
			Message: result.Message,
			At:      time.Now().UTC(),
		})
	}

	return result
}

func (d *WebhookDispatcher) dispatch(ctx context.Context, event *domain.WebhookEvent) *domain.SyncResult {
	store, err := d.stores.FindByDomain(ctx, event.Shop)
	if err != nil {
		d.logger.Error().Err(err).Str("shop", event.Shop).Msg("Store lookup failed")
		return &domain.SyncResult{Status: "error", Message: "store lookup failed"}
	}
	if store == nil {
		d.logger.Warn().Str("shop", event.Shop).Msg("Webhook for unknown shop domain")
		return &domain.SyncResult{Status: "failed", Message: "unknown shop domain"}
	}
	event.Store = store

	// Inventory events tagged with the suppression marker were caused by
	// this sync's own outbound push; processing them would loop.
	if event.Topic == domain.TopicInventoryLevelUpdate && event.Reason == domain.ReasonSyncUpdate {
		d.logger.Debug().
			Str("shop", event.Shop).
			Msg("Self-originated inventory event discarded")
		return &domain.SyncResult{Status: "skipped", Message: "self-originated event"}
	}

	for _, handler := range d.handlers {
		if !handler.CanHandle(event.Topic) {
			continue
		}
		result, err := handler.Handle(ctx, event)
		if err != nil {
			d.logger.Error().
				Err(err).
				Str("topic", event.Topic).
				Str("shop", event.Shop).
				Msg("Webhook handler failed")
			return &domain.SyncResult{Status: "error", Message: err.Error()}
		}
		return result
	}

	d.logger.Warn().Str("topic", event.Topic).Msg("No handler for webhook topic")
	return &domain.SyncResult{Status: "failed", Message: "unhandled topic"}
}
