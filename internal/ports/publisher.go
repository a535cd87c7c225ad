package ports

import "ledger-shopify-sync/internal/domain"

// EventPublisher fans processed sync events out to in-process observers.
// Publishing is fire-and-forget; the sync path never blocks on a subscriber.
type EventPublisher interface {
	Publish(event *domain.SyncEvent)
}
