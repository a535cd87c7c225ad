package ports

import (
	"context"

	"ledger-shopify-sync/internal/domain"
)

// StoreRepository persists storefront account configuration and bulk-fetch
// checkpoints.
type StoreRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Store, error)

	// FindByDomain resolves a store by partial shop-domain match, (nil, nil)
	// when no store claims the domain.
	FindByDomain(ctx context.Context, shopDomain string) (*domain.Store, error)

	ListActive(ctx context.Context) ([]*domain.Store, error)
	Save(ctx context.Context, store *domain.Store) error

	// SaveCheckpoint persists one entity class's cursor/low-water-mark
	// without rewriting the rest of the store document.
	SaveCheckpoint(ctx context.Context, storeID string, class domain.EntityClass, cp domain.Checkpoint) error

	// AcquireSyncLock flips the store's exclusion flag with a conditional
	// update; false means another run holds it. Acquire-or-abort, never wait.
	AcquireSyncLock(ctx context.Context, storeID string) (bool, error)
	ReleaseSyncLock(ctx context.Context, storeID string) error
}

// MappingRepository is the durable (store, SKU) -> inventory-item-id cache
// table. Upsert is idempotent on the unique (store, SKU) key.
type MappingRepository interface {
	BySKU(ctx context.Context, storeID, sku string) (*domain.ProductMapping, error)
	ByInventoryItemID(ctx context.Context, storeID string, inventoryItemID int64) (*domain.ProductMapping, error)
	ByAllStores(ctx context.Context, sku string) ([]*domain.ProductMapping, error)
	Upsert(ctx context.Context, m *domain.ProductMapping) error
	DeleteByStore(ctx context.Context, storeID string) error
}

// MappingCache is the fast read-through layer in front of MappingRepository.
// It is best effort; misses and failures fall through to the repository.
type MappingCache interface {
	GetSKU(ctx context.Context, storeID string, inventoryItemID int64) (string, bool)
	GetItemID(ctx context.Context, storeID, sku string) (int64, bool)
	Put(ctx context.Context, storeID, sku string, inventoryItemID int64)
	Invalidate(ctx context.Context, storeID, sku string)
}

// SyncLogRepository appends and mutates bulk-fetch audit records. Entries are
// never deleted here; retention is an external concern.
type SyncLogRepository interface {
	Create(ctx context.Context, log *domain.SyncLog) error
	Update(ctx context.Context, log *domain.SyncLog) error
	ListByStore(ctx context.Context, storeID string) ([]*domain.SyncLog, error)
}
