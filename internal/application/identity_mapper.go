package application

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// IdentityMapper resolves cross-system product identity: (store, SKU) on the
// Ledger side against the storefront inventory-item id. Resolutions are read
// through an optional fast cache, then the durable mapping table, then the
// storefront itself; successful external lookups are recorded so each pair is
// resolved remotely at most once.
type IdentityMapper struct {
	mappings   ports.MappingRepository
	cache      ports.MappingCache
	storefront ports.StorefrontClient
	logger     zerolog.Logger
}

// NewIdentityMapper creates a new identity mapper. cache may be nil.
func NewIdentityMapper(
	mappings ports.MappingRepository,
	cache ports.MappingCache,
	storefront ports.StorefrontClient,
	logger zerolog.Logger,
) *IdentityMapper {
	return &IdentityMapper{
		mappings:   mappings,
		cache:      cache,
		storefront: storefront,
		logger:     logger,
	}
}

// ResolveSKU maps a storefront inventory-item id to its SKU, "" when neither
// the mapping table nor the storefront knows the item
func (m *IdentityMapper) ResolveSKU(ctx context.Context, store *domain.Store, inventoryItemID int64) (string, error) {
	if m.cache != nil {
		if sku, ok := m.cache.GetSKU(ctx, store.ID, inventoryItemID); ok {
			return sku, nil
		}
	}

	mapping, err := m.mappings.ByInventoryItemID(ctx, store.ID, inventoryItemID)
	if err != nil {
		return "", fmt.Errorf("failed to look up mapping: %w", err)
	}
	if mapping != nil {
		if m.cache != nil {
			m.cache.Put(ctx, store.ID, mapping.SKU, inventoryItemID)
		}
		return mapping.SKU, nil
	}

	item, err := m.storefront.InventoryItem(ctx, store, inventoryItemID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch inventory item: %w", err)
	}
	if item == nil || item.SKU == "" {
		m.logger.Warn().
			Str("storeId", store.ID).
			Int64("inventoryItemId", inventoryItemID).
			Msg("Inventory item unresolved")
		return "", nil
	}

	if err := m.Record(ctx, store.ID, item.SKU, inventoryItemID); err != nil {
		return "", err
	}
	return item.SKU, nil
}

// ResolveInventoryItemID maps a SKU to the store's inventory-item id, 0 when
// no storefront variant carries the SKU
func (m *IdentityMapper) ResolveInventoryItemID(ctx context.Context, store *domain.Store, sku string) (int64, error) {
	if m.cache != nil {
		if id, ok := m.cache.GetItemID(ctx, store.ID, sku); ok {
			return id, nil
		}
	}

	mapping, err := m.mappings.BySKU(ctx, store.ID, sku)
	if err != nil {
		return 0, fmt.Errorf("failed to look up mapping: %w", err)
	}
	if mapping != nil {
		if m.cache != nil {
			m.cache.Put(ctx, store.ID, sku, mapping.InventoryItemID)
		}
		return mapping.InventoryItemID, nil
	}

	id, err := m.storefront.FindInventoryItemID(ctx, store, sku)
	if err != nil {
		return 0, fmt.Errorf("failed to scan products for sku: %w", err)
	}
	if id == 0 {
		m.logger.Warn().
			Str("storeId", store.ID).
			Str("sku", sku).
			Msg("SKU unresolved on storefront")
		return 0, nil
	}

	if err := m.Record(ctx, store.ID, sku, id); err != nil {
		return 0, err
	}
	return id, nil
}

// Record persists a resolution. Idempotent on the (store, SKU) key, so racing
// first resolutions collapse into one row.
func (m *IdentityMapper) Record(ctx context.Context, storeID, sku string, inventoryItemID int64) error {
	now := time.Now()
	err := m.mappings.Upsert(ctx, &domain.ProductMapping{
		StoreID:         storeID,
		SKU:             sku,
		InventoryItemID: inventoryItemID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return fmt.Errorf("failed to record mapping: %w", err)
	}
	if m.cache != nil {
		m.cache.Put(ctx, storeID, sku, inventoryItemID)
	}
	return nil
}
