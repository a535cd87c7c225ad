package application

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// InventoryReconciler applies quantity changes for one variant at one stock
// location, in either direction, with loop suppression. External changes come
// in through ApplyExternalChange (webhook or bulk fetch); internal Ledger
// stock writes come in through PropagateInternalChange.
type InventoryReconciler struct {
	mapper     *IdentityMapper
	catalog    ports.LedgerCatalog
	stock      ports.LedgerStock
	storefront ports.StorefrontClient
	stores     ports.StoreRepository
	logger     zerolog.Logger
}

// NewInventoryReconciler creates a new inventory reconciler
func NewInventoryReconciler(
	mapper *IdentityMapper,
	catalog ports.LedgerCatalog,
	stock ports.LedgerStock,
	storefront ports.StorefrontClient,
	stores ports.StoreRepository,
	logger zerolog.Logger,
) *InventoryReconciler {
	return &InventoryReconciler{
		mapper:     mapper,
		catalog:    catalog,
		stock:      stock,
		storefront: storefront,
		stores:     stores,
		logger:     logger,
	}
}

// ApplyExternalChange processes one inbound inventory-level update. Stale or
// unresolvable events are skipped with a reason; errors are reserved for
// infrastructure failure.
func (r *InventoryReconciler) ApplyExternalChange(ctx context.Context, store *domain.Store, payload domain.InventoryLevelPayload) (*domain.SyncResult, error) {
	eventTime, err := domain.ParseEventTime(payload.UpdatedAt)
	if err != nil {
		r.logger.Warn().
			Str("storeId", store.ID).
			Str("updatedAt", payload.UpdatedAt).
			Msg("Inventory event with unparseable timestamp skipped")
		return skipped("unparseable event timestamp"), nil
	}

	sku, err := r.mapper.ResolveSKU(ctx, store, payload.InventoryItemID)
	if err != nil {
		return nil, err
	}
	if sku == "" {
		return skipped(fmt.Sprintf("inventory item %d not mapped to a SKU", payload.InventoryItemID)), nil
	}

	variant, err := r.catalog.VariantBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to look up variant: %w", err)
	}
	if variant == nil {
		r.logger.Warn().
			Str("storeId", store.ID).
			Str("sku", sku).
			Msg("No catalog variant for SKU, inventory event skipped")
		return skipped(fmt.Sprintf("no variant for sku %s", sku)), nil
	}

	// Webhooks carry no ordering guarantee, and bulk fetch may replay events
	// the webhook path already applied. The variant's last-update timestamp
	// is the idempotence and ordering guard: anything at or before it is
	// discarded.
	if variant.LastUpdatedAt != nil && !eventTime.After(*variant.LastUpdatedAt) {
		r.logger.Debug().
			Str("sku", sku).
			Time("eventTime", eventTime).
			Time("lastUpdatedAt", *variant.LastUpdatedAt).
			Msg("Stale inventory event discarded")
		return skipped("stale event"), nil
	}

	if err := r.AdjustToQuantity(ctx, store, variant, float64(payload.Available)); err != nil {
		return nil, err
	}

	if err := r.catalog.StampVariant(ctx, variant.ID, domain.OriginSynced, eventTime); err != nil {
		return nil, fmt.Errorf("failed to stamp variant: %w", err)
	}

	r.propagateToPeers(ctx, store.ID, sku, payload.Available)

	r.logger.Info().
		Str("storeId", store.ID).
		Str("sku", sku).
		Int("available", payload.Available).
		Msg("Inventory change applied")
	return &domain.SyncResult{Status: "success", Message: fmt.Sprintf("quantity set to %d", payload.Available)}, nil
}

// AdjustToQuantity upserts the stock level at the store's mapped location to
// an absolute quantity. No-op when the level already matches.
func (r *InventoryReconciler) AdjustToQuantity(ctx context.Context, store *domain.Store, variant *domain.Variant, qty float64) error {
	current, err := r.stock.OnHand(ctx, variant.ID, store.StockLocationID)
	if err != nil {
		return fmt.Errorf("failed to read on-hand quantity: %w", err)
	}
	if current == qty {
		return nil
	}
	if err := r.stock.SetOnHand(ctx, variant.ID, store.StockLocationID, qty); err != nil {
		return fmt.Errorf("failed to set on-hand quantity: %w", err)
	}
	return nil
}

// PropagateInternalChange pushes a Ledger-originated stock write outward to
// every active store. Only variants whose last change originated internally
// are pushed; external and synced origins were already propagated (or came
// from outside) and re-pushing them would echo.
func (r *InventoryReconciler) PropagateInternalChange(ctx context.Context, sku string, qty int) (*domain.SyncResult, error) {
	variant, err := r.catalog.VariantBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to look up variant: %w", err)
	}
	if variant == nil {
		return skipped(fmt.Sprintf("no variant for sku %s", sku)), nil
	}

	if variant.LastUpdateOrigin != domain.OriginInternal {
		r.logger.Debug().
			Str("sku", sku).
			Str("origin", string(variant.LastUpdateOrigin)).
			Msg("Non-internal stock change not propagated")
		return skipped("last update did not originate internally"), nil
	}

	pushed := r.propagateToPeers(ctx, "", sku, qty)

	if err := r.catalog.StampVariant(ctx, variant.ID, domain.OriginSynced, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to stamp variant: %w", err)
	}

	return &domain.SyncResult{Status: "success", Message: fmt.Sprintf("pushed to %d stores", pushed)}, nil
}

// propagateToPeers pushes an absolute quantity to every active store except
// the one the change came from. Per-store failures are logged and contained;
// the quantity is already durable locally and the next event self-heals.
func (r *InventoryReconciler) propagateToPeers(ctx context.Context, sourceStoreID, sku string, qty int) int {
	peers, err := r.stores.ListActive(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list stores for propagation")
		return 0
	}

	pushed := 0
	for _, peer := range peers {
		if peer.ID == sourceStoreID {
			continue
		}
		if err := r.pushToStore(ctx, peer, sku, qty); err != nil {
			r.logger.Error().
				Err(err).
				Str("storeId", peer.ID).
				Str("sku", sku).
				Msg("Failed to push inventory to store")
			continue
		}
		pushed++
	}
	return pushed
}

// pushToStore writes one absolute quantity to one store with the suppression
// marker set
func (r *InventoryReconciler) pushToStore(ctx context.Context, store *domain.Store, sku string, qty int) error {
	itemID, err := r.mapper.ResolveInventoryItemID(ctx, store, sku)
	if err != nil {
		return err
	}
	if itemID == 0 {
		r.logger.Warn().
			Str("storeId", store.ID).
			Str("sku", sku).
			Msg("SKU not listed on store, push skipped")
		return nil
	}

	// Shopify rejects level writes for untracked items, so check the
	// tracking flag first.
	item, err := r.storefront.InventoryItem(ctx, store, itemID)
	if err != nil {
		return err
	}
	if item != nil && !item.Tracked {
		r.logger.Debug().
			Str("storeId", store.ID).
			Str("sku", sku).
			Msg("Inventory tracking disabled, push skipped")
		return nil
	}

	locationID, err := r.ensureLocation(ctx, store)
	if err != nil {
		return err
	}

	return r.storefront.SetInventoryLevel(ctx, store, ports.InventoryPush{
		LocationID:      locationID,
		InventoryItemID: itemID,
		Available:       qty,
		SuppressEcho:    true,
	})
}

// ensureLocation returns the store's storefront location, discovering and
// persisting it on first use
func (r *InventoryReconciler) ensureLocation(ctx context.Context, store *domain.Store) (int64, error) {
	if store.LocationID != 0 {
		return store.LocationID, nil
	}

	locationID, err := r.storefront.PrimaryLocationID(ctx, store)
	if err != nil {
		return 0, fmt.Errorf("failed to discover store location: %w", err)
	}
	store.LocationID = locationID
	if err := r.stores.Save(ctx, store); err != nil {
		return 0, fmt.Errorf("failed to persist store location: %w", err)
	}

	r.logger.Info().
		Str("storeId", store.ID).
		Int64("locationId", locationID).
		Msg("Store location discovered")
	return locationID, nil
}

func skipped(message string) *domain.SyncResult {
	return &domain.SyncResult{Status: "skipped", Message: message}
}
