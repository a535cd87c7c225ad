package domain

import "time"

// ProductMapping caches the (store, SKU) -> storefront inventory-item-id
// resolution. One row per (store, SKU); the storage layer enforces the unique
// compound key so racing first resolutions collapse into an upsert.
type ProductMapping struct {
	ID              string
	StoreID         string
	SKU             string
	InventoryItemID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
