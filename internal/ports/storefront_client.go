package ports

import (
	"context"
	"time"

	"ledger-shopify-sync/internal/domain"
)

// PageRequest asks for one page of a storefront collection. Cursor is the
// opaque continuation token from the previous page; when empty the fetch
// starts from UpdatedAfter.
type PageRequest struct {
	Cursor       string
	UpdatedAfter time.Time
	Limit        int
}

// ProductPage is one page of products plus the token to continue from, empty
// on the terminal page.
type ProductPage struct {
	Items      []domain.ProductPayload
	NextCursor string
}

// OrderPage is one page of orders.
type OrderPage struct {
	Items      []domain.OrderPayload
	NextCursor string
}

// CustomerPage is one page of customers.
type CustomerPage struct {
	Items      []domain.CustomerPayload
	NextCursor string
}

// InventoryItem is the single-item fetch result used for SKU resolution and
// the tracking guard on outbound pushes.
type InventoryItem struct {
	ID      int64
	SKU     string
	Tracked bool
}

// InventoryPush sets an absolute quantity at a storefront location.
// SuppressEcho tags the request with the loop-suppression marker so the
// receiving account does not re-emit a webhook for it.
type InventoryPush struct {
	LocationID      int64
	InventoryItemID int64
	Available       int
	SuppressEcho    bool
}

// RegisteredWebhook is one webhook subscription on a storefront account.
type RegisteredWebhook struct {
	ID      int64
	Topic   string
	Address string
}

// StorefrontClient defines the outbound storefront API surface. All calls are
// rate limited and retried with backoff; not-found returns zero values, not
// errors.
type StorefrontClient interface {
	// Collection fetches, continuation-token paginated.
	Products(ctx context.Context, store *domain.Store, page PageRequest) (*ProductPage, error)
	Orders(ctx context.Context, store *domain.Store, page PageRequest) (*OrderPage, error)
	Customers(ctx context.Context, store *domain.Store, page PageRequest) (*CustomerPage, error)

	// InventoryItem fetches a single inventory item by id, (nil, nil) when it
	// does not exist.
	InventoryItem(ctx context.Context, store *domain.Store, inventoryItemID int64) (*InventoryItem, error)

	// FindInventoryItemID scans the store's products for a variant with the
	// given SKU, 0 when no variant carries it.
	FindInventoryItemID(ctx context.Context, store *domain.Store, sku string) (int64, error)

	// SetInventoryLevel writes an absolute quantity at a location.
	SetInventoryLevel(ctx context.Context, store *domain.Store, push InventoryPush) error

	// PrimaryLocationID returns the store's first storefront location.
	PrimaryLocationID(ctx context.Context, store *domain.Store) (int64, error)

	// FetchImage downloads a product image.
	FetchImage(ctx context.Context, url string) ([]byte, error)

	// Webhook subscription management.
	ListWebhooks(ctx context.Context, store *domain.Store) ([]RegisteredWebhook, error)
	RegisterWebhook(ctx context.Context, store *domain.Store, topic, address string) error
	RemoveWebhook(ctx context.Context, store *domain.Store, webhookID int64) error
}
