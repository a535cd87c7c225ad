package domain

import "time"

// EntityClass identifies one storefront collection a store is reconciled against.
type EntityClass string

const (
	EntityProducts  EntityClass = "product"
	EntityOrders    EntityClass = "order"
	EntityCustomers EntityClass = "customer"
)

// EntityClasses lists every collection in the order a bulk-fetch run processes them.
var EntityClasses = []EntityClass{EntityProducts, EntityCustomers, EntityOrders}

// Checkpoint tracks bulk-fetch progress for one entity class of one store.
// Cursor is the opaque continuation token of the page to resume from; it is
// empty between completed runs. LastFetchAt is the low-water-mark used to
// start a fresh run when no cursor is pending.
type Checkpoint struct {
	Cursor       string
	LastFetchAt  time.Time
	FullSyncDone bool
}

// Store represents one storefront account mapped to one Ledger warehouse.
type Store struct {
	ID            string
	Name          string
	Domain        string // myshopify domain, e.g. acme.myshopify.com
	APIKey        string
	APIToken      string
	WebhookSecret string

	// LocationID is the storefront location inventory pushes target.
	// Discovered lazily from the locations endpoint when zero.
	LocationID int64

	// WarehouseID and StockLocationID reference the Ledger warehouse this
	// store maps to and its stock location for inventory adjustments.
	WarehouseID     string
	StockLocationID string

	Checkpoints map[EntityClass]Checkpoint
	SyncLocked  bool
	Active      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Checkpoint returns the checkpoint for an entity class, zero-valued when the
// class has never been fetched.
func (s *Store) Checkpoint(class EntityClass) Checkpoint {
	if s.Checkpoints == nil {
		return Checkpoint{}
	}
	return s.Checkpoints[class]
}
