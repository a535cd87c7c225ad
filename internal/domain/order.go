package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the local order state machine, mapped one-way from the
// storefront's financial/fulfillment status vocabulary.
type OrderState string

const (
	OrderDraft     OrderState = "draft"
	OrderConfirmed OrderState = "sale"
	OrderCancelled OrderState = "cancel"
)

// Order is a Ledger sales order. ExternalID is the storefront order id,
// unique when set, zero for purely-local orders.
type Order struct {
	ID         string
	ExternalID int64
	CustomerID string
	StoreID    string
	Origin     string // human-readable provenance label
	Warehouse  string
	State      OrderState
	OrderedAt  time.Time
	Lines      []OrderLine
}

// OrderLine references (never owns) a catalog variant.
type OrderLine struct {
	VariantID string
	SKU       string
	Name      string
	Quantity  float64
	UnitPrice decimal.Decimal
}

// Invoice is the accounting document raised once per synced order.
type Invoice struct {
	ID      string
	OrderID string
	Total   decimal.Decimal
	Posted  bool
}

// Payment clears an invoice when the storefront reports the order fully paid.
type Payment struct {
	ID         string
	CustomerID string
	Amount     decimal.Decimal
	Posted     bool
}

// FulfillmentState mirrors the Ledger delivery document lifecycle.
type FulfillmentState string

const (
	FulfillmentPending FulfillmentState = "pending"
	FulfillmentDone    FulfillmentState = "done"
	FulfillmentCancel  FulfillmentState = "cancel"
)

// Fulfillment is the Ledger delivery document for an order. Validating it
// decrements stock; the sync rewrites on-hand afterwards because the
// storefront is the source of truth for physical stock movement here.
type Fulfillment struct {
	ID      string
	OrderID string
	State   FulfillmentState
	Moves   []FulfillmentMove
}

// FulfillmentMove is one product/location movement on a fulfillment document.
type FulfillmentMove struct {
	VariantID  string
	LocationID string
	Quantity   float64
}
