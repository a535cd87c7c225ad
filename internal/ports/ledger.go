package ports

import (
	"context"
	"time"

	"ledger-shopify-sync/internal/domain"

	"github.com/shopspring/decimal"
)

// LedgerCatalog is the Ledger's product template / attribute / variant model.
// Find methods return (nil, nil) on not-found; create methods fill the ID.
type LedgerCatalog interface {
	TemplateByTitle(ctx context.Context, title string) (*domain.Template, error)
	CreateTemplate(ctx context.Context, t *domain.Template) error

	AttributeByName(ctx context.Context, name string) (*domain.Attribute, error)
	CreateAttribute(ctx context.Context, a *domain.Attribute) error
	AttributeValueByName(ctx context.Context, attributeID, name string) (*domain.AttributeValue, error)
	CreateAttributeValue(ctx context.Context, v *domain.AttributeValue) error

	AttributeLine(ctx context.Context, templateID, attributeID string) (*domain.AttributeLine, error)
	CreateAttributeLine(ctx context.Context, l *domain.AttributeLine) error
	AddValueToLine(ctx context.Context, lineID, valueID string) error

	// VariantsByTemplate lists the template's variants; MaterializeVariants
	// expands the cartesian set of attribute-value combinations when the
	// template has none yet.
	VariantsByTemplate(ctx context.Context, templateID string) ([]*domain.Variant, error)
	MaterializeVariants(ctx context.Context, templateID string) error

	VariantBySKU(ctx context.Context, sku string) (*domain.Variant, error)
	UpdateVariant(ctx context.Context, v *domain.Variant) error

	// StampVariant records the origin and timestamp of the last quantity
	// change without touching any other field.
	StampVariant(ctx context.Context, variantID string, origin domain.UpdateOrigin, at time.Time) error

	SaveTemplateImage(ctx context.Context, templateID string, image []byte) error
}

// LedgerStock reads and writes absolute on-hand quantity at a stock location.
// SetOnHand upserts the stock-level record for the product/location pair.
type LedgerStock interface {
	OnHand(ctx context.Context, variantID, locationID string) (float64, error)
	SetOnHand(ctx context.Context, variantID, locationID string, qty float64) error
}

// LedgerCustomers is the Ledger partner store plus the country/state
// reference tables. Reference lookups are case-insensitive by name or code
// and return "" when unresolved.
type LedgerCustomers interface {
	FindByExternalIDOrEmail(ctx context.Context, externalID, email string) (*domain.Customer, error)
	FindByName(ctx context.Context, name string) (*domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) error
	Update(ctx context.Context, c *domain.Customer) error

	CountryByNameOrCode(ctx context.Context, name, code string) (string, error)
	StateByNameOrCode(ctx context.Context, countryID, name, code string) (string, error)
}

// LedgerOrders is the Ledger sales-order store and its state-transition
// actions.
type LedgerOrders interface {
	ByExternalID(ctx context.Context, externalID int64) (*domain.Order, error)
	Create(ctx context.Context, o *domain.Order) error
	Confirm(ctx context.Context, orderID string) error
	Cancel(ctx context.Context, orderID string) error
}

// LedgerAccounting covers invoice and payment posting for synced orders.
type LedgerAccounting interface {
	HasInvoice(ctx context.Context, orderID string) (bool, error)
	CreateInvoice(ctx context.Context, orderID string) (*domain.Invoice, error)
	PostInvoice(ctx context.Context, invoiceID string) error

	// HasClearingJournal reports whether a payment clearing account is
	// configured; without one the payment step is skipped.
	HasClearingJournal(ctx context.Context) (bool, error)
	CreatePayment(ctx context.Context, customerID string, amount decimal.Decimal) (*domain.Payment, error)
	PostPayment(ctx context.Context, paymentID string) error
	Reconcile(ctx context.Context, invoiceID, paymentID string) error
}

// LedgerFulfillment manages the delivery documents of an order. Validate
// decrements stock as a side effect.
type LedgerFulfillment interface {
	HasCompleted(ctx context.Context, orderID string) (bool, error)
	Pending(ctx context.Context, orderID string) (*domain.Fulfillment, error)
	CreatePending(ctx context.Context, orderID string) (*domain.Fulfillment, error)
	Validate(ctx context.Context, fulfillmentID string) error
}
