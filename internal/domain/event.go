package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Webhook topics recognized by the dispatcher.
const (
	TopicInventoryLevelUpdate = "inventory_levels/update"
	TopicOrderCreate          = "orders/create"
	TopicOrderUpdate          = "orders/updated"
	TopicOrderCancelled       = "orders/cancelled"
	TopicProductCreate        = "products/create"
	TopicProductUpdate        = "products/update"
	TopicCustomerCreate       = "customers/create"
	TopicCustomerUpdate       = "customers/update"
)

// ReasonSyncUpdate is the loop-suppression marker. Outbound inventory pushes
// carry it in the X-Shopify-Reason header; inbound inventory events tagged
// with it originated from this sync and are discarded before reaching the
// reconciler.
const ReasonSyncUpdate = "ledger_update"

// WebhookEvent is one inbound push delivery. Store is resolved by the
// dispatcher before the event reaches a handler.
type WebhookEvent struct {
	Topic    string
	Shop     string
	Reason   string
	Payload  []byte
	Verified bool
	Store    *Store
}

// SyncEvent is one observer notification on the internal sync feed: a
// webhook handled, a bulk-fetch segment finished, an outbound push made.
type SyncEvent struct {
	StoreID string    `json:"store_id"`
	Topic   string    `json:"topic"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// SyncResult is the structured status payload every webhook delivery gets
// back, including on internal error, so the storefront's retry policy is not
// tripped by opaque failures.
type SyncResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// InventoryLevelPayload is the inventory_levels/update event body.
type InventoryLevelPayload struct {
	InventoryItemID int64  `json:"inventory_item_id" validate:"required"`
	LocationID      int64  `json:"location_id"`
	Available       int    `json:"available"`
	UpdatedAt       string `json:"updated_at" validate:"required"`
}

// OptionPayload is one product option (variation axis) definition.
type OptionPayload struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name" validate:"required"`
	Values []string `json:"values"`
}

// IsSentinel reports whether the option is Shopify's placeholder for products
// without real variations.
func (o OptionPayload) IsSentinel() bool {
	return o.Name == "Title" && len(o.Values) == 1 && o.Values[0] == "Default Title"
}

// VariantPayload is one storefront variant inside a product payload.
type VariantPayload struct {
	ID                int64           `json:"id" validate:"required"`
	ProductID         int64           `json:"product_id"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	InventoryItemID   int64           `json:"inventory_item_id"`
	InventoryQuantity int             `json:"inventory_quantity"`
	Option1           string          `json:"option1"`
	Option2           string          `json:"option2"`
	Option3           string          `json:"option3"`
}

// OptionValue returns the variant's selection for the option at position
// (1-based), empty when out of range.
func (v VariantPayload) OptionValue(position int) string {
	switch position {
	case 1:
		return v.Option1
	case 2:
		return v.Option2
	case 3:
		return v.Option3
	}
	return ""
}

// EffectiveSKU falls back to a synthetic productId-variantId code when the
// source SKU is blank.
func (v VariantPayload) EffectiveSKU(productID int64) string {
	if v.SKU != "" {
		return v.SKU
	}
	return fmt.Sprintf("%d-%d", productID, v.ID)
}

// ImagePayload carries the product image source URL.
type ImagePayload struct {
	Src string `json:"src"`
}

// ProductPayload is the products/create|update event body and the bulk-fetch
// product item.
type ProductPayload struct {
	ID        int64            `json:"id" validate:"required"`
	Title     string           `json:"title" validate:"required"`
	Options   []OptionPayload  `json:"options"`
	Variants  []VariantPayload `json:"variants" validate:"dive"`
	Image     *ImagePayload    `json:"image"`
	UpdatedAt string           `json:"updated_at"`
}

// AddressPayload is the customer default address block.
type AddressPayload struct {
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Zip          string `json:"zip"`
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
}

// CustomerPayload is the customers/create|update event body and the customer
// block embedded in orders.
type CustomerPayload struct {
	ID             int64           `json:"id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Phone          string          `json:"phone"`
	DefaultAddress *AddressPayload `json:"default_address"`
}

// FullName joins first and last name, empty when both are blank.
func (c CustomerPayload) FullName() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	return name
}

// LineItemPayload is one order line item.
type LineItemPayload struct {
	ID        int64           `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	ProductID int64           `json:"product_id"`
	VariantID int64           `json:"variant_id"`
	Quantity  float64         `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Financial statuses that drive order transitions.
const (
	FinancialPaid              = "paid"
	FinancialPartiallyPaid     = "partially_paid"
	FinancialRefunded          = "refunded"
	FinancialPartiallyRefunded = "partially_refunded"
	FinancialVoided            = "voided"
)

// Fulfillment statuses that drive order transitions.
const (
	FulfillStatusFulfilled = "fulfilled"
	FulfillStatusPartial   = "partial"
)

// OrderPayload is the orders/create|updated|cancelled event body and the
// bulk-fetch order item.
type OrderPayload struct {
	ID                int64             `json:"id" validate:"required"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	CreatedAt         string            `json:"created_at"`
	FinancialStatus   string            `json:"financial_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	Customer          *CustomerPayload  `json:"customer"`
	LineItems         []LineItemPayload `json:"line_items"`
}

// PaidOrPartial reports a paid or partially-paid financial status.
func (o OrderPayload) PaidOrPartial() bool {
	return o.FinancialStatus == FinancialPaid || o.FinancialStatus == FinancialPartiallyPaid
}

// FulfilledOrPartial reports a fulfilled or partially-fulfilled status.
func (o OrderPayload) FulfilledOrPartial() bool {
	return o.FulfillmentStatus == FulfillStatusFulfilled || o.FulfillmentStatus == FulfillStatusPartial
}

// RefundedOrVoided reports a financial status that cancels the local order.
func (o OrderPayload) RefundedOrVoided() bool {
	switch o.FinancialStatus {
	case FinancialRefunded, FinancialPartiallyRefunded, FinancialVoided:
		return true
	}
	return false
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseEventTime parses a storefront timestamp. Offsets are normalized to
// UTC; bare timestamps are taken as UTC.
func ParseEventTime(s string) (time.Time, error) {
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
