package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpdateOrigin records which side produced the last quantity change of a
// variant. It gates outbound propagation: only internal-origin changes are
// pushed to storefronts, so a value written by the sync itself is never
// re-echoed.
type UpdateOrigin string

const (
	OriginInternal UpdateOrigin = "internal"
	OriginExternal UpdateOrigin = "external"
	OriginSynced   UpdateOrigin = "synced"
)

// Template is the Ledger catalog parent of a variant set. Its business key is
// the exact product title.
type Template struct {
	ID    string
	Title string
}

// Attribute is a variation axis (e.g. Color), identified by exact name.
type Attribute struct {
	ID   string
	Name string
}

// AttributeValue is one allowed value of an attribute (e.g. Red).
type AttributeValue struct {
	ID          string
	AttributeID string
	Name        string
}

// AttributeLine associates an attribute and its allowed value set with a
// template.
type AttributeLine struct {
	ID          string
	TemplateID  string
	AttributeID string
	ValueIDs    []string
}

// Variant is the Ledger catalog leaf. SKU is the cross-system business key.
// ValueIDs is the attribute-value combination that identifies the variant
// within its template; combinations compare as sets.
type Variant struct {
	ID                string
	TemplateID        string
	SKU               string
	ExternalProductID int64
	Price             decimal.Decimal
	ValueIDs          []string

	LastUpdateOrigin UpdateOrigin
	LastUpdatedAt    *time.Time
}

// CombinationMatches reports whether the variant's attribute-value set equals
// want, independent of order.
func (v *Variant) CombinationMatches(want []string) bool {
	if len(v.ValueIDs) != len(want) {
		return false
	}
	set := make(map[string]struct{}, len(v.ValueIDs))
	for _, id := range v.ValueIDs {
		set[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
