package domain

import "time"

// GuestCustomerName identifies the single fallback customer used for orders
// that arrive without customer data.
const GuestCustomerName = "Guest Customer"

// Customer is a Ledger partner record keyed by external customer id or email;
// either key matches on lookup and the record is never duplicated.
type Customer struct {
	ID         string
	ExternalID string
	Name       string
	Email      string
	Phone      string
	Street     string
	Street2    string
	City       string
	Zip        string
	StateID    string // empty when the province could not be resolved
	CountryID  string // empty when the country could not be resolved
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
