package application

import (
	"context"
	"fmt"
	"strconv"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// CustomerSynchronizer resolves or creates Ledger partner records from
// storefront customer data. A record is keyed by external id or email, either
// match is accepted, and updates overwrite every mapped field.
type CustomerSynchronizer struct {
	customers ports.LedgerCustomers
	logger    zerolog.Logger
}

// NewCustomerSynchronizer creates a new customer synchronizer
func NewCustomerSynchronizer(customers ports.LedgerCustomers, logger zerolog.Logger) *CustomerSynchronizer {
	return &CustomerSynchronizer{
		customers: customers,
		logger:    logger,
	}
}

// ResolveOrCreate returns the local customer for a payload, creating or
// updating as needed. A nil or empty payload resolves to the single guest
// fallback customer.
func (s *CustomerSynchronizer) ResolveOrCreate(ctx context.Context, payload *domain.CustomerPayload) (*domain.Customer, error) {
	if payload == nil || (payload.ID == 0 && payload.Email == "") {
		return s.guestCustomer(ctx)
	}

	externalID := ""
	if payload.ID != 0 {
		externalID = strconv.FormatInt(payload.ID, 10)
	}

	existing, err := s.customers.FindByExternalIDOrEmail(ctx, externalID, payload.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	customer := s.buildCustomer(ctx, payload)
	customer.ExternalID = externalID

	if existing != nil {
		customer.ID = existing.ID
		customer.CreatedAt = existing.CreatedAt
		if err := s.customers.Update(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to update customer: %w", err)
		}
		return customer, nil
	}

	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.logger.Info().
		Str("customerId", customer.ID).
		Str("email", customer.Email).
		Msg("Customer created")
	return customer, nil
}

// buildCustomer maps the payload onto a full customer record, resolving
// country and state references. Unresolved references stay empty, never
// fabricated.
func (s *CustomerSynchronizer) buildCustomer(ctx context.Context, payload *domain.CustomerPayload) *domain.Customer {
	customer := &domain.Customer{
		Name:  payload.FullName(),
		Email: payload.Email,
		Phone: payload.Phone,
	}
	if customer.Name == "" {
		customer.Name = payload.Email
	}

	address := payload.DefaultAddress
	if address == nil {
		return customer
	}

	customer.Street = address.Address1
	customer.Street2 = address.Address2
	customer.City = address.City
	customer.Zip = address.Zip

	countryID, err := s.customers.CountryByNameOrCode(ctx, address.Country, address.CountryCode)
	if err != nil {
		s.logger.Warn().Err(err).Str("country", address.Country).Msg("Country lookup failed")
	}
	customer.CountryID = countryID

	if countryID != "" {
		stateID, err := s.customers.StateByNameOrCode(ctx, countryID, address.Province, address.ProvinceCode)
		if err != nil {
			s.logger.Warn().Err(err).Str("province", address.Province).Msg("State lookup failed")
		}
		customer.StateID = stateID
	}

	return customer
}

// guestCustomer returns the designated fallback customer for orders without
// customer data, creating it on first use
func (s *CustomerSynchronizer) guestCustomer(ctx context.Context) (*domain.Customer, error) {
	guest, err := s.customers.FindByName(ctx, domain.GuestCustomerName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up guest customer: %w", err)
	}
	if guest != nil {
		return guest, nil
	}

	guest = &domain.Customer{Name: domain.GuestCustomerName}
	if err := s.customers.Create(ctx, guest); err != nil {
		return nil, fmt.Errorf("failed to create guest customer: %w", err)
	}
	s.logger.Info().Msg("Guest customer created")
	return guest, nil
}
