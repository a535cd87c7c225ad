package application

import (
	"context"
	"testing"

	"ledger-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a full record with resolved country and state", func(t *testing.T) {
		repo := newFakeCustomers()
		repo.addCountry("country-us", "United States", "US")
		repo.addState("country-us", "state-ca", "California", "CA")
		sync := NewCustomerSynchronizer(repo, zerolog.Nop())

		customer, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{
			ID:        88,
			Email:     "jo@example.com",
			FirstName: "Jo",
			LastName:  "Smith",
			Phone:     "+1 555 0100",
			DefaultAddress: &domain.AddressPayload{
				Address1:     "1 Main St",
				City:         "Oakland",
				Zip:          "94601",
				Province:     "California",
				ProvinceCode: "CA",
				Country:      "United States",
				CountryCode:  "US",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "88", customer.ExternalID)
		assert.Equal(t, "Jo Smith", customer.Name)
		assert.Equal(t, "country-us", customer.CountryID)
		assert.Equal(t, "state-ca", customer.StateID)
	})

	t.Run("matches by external id or email without duplicating", func(t *testing.T) {
		repo := newFakeCustomers()
		sync := NewCustomerSynchronizer(repo, zerolog.Nop())

		first, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{ID: 88, Email: "jo@example.com", FirstName: "Jo"})
		require.NoError(t, err)

		// Same email, no external id: must hit the same record.
		second, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{Email: "jo@example.com", FirstName: "Joanna"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		// Same external id, new email: still the same record, overwritten.
		third, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{ID: 88, Email: "jo@new.example.com", FirstName: "Jo"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, third.ID)
		assert.Len(t, repo.customers, 1)
		assert.Equal(t, "jo@new.example.com", repo.customers[0].Email)
	})

	t.Run("update overwrites every field", func(t *testing.T) {
		repo := newFakeCustomers()
		repo.addCountry("country-us", "United States", "US")
		sync := NewCustomerSynchronizer(repo, zerolog.Nop())

		_, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{
			ID: 88, Email: "jo@example.com", FirstName: "Jo",
			DefaultAddress: &domain.AddressPayload{Address1: "1 Main St", CountryCode: "US"},
		})
		require.NoError(t, err)

		updated, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{
			ID: 88, Email: "jo@example.com", FirstName: "Jo",
		})
		require.NoError(t, err)
		assert.Empty(t, updated.Street)
		assert.Empty(t, updated.CountryID)
	})

	t.Run("unresolved country leaves references empty", func(t *testing.T) {
		repo := newFakeCustomers()
		sync := NewCustomerSynchronizer(repo, zerolog.Nop())

		customer, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{
			ID: 88, Email: "jo@example.com", FirstName: "Jo",
			DefaultAddress: &domain.AddressPayload{Country: "Atlantis", Province: "Deep"},
		})
		require.NoError(t, err)
		assert.Empty(t, customer.CountryID)
		assert.Empty(t, customer.StateID)
	})

	t.Run("name falls back to email", func(t *testing.T) {
		repo := newFakeCustomers()
		sync := NewCustomerSynchronizer(repo, zerolog.Nop())

		customer, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{ID: 88, Email: "jo@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "jo@example.com", customer.Name)
	})

	t.Run("empty payload resolves to a single guest customer", func(t *testing.T) {
		repo := newFakeCustomers()
		sync := NewCustomerSynchronizer(repo, zerolog.Nop())

		guest, err := sync.ResolveOrCreate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.GuestCustomerName, guest.Name)

		again, err := sync.ResolveOrCreate(ctx, &domain.CustomerPayload{})
		require.NoError(t, err)
		assert.Equal(t, guest.ID, again.ID)
		assert.Len(t, repo.customers, 1)
	})
}
