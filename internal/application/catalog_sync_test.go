package application

import (
	"context"
	"testing"

	"ledger-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogFixture struct {
	sync       *CatalogSynchronizer
	catalog    *fakeCatalog
	stock      *fakeStock
	storefront *fakeStorefront
	mappings   *fakeMappingRepo
}

func newCatalogFixture(stores ...*domain.Store) *catalogFixture {
	catalog := newFakeCatalog()
	stock := newFakeStock()
	storefront := newFakeStorefront()
	storeRepo := newFakeStoreRepo(stores...)
	mappings := newFakeMappingRepo()
	mapper := NewIdentityMapper(mappings, nil, storefront, zerolog.Nop())
	reconciler := NewInventoryReconciler(mapper, catalog, stock, storefront, storeRepo, zerolog.Nop())
	return &catalogFixture{
		sync:       NewCatalogSynchronizer(catalog, mapper, reconciler, storefront, zerolog.Nop()),
		catalog:    catalog,
		stock:      stock,
		storefront: storefront,
		mappings:   mappings,
	}
}

func tshirtPayload() domain.ProductPayload {
	return domain.ProductPayload{
		ID:        77,
		Title:     "Classic Tee",
		UpdatedAt: "2026-08-30T10:00:00Z",
		Options: []domain.OptionPayload{
			{Name: "Color", Values: []string{"Red", "Blue"}},
			{Name: "Size", Values: []string{"S", "M"}},
		},
		Variants: []domain.VariantPayload{
			{ID: 1, ProductID: 77, SKU: "TEE-RED-S", Price: decimal.NewFromInt(25), InventoryItemID: 501, InventoryQuantity: 5, Option1: "Red", Option2: "S"},
			{ID: 2, ProductID: 77, SKU: "TEE-RED-M", Price: decimal.NewFromInt(25), InventoryItemID: 502, InventoryQuantity: 3, Option1: "Red", Option2: "M"},
			{ID: 3, ProductID: 77, SKU: "TEE-BLUE-S", Price: decimal.NewFromInt(27), InventoryItemID: 503, InventoryQuantity: 2, Option1: "Blue", Option2: "S"},
			{ID: 4, ProductID: 77, SKU: "TEE-BLUE-M", Price: decimal.NewFromInt(27), InventoryItemID: 504, InventoryQuantity: 1, Option1: "Blue", Option2: "M"},
		},
	}
}

func TestImportProduct(t *testing.T) {
	ctx := context.Background()
	store := testStore("s1", "one.myshopify.com")

	t.Run("creates template, attributes and variants from scratch", func(t *testing.T) {
		f := newCatalogFixture(store)

		result, err := f.sync.ImportProduct(ctx, store, tshirtPayload())
		require.NoError(t, err)
		assert.Equal(t, "success", result.Status)
		assert.Equal(t, "4 variants synced, 0 skipped", result.Message)

		template, err := f.catalog.TemplateByTitle(ctx, "Classic Tee")
		require.NoError(t, err)
		require.NotNil(t, template)

		variants, err := f.catalog.VariantsByTemplate(ctx, template.ID)
		require.NoError(t, err)
		assert.Len(t, variants, 4)

		redS, err := f.catalog.VariantBySKU(ctx, "TEE-RED-S")
		require.NoError(t, err)
		require.NotNil(t, redS)
		assert.True(t, redS.Price.Equal(decimal.NewFromInt(25)))
		assert.Equal(t, int64(77), redS.ExternalProductID)
		assert.Equal(t, domain.OriginSynced, redS.LastUpdateOrigin)

		// Quantities land at the store's stock location.
		onHand, err := f.stock.OnHand(ctx, redS.ID, store.StockLocationID)
		require.NoError(t, err)
		assert.Equal(t, float64(5), onHand)

		// Mappings are recorded for later inventory events.
		mapping, err := f.mappings.BySKU(ctx, "s1", "TEE-RED-S")
		require.NoError(t, err)
		require.NotNil(t, mapping)
		assert.Equal(t, int64(501), mapping.InventoryItemID)
	})

	t.Run("re-import is idempotent", func(t *testing.T) {
		f := newCatalogFixture(store)

		_, err := f.sync.ImportProduct(ctx, store, tshirtPayload())
		require.NoError(t, err)
		_, err = f.sync.ImportProduct(ctx, store, tshirtPayload())
		require.NoError(t, err)

		assert.Len(t, f.catalog.templates, 1)
		assert.Len(t, f.catalog.attrs, 2)
		assert.Len(t, f.catalog.values, 4)
		assert.Len(t, f.catalog.variants, 4)
	})

	t.Run("product with no SKUs anywhere is skipped wholesale", func(t *testing.T) {
		f := newCatalogFixture(store)

		payload := tshirtPayload()
		for i := range payload.Variants {
			payload.Variants[i].SKU = ""
		}
		result, err := f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)
		assert.Equal(t, "skipped", result.Status)
		assert.Empty(t, f.catalog.templates)
	})

	t.Run("sentinel option yields a single variant product", func(t *testing.T) {
		f := newCatalogFixture(store)

		payload := domain.ProductPayload{
			ID:        78,
			Title:     "Gift Card",
			UpdatedAt: "2026-08-30T10:00:00Z",
			Options:   []domain.OptionPayload{{Name: "Title", Values: []string{"Default Title"}}},
			Variants: []domain.VariantPayload{
				{ID: 9, ProductID: 78, SKU: "GIFT-25", Price: decimal.NewFromInt(25), InventoryItemID: 601, InventoryQuantity: 100, Option1: "Default Title"},
			},
		}
		result, err := f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)
		assert.Equal(t, "success", result.Status)

		assert.Empty(t, f.catalog.attrs)
		variant, err := f.catalog.VariantBySKU(ctx, "GIFT-25")
		require.NoError(t, err)
		require.NotNil(t, variant)
		assert.Empty(t, variant.ValueIDs)
	})

	t.Run("variant without an exact combination match is skipped", func(t *testing.T) {
		f := newCatalogFixture(store)

		payload := tshirtPayload()
		_, err := f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)

		// A new value the materialized combinations do not cover yet.
		payload.Options[0].Values = []string{"Red", "Blue", "Green"}
		payload.Variants = append(payload.Variants, domain.VariantPayload{
			ID: 5, ProductID: 77, SKU: "TEE-GREEN-S", Price: decimal.NewFromInt(30), InventoryItemID: 505, InventoryQuantity: 7, Option1: "Green", Option2: "S",
		})

		result, err := f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)
		assert.Equal(t, "success", result.Status)
		assert.Equal(t, "4 variants synced, 1 skipped", result.Message)

		missing, err := f.catalog.VariantBySKU(ctx, "TEE-GREEN-S")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("price and product id changes are applied on update", func(t *testing.T) {
		f := newCatalogFixture(store)

		_, err := f.sync.ImportProduct(ctx, store, tshirtPayload())
		require.NoError(t, err)

		payload := tshirtPayload()
		payload.Variants[0].Price = decimal.NewFromInt(29)
		payload.UpdatedAt = "2026-08-30T11:00:00Z"
		_, err = f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)

		variant, err := f.catalog.VariantBySKU(ctx, "TEE-RED-S")
		require.NoError(t, err)
		assert.True(t, variant.Price.Equal(decimal.NewFromInt(29)))
	})

	t.Run("stale product timestamp does not move quantities", func(t *testing.T) {
		f := newCatalogFixture(store)

		_, err := f.sync.ImportProduct(ctx, store, tshirtPayload())
		require.NoError(t, err)

		payload := tshirtPayload()
		payload.Variants[0].InventoryQuantity = 99
		// Same timestamp as the first import: quantity guard holds.
		_, err = f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)

		variant, err := f.catalog.VariantBySKU(ctx, "TEE-RED-S")
		require.NoError(t, err)
		onHand, err := f.stock.OnHand(ctx, variant.ID, store.StockLocationID)
		require.NoError(t, err)
		assert.Equal(t, float64(5), onHand)
	})

	t.Run("image failure does not block the product", func(t *testing.T) {
		f := newCatalogFixture(store)

		payload := tshirtPayload()
		payload.Image = &domain.ImagePayload{Src: "https://cdn.example.com/missing.png"}
		result, err := f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)
		assert.Equal(t, "success", result.Status)
	})

	t.Run("image is stored on the template", func(t *testing.T) {
		f := newCatalogFixture(store)
		f.storefront.images["https://cdn.example.com/tee.png"] = []byte("png-bytes")

		payload := tshirtPayload()
		payload.Image = &domain.ImagePayload{Src: "https://cdn.example.com/tee.png"}
		_, err := f.sync.ImportProduct(ctx, store, payload)
		require.NoError(t, err)

		template, err := f.catalog.TemplateByTitle(ctx, "Classic Tee")
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), f.catalog.images[template.ID])
	})
}
