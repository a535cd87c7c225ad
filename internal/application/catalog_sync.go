package application

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// CatalogSynchronizer maps storefront product payloads onto the Ledger's
// template / attribute / variant model. Attribute and value identity is by
// exact name; variant identity is by exact attribute-value set match.
type CatalogSynchronizer struct {
	catalog    ports.LedgerCatalog
	mapper     *IdentityMapper
	reconciler *InventoryReconciler
	storefront ports.StorefrontClient
	logger     zerolog.Logger
}

// NewCatalogSynchronizer creates a new catalog synchronizer
func NewCatalogSynchronizer(
	catalog ports.LedgerCatalog,
	mapper *IdentityMapper,
	reconciler *InventoryReconciler,
	storefront ports.StorefrontClient,
	logger zerolog.Logger,
) *CatalogSynchronizer {
	return &CatalogSynchronizer{
		catalog:    catalog,
		mapper:     mapper,
		reconciler: reconciler,
		storefront: storefront,
		logger:     logger,
	}
}

// ImportProduct maps one product payload onto one local template, creating
// catalog structure as needed
func (s *CatalogSynchronizer) ImportProduct(ctx context.Context, store *domain.Store, payload domain.ProductPayload) (*domain.SyncResult, error) {
	if !hasAnySKU(payload) {
		s.logger.Warn().
			Str("storeId", store.ID).
			Int64("productId", payload.ID).
			Str("title", payload.Title).
			Msg("Product has no SKUs on any variant, skipped wholesale")
		return skipped("no variant carries a SKU"), nil
	}

	template, err := s.findOrCreateTemplate(ctx, payload.Title)
	if err != nil {
		return nil, err
	}

	// attributesByName carries options through to variant matching in the
	// payload's option order, which defines each variant's option1..3 slots.
	attributesByName, err := s.syncOptions(ctx, template, payload.Options)
	if err != nil {
		return nil, err
	}

	variants, err := s.catalog.VariantsByTemplate(ctx, template.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	if len(variants) == 0 {
		if err := s.catalog.MaterializeVariants(ctx, template.ID); err != nil {
			return nil, fmt.Errorf("failed to materialize variants: %w", err)
		}
		variants, err = s.catalog.VariantsByTemplate(ctx, template.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list variants: %w", err)
		}
	}

	matched, skippedCount := 0, 0
	for _, external := range payload.Variants {
		ok, err := s.syncVariant(ctx, store, payload, external, variants, attributesByName)
		if err != nil {
			return nil, err
		}
		if ok {
			matched++
		} else {
			skippedCount++
		}
	}

	if payload.Image != nil && payload.Image.Src != "" {
		// Image failure never blocks the product itself.
		if err := s.syncImage(ctx, template.ID, payload.Image.Src); err != nil {
			s.logger.Warn().
				Err(err).
				Str("templateId", template.ID).
				Msg("Failed to sync product image")
		}
	}

	s.logger.Info().
		Str("storeId", store.ID).
		Int64("productId", payload.ID).
		Str("title", payload.Title).
		Int("variantsMatched", matched).
		Int("variantsSkipped", skippedCount).
		Msg("Product imported")
	return &domain.SyncResult{
		Status:  "success",
		Message: fmt.Sprintf("%d variants synced, %d skipped", matched, skippedCount),
	}, nil
}

func hasAnySKU(payload domain.ProductPayload) bool {
	for _, v := range payload.Variants {
		if v.SKU != "" {
			return true
		}
	}
	return false
}

func (s *CatalogSynchronizer) findOrCreateTemplate(ctx context.Context, title string) (*domain.Template, error) {
	template, err := s.catalog.TemplateByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to look up template: %w", err)
	}
	if template != nil {
		return template, nil
	}

	template = &domain.Template{Title: title}
	if err := s.catalog.CreateTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	s.logger.Info().Str("title", title).Msg("Template created")
	return template, nil
}

// syncOptions find-or-creates each real option as an attribute with its
// allowed values and attaches it to the template. The sentinel placeholder
// option products without variations carry is ignored.
func (s *CatalogSynchronizer) syncOptions(ctx context.Context, template *domain.Template, options []domain.OptionPayload) (map[string]*domain.Attribute, error) {
	attributes := make(map[string]*domain.Attribute, len(options))

	for _, option := range options {
		if option.IsSentinel() {
			continue
		}

		attribute, err := s.findOrCreateAttribute(ctx, option.Name)
		if err != nil {
			return nil, err
		}
		attributes[option.Name] = attribute

		valueIDs := make([]string, 0, len(option.Values))
		for _, name := range option.Values {
			value, err := s.findOrCreateValue(ctx, attribute.ID, name)
			if err != nil {
				return nil, err
			}
			valueIDs = append(valueIDs, value.ID)
		}

		if err := s.ensureAttributeLine(ctx, template.ID, attribute.ID, valueIDs); err != nil {
			return nil, err
		}
	}

	return attributes, nil
}

func (s *CatalogSynchronizer) findOrCreateAttribute(ctx context.Context, name string) (*domain.Attribute, error) {
	attribute, err := s.catalog.AttributeByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up attribute: %w", err)
	}
	if attribute != nil {
		return attribute, nil
	}

	attribute = &domain.Attribute{Name: name}
	if err := s.catalog.CreateAttribute(ctx, attribute); err != nil {
		return nil, fmt.Errorf("failed to create attribute: %w", err)
	}
	return attribute, nil
}

func (s *CatalogSynchronizer) findOrCreateValue(ctx context.Context, attributeID, name string) (*domain.AttributeValue, error) {
	value, err := s.catalog.AttributeValueByName(ctx, attributeID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up attribute value: %w", err)
	}
	if value != nil {
		return value, nil
	}

	value = &domain.AttributeValue{AttributeID: attributeID, Name: name}
	if err := s.catalog.CreateAttributeValue(ctx, value); err != nil {
		return nil, fmt.Errorf("failed to create attribute value: %w", err)
	}
	return value, nil
}

// ensureAttributeLine attaches the attribute to the template and folds newly
// seen values into an existing line's allowed set
func (s *CatalogSynchronizer) ensureAttributeLine(ctx context.Context, templateID, attributeID string, valueIDs []string) error {
	line, err := s.catalog.AttributeLine(ctx, templateID, attributeID)
	if err != nil {
		return fmt.Errorf("failed to look up attribute line: %w", err)
	}
	if line == nil {
		line = &domain.AttributeLine{
			TemplateID:  templateID,
			AttributeID: attributeID,
			ValueIDs:    valueIDs,
		}
		if err := s.catalog.CreateAttributeLine(ctx, line); err != nil {
			return fmt.Errorf("failed to create attribute line: %w", err)
		}
		return nil
	}

	existing := make(map[string]struct{}, len(line.ValueIDs))
	for _, id := range line.ValueIDs {
		existing[id] = struct{}{}
	}
	for _, id := range valueIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		if err := s.catalog.AddValueToLine(ctx, line.ID, id); err != nil {
			return fmt.Errorf("failed to extend attribute line: %w", err)
		}
	}
	return nil
}

// syncVariant matches one external variant to the local variant with the
// exactly-equal attribute-value set and applies SKU, price, mapping and
// quantity. Reports false when no exact combination match exists.
func (s *CatalogSynchronizer) syncVariant(
	ctx context.Context,
	store *domain.Store,
	product domain.ProductPayload,
	external domain.VariantPayload,
	variants []*domain.Variant,
	attributesByName map[string]*domain.Attribute,
) (bool, error) {
	sku := external.EffectiveSKU(product.ID)

	want, err := s.combinationFor(ctx, product.Options, external, attributesByName)
	if err != nil {
		return false, err
	}

	var match *domain.Variant
	for _, v := range variants {
		if v.CombinationMatches(want) {
			match = v
			break
		}
	}
	if match == nil {
		s.logger.Warn().
			Str("storeId", store.ID).
			Int64("variantId", external.ID).
			Str("sku", sku).
			Msg("No exact attribute-combination match, variant skipped")
		return false, nil
	}

	if match.SKU != sku || !match.Price.Equal(external.Price) || match.ExternalProductID != product.ID {
		match.SKU = sku
		match.Price = external.Price
		match.ExternalProductID = product.ID
		if err := s.catalog.UpdateVariant(ctx, match); err != nil {
			return false, fmt.Errorf("failed to update variant: %w", err)
		}
	}

	if external.InventoryItemID != 0 {
		if err := s.mapper.Record(ctx, store.ID, sku, external.InventoryItemID); err != nil {
			return false, err
		}
	}

	if err := s.applyQuantity(ctx, store, match, product, external); err != nil {
		return false, err
	}

	return true, nil
}

// combinationFor translates the variant's per-option selections into the set
// of local attribute-value ids it must match
func (s *CatalogSynchronizer) combinationFor(
	ctx context.Context,
	options []domain.OptionPayload,
	external domain.VariantPayload,
	attributesByName map[string]*domain.Attribute,
) ([]string, error) {
	var want []string
	position := 0
	for _, option := range options {
		position++
		if option.IsSentinel() {
			continue
		}
		attribute, ok := attributesByName[option.Name]
		if !ok {
			continue
		}
		selection := external.OptionValue(position)
		if selection == "" {
			continue
		}
		value, err := s.catalog.AttributeValueByName(ctx, attribute.ID, selection)
		if err != nil {
			return nil, fmt.Errorf("failed to look up attribute value: %w", err)
		}
		if value == nil {
			continue
		}
		want = append(want, value.ID)
	}
	return want, nil
}

// applyQuantity reconciles the variant's absolute quantity, guarded by the
// same staleness rule the inventory path uses
func (s *CatalogSynchronizer) applyQuantity(
	ctx context.Context,
	store *domain.Store,
	variant *domain.Variant,
	product domain.ProductPayload,
	external domain.VariantPayload,
) error {
	eventTime, err := domain.ParseEventTime(product.UpdatedAt)
	if err != nil {
		// Bulk items without a usable timestamp still apply, stamped now.
		eventTime = nowUTC()
	}

	if variant.LastUpdatedAt != nil && !eventTime.After(*variant.LastUpdatedAt) {
		s.logger.Debug().
			Str("sku", variant.SKU).
			Msg("Variant quantity newer locally, not overwritten")
		return nil
	}

	if err := s.reconciler.AdjustToQuantity(ctx, store, variant, float64(external.InventoryQuantity)); err != nil {
		return err
	}
	if err := s.catalog.StampVariant(ctx, variant.ID, domain.OriginSynced, eventTime); err != nil {
		return fmt.Errorf("failed to stamp variant: %w", err)
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func (s *CatalogSynchronizer) syncImage(ctx context.Context, templateID, src string) error {
	image, err := s.storefront.FetchImage(ctx, src)
	if err != nil {
		return err
	}
	return s.catalog.SaveTemplateImage(ctx, templateID, image)
}
