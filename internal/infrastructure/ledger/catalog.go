// Package ledger provides MongoDB-backed implementations of the Ledger
// collaborator ports: catalog, stock, partners, orders, accounting and
// fulfillment.
package ledger

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type templateDoc struct {
	ID    string `bson:"_id"`
	Title string `bson:"title"`
	Image []byte `bson:"image,omitempty"`
}

type attributeDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type attributeValueDoc struct {
	ID          string `bson:"_id"`
	AttributeID string `bson:"attributeId"`
	Name        string `bson:"name"`
}

type attributeLineDoc struct {
	ID          string   `bson:"_id"`
	TemplateID  string   `bson:"templateId"`
	AttributeID string   `bson:"attributeId"`
	ValueIDs    []string `bson:"valueIds"`
}

type variantDoc struct {
	ID                string     `bson:"_id"`
	TemplateID        string     `bson:"templateId"`
	SKU               string     `bson:"sku,omitempty"`
	ExternalProductID int64      `bson:"externalProductId,omitempty"`
	Price             string     `bson:"price,omitempty"`
	ValueIDs          []string   `bson:"valueIds,omitempty"`
	LastUpdateOrigin  string     `bson:"lastUpdateOrigin,omitempty"`
	LastUpdatedAt     *time.Time `bson:"lastUpdatedAt,omitempty"`
}

func (d *variantDoc) toDomain() *domain.Variant {
	v := &domain.Variant{
		ID:                d.ID,
		TemplateID:        d.TemplateID,
		SKU:               d.SKU,
		ExternalProductID: d.ExternalProductID,
		ValueIDs:          d.ValueIDs,
		LastUpdateOrigin:  domain.UpdateOrigin(d.LastUpdateOrigin),
		LastUpdatedAt:     d.LastUpdatedAt,
	}
	if d.Price != "" {
		if price, err := decimal.NewFromString(d.Price); err == nil {
			v.Price = price
		}
	}
	return v
}

// MongoCatalog implements LedgerCatalog using MongoDB
type MongoCatalog struct {
	templates  *mongo.Collection
	attributes *mongo.Collection
	values     *mongo.Collection
	lines      *mongo.Collection
	variants   *mongo.Collection
	logger     zerolog.Logger
}

// NewMongoCatalog creates a new MongoDB catalog adapter
func NewMongoCatalog(db *mongo.Database, logger zerolog.Logger) *MongoCatalog {
	return &MongoCatalog{
		templates:  db.Collection("templates"),
		attributes: db.Collection("attributes"),
		values:     db.Collection("attribute_values"),
		lines:      db.Collection("attribute_lines"),
		variants:   db.Collection("variants"),
		logger:     logger,
	}
}

var _ ports.LedgerCatalog = (*MongoCatalog)(nil)

func (c *MongoCatalog) TemplateByTitle(ctx context.Context, title string) (*domain.Template, error) {
	var doc templateDoc
	err := c.templates.FindOne(ctx, bson.M{"title": title}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &domain.Template{ID: doc.ID, Title: doc.Title}, nil
}

func (c *MongoCatalog) CreateTemplate(ctx context.Context, t *domain.Template) error {
	t.ID = uuid.NewString()
	_, err := c.templates.InsertOne(ctx, templateDoc{ID: t.ID, Title: t.Title})
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (c *MongoCatalog) AttributeByName(ctx context.Context, name string) (*domain.Attribute, error) {
	var doc attributeDoc
	err := c.attributes.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute: %w", err)
	}
	return &domain.Attribute{ID: doc.ID, Name: doc.Name}, nil
}

func (c *MongoCatalog) CreateAttribute(ctx context.Context, a *domain.Attribute) error {
	a.ID = uuid.NewString()
	_, err := c.attributes.InsertOne(ctx, attributeDoc{ID: a.ID, Name: a.Name})
	if err != nil {
		return fmt.Errorf("failed to create attribute: %w", err)
	}
	return nil
}

func (c *MongoCatalog) AttributeValueByName(ctx context.Context, attributeID, name string) (*domain.AttributeValue, error) {
	var doc attributeValueDoc
	err := c.values.FindOne(ctx, bson.M{"attributeId": attributeID, "name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute value: %w", err)
	}
	return &domain.AttributeValue{ID: doc.ID, AttributeID: doc.AttributeID, Name: doc.Name}, nil
}

func (c *MongoCatalog) CreateAttributeValue(ctx context.Context, v *domain.AttributeValue) error {
	v.ID = uuid.NewString()
	_, err := c.values.InsertOne(ctx, attributeValueDoc{ID: v.ID, AttributeID: v.AttributeID, Name: v.Name})
	if err != nil {
		return fmt.Errorf("failed to create attribute value: %w", err)
	}
	return nil
}

func (c *MongoCatalog) AttributeLine(ctx context.Context, templateID, attributeID string) (*domain.AttributeLine, error) {
	var doc attributeLineDoc
	err := c.lines.FindOne(ctx, bson.M{"templateId": templateID, "attributeId": attributeID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute line: %w", err)
	}
	return &domain.AttributeLine{ID: doc.ID, TemplateID: doc.TemplateID, AttributeID: doc.AttributeID, ValueIDs: doc.ValueIDs}, nil
}

func (c *MongoCatalog) CreateAttributeLine(ctx context.Context, l *domain.AttributeLine) error {
	l.ID = uuid.NewString()
	_, err := c.lines.InsertOne(ctx, attributeLineDoc{ID: l.ID, TemplateID: l.TemplateID, AttributeID: l.AttributeID, ValueIDs: l.ValueIDs})
	if err != nil {
		return fmt.Errorf("failed to create attribute line: %w", err)
	}
	return nil
}

func (c *MongoCatalog) AddValueToLine(ctx context.Context, lineID, valueID string) error {
	_, err := c.lines.UpdateOne(ctx, bson.M{"_id": lineID}, bson.M{"$addToSet": bson.M{"valueIds": valueID}})
	if err != nil {
		return fmt.Errorf("failed to extend attribute line: %w", err)
	}
	return nil
}

func (c *MongoCatalog) VariantsByTemplate(ctx context.Context, templateID string) ([]*domain.Variant, error) {
	cursor, err := c.variants.Find(ctx, bson.M{"templateId": templateID})
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer cursor.Close(ctx)

	var variants []*domain.Variant
	for cursor.Next(ctx) {
		var doc variantDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode variant: %w", err)
		}
		variants = append(variants, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return variants, nil
}

// MaterializeVariants expands the cartesian set of the template's
// attribute-value combinations into variants. A template with no attribute
// lines gets one variant with an empty combination.
func (c *MongoCatalog) MaterializeVariants(ctx context.Context, templateID string) error {
	cursor, err := c.lines.Find(ctx, bson.M{"templateId": templateID})
	if err != nil {
		return fmt.Errorf("failed to list attribute lines: %w", err)
	}
	defer cursor.Close(ctx)

	var valueSets [][]string
	for cursor.Next(ctx) {
		var doc attributeLineDoc
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode attribute line: %w", err)
		}
		if len(doc.ValueIDs) > 0 {
			valueSets = append(valueSets, doc.ValueIDs)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error: %w", err)
	}

	combinations := cartesian(valueSets)
	docs := make([]interface{}, 0, len(combinations))
	for _, combo := range combinations {
		docs = append(docs, variantDoc{
			ID:         uuid.NewString(),
			TemplateID: templateID,
			ValueIDs:   combo,
		})
	}
	if _, err := c.variants.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to materialize variants: %w", err)
	}

	c.logger.Info().
		Str("templateId", templateID).
		Int("variants", len(docs)).
		Msg("Variants materialized")
	return nil
}

func (c *MongoCatalog) VariantBySKU(ctx context.Context, sku string) (*domain.Variant, error) {
	var doc variantDoc
	err := c.variants.FindOne(ctx, bson.M{"sku": sku}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return doc.toDomain(), nil
}

func (c *MongoCatalog) UpdateVariant(ctx context.Context, v *domain.Variant) error {
	update := bson.M{"$set": bson.M{
		"sku":               v.SKU,
		"externalProductId": v.ExternalProductID,
		"price":             v.Price.String(),
	}}
	_, err := c.variants.UpdateOne(ctx, bson.M{"_id": v.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	return nil
}

func (c *MongoCatalog) StampVariant(ctx context.Context, variantID string, origin domain.UpdateOrigin, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"lastUpdateOrigin": string(origin),
		"lastUpdatedAt":    at,
	}}
	_, err := c.variants.UpdateOne(ctx, bson.M{"_id": variantID}, update)
	if err != nil {
		return fmt.Errorf("failed to stamp variant: %w", err)
	}
	return nil
}

func (c *MongoCatalog) SaveTemplateImage(ctx context.Context, templateID string, image []byte) error {
	_, err := c.templates.UpdateOne(ctx, bson.M{"_id": templateID}, bson.M{"$set": bson.M{"image": image}})
	if err != nil {
		return fmt.Errorf("failed to save template image: %w", err)
	}
	return nil
}

// cartesian expands value-id sets into every combination, one id per set
func cartesian(sets [][]string) [][]string {
	combinations := [][]string{{}}
	for _, set := range sets {
		var next [][]string
		for _, combo := range combinations {
			for _, id := range set {
				extended := make([]string, len(combo), len(combo)+1)
				copy(extended, combo)
				next = append(next, append(extended, id))
			}
		}
		combinations = next
	}
	return combinations
}
