package repository

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/infrastructure/repository/entity"
	"ledger-shopify-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMappingRepository implements MappingRepository using MongoDB
type MongoMappingRepository struct {
	collection *mongo.Collection
}

// NewMongoMappingRepository creates a new MongoDB mapping repository
func NewMongoMappingRepository(db *mongo.Database) *MongoMappingRepository {
	return &MongoMappingRepository{
		collection: db.Collection("product_mappings"),
	}
}

var _ ports.MappingRepository = (*MongoMappingRepository)(nil)

// EnsureIndexes creates the unique (store, SKU) compound index that makes
// racing first resolutions collapse into one row
func (r *MongoMappingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "storeId", Value: 1}, {Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapping index: %w", err)
	}
	return nil
}

// BySKU retrieves a mapping by store and SKU
func (r *MongoMappingRepository) BySKU(ctx context.Context, storeID, sku string) (*domain.ProductMapping, error) {
	var doc entity.MongoMappingDoc
	filter := bson.M{"storeId": storeID, "sku": sku}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return doc.ToDomain(), nil
}

// ByInventoryItemID retrieves a mapping by store and inventory item id
func (r *MongoMappingRepository) ByInventoryItemID(ctx context.Context, storeID string, inventoryItemID int64) (*domain.ProductMapping, error) {
	var doc entity.MongoMappingDoc
	filter := bson.M{"storeId": storeID, "inventoryItemId": inventoryItemID}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return doc.ToDomain(), nil
}

// ByAllStores retrieves every store's mapping for a SKU
func (r *MongoMappingRepository) ByAllStores(ctx context.Context, sku string) ([]*domain.ProductMapping, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sku": sku})
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer cursor.Close(ctx)

	var mappings []*domain.ProductMapping
	for cursor.Next(ctx) {
		var doc entity.MongoMappingDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode mapping: %w", err)
		}
		mappings = append(mappings, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return mappings, nil
}

// Upsert saves or updates a mapping, idempotent on the (store, SKU) key
func (r *MongoMappingRepository) Upsert(ctx context.Context, m *domain.ProductMapping) error {
	now := time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"storeId": m.StoreID, "sku": m.SKU}
	update := bson.M{
		"$set": bson.M{
			"inventoryItemId": m.InventoryItemID,
			"updatedAt":       now,
		},
		"$setOnInsert": bson.M{
			"storeId":   m.StoreID,
			"sku":       m.SKU,
			"createdAt": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert mapping: %w", err)
	}

	return nil
}

// DeleteByStore removes every mapping for a store
func (r *MongoMappingRepository) DeleteByStore(ctx context.Context, storeID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"storeId": storeID})
	if err != nil {
		return fmt.Errorf("failed to delete mappings: %w", err)
	}
	return nil
}
