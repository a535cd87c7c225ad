package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/infrastructure/repository/entity"
	"ledger-shopify-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStoreRepository implements StoreRepository using MongoDB
type MongoStoreRepository struct {
	collection *mongo.Collection
}

// NewMongoStoreRepository creates a new MongoDB store repository
func NewMongoStoreRepository(db *mongo.Database) *MongoStoreRepository {
	return &MongoStoreRepository{
		collection: db.Collection("stores"),
	}
}

var _ ports.StoreRepository = (*MongoStoreRepository)(nil)

// GetByID retrieves a store by id
func (r *MongoStoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid store id: %w", err)
	}

	var doc entity.MongoStoreDoc
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return doc.ToDomain(), nil
}

// FindByDomain resolves a store by partial shop-domain match. Webhook
// deliveries carry the full myshopify domain while operators sometimes
// configure only the shop prefix, so the lookup matches either direction.
func (r *MongoStoreRepository) FindByDomain(ctx context.Context, shopDomain string) (*domain.Store, error) {
	if shopDomain == "" {
		return nil, nil
	}

	// A stored prefix like "acme" should match the delivery domain
	// "acme.myshopify.com" too, so try the contains regex first and fall
	// back to a prefix scan.
	filter := bson.M{"domain": primitive.Regex{Pattern: regexp.QuoteMeta(shopDomain), Options: "i"}}

	var doc entity.MongoStoreDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return r.findByDomainPrefix(ctx, shopDomain)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find store by domain: %w", err)
	}

	return doc.ToDomain(), nil
}

// findByDomainPrefix scans for a store whose configured domain is a prefix of
// the delivery domain
func (r *MongoStoreRepository) findByDomainPrefix(ctx context.Context, shopDomain string) (*domain.Store, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stores: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc entity.MongoStoreDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode store: %w", err)
		}
		if doc.Domain != "" && strings.HasPrefix(strings.ToLower(shopDomain), strings.ToLower(doc.Domain)) {
			return doc.ToDomain(), nil
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return nil, nil
}

// ListActive retrieves all active stores
func (r *MongoStoreRepository) ListActive(ctx context.Context) ([]*domain.Store, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer cursor.Close(ctx)

	var stores []*domain.Store
	for cursor.Next(ctx) {
		var doc entity.MongoStoreDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode store: %w", err)
		}
		stores = append(stores, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return stores, nil
}

// Save saves or updates a store
func (r *MongoStoreRepository) Save(ctx context.Context, store *domain.Store) error {
	doc := entity.MongoStoreDocFromDomain(store)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": store.Domain}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}

	return nil
}

// SaveCheckpoint persists one entity class's bulk-fetch checkpoint without
// rewriting the rest of the store document
func (r *MongoStoreRepository) SaveCheckpoint(ctx context.Context, storeID string, class domain.EntityClass, cp domain.Checkpoint) error {
	objID, err := primitive.ObjectIDFromHex(storeID)
	if err != nil {
		return fmt.Errorf("invalid store id: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"checkpoints." + string(class): entity.MongoCheckpointDocFromDomain(cp),
		"updatedAt":                    time.Now(),
	}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// AcquireSyncLock flips the exclusion flag with a conditional update so only
// one bulk-fetch run can hold a store at a time
func (r *MongoStoreRepository) AcquireSyncLock(ctx context.Context, storeID string) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(storeID)
	if err != nil {
		return false, fmt.Errorf("invalid store id: %w", err)
	}

	filter := bson.M{"_id": objID, "syncLocked": bson.M{"$ne": true}}
	update := bson.M{"$set": bson.M{"syncLocked": true, "updatedAt": time.Now()}}

	err = r.collection.FindOneAndUpdate(ctx, filter, update).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}

	return true, nil
}

// ReleaseSyncLock clears the exclusion flag
func (r *MongoStoreRepository) ReleaseSyncLock(ctx context.Context, storeID string) error {
	objID, err := primitive.ObjectIDFromHex(storeID)
	if err != nil {
		return fmt.Errorf("invalid store id: %w", err)
	}

	update := bson.M{"$set": bson.M{"syncLocked": false, "updatedAt": time.Now()}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}

	return nil
}
