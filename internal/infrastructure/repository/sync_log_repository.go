package repository

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/infrastructure/repository/entity"
	"ledger-shopify-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSyncLogRepository implements SyncLogRepository using MongoDB
type MongoSyncLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncLogRepository creates a new MongoDB sync log repository
func NewMongoSyncLogRepository(db *mongo.Database) *MongoSyncLogRepository {
	return &MongoSyncLogRepository{
		collection: db.Collection("sync_logs"),
	}
}

var _ ports.SyncLogRepository = (*MongoSyncLogRepository)(nil)

// Create appends a new sync log record and assigns its id
func (r *MongoSyncLogRepository) Create(ctx context.Context, log *domain.SyncLog) error {
	doc := entity.MongoSyncLogDocFromDomain(log)
	doc.ID = primitive.NewObjectID()
	if doc.StartedAt.IsZero() {
		doc.StartedAt = time.Now()
	}
	doc.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}

	log.ID = doc.ID.Hex()
	log.StartedAt = doc.StartedAt
	return nil
}

// Update rewrites a sync log record in place
func (r *MongoSyncLogRepository) Update(ctx context.Context, log *domain.SyncLog) error {
	objID, err := primitive.ObjectIDFromHex(log.ID)
	if err != nil {
		return fmt.Errorf("invalid sync log id: %w", err)
	}

	doc := entity.MongoSyncLogDocFromDomain(log)
	doc.UpdatedAt = time.Now()

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("failed to update sync log: %w", err)
	}

	return nil
}

// ListByStore retrieves a store's sync logs, newest first
func (r *MongoSyncLogRepository) ListByStore(ctx context.Context, storeID string) ([]*domain.SyncLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"storeId": storeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*domain.SyncLog
	for cursor.Next(ctx) {
		var doc entity.MongoSyncLogDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sync log: %w", err)
		}
		logs = append(logs, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return logs, nil
}
