package ledger

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stockLevelDoc struct {
	VariantID  string    `bson:"variantId"`
	LocationID string    `bson:"locationId"`
	Quantity   float64   `bson:"quantity"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

// MongoStock implements LedgerStock using MongoDB
type MongoStock struct {
	levels *mongo.Collection
	logger zerolog.Logger
}

// NewMongoStock creates a new MongoDB stock adapter
func NewMongoStock(db *mongo.Database, logger zerolog.Logger) *MongoStock {
	return &MongoStock{
		levels: db.Collection("stock_levels"),
		logger: logger,
	}
}

var _ ports.LedgerStock = (*MongoStock)(nil)

// EnsureIndexes creates the unique variant/location index
func (s *MongoStock) EnsureIndexes(ctx context.Context) error {
	_, err := s.levels.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "variantId", Value: 1}, {Key: "locationId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create stock index: %w", err)
	}
	return nil
}

// OnHand returns zero for a pair that has no stock-level record yet
func (s *MongoStock) OnHand(ctx context.Context, variantID, locationID string) (float64, error) {
	var doc stockLevelDoc
	err := s.levels.FindOne(ctx, bson.M{"variantId": variantID, "locationId": locationID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get stock level: %w", err)
	}
	return doc.Quantity, nil
}

func (s *MongoStock) SetOnHand(ctx context.Context, variantID, locationID string, qty float64) error {
	filter := bson.M{"variantId": variantID, "locationId": locationID}
	update := bson.M{"$set": bson.M{"quantity": qty, "updatedAt": time.Now().UTC()}}
	_, err := s.levels.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set stock level: %w", err)
	}
	return nil
}
