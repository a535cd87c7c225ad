package ledger

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type fulfillmentMoveDoc struct {
	VariantID  string  `bson:"variantId"`
	LocationID string  `bson:"locationId"`
	Quantity   float64 `bson:"quantity"`
}

type fulfillmentDoc struct {
	ID        string               `bson:"_id"`
	OrderID   string               `bson:"orderId"`
	State     string               `bson:"state"`
	Moves     []fulfillmentMoveDoc `bson:"moves"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func (d *fulfillmentDoc) toDomain() *domain.Fulfillment {
	f := &domain.Fulfillment{
		ID:      d.ID,
		OrderID: d.OrderID,
		State:   domain.FulfillmentState(d.State),
	}
	for _, m := range d.Moves {
		f.Moves = append(f.Moves, domain.FulfillmentMove{
			VariantID:  m.VariantID,
			LocationID: m.LocationID,
			Quantity:   m.Quantity,
		})
	}
	return f
}

// MongoFulfillment implements LedgerFulfillment using MongoDB. Validating a
// fulfillment decrements the stock levels referenced by its moves.
type MongoFulfillment struct {
	fulfillments *mongo.Collection
	orders       *mongo.Collection
	stock        *MongoStock
	logger       zerolog.Logger
}

// NewMongoFulfillment creates a new MongoDB fulfillment adapter
func NewMongoFulfillment(db *mongo.Database, stock *MongoStock, logger zerolog.Logger) *MongoFulfillment {
	return &MongoFulfillment{
		fulfillments: db.Collection("fulfillments"),
		orders:       db.Collection("orders"),
		stock:        stock,
		logger:       logger,
	}
}

var _ ports.LedgerFulfillment = (*MongoFulfillment)(nil)

func (f *MongoFulfillment) HasCompleted(ctx context.Context, orderID string) (bool, error) {
	count, err := f.fulfillments.CountDocuments(ctx, bson.M{"orderId": orderID, "state": string(domain.FulfillmentDone)})
	if err != nil {
		return false, fmt.Errorf("failed to count fulfillments: %w", err)
	}
	return count > 0, nil
}

func (f *MongoFulfillment) Pending(ctx context.Context, orderID string) (*domain.Fulfillment, error) {
	var doc fulfillmentDoc
	err := f.fulfillments.FindOne(ctx, bson.M{"orderId": orderID, "state": string(domain.FulfillmentPending)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fulfillment: %w", err)
	}
	return doc.toDomain(), nil
}

// CreatePending builds a pending fulfillment from the order's lines, one
// move per line at the order's warehouse.
func (f *MongoFulfillment) CreatePending(ctx context.Context, orderID string) (*domain.Fulfillment, error) {
	var order orderDoc
	if err := f.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to get order for fulfillment: %w", err)
	}

	doc := fulfillmentDoc{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		State:     string(domain.FulfillmentPending),
		CreatedAt: time.Now().UTC(),
	}
	for _, line := range order.Lines {
		doc.Moves = append(doc.Moves, fulfillmentMoveDoc{
			VariantID:  line.VariantID,
			LocationID: order.Warehouse,
			Quantity:   line.Quantity,
		})
	}
	if _, err := f.fulfillments.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create fulfillment: %w", err)
	}
	return doc.toDomain(), nil
}

func (f *MongoFulfillment) Validate(ctx context.Context, fulfillmentID string) error {
	var doc fulfillmentDoc
	if err := f.fulfillments.FindOne(ctx, bson.M{"_id": fulfillmentID}).Decode(&doc); err != nil {
		return fmt.Errorf("failed to get fulfillment: %w", err)
	}
	if doc.State != string(domain.FulfillmentPending) {
		return fmt.Errorf("fulfillment %s is not pending", fulfillmentID)
	}

	for _, move := range doc.Moves {
		onHand, err := f.stock.OnHand(ctx, move.VariantID, move.LocationID)
		if err != nil {
			return err
		}
		if err := f.stock.SetOnHand(ctx, move.VariantID, move.LocationID, onHand-move.Quantity); err != nil {
			return err
		}
	}

	_, err := f.fulfillments.UpdateOne(ctx, bson.M{"_id": fulfillmentID},
		bson.M{"$set": bson.M{"state": string(domain.FulfillmentDone)}})
	if err != nil {
		return fmt.Errorf("failed to validate fulfillment: %w", err)
	}
	return nil
}
