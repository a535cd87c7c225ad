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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderLineDoc struct {
	VariantID string  `bson:"variantId"`
	SKU       string  `bson:"sku"`
	Name      string  `bson:"name"`
	Quantity  float64 `bson:"quantity"`
	UnitPrice string  `bson:"unitPrice"`
}

type orderDoc struct {
	ID         string         `bson:"_id"`
	ExternalID int64          `bson:"externalId,omitempty"`
	CustomerID string         `bson:"customerId"`
	StoreID    string         `bson:"storeId,omitempty"`
	Origin     string         `bson:"origin,omitempty"`
	Warehouse  string         `bson:"warehouse,omitempty"`
	State      string         `bson:"state"`
	OrderedAt  time.Time      `bson:"orderedAt"`
	Lines      []orderLineDoc `bson:"lines"`
}

func (d *orderDoc) toDomain() *domain.Order {
	o := &domain.Order{
		ID:         d.ID,
		ExternalID: d.ExternalID,
		CustomerID: d.CustomerID,
		StoreID:    d.StoreID,
		Origin:     d.Origin,
		Warehouse:  d.Warehouse,
		State:      domain.OrderState(d.State),
		OrderedAt:  d.OrderedAt,
	}
	for _, line := range d.Lines {
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			price = decimal.Zero
		}
		o.Lines = append(o.Lines, domain.OrderLine{
			VariantID: line.VariantID,
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
	}
	return o
}

func orderDocFromDomain(o *domain.Order) orderDoc {
	doc := orderDoc{
		ID:         o.ID,
		ExternalID: o.ExternalID,
		CustomerID: o.CustomerID,
		StoreID:    o.StoreID,
		Origin:     o.Origin,
		Warehouse:  o.Warehouse,
		State:      string(o.State),
		OrderedAt:  o.OrderedAt,
	}
	for _, line := range o.Lines {
		doc.Lines = append(doc.Lines, orderLineDoc{
			VariantID: line.VariantID,
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.String(),
		})
	}
	return doc
}

// MongoOrders implements LedgerOrders using MongoDB
type MongoOrders struct {
	orders *mongo.Collection
	logger zerolog.Logger
}

// NewMongoOrders creates a new MongoDB sales-order adapter
func NewMongoOrders(db *mongo.Database, logger zerolog.Logger) *MongoOrders {
	return &MongoOrders{
		orders: db.Collection("orders"),
		logger: logger,
	}
}

var _ ports.LedgerOrders = (*MongoOrders)(nil)

// EnsureIndexes creates the unique external-id index. Partial filter keeps
// purely-local orders (external id zero) out of the uniqueness constraint.
func (r *MongoOrders) EnsureIndexes(ctx context.Context) error {
	_, err := r.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "externalId", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"externalId": bson.M{"$gt": 0}}),
	})
	if err != nil {
		return fmt.Errorf("failed to create order index: %w", err)
	}
	return nil
}

func (r *MongoOrders) ByExternalID(ctx context.Context, externalID int64) (*domain.Order, error) {
	var doc orderDoc
	err := r.orders.FindOne(ctx, bson.M{"externalId": externalID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoOrders) Create(ctx context.Context, o *domain.Order) error {
	o.ID = uuid.NewString()
	o.State = domain.OrderDraft
	if _, err := r.orders.InsertOne(ctx, orderDocFromDomain(o)); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *MongoOrders) Confirm(ctx context.Context, orderID string) error {
	return r.setState(ctx, orderID, domain.OrderConfirmed)
}

func (r *MongoOrders) Cancel(ctx context.Context, orderID string) error {
	return r.setState(ctx, orderID, domain.OrderCancelled)
}

func (r *MongoOrders) setState(ctx context.Context, orderID string, state domain.OrderState) error {
	result, err := r.orders.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{"state": string(state)}})
	if err != nil {
		return fmt.Errorf("failed to update order state: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}
	return nil
}
