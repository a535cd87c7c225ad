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

type invoiceDoc struct {
	ID        string    `bson:"_id"`
	OrderID   string    `bson:"orderId"`
	Total     string    `bson:"total"`
	Posted    bool      `bson:"posted"`
	CreatedAt time.Time `bson:"createdAt"`
}

type paymentDoc struct {
	ID         string    `bson:"_id"`
	CustomerID string    `bson:"customerId"`
	Amount     string    `bson:"amount"`
	Posted     bool      `bson:"posted"`
	InvoiceID  string    `bson:"invoiceId,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// MongoAccounting implements LedgerAccounting using MongoDB. The clearing
// journal is configuration, not data: without one configured the payment
// step of order syncing is skipped.
type MongoAccounting struct {
	invoices        *mongo.Collection
	payments        *mongo.Collection
	orders          *mongo.Collection
	clearingJournal bool
	logger          zerolog.Logger
}

// NewMongoAccounting creates a new MongoDB accounting adapter
func NewMongoAccounting(db *mongo.Database, clearingJournal bool, logger zerolog.Logger) *MongoAccounting {
	return &MongoAccounting{
		invoices:        db.Collection("invoices"),
		payments:        db.Collection("payments"),
		orders:          db.Collection("orders"),
		clearingJournal: clearingJournal,
		logger:          logger,
	}
}

var _ ports.LedgerAccounting = (*MongoAccounting)(nil)

func (a *MongoAccounting) HasInvoice(ctx context.Context, orderID string) (bool, error) {
	count, err := a.invoices.CountDocuments(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return false, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count > 0, nil
}

func (a *MongoAccounting) CreateInvoice(ctx context.Context, orderID string) (*domain.Invoice, error) {
	var order orderDoc
	if err := a.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to get order for invoicing: %w", err)
	}

	total := decimal.Zero
	for _, line := range order.toDomain().Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity)))
	}

	invoice := &domain.Invoice{
		ID:      uuid.NewString(),
		OrderID: orderID,
		Total:   total,
	}
	doc := invoiceDoc{ID: invoice.ID, OrderID: orderID, Total: total.String(), CreatedAt: time.Now().UTC()}
	if _, err := a.invoices.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return invoice, nil
}

func (a *MongoAccounting) PostInvoice(ctx context.Context, invoiceID string) error {
	_, err := a.invoices.UpdateOne(ctx, bson.M{"_id": invoiceID}, bson.M{"$set": bson.M{"posted": true}})
	if err != nil {
		return fmt.Errorf("failed to post invoice: %w", err)
	}
	return nil
}

func (a *MongoAccounting) HasClearingJournal(ctx context.Context) (bool, error) {
	return a.clearingJournal, nil
}

func (a *MongoAccounting) CreatePayment(ctx context.Context, customerID string, amount decimal.Decimal) (*domain.Payment, error) {
	payment := &domain.Payment{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Amount:     amount,
	}
	doc := paymentDoc{ID: payment.ID, CustomerID: customerID, Amount: amount.String(), CreatedAt: time.Now().UTC()}
	if _, err := a.payments.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, nil
}

func (a *MongoAccounting) PostPayment(ctx context.Context, paymentID string) error {
	_, err := a.payments.UpdateOne(ctx, bson.M{"_id": paymentID}, bson.M{"$set": bson.M{"posted": true}})
	if err != nil {
		return fmt.Errorf("failed to post payment: %w", err)
	}
	return nil
}

func (a *MongoAccounting) Reconcile(ctx context.Context, invoiceID, paymentID string) error {
	_, err := a.payments.UpdateOne(ctx, bson.M{"_id": paymentID}, bson.M{"$set": bson.M{"invoiceId": invoiceID}})
	if err != nil {
		return fmt.Errorf("failed to reconcile payment: %w", err)
	}
	return nil
}
