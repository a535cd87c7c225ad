package ledger

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type customerDoc struct {
	ID         string    `bson:"_id"`
	ExternalID string    `bson:"externalId,omitempty"`
	Name       string    `bson:"name"`
	Email      string    `bson:"email,omitempty"`
	Phone      string    `bson:"phone,omitempty"`
	Street     string    `bson:"street,omitempty"`
	Street2    string    `bson:"street2,omitempty"`
	City       string    `bson:"city,omitempty"`
	Zip        string    `bson:"zip,omitempty"`
	StateID    string    `bson:"stateId,omitempty"`
	CountryID  string    `bson:"countryId,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func (d *customerDoc) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:         d.ID,
		ExternalID: d.ExternalID,
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Street:     d.Street,
		Street2:    d.Street2,
		City:       d.City,
		Zip:        d.Zip,
		StateID:    d.StateID,
		CountryID:  d.CountryID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func customerDocFromDomain(c *domain.Customer) customerDoc {
	return customerDoc{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Street:     c.Street,
		Street2:    c.Street2,
		City:       c.City,
		Zip:        c.Zip,
		StateID:    c.StateID,
		CountryID:  c.CountryID,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type countryDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
	Code string `bson:"code"`
}

type stateDoc struct {
	ID        string `bson:"_id"`
	CountryID string `bson:"countryId"`
	Name      string `bson:"name"`
	Code      string `bson:"code"`
}

// MongoCustomers implements LedgerCustomers using MongoDB
type MongoCustomers struct {
	customers *mongo.Collection
	countries *mongo.Collection
	states    *mongo.Collection
	logger    zerolog.Logger
}

// NewMongoCustomers creates a new MongoDB partner adapter
func NewMongoCustomers(db *mongo.Database, logger zerolog.Logger) *MongoCustomers {
	return &MongoCustomers{
		customers: db.Collection("customers"),
		countries: db.Collection("countries"),
		states:    db.Collection("states"),
		logger:    logger,
	}
}

var _ ports.LedgerCustomers = (*MongoCustomers)(nil)

func (r *MongoCustomers) FindByExternalIDOrEmail(ctx context.Context, externalID, email string) (*domain.Customer, error) {
	var clauses []bson.M
	if externalID != "" {
		clauses = append(clauses, bson.M{"externalId": externalID})
	}
	if email != "" {
		clauses = append(clauses, bson.M{"email": email})
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	var doc customerDoc
	err := r.customers.FindOne(ctx, bson.M{"$or": clauses}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoCustomers) FindByName(ctx context.Context, name string) (*domain.Customer, error) {
	var doc customerDoc
	err := r.customers.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoCustomers) Create(ctx context.Context, c *domain.Customer) error {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	if _, err := r.customers.InsertOne(ctx, customerDocFromDomain(c)); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *MongoCustomers) Update(ctx context.Context, c *domain.Customer) error {
	c.UpdatedAt = time.Now().UTC()
	doc := customerDocFromDomain(c)
	_, err := r.customers.ReplaceOne(ctx, bson.M{"_id": c.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

func (r *MongoCustomers) CountryByNameOrCode(ctx context.Context, name, code string) (string, error) {
	var clauses []bson.M
	if name != "" {
		clauses = append(clauses, bson.M{"name": caseInsensitive(name)})
	}
	if code != "" {
		clauses = append(clauses, bson.M{"code": caseInsensitive(code)})
	}
	if len(clauses) == 0 {
		return "", nil
	}

	var doc countryDoc
	err := r.countries.FindOne(ctx, bson.M{"$or": clauses}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up country: %w", err)
	}
	return doc.ID, nil
}

func (r *MongoCustomers) StateByNameOrCode(ctx context.Context, countryID, name, code string) (string, error) {
	var clauses []bson.M
	if name != "" {
		clauses = append(clauses, bson.M{"name": caseInsensitive(name)})
	}
	if code != "" {
		clauses = append(clauses, bson.M{"code": caseInsensitive(code)})
	}
	if len(clauses) == 0 {
		return "", nil
	}

	var doc stateDoc
	err := r.states.FindOne(ctx, bson.M{"countryId": countryID, "$or": clauses}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up state: %w", err)
	}
	return doc.ID, nil
}

func caseInsensitive(exact string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(exact) + "$", Options: "i"}
}
