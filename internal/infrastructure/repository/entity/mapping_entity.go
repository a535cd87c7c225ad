package entity

import (
	"time"

	"ledger-shopify-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoMappingDoc represents a product identity mapping in MongoDB
type MongoMappingDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	StoreID         string             `bson:"storeId"`
	SKU             string             `bson:"sku"`
	InventoryItemID int64              `bson:"inventoryItemId"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoMappingDoc) ToDomain() *domain.ProductMapping {
	return &domain.ProductMapping{
		ID:              d.ID.Hex(),
		StoreID:         d.StoreID,
		SKU:             d.SKU,
		InventoryItemID: d.InventoryItemID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// MongoMappingDocFromDomain converts a domain entity to a MongoDB document
func MongoMappingDocFromDomain(m *domain.ProductMapping) *MongoMappingDoc {
	doc := &MongoMappingDoc{
		StoreID:         m.StoreID,
		SKU:             m.SKU,
		InventoryItemID: m.InventoryItemID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	if m.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(m.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
