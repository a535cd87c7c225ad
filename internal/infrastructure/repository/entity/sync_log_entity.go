package entity

import (
	"time"

	"ledger-shopify-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoSyncLogDoc represents a bulk-fetch audit record in MongoDB
type MongoSyncLogDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	StoreID   string             `bson:"storeId"`
	Type      string             `bson:"type"`
	Status    string             `bson:"status"`
	Fetched   int                `bson:"fetched"`
	Skipped   int                `bson:"skipped"`
	Remaining int                `bson:"remaining"`
	Error     string             `bson:"error,omitempty"`
	StartedAt time.Time          `bson:"startedAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSyncLogDoc) ToDomain() *domain.SyncLog {
	return &domain.SyncLog{
		ID:        d.ID.Hex(),
		StoreID:   d.StoreID,
		Type:      domain.EntityClass(d.Type),
		Status:    domain.SyncStatus(d.Status),
		Fetched:   d.Fetched,
		Skipped:   d.Skipped,
		Remaining: d.Remaining,
		Error:     d.Error,
		StartedAt: d.StartedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoSyncLogDocFromDomain converts a domain entity to a MongoDB document
func MongoSyncLogDocFromDomain(log *domain.SyncLog) *MongoSyncLogDoc {
	doc := &MongoSyncLogDoc{
		StoreID:   log.StoreID,
		Type:      string(log.Type),
		Status:    string(log.Status),
		Fetched:   log.Fetched,
		Skipped:   log.Skipped,
		Remaining: log.Remaining,
		Error:     log.Error,
		StartedAt: log.StartedAt,
		UpdatedAt: log.UpdatedAt,
	}

	if log.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(log.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
