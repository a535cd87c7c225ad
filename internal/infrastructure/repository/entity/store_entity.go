package entity

import (
	"time"

	"ledger-shopify-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoCheckpointDoc represents one entity class's bulk-fetch checkpoint in MongoDB
type MongoCheckpointDoc struct {
	Cursor       string    `bson:"cursor,omitempty"`
	LastFetchAt  time.Time `bson:"lastFetchAt,omitempty"`
	FullSyncDone bool      `bson:"fullSyncDone"`
}

// MongoStoreDoc represents a storefront account in MongoDB
type MongoStoreDoc struct {
	ID              primitive.ObjectID            `bson:"_id,omitempty"`
	Name            string                        `bson:"name"`
	Domain          string                        `bson:"domain"`
	APIKey          string                        `bson:"apiKey"`
	APIToken        string                        `bson:"apiToken"`
	WebhookSecret   string                        `bson:"webhookSecret"`
	LocationID      int64                         `bson:"locationId,omitempty"`
	WarehouseID     string                        `bson:"warehouseId,omitempty"`
	StockLocationID string                        `bson:"stockLocationId,omitempty"`
	Checkpoints     map[string]MongoCheckpointDoc `bson:"checkpoints,omitempty"`
	SyncLocked      bool                          `bson:"syncLocked"`
	Active          bool                          `bson:"active"`
	CreatedAt       time.Time                     `bson:"createdAt"`
	UpdatedAt       time.Time                     `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoStoreDoc) ToDomain() *domain.Store {
	store := &domain.Store{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Domain:          d.Domain,
		APIKey:          d.APIKey,
		APIToken:        d.APIToken,
		WebhookSecret:   d.WebhookSecret,
		LocationID:      d.LocationID,
		WarehouseID:     d.WarehouseID,
		StockLocationID: d.StockLocationID,
		SyncLocked:      d.SyncLocked,
		Active:          d.Active,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if len(d.Checkpoints) > 0 {
		store.Checkpoints = make(map[domain.EntityClass]domain.Checkpoint, len(d.Checkpoints))
		for class, cp := range d.Checkpoints {
			store.Checkpoints[domain.EntityClass(class)] = domain.Checkpoint{
				Cursor:       cp.Cursor,
				LastFetchAt:  cp.LastFetchAt,
				FullSyncDone: cp.FullSyncDone,
			}
		}
	}
	return store
}

// MongoStoreDocFromDomain converts a domain entity to a MongoDB document
func MongoStoreDocFromDomain(store *domain.Store) *MongoStoreDoc {
	doc := &MongoStoreDoc{
		Name:            store.Name,
		Domain:          store.Domain,
		APIKey:          store.APIKey,
		APIToken:        store.APIToken,
		WebhookSecret:   store.WebhookSecret,
		LocationID:      store.LocationID,
		WarehouseID:     store.WarehouseID,
		StockLocationID: store.StockLocationID,
		SyncLocked:      store.SyncLocked,
		Active:          store.Active,
		CreatedAt:       store.CreatedAt,
		UpdatedAt:       store.UpdatedAt,
	}

	if len(store.Checkpoints) > 0 {
		doc.Checkpoints = make(map[string]MongoCheckpointDoc, len(store.Checkpoints))
		for class, cp := range store.Checkpoints {
			doc.Checkpoints[string(class)] = MongoCheckpointDocFromDomain(cp)
		}
	}

	if store.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(store.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// MongoCheckpointDocFromDomain converts a checkpoint to its MongoDB document
func MongoCheckpointDocFromDomain(cp domain.Checkpoint) MongoCheckpointDoc {
	return MongoCheckpointDoc{
		Cursor:       cp.Cursor,
		LastFetchAt:  cp.LastFetchAt,
		FullSyncDone: cp.FullSyncDone,
	}
}
