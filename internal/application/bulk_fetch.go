package application

import (
	"context"
	"fmt"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultPageSize is the storefront collection page size used when none is
// configured.
const DefaultPageSize = 100

// BulkFetchScheduler is the periodic reconciliation path. Per store and
// entity class it pages through the storefront collection from a persisted
// cursor or low-water-mark and feeds every item through the same
// synchronizers the webhook path uses. At most one run per store at a time;
// the store's exclusion flag is acquire-or-abort.
type BulkFetchScheduler struct {
	stores     ports.StoreRepository
	logs       ports.SyncLogRepository
	storefront ports.StorefrontClient
	catalog    *CatalogSynchronizer
	customers  *CustomerSynchronizer
	orders     *OrderSynchronizer
	feed       ports.EventPublisher
	pageSize   int
	logger     zerolog.Logger
}

// NewBulkFetchScheduler creates a new bulk fetch scheduler. feed may be nil.
func NewBulkFetchScheduler(
	stores ports.StoreRepository,
	logs ports.SyncLogRepository,
	storefront ports.StorefrontClient,
	catalog *CatalogSynchronizer,
	customers *CustomerSynchronizer,
	orders *OrderSynchronizer,
	feed ports.EventPublisher,
	pageSize int,
	logger zerolog.Logger,
) *BulkFetchScheduler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &BulkFetchScheduler{
		stores:     stores,
		logs:       logs,
		storefront: storefront,
		catalog:    catalog,
		customers:  customers,
		orders:     orders,
		feed:       feed,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// RunAll runs one reconciliation pass over every active store
func (s *BulkFetchScheduler) RunAll(ctx context.Context) {
	stores, err := s.stores.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list stores for bulk fetch")
		return
	}

	for _, store := range stores {
		if err := s.RunStore(ctx, store); err != nil {
			s.logger.Error().
				Err(err).
				Str("storeId", store.ID).
				Msg("Bulk fetch run failed")
		}
	}
}

// RunStore runs one pass over every entity class of one store. Exits
// immediately without retry when another run holds the store.
func (s *BulkFetchScheduler) RunStore(ctx context.Context, store *domain.Store) error {
	acquired, err := s.stores.AcquireSyncLock(ctx, store.ID)
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		s.logger.Info().
			Str("storeId", store.ID).
			Msg("Bulk fetch already running for store, skipping")
		return nil
	}
	defer func() {
		if err := s.stores.ReleaseSyncLock(context.WithoutCancel(ctx), store.ID); err != nil {
			s.logger.Error().Err(err).Str("storeId", store.ID).Msg("Failed to release sync lock")
		}
	}()

	for _, class := range domain.EntityClasses {
		if err := s.runClass(ctx, store, class); err != nil {
			// A failed class keeps its cursor; the remaining classes still run.
			s.logger.Error().
				Err(err).
				Str("storeId", store.ID).
				Str("type", string(class)).
				Msg("Bulk fetch segment failed")
		}
	}
	return nil
}

// runClass pages through one entity class, committing progress per item and
// persisting the cursor after every page
func (s *BulkFetchScheduler) runClass(ctx context.Context, store *domain.Store, class domain.EntityClass) error {
	runStart := time.Now().UTC()
	checkpoint := store.Checkpoint(class)

	runLog := &domain.SyncLog{
		StoreID:   store.ID,
		Type:      class,
		Status:    domain.SyncInProgress,
		StartedAt: runStart,
	}
	if err := s.logs.Create(ctx, runLog); err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}

	page := ports.PageRequest{
		Cursor:       checkpoint.Cursor,
		UpdatedAfter: checkpoint.LastFetchAt,
		Limit:        s.pageSize,
	}

	for {
		fetched, skippedCount, next, err := s.processPage(ctx, store, class, page)
		runLog.Fetched += fetched
		runLog.Skipped += skippedCount

		if err != nil {
			// Transport failure ends the pagination loop but keeps the
			// cursor already advanced from prior pages.
			runLog.Status = domain.SyncFailed
			runLog.Error = err.Error()
			s.finishSegment(ctx, store, class, runLog, runStart)
			return err
		}

		checkpoint.Cursor = next
		if err := s.stores.SaveCheckpoint(ctx, store.ID, class, checkpoint); err != nil {
			runLog.Status = domain.SyncFailed
			runLog.Error = err.Error()
			s.finishSegment(ctx, store, class, runLog, runStart)
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		if err := s.logs.Update(ctx, runLog); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to update sync log")
		}

		if next == "" {
			break
		}
		page.Cursor = next
	}

	checkpoint.Cursor = ""
	checkpoint.LastFetchAt = runStart
	checkpoint.FullSyncDone = true
	if err := s.stores.SaveCheckpoint(ctx, store.ID, class, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if store.Checkpoints == nil {
		store.Checkpoints = make(map[domain.EntityClass]domain.Checkpoint)
	}
	store.Checkpoints[class] = checkpoint

	runLog.Status = domain.SyncCompleted
	s.finishSegment(ctx, store, class, runLog, runStart)

	s.logger.Info().
		Str("storeId", store.ID).
		Str("type", string(class)).
		Int("fetched", runLog.Fetched).
		Int("skipped", runLog.Skipped).
		Msg("Bulk fetch segment completed")
	return nil
}

// processPage fetches and processes one page. Per-item failures are contained
// and counted as skipped; only page-level transport failure is an error.
func (s *BulkFetchScheduler) processPage(ctx context.Context, store *domain.Store, class domain.EntityClass, page ports.PageRequest) (fetched, skippedCount int, next string, err error) {
	switch class {
	case domain.EntityProducts:
		result, err := s.storefront.Products(ctx, store, page)
		if err != nil {
			return 0, 0, "", err
		}
		for _, item := range result.Items {
			s.countOutcome(&fetched, &skippedCount, func() (*domain.SyncResult, error) {
				return s.catalog.ImportProduct(ctx, store, item)
			})
		}
		return fetched, skippedCount, result.NextCursor, nil

	case domain.EntityCustomers:
		result, err := s.storefront.Customers(ctx, store, page)
		if err != nil {
			return 0, 0, "", err
		}
		for _, item := range result.Items {
			item := item
			s.countOutcome(&fetched, &skippedCount, func() (*domain.SyncResult, error) {
				if _, err := s.customers.ResolveOrCreate(ctx, &item); err != nil {
					return nil, err
				}
				return &domain.SyncResult{Status: "success"}, nil
			})
		}
		return fetched, skippedCount, result.NextCursor, nil

	case domain.EntityOrders:
		result, err := s.storefront.Orders(ctx, store, page)
		if err != nil {
			return 0, 0, "", err
		}
		for _, item := range result.Items {
			item := item
			s.countOutcome(&fetched, &skippedCount, func() (*domain.SyncResult, error) {
				// The bulk path wants whole orders: an order with any
				// unresolvable line SKU counts as skipped rather than
				// syncing partially.
				resolvable, err := s.orders.AllLinesResolvable(ctx, item)
				if err != nil {
					return nil, err
				}
				if !resolvable {
					return skipped(fmt.Sprintf("order %d has unresolvable line SKUs", item.ID)), nil
				}
				return s.orders.ImportOrder(ctx, store, item)
			})
		}
		return fetched, skippedCount, result.NextCursor, nil
	}

	return 0, 0, "", fmt.Errorf("unknown entity class %q", class)
}

func (s *BulkFetchScheduler) countOutcome(fetched, skippedCount *int, fn func() (*domain.SyncResult, error)) {
	result, err := fn()
	if err != nil {
		s.logger.Error().Err(err).Msg("Bulk item failed")
		*skippedCount++
		return
	}
	if result.Status == "success" {
		*fetched++
	} else {
		*skippedCount++
	}
}

// finishSegment persists the final log state and publishes the segment to
// the sync feed
func (s *BulkFetchScheduler) finishSegment(ctx context.Context, store *domain.Store, class domain.EntityClass, runLog *domain.SyncLog, runStart time.Time) {
	if err := s.logs.Update(ctx, runLog); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to update sync log")
	}
	if s.feed != nil {
		s.feed.Publish(&domain.SyncEvent{
			StoreID: store.ID,
			Topic:   "bulk/" + string(class),
			Status:  string(runLog.Status),
			Message: fmt.Sprintf("fetched %d, skipped %d in %s", runLog.Fetched, runLog.Skipped, time.Since(runStart).Round(time.Millisecond)),
			At:      time.Now().UTC(),
		})
	}
}
