package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ledger-shopify-sync/internal/application"
	"ledger-shopify-sync/internal/application/webhook_handlers"
	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/infrastructure/cache"
	"ledger-shopify-sync/internal/infrastructure/ledger"
	"ledger-shopify-sync/internal/infrastructure/metrics"
	"ledger-shopify-sync/internal/infrastructure/pubsub"
	"ledger-shopify-sync/internal/infrastructure/repository"
	"ledger-shopify-sync/internal/infrastructure/retry"
	"ledger-shopify-sync/internal/infrastructure/shopify"
	"ledger-shopify-sync/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found, using environment variables")
	}

	mongoURI := getEnv("MONGODB_URI", "mongodb://localhost:27017")
	mongoDatabase := getEnv("MONGODB_DATABASE", "ledger_shopify_sync")
	redisAddr := os.Getenv("REDIS_ADDR")
	appURL := getEnv("APP_URL", "http://localhost:8080")
	port := getEnv("PORT", "8080")
	pageSize := getEnvInt("PAGE_SIZE", application.DefaultPageSize)
	syncInterval := getEnvDuration("SYNC_INTERVAL", 15*time.Minute)
	clearingJournal := getEnv("CLEARING_JOURNAL", "true") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()
	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping MongoDB")
	}
	db := mongoClient.Database(mongoDatabase)

	storeRepo := repository.NewMongoStoreRepository(db)
	mappingRepo := repository.NewMongoMappingRepository(db)
	syncLogRepo := repository.NewMongoSyncLogRepository(db)
	if err := mappingRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure mapping indexes")
	}

	ledgerCatalog := ledger.NewMongoCatalog(db, logger)
	ledgerStock := ledger.NewMongoStock(db, logger)
	ledgerCustomers := ledger.NewMongoCustomers(db, logger)
	ledgerOrders := ledger.NewMongoOrders(db, logger)
	ledgerAccounting := ledger.NewMongoAccounting(db, clearingJournal, logger)
	ledgerFulfillment := ledger.NewMongoFulfillment(db, ledgerStock, logger)
	if err := ledgerStock.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure stock indexes")
	}
	if err := ledgerOrders.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure order indexes")
	}

	var mappingCache ports.MappingCache
	if redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, mapping cache disabled")
		} else {
			mappingCache = cache.NewRedisMappingCache(redisClient, 24*time.Hour, logger)
		}
	}

	rateLimiter := shopify.NewRateLimiter(500*time.Millisecond, logger)
	storefront := shopify.NewClient(rateLimiter, retry.DefaultConfig(), logger)
	verifier := shopify.NewWebhookVerifier()

	feed := pubsub.NewSyncPubSub(logger)

	mapper := application.NewIdentityMapper(mappingRepo, mappingCache, storefront, logger)
	reconciler := application.NewInventoryReconciler(mapper, ledgerCatalog, ledgerStock, storefront, storeRepo, logger)
	catalogSync := application.NewCatalogSynchronizer(ledgerCatalog, mapper, reconciler, storefront, logger)
	customerSync := application.NewCustomerSynchronizer(ledgerCustomers, logger)
	orderSync := application.NewOrderSynchronizer(ledgerOrders, ledgerAccounting, ledgerFulfillment, ledgerStock, ledgerCatalog, customerSync, logger)

	dispatcher := application.NewWebhookDispatcher(storeRepo, feed, logger)
	dispatcher.RegisterHandler(webhook_handlers.NewInventoryHandler(reconciler, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewProductHandler(catalogSync, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(orderSync, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(customerSync, logger))

	webhookManager := application.NewWebhookManager(storefront, storeRepo, appURL+"/webhooks/shopify", logger)
	scheduler := application.NewBulkFetchScheduler(storeRepo, syncLogRepo, storefront, catalogSync, customerSync, orderSync, feed, pageSize, logger)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	go func() {
		if err := webhookManager.EnsureAll(rootCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to ensure webhook subscriptions")
		}
	}()
	go runScheduler(rootCtx, scheduler, syncInterval, logger)
	go observeSyncFeed(rootCtx, feed, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/webhooks/shopify", handleWebhook(dispatcher, storeRepo, verifier, logger))
	r.Post("/internal/stock-changes", handleStockChange(reconciler, logger))
	r.Get("/stores/{storeID}/sync-logs", handleSyncLogs(syncLogRepo, logger))

	logger.Info().Str("port", port).Msg("Starting sync server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// runScheduler runs one bulk-fetch pass at startup, then one per interval
func runScheduler(ctx context.Context, scheduler *application.BulkFetchScheduler, interval time.Duration, logger zerolog.Logger) {
	logger.Info().Dur("interval", interval).Msg("Bulk fetch scheduler started")
	scheduler.RunAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scheduler.RunAll(ctx)
		}
	}
}

// observeSyncFeed mirrors bulk-fetch feed events into the run counter
func observeSyncFeed(ctx context.Context, feed *pubsub.SyncPubSub, logger zerolog.Logger) {
	sub := feed.Subscribe(ctx, nil)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if class, found := strings.CutPrefix(event.Topic, "bulk/"); found {
				metrics.SyncRuns.WithLabelValues(event.StoreID, class, event.Status).Inc()
			}
			logger.Debug().
				Str("topic", event.Topic).
				Str("storeId", event.StoreID).
				Str("status", event.Status).
				Msg("Sync feed event")
		}
	}
}

func handleWebhook(
	dispatcher *application.WebhookDispatcher,
	stores ports.StoreRepository,
	verifier *shopify.WebhookVerifier,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.Header.Get("X-Shopify-Topic")
		shopDomain := r.Header.Get("X-Shopify-Shop-Domain")
		signature := r.Header.Get("X-Shopify-Hmac-SHA256")
		reason := r.Header.Get("X-Shopify-Reason")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		event := &domain.WebhookEvent{
			Topic:   topic,
			Shop:    shopDomain,
			Reason:  reason,
			Payload: body,
		}

		// Signature check needs the store's secret; an unknown domain still
		// goes through the dispatcher so the caller gets a structured status.
		store, err := stores.FindByDomain(r.Context(), shopDomain)
		if err != nil {
			logger.Error().Err(err).Str("shop", shopDomain).Msg("Store lookup failed")
			http.Error(w, "store lookup failed", http.StatusInternalServerError)
			return
		}
		if store != nil && store.WebhookSecret != "" {
			if !verifier.Verify(body, signature, store.WebhookSecret) {
				logger.Warn().
					Str("shop", shopDomain).
					Str("topic", topic).
					Msg("Webhook signature verification failed")
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}
			event.Verified = true
		}

		result := dispatcher.Dispatch(r.Context(), event)
		metrics.WebhookEvents.WithLabelValues(topic, result.Status).Inc()

		writeJSON(w, http.StatusOK, result)
	}
}

func handleStockChange(reconciler *application.InventoryReconciler, logger zerolog.Logger) http.HandlerFunc {
	type request struct {
		SKU       string `json:"sku"`
		Available int    `json:"available"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.SKU == "" {
			http.Error(w, "sku is required", http.StatusBadRequest)
			return
		}

		result, err := reconciler.PropagateInternalChange(r.Context(), req.SKU, req.Available)
		if err != nil {
			logger.Error().Err(err).Str("sku", req.SKU).Msg("Failed to propagate stock change")
			http.Error(w, "failed to propagate stock change", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleSyncLogs(logs ports.SyncLogRepository, logger zerolog.Logger) http.HandlerFunc {
	type entry struct {
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		Status    string    `json:"status"`
		Fetched   int       `json:"fetched"`
		Skipped   int       `json:"skipped"`
		Remaining int       `json:"remaining"`
		Error     string    `json:"error,omitempty"`
		StartedAt time.Time `json:"started_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "storeID")
		records, err := logs.ListByStore(r.Context(), storeID)
		if err != nil {
			logger.Error().Err(err).Str("storeId", storeID).Msg("Failed to list sync logs")
			http.Error(w, "failed to list sync logs", http.StatusInternalServerError)
			return
		}

		entries := make([]entry, 0, len(records))
		for _, record := range records {
			entries = append(entries, entry{
				ID:        record.ID,
				Type:      string(record.Type),
				Status:    string(record.Status),
				Fetched:   record.Fetched,
				Skipped:   record.Skipped,
				Remaining: record.Remaining,
				Error:     record.Error,
				StartedAt: record.StartedAt,
				UpdatedAt: record.UpdatedAt,
			})
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
