package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/infrastructure/metrics"
	"ledger-shopify-sync/internal/infrastructure/retry"
	"ledger-shopify-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const apiVersion = "2024-10"

type client struct {
	rateLimiter *RateLimiter
	retryConfig retry.Config
	httpClient  *http.Client
	logger      zerolog.Logger

	mu      sync.Mutex
	clients map[string]*goshopify.Client
}

// NewClient creates the storefront client adapter. One underlying API client
// is kept per store and reused across calls.
func NewClient(rateLimiter *RateLimiter, retryConfig retry.Config, logger zerolog.Logger) ports.StorefrontClient {
	return &client{
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		clients:     make(map[string]*goshopify.Client),
	}
}

// clientFor returns the cached API client for a store, creating it on first
// use
func (c *client) clientFor(store *domain.Store) (*goshopify.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[store.ID]; ok {
		return cl, nil
	}
	app := goshopify.App{ApiKey: store.APIKey}
	cl, err := goshopify.NewClient(app, store.Domain, store.APIToken, goshopify.WithVersion(apiVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	c.clients[store.ID] = cl
	return cl, nil
}

// call paces the request through the per-store rate limiter and retries
// transient failures
func (c *client) call(ctx context.Context, store *domain.Store, op string, fn func() error) error {
	return retry.Do(ctx, c.logger, c.retryConfig, op, func() error {
		if err := c.rateLimiter.Wait(ctx, store.Domain); err != nil {
			return err
		}
		if err := fn(); err != nil {
			return classify(err)
		}
		return nil
	})
}

// classify marks rate-limit responses and server errors as transient so the
// retry loop picks them up
func classify(err error) error {
	var rateLimitErr goshopify.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return retry.MarkTransient(err)
	}
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) && respErr.Status >= http.StatusInternalServerError {
		return retry.MarkTransient(err)
	}
	return err
}

// Collection fetches

func (c *client) Products(ctx context.Context, store *domain.Store, page ports.PageRequest) (*ports.ProductPage, error) {
	cl, err := c.clientFor(store)
	if err != nil {
		return nil, err
	}

	opts := goshopify.ListOptions{Limit: page.Limit}
	if page.Cursor != "" {
		opts.PageInfo = page.Cursor
	} else if !page.UpdatedAfter.IsZero() {
		opts.UpdatedAtMin = page.UpdatedAfter
	}

	var (
		products   []goshopify.Product
		pagination *goshopify.Pagination
	)
	err = c.call(ctx, store, "list products", func() error {
		var callErr error
		products, pagination, callErr = cl.Product.ListWithPagination(ctx, opts)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	result := &ports.ProductPage{Items: make([]domain.ProductPayload, 0, len(products))}
	for _, p := range products {
		result.Items = append(result.Items, productToPayload(p))
	}
	if pagination != nil && pagination.NextPageOptions != nil {
		result.NextCursor = pagination.NextPageOptions.PageInfo
	}
	return result, nil
}

func (c *client) Orders(ctx context.Context, store *domain.Store, page ports.PageRequest) (*ports.OrderPage, error) {
	cl, err := c.clientFor(store)
	if err != nil {
		return nil, err
	}

	// Closed and cancelled orders are fetched too; the order synchronizer
	// decides what each status means locally.
	opts := struct {
		goshopify.ListOptions
		Status string `url:"status,omitempty"`
	}{Status: "any"}
	opts.Limit = page.Limit
	if page.Cursor != "" {
		opts.PageInfo = page.Cursor
	} else if !page.UpdatedAfter.IsZero() {
		opts.UpdatedAtMin = page.UpdatedAfter
	}

	var (
		orders     []goshopify.Order
		pagination *goshopify.Pagination
	)
	err = c.call(ctx, store, "list orders", func() error {
		var callErr error
		orders, pagination, callErr = cl.Order.ListWithPagination(ctx, opts)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	result := &ports.OrderPage{Items: make([]domain.OrderPayload, 0, len(orders))}
	for _, o := range orders {
		result.Items = append(result.Items, orderToPayload(o))
	}
	if pagination != nil && pagination.NextPageOptions != nil {
		result.NextCursor = pagination.NextPageOptions.PageInfo
	}
	return result, nil
}

func (c *client) Customers(ctx context.Context, store *domain.Store, page ports.PageRequest) (*ports.CustomerPage, error) {
	cl, err := c.clientFor(store)
	if err != nil {
		return nil, err
	}

	opts := goshopify.ListOptions{Limit: page.Limit}
	if page.Cursor != "" {
		opts.PageInfo = page.Cursor
	} else if !page.UpdatedAfter.IsZero() {
		opts.UpdatedAtMin = page.UpdatedAfter
	}

	var (
		customers  []goshopify.Customer
		pagination *goshopify.Pagination
	)
	err = c.call(ctx, store, "list customers", func() error {
		var callErr error
		customers, pagination, callErr = cl.Customer.ListWithPagination(ctx, opts)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	result := &ports.CustomerPage{Items: make([]domain.CustomerPayload, 0, len(customers))}
	for _, cust := range customers {
		result.Items = append(result.Items, customerToPayload(cust))
	}
	if pagination != nil && pagination.NextPageOptions != nil {
		result.NextCursor = pagination.NextPageOptions.PageInfo
	}
	return result, nil
}

// Inventory API
//
// Inventory writes go through a direct HTTP call instead of the library
// because the loop-suppression marker rides in a request header the library
// does not expose.

func (c *client) InventoryItem(ctx context.Context, store *domain.Store, inventoryItemID int64) (*ports.InventoryItem, error) {
	var payload struct {
		InventoryItem *struct {
			ID      int64  `json:"id"`
			SKU     string `json:"sku"`
			Tracked bool   `json:"tracked"`
		} `json:"inventory_item"`
	}
	var status int
	err := c.call(ctx, store, "get inventory item", func() error {
		var callErr error
		status, callErr = c.doJSON(ctx, store, http.MethodGet,
			fmt.Sprintf("inventory_items/%d.json", inventoryItemID), nil, nil, &payload)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	if status == http.StatusNotFound || payload.InventoryItem == nil {
		return nil, nil
	}
	return &ports.InventoryItem{
		ID:      payload.InventoryItem.ID,
		SKU:     payload.InventoryItem.SKU,
		Tracked: payload.InventoryItem.Tracked,
	}, nil
}

func (c *client) FindInventoryItemID(ctx context.Context, store *domain.Store, sku string) (int64, error) {
	page := ports.PageRequest{Limit: 250}
	for {
		result, err := c.Products(ctx, store, page)
		if err != nil {
			return 0, err
		}
		for _, p := range result.Items {
			for _, v := range p.Variants {
				if v.SKU == sku {
					return v.InventoryItemID, nil
				}
			}
		}
		if result.NextCursor == "" {
			return 0, nil
		}
		page.Cursor = result.NextCursor
	}
}

func (c *client) SetInventoryLevel(ctx context.Context, store *domain.Store, push ports.InventoryPush) error {
	headers := map[string]string{}
	if push.SuppressEcho {
		headers["X-Shopify-Reason"] = domain.ReasonSyncUpdate
	}
	body := map[string]any{
		"location_id":       push.LocationID,
		"inventory_item_id": push.InventoryItemID,
		"available":         push.Available,
	}

	err := c.call(ctx, store, "set inventory level", func() error {
		status, callErr := c.doJSON(ctx, store, http.MethodPost, "inventory_levels/set.json", headers, body, nil)
		if callErr != nil {
			return callErr
		}
		if status == http.StatusNotFound {
			return fmt.Errorf("inventory item %d not stocked at location %d", push.InventoryItemID, push.LocationID)
		}
		return nil
	})
	if err != nil {
		metrics.InventoryPushes.WithLabelValues(store.Domain, "error").Inc()
		return fmt.Errorf("failed to set inventory level: %w", err)
	}
	metrics.InventoryPushes.WithLabelValues(store.Domain, "success").Inc()

	c.logger.Debug().
		Str("shop", store.Domain).
		Int64("inventory_item_id", push.InventoryItemID).
		Int("available", push.Available).
		Bool("suppress_echo", push.SuppressEcho).
		Msg("Inventory level pushed")
	return nil
}

func (c *client) PrimaryLocationID(ctx context.Context, store *domain.Store) (int64, error) {
	cl, err := c.clientFor(store)
	if err != nil {
		return 0, err
	}

	var locations []goshopify.Location
	err = c.call(ctx, store, "list locations", func() error {
		var callErr error
		locations, callErr = cl.Location.List(ctx, nil)
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list locations: %w", err)
	}
	if len(locations) == 0 {
		return 0, fmt.Errorf("store %s has no locations", store.Domain)
	}
	return int64(locations[0].Id), nil
}

func (c *client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}

// Webhook API

func (c *client) ListWebhooks(ctx context.Context, store *domain.Store) ([]ports.RegisteredWebhook, error) {
	cl, err := c.clientFor(store)
	if err != nil {
		return nil, err
	}

	var webhooks []goshopify.Webhook
	err = c.call(ctx, store, "list webhooks", func() error {
		var callErr error
		webhooks, callErr = cl.Webhook.List(ctx, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	result := make([]ports.RegisteredWebhook, 0, len(webhooks))
	for _, w := range webhooks {
		result = append(result, ports.RegisteredWebhook{
			ID:      int64(w.Id),
			Topic:   w.Topic,
			Address: w.Address,
		})
	}
	return result, nil
}

func (c *client) RegisterWebhook(ctx context.Context, store *domain.Store, topic, address string) error {
	cl, err := c.clientFor(store)
	if err != nil {
		return err
	}

	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	err = c.call(ctx, store, "create webhook", func() error {
		_, callErr := cl.Webhook.Create(ctx, webhook)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	c.logger.Info().
		Str("shop", store.Domain).
		Str("topic", topic).
		Str("address", address).
		Msg("Webhook registered")
	return nil
}

func (c *client) RemoveWebhook(ctx context.Context, store *domain.Store, webhookID int64) error {
	cl, err := c.clientFor(store)
	if err != nil {
		return err
	}

	err = c.call(ctx, store, "delete webhook", func() error {
		return cl.Webhook.Delete(ctx, uint64(webhookID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

// doJSON performs a direct admin API request. 404 is reported through the
// status return, not as an error; 429 and 5xx come back marked transient.
func (c *client) doJSON(ctx context.Context, store *domain.Store, method, path string, headers map[string]string, body any, out any) (int, error) {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/%s", store.Domain, apiVersion, path)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", store.APIToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, retry.MarkTransient(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, retry.MarkTransient(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return resp.StatusCode, retry.MarkTransient(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	case resp.StatusCode >= http.StatusBadRequest:
		return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Payload conversions

func productToPayload(p goshopify.Product) domain.ProductPayload {
	payload := domain.ProductPayload{
		ID:    int64(p.Id),
		Title: p.Title,
	}
	if p.UpdatedAt != nil {
		payload.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for _, o := range p.Options {
		payload.Options = append(payload.Options, domain.OptionPayload{
			ID:     int64(o.Id),
			Name:   o.Name,
			Values: o.Values,
		})
	}
	for _, v := range p.Variants {
		variant := domain.VariantPayload{
			ID:                int64(v.Id),
			ProductID:         int64(p.Id),
			SKU:               v.Sku,
			InventoryItemID:   int64(v.InventoryItemId),
			InventoryQuantity: v.InventoryQuantity,
			Option1:           v.Option1,
			Option2:           v.Option2,
			Option3:           v.Option3,
		}
		if v.Price != nil {
			variant.Price = *v.Price
		}
		payload.Variants = append(payload.Variants, variant)
	}
	if p.Image.Src != "" {
		payload.Image = &domain.ImagePayload{Src: p.Image.Src}
	}
	return payload
}

func orderToPayload(o goshopify.Order) domain.OrderPayload {
	payload := domain.OrderPayload{
		ID:                int64(o.Id),
		Name:              o.Name,
		Email:             o.Email,
		FinancialStatus:   string(o.FinancialStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
	}
	if o.CreatedAt != nil {
		payload.CreatedAt = o.CreatedAt.UTC().Format(time.RFC3339)
	}
	if o.Customer != nil {
		customer := customerToPayload(*o.Customer)
		payload.Customer = &customer
	}
	for _, li := range o.LineItems {
		line := domain.LineItemPayload{
			ID:        int64(li.Id),
			SKU:       li.SKU,
			Name:      li.Name,
			ProductID: int64(li.ProductId),
			VariantID: int64(li.VariantId),
			Quantity:  float64(li.Quantity),
		}
		if li.Price != nil {
			line.Price = *li.Price
		}
		payload.LineItems = append(payload.LineItems, line)
	}
	return payload
}

func customerToPayload(cust goshopify.Customer) domain.CustomerPayload {
	payload := domain.CustomerPayload{
		ID:        int64(cust.Id),
		Email:     cust.Email,
		FirstName: cust.FirstName,
		LastName:  cust.LastName,
		Phone:     cust.Phone,
	}
	if cust.DefaultAddress != nil {
		payload.DefaultAddress = &domain.AddressPayload{
			Address1:     cust.DefaultAddress.Address1,
			Address2:     cust.DefaultAddress.Address2,
			City:         cust.DefaultAddress.City,
			Zip:          cust.DefaultAddress.Zip,
			Province:     cust.DefaultAddress.Province,
			ProvinceCode: cust.DefaultAddress.ProvinceCode,
			Country:      cust.DefaultAddress.Country,
			CountryCode:  cust.DefaultAddress.CountryCode,
		}
	}
	return payload
}
