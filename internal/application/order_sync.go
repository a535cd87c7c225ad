package application

import (
	"context"
	"fmt"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// OrderSynchronizer creates local sales orders from storefront order payloads
// and drives their state machine (confirm, invoice, fulfill, cancel) from the
// storefront's financial and fulfillment status vocabulary. Header and lines
// are written once; re-deliveries only apply new transitions.
type OrderSynchronizer struct {
	orders      ports.LedgerOrders
	accounting  ports.LedgerAccounting
	fulfillment ports.LedgerFulfillment
	stock       ports.LedgerStock
	catalog     ports.LedgerCatalog
	customers   *CustomerSynchronizer
	logger      zerolog.Logger
}

// NewOrderSynchronizer creates a new order synchronizer
func NewOrderSynchronizer(
	orders ports.LedgerOrders,
	accounting ports.LedgerAccounting,
	fulfillment ports.LedgerFulfillment,
	stock ports.LedgerStock,
	catalog ports.LedgerCatalog,
	customers *CustomerSynchronizer,
	logger zerolog.Logger,
) *OrderSynchronizer {
	return &OrderSynchronizer{
		orders:      orders,
		accounting:  accounting,
		fulfillment: fulfillment,
		stock:       stock,
		catalog:     catalog,
		customers:   customers,
		logger:      logger,
	}
}

// ImportOrder processes one inbound order payload: creates the order on first
// delivery, then applies status-driven transitions
func (s *OrderSynchronizer) ImportOrder(ctx context.Context, store *domain.Store, payload domain.OrderPayload) (*domain.SyncResult, error) {
	order, err := s.orders.ByExternalID(ctx, payload.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	created := false
	if order == nil {
		order, err = s.createOrder(ctx, store, payload)
		if err != nil {
			return nil, err
		}
		created = true
	}

	if order.State == domain.OrderCancelled {
		return skipped("order already cancelled"), nil
	}

	if err := s.applyTransitions(ctx, order, payload); err != nil {
		return nil, err
	}

	action := "updated"
	if created {
		action = "created"
	}
	s.logger.Info().
		Str("storeId", store.ID).
		Int64("externalOrderId", payload.ID).
		Str("orderId", order.ID).
		Str("state", string(order.State)).
		Msg("Order " + action)
	return &domain.SyncResult{
		Status:  "success",
		Message: fmt.Sprintf("order %s, state %s", action, order.State),
	}, nil
}

// Cancel handles an explicit cancellation event: unconditionally cancel
// unless already cancelled
func (s *OrderSynchronizer) Cancel(ctx context.Context, externalOrderID int64) (*domain.SyncResult, error) {
	order, err := s.orders.ByExternalID(ctx, externalOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}
	if order == nil {
		return skipped(fmt.Sprintf("no local order for external id %d", externalOrderID)), nil
	}
	if order.State == domain.OrderCancelled {
		return skipped("order already cancelled"), nil
	}

	if err := s.orders.Cancel(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	s.logger.Info().
		Int64("externalOrderId", externalOrderID).
		Str("orderId", order.ID).
		Msg("Order cancelled")
	return &domain.SyncResult{Status: "success", Message: "order cancelled"}, nil
}

// AllLinesResolvable reports whether every line SKU maps to a catalog
// variant. The bulk path counts orders failing this as skipped instead of
// syncing them partially.
func (s *OrderSynchronizer) AllLinesResolvable(ctx context.Context, payload domain.OrderPayload) (bool, error) {
	for _, line := range collapseLines(payload.LineItems) {
		variant, err := s.catalog.VariantBySKU(ctx, lineSKU(line))
		if err != nil {
			return false, fmt.Errorf("failed to look up variant: %w", err)
		}
		if variant == nil {
			return false, nil
		}
	}
	return true, nil
}

// createOrder builds and persists the order header and lines
func (s *OrderSynchronizer) createOrder(ctx context.Context, store *domain.Store, payload domain.OrderPayload) (*domain.Order, error) {
	customer, err := s.customers.ResolveOrCreate(ctx, payload.Customer)
	if err != nil {
		return nil, err
	}

	orderedAt, err := domain.ParseEventTime(payload.CreatedAt)
	if err != nil {
		orderedAt = nowUTC()
	}

	order := &domain.Order{
		ExternalID: payload.ID,
		CustomerID: customer.ID,
		StoreID:    store.ID,
		Origin:     fmt.Sprintf("%s %s", store.Name, payload.Name),
		Warehouse:  store.WarehouseID,
		State:      domain.OrderDraft,
		OrderedAt:  orderedAt,
	}

	for _, item := range collapseLines(payload.LineItems) {
		sku := lineSKU(item)
		variant, err := s.catalog.VariantBySKU(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("failed to look up variant: %w", err)
		}
		if variant == nil {
			// An unresolvable SKU drops its line, never the whole order.
			s.logger.Warn().
				Int64("externalOrderId", payload.ID).
				Str("sku", sku).
				Msg("Order line SKU unresolved, line dropped")
			continue
		}
		order.Lines = append(order.Lines, domain.OrderLine{
			VariantID: variant.ID,
			SKU:       sku,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// applyTransitions drives the state machine from the payload's status
// fields. Cancellation is evaluated last so a payload that both pays and
// refunds ends cancelled.
func (s *OrderSynchronizer) applyTransitions(ctx context.Context, order *domain.Order, payload domain.OrderPayload) error {
	if order.State == domain.OrderDraft && (payload.PaidOrPartial() || payload.FulfilledOrPartial()) {
		if err := s.orders.Confirm(ctx, order.ID); err != nil {
			return fmt.Errorf("failed to confirm order: %w", err)
		}
		order.State = domain.OrderConfirmed
	}

	if order.State == domain.OrderConfirmed && payload.PaidOrPartial() {
		if err := s.driveInvoicing(ctx, order, payload); err != nil {
			return err
		}
	}

	if order.State == domain.OrderConfirmed && payload.FulfilledOrPartial() {
		if err := s.driveFulfillment(ctx, order); err != nil {
			return err
		}
	}

	if payload.RefundedOrVoided() && order.State != domain.OrderCancelled {
		if err := s.orders.Cancel(ctx, order.ID); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		order.State = domain.OrderCancelled
	}

	return nil
}

// driveInvoicing raises and posts the order's invoice once, and for fully
// paid orders records and reconciles the matching payment
func (s *OrderSynchronizer) driveInvoicing(ctx context.Context, order *domain.Order, payload domain.OrderPayload) error {
	invoiced, err := s.accounting.HasInvoice(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to check invoice state: %w", err)
	}
	if invoiced {
		return nil
	}

	invoice, err := s.accounting.CreateInvoice(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	if err := s.accounting.PostInvoice(ctx, invoice.ID); err != nil {
		return fmt.Errorf("failed to post invoice: %w", err)
	}

	if payload.FinancialStatus != domain.FinancialPaid {
		return nil
	}

	hasJournal, err := s.accounting.HasClearingJournal(ctx)
	if err != nil {
		return fmt.Errorf("failed to check clearing journal: %w", err)
	}
	if !hasJournal {
		// Stops the payment step only; the order itself stays synced.
		s.logger.Warn().
			Str("orderId", order.ID).
			Msg("No payment clearing account configured, payment not recorded")
		return nil
	}

	payment, err := s.accounting.CreatePayment(ctx, order.CustomerID, invoice.Total)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	if err := s.accounting.PostPayment(ctx, payment.ID); err != nil {
		return fmt.Errorf("failed to post payment: %w", err)
	}
	if err := s.accounting.Reconcile(ctx, invoice.ID, payment.ID); err != nil {
		return fmt.Errorf("failed to reconcile payment: %w", err)
	}
	return nil
}

// driveFulfillment validates the order's pending delivery document without
// net stock movement. The storefront is the source of truth for physical
// stock here; the local document exists for paperwork only, so the on-hand
// levels the validation decremented are restored from a snapshot.
func (s *OrderSynchronizer) driveFulfillment(ctx context.Context, order *domain.Order) error {
	completed, err := s.fulfillment.HasCompleted(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to check fulfillment state: %w", err)
	}
	if completed {
		return nil
	}

	doc, err := s.fulfillment.Pending(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to look up fulfillment: %w", err)
	}
	if doc == nil {
		doc, err = s.fulfillment.CreatePending(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to create fulfillment: %w", err)
		}
	}

	type levelKey struct{ variantID, locationID string }
	snapshot := make(map[levelKey]float64, len(doc.Moves))
	for _, move := range doc.Moves {
		key := levelKey{move.VariantID, move.LocationID}
		if _, ok := snapshot[key]; ok {
			continue
		}
		qty, err := s.stock.OnHand(ctx, move.VariantID, move.LocationID)
		if err != nil {
			return fmt.Errorf("failed to snapshot on-hand quantity: %w", err)
		}
		snapshot[key] = qty
	}

	if err := s.fulfillment.Validate(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to validate fulfillment: %w", err)
	}

	for key, qty := range snapshot {
		if err := s.stock.SetOnHand(ctx, key.variantID, key.locationID, qty); err != nil {
			return fmt.Errorf("failed to restore on-hand quantity: %w", err)
		}
	}

	s.logger.Info().
		Str("orderId", order.ID).
		Str("fulfillmentId", doc.ID).
		Msg("Fulfillment validated stock-neutrally")
	return nil
}

// collapseLines merges duplicate-SKU line items: quantities sum, the latest
// price in payload order wins
func collapseLines(items []domain.LineItemPayload) []domain.LineItemPayload {
	index := make(map[string]int, len(items))
	var collapsed []domain.LineItemPayload
	for _, item := range items {
		key := lineSKU(item)
		if i, ok := index[key]; ok {
			collapsed[i].Quantity += item.Quantity
			collapsed[i].Price = item.Price
			continue
		}
		index[key] = len(collapsed)
		collapsed = append(collapsed, item)
	}
	return collapsed
}

// lineSKU falls back to the synthetic productId-variantId code the catalog
// synchronizer assigns when the source SKU is blank
func lineSKU(item domain.LineItemPayload) string {
	if item.SKU != "" {
		return item.SKU
	}
	return fmt.Sprintf("%d-%d", item.ProductID, item.VariantID)
}
