package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger-shopify-sync/internal/domain"
	"ledger-shopify-sync/internal/ports"

	"github.com/shopspring/decimal"
)

// In-memory doubles for the Ledger ports and the storefront client. They
// mirror the semantics of the real adapters closely enough for the
// synchronizers not to notice.

type fakeCatalog struct {
	mu        sync.Mutex
	seq       int
	templates []*domain.Template
	attrs     []*domain.Attribute
	values    []*domain.AttributeValue
	lines     []*domain.AttributeLine
	variants  []*domain.Variant
	images    map[string][]byte
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{images: make(map[string][]byte)}
}

func (c *fakeCatalog) nextID(prefix string) string {
	c.seq++
	return fmt.Sprintf("%s%d", prefix, c.seq)
}

func (c *fakeCatalog) TemplateByTitle(_ context.Context, title string) (*domain.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.templates {
		if t.Title == title {
			return t, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) CreateTemplate(_ context.Context, t *domain.Template) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.ID = c.nextID("tmpl")
	c.templates = append(c.templates, t)
	return nil
}

func (c *fakeCatalog) AttributeByName(_ context.Context, name string) (*domain.Attribute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.attrs {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) CreateAttribute(_ context.Context, a *domain.Attribute) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a.ID = c.nextID("attr")
	c.attrs = append(c.attrs, a)
	return nil
}

func (c *fakeCatalog) AttributeValueByName(_ context.Context, attributeID, name string) (*domain.AttributeValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.values {
		if v.AttributeID == attributeID && v.Name == name {
			return v, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) CreateAttributeValue(_ context.Context, v *domain.AttributeValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v.ID = c.nextID("val")
	c.values = append(c.values, v)
	return nil
}

func (c *fakeCatalog) AttributeLine(_ context.Context, templateID, attributeID string) (*domain.AttributeLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if l.TemplateID == templateID && l.AttributeID == attributeID {
			return l, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) CreateAttributeLine(_ context.Context, l *domain.AttributeLine) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.ID = c.nextID("line")
	c.lines = append(c.lines, l)
	return nil
}

func (c *fakeCatalog) AddValueToLine(_ context.Context, lineID, valueID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if l.ID == lineID {
			for _, existing := range l.ValueIDs {
				if existing == valueID {
					return nil
				}
			}
			l.ValueIDs = append(l.ValueIDs, valueID)
			return nil
		}
	}
	return fmt.Errorf("line %s not found", lineID)
}

func (c *fakeCatalog) VariantsByTemplate(_ context.Context, templateID string) ([]*domain.Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.Variant
	for _, v := range c.variants {
		if v.TemplateID == templateID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *fakeCatalog) MaterializeVariants(_ context.Context, templateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	combos := [][]string{{}}
	for _, l := range c.lines {
		if l.TemplateID != templateID || len(l.ValueIDs) == 0 {
			continue
		}
		var next [][]string
		for _, combo := range combos {
			for _, id := range l.ValueIDs {
				extended := append(append([]string{}, combo...), id)
				next = append(next, extended)
			}
		}
		combos = next
	}
	for _, combo := range combos {
		c.variants = append(c.variants, &domain.Variant{
			ID:         c.nextID("var"),
			TemplateID: templateID,
			ValueIDs:   combo,
		})
	}
	return nil
}

func (c *fakeCatalog) VariantBySKU(_ context.Context, sku string) (*domain.Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.variants {
		if v.SKU == sku {
			return v, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) UpdateVariant(_ context.Context, v *domain.Variant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.variants {
		if existing.ID == v.ID {
			existing.SKU = v.SKU
			existing.ExternalProductID = v.ExternalProductID
			existing.Price = v.Price
			return nil
		}
	}
	return fmt.Errorf("variant %s not found", v.ID)
}

func (c *fakeCatalog) StampVariant(_ context.Context, variantID string, origin domain.UpdateOrigin, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.variants {
		if v.ID == variantID {
			v.LastUpdateOrigin = origin
			stamped := at
			v.LastUpdatedAt = &stamped
			return nil
		}
	}
	return fmt.Errorf("variant %s not found", variantID)
}

func (c *fakeCatalog) SaveTemplateImage(_ context.Context, templateID string, image []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[templateID] = image
	return nil
}

func (c *fakeCatalog) addVariant(v *domain.Variant) *domain.Variant {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.ID == "" {
		v.ID = c.nextID("var")
	}
	c.variants = append(c.variants, v)
	return v
}

var _ ports.LedgerCatalog = (*fakeCatalog)(nil)

type fakeStock struct {
	mu     sync.Mutex
	levels map[string]float64
	sets   []string // "variant|location=qty" in call order
}

func newFakeStock() *fakeStock {
	return &fakeStock{levels: make(map[string]float64)}
}

func stockKey(variantID, locationID string) string {
	return variantID + "|" + locationID
}

func (s *fakeStock) OnHand(_ context.Context, variantID, locationID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[stockKey(variantID, locationID)], nil
}

func (s *fakeStock) SetOnHand(_ context.Context, variantID, locationID string, qty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[stockKey(variantID, locationID)] = qty
	s.sets = append(s.sets, fmt.Sprintf("%s=%g", stockKey(variantID, locationID), qty))
	return nil
}

var _ ports.LedgerStock = (*fakeStock)(nil)

type fakeCustomers struct {
	mu        sync.Mutex
	seq       int
	customers []*domain.Customer
	countries map[string]string // lowercased name or code -> id
	states    map[string]string // countryID|lowercased name or code -> id
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{
		countries: make(map[string]string),
		states:    make(map[string]string),
	}
}

func (r *fakeCustomers) addCountry(id string, name, code string) {
	r.countries[strings.ToLower(name)] = id
	r.countries[strings.ToLower(code)] = id
}

func (r *fakeCustomers) addState(countryID, id, name, code string) {
	r.states[countryID+"|"+strings.ToLower(name)] = id
	r.states[countryID+"|"+strings.ToLower(code)] = id
}

func (r *fakeCustomers) FindByExternalIDOrEmail(_ context.Context, externalID, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if externalID != "" && c.ExternalID == externalID {
			return c, nil
		}
		if email != "" && c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomers) FindByName(_ context.Context, name string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomers) Create(_ context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("cust%d", r.seq)
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	copied := *c
	r.customers = append(r.customers, &copied)
	return nil
}

func (r *fakeCustomers) Update(_ context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.customers {
		if existing.ID == c.ID {
			copied := *c
			copied.UpdatedAt = time.Now().UTC()
			r.customers[i] = &copied
			return nil
		}
	}
	return fmt.Errorf("customer %s not found", c.ID)
}

func (r *fakeCustomers) CountryByNameOrCode(_ context.Context, name, code string) (string, error) {
	if id, ok := r.countries[strings.ToLower(name)]; ok && name != "" {
		return id, nil
	}
	if id, ok := r.countries[strings.ToLower(code)]; ok && code != "" {
		return id, nil
	}
	return "", nil
}

func (r *fakeCustomers) StateByNameOrCode(_ context.Context, countryID, name, code string) (string, error) {
	if id, ok := r.states[countryID+"|"+strings.ToLower(name)]; ok && name != "" {
		return id, nil
	}
	if id, ok := r.states[countryID+"|"+strings.ToLower(code)]; ok && code != "" {
		return id, nil
	}
	return "", nil
}

var _ ports.LedgerCustomers = (*fakeCustomers)(nil)

type fakeOrders struct {
	mu     sync.Mutex
	seq    int
	orders []*domain.Order
}

func newFakeOrders() *fakeOrders { return &fakeOrders{} }

func (r *fakeOrders) ByExternalID(_ context.Context, externalID int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ExternalID == externalID {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeOrders) byID(orderID string) *domain.Order {
	for _, o := range r.orders {
		if o.ID == orderID {
			return o
		}
	}
	return nil
}

func (r *fakeOrders) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = fmt.Sprintf("order%d", r.seq)
	o.State = domain.OrderDraft
	r.orders = append(r.orders, o)
	return nil
}

func (r *fakeOrders) Confirm(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.byID(orderID)
	if o == nil {
		return fmt.Errorf("order %s not found", orderID)
	}
	o.State = domain.OrderConfirmed
	return nil
}

func (r *fakeOrders) Cancel(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.byID(orderID)
	if o == nil {
		return fmt.Errorf("order %s not found", orderID)
	}
	o.State = domain.OrderCancelled
	return nil
}

var _ ports.LedgerOrders = (*fakeOrders)(nil)

type fakeAccounting struct {
	mu              sync.Mutex
	seq             int
	clearingJournal bool
	invoices        map[string]*domain.Invoice // by order id
	payments        []*domain.Payment
	postedInvoices  map[string]bool
	postedPayments  map[string]bool
	reconciled      map[string]string // invoice id -> payment id
}

func newFakeAccounting(clearingJournal bool) *fakeAccounting {
	return &fakeAccounting{
		clearingJournal: clearingJournal,
		invoices:        make(map[string]*domain.Invoice),
		postedInvoices:  make(map[string]bool),
		postedPayments:  make(map[string]bool),
		reconciled:      make(map[string]string),
	}
}

func (a *fakeAccounting) HasInvoice(_ context.Context, orderID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.invoices[orderID]
	return ok, nil
}

func (a *fakeAccounting) CreateInvoice(_ context.Context, orderID string) (*domain.Invoice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	invoice := &domain.Invoice{
		ID:      fmt.Sprintf("inv%d", a.seq),
		OrderID: orderID,
		Total:   decimal.NewFromInt(100),
	}
	a.invoices[orderID] = invoice
	return invoice, nil
}

func (a *fakeAccounting) PostInvoice(_ context.Context, invoiceID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.postedInvoices[invoiceID] = true
	return nil
}

func (a *fakeAccounting) HasClearingJournal(_ context.Context) (bool, error) {
	return a.clearingJournal, nil
}

func (a *fakeAccounting) CreatePayment(_ context.Context, customerID string, amount decimal.Decimal) (*domain.Payment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	payment := &domain.Payment{
		ID:         fmt.Sprintf("pay%d", a.seq),
		CustomerID: customerID,
		Amount:     amount,
	}
	a.payments = append(a.payments, payment)
	return payment, nil
}

func (a *fakeAccounting) PostPayment(_ context.Context, paymentID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.postedPayments[paymentID] = true
	return nil
}

func (a *fakeAccounting) Reconcile(_ context.Context, invoiceID, paymentID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconciled[invoiceID] = paymentID
	return nil
}

var _ ports.LedgerAccounting = (*fakeAccounting)(nil)

type fakeFulfillment struct {
	mu           sync.Mutex
	seq          int
	orders       *fakeOrders
	stock        *fakeStock
	fulfillments []*domain.Fulfillment
}

func newFakeFulfillment(orders *fakeOrders, stock *fakeStock) *fakeFulfillment {
	return &fakeFulfillment{orders: orders, stock: stock}
}

func (f *fakeFulfillment) HasCompleted(_ context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.fulfillments {
		if doc.OrderID == orderID && doc.State == domain.FulfillmentDone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFulfillment) Pending(_ context.Context, orderID string) (*domain.Fulfillment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.fulfillments {
		if doc.OrderID == orderID && doc.State == domain.FulfillmentPending {
			return doc, nil
		}
	}
	return nil, nil
}

func (f *fakeFulfillment) CreatePending(_ context.Context, orderID string) (*domain.Fulfillment, error) {
	f.orders.mu.Lock()
	src := f.orders.byID(orderID)
	f.orders.mu.Unlock()
	if src == nil {
		return nil, fmt.Errorf("order %s not found", orderID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	doc := &domain.Fulfillment{
		ID:      fmt.Sprintf("ful%d", f.seq),
		OrderID: orderID,
		State:   domain.FulfillmentPending,
	}
	for _, line := range src.Lines {
		doc.Moves = append(doc.Moves, domain.FulfillmentMove{
			VariantID:  line.VariantID,
			LocationID: src.Warehouse,
			Quantity:   line.Quantity,
		})
	}
	f.fulfillments = append(f.fulfillments, doc)
	return doc, nil
}

// Validate flips the document to done and decrements stock, like the real
// Ledger does.
func (f *fakeFulfillment) Validate(ctx context.Context, fulfillmentID string) error {
	f.mu.Lock()
	var doc *domain.Fulfillment
	for _, candidate := range f.fulfillments {
		if candidate.ID == fulfillmentID {
			doc = candidate
			break
		}
	}
	f.mu.Unlock()
	if doc == nil {
		return fmt.Errorf("fulfillment %s not found", fulfillmentID)
	}

	for _, move := range doc.Moves {
		onHand, err := f.stock.OnHand(ctx, move.VariantID, move.LocationID)
		if err != nil {
			return err
		}
		if err := f.stock.SetOnHand(ctx, move.VariantID, move.LocationID, onHand-move.Quantity); err != nil {
			return err
		}
	}

	f.mu.Lock()
	doc.State = domain.FulfillmentDone
	f.mu.Unlock()
	return nil
}

var _ ports.LedgerFulfillment = (*fakeFulfillment)(nil)

type fakeStoreRepo struct {
	mu     sync.Mutex
	stores []*domain.Store
	locked map[string]bool
	saves  int
}

func newFakeStoreRepo(stores ...*domain.Store) *fakeStoreRepo {
	return &fakeStoreRepo{stores: stores, locked: make(map[string]bool)}
}

func (r *fakeStoreRepo) GetByID(_ context.Context, id string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeStoreRepo) FindByDomain(_ context.Context, shopDomain string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if strings.Contains(shopDomain, s.Domain) || strings.Contains(s.Domain, shopDomain) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeStoreRepo) ListActive(_ context.Context) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Store
	for _, s := range r.stores {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStoreRepo) Save(_ context.Context, store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	for i, s := range r.stores {
		if s.ID == store.ID {
			r.stores[i] = store
			return nil
		}
	}
	r.stores = append(r.stores, store)
	return nil
}

func (r *fakeStoreRepo) SaveCheckpoint(_ context.Context, storeID string, class domain.EntityClass, cp domain.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if s.ID == storeID {
			if s.Checkpoints == nil {
				s.Checkpoints = make(map[domain.EntityClass]domain.Checkpoint)
			}
			s.Checkpoints[class] = cp
			return nil
		}
	}
	return fmt.Errorf("store %s not found", storeID)
}

func (r *fakeStoreRepo) AcquireSyncLock(_ context.Context, storeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked[storeID] {
		return false, nil
	}
	r.locked[storeID] = true
	return true, nil
}

func (r *fakeStoreRepo) ReleaseSyncLock(_ context.Context, storeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked[storeID] = false
	return nil
}

var _ ports.StoreRepository = (*fakeStoreRepo)(nil)

type fakeMappingRepo struct {
	mu   sync.Mutex
	seq  int
	rows []*domain.ProductMapping
}

func newFakeMappingRepo() *fakeMappingRepo { return &fakeMappingRepo{} }

func (r *fakeMappingRepo) BySKU(_ context.Context, storeID, sku string) (*domain.ProductMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.StoreID == storeID && m.SKU == sku {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMappingRepo) ByInventoryItemID(_ context.Context, storeID string, inventoryItemID int64) (*domain.ProductMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.StoreID == storeID && m.InventoryItemID == inventoryItemID {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMappingRepo) ByAllStores(_ context.Context, sku string) ([]*domain.ProductMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ProductMapping
	for _, m := range r.rows {
		if m.SKU == sku {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMappingRepo) Upsert(_ context.Context, m *domain.ProductMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.StoreID == m.StoreID && existing.SKU == m.SKU {
			existing.InventoryItemID = m.InventoryItemID
			existing.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	r.seq++
	m.ID = fmt.Sprintf("map%d", r.seq)
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	r.rows = append(r.rows, m)
	return nil
}

func (r *fakeMappingRepo) DeleteByStore(_ context.Context, storeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.ProductMapping
	for _, m := range r.rows {
		if m.StoreID != storeID {
			kept = append(kept, m)
		}
	}
	r.rows = kept
	return nil
}

var _ ports.MappingRepository = (*fakeMappingRepo)(nil)

type fakeMappingCache struct {
	mu      sync.Mutex
	skus    map[string]string // storeID|itemID -> sku
	items   map[string]int64  // storeID|sku -> itemID
	hits    int
	puts    int
}

func newFakeMappingCache() *fakeMappingCache {
	return &fakeMappingCache{
		skus:  make(map[string]string),
		items: make(map[string]int64),
	}
}

func (c *fakeMappingCache) GetSKU(_ context.Context, storeID string, inventoryItemID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sku, ok := c.skus[fmt.Sprintf("%s|%d", storeID, inventoryItemID)]
	if ok {
		c.hits++
	}
	return sku, ok
}

func (c *fakeMappingCache) GetItemID(_ context.Context, storeID, sku string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.items[storeID+"|"+sku]
	if ok {
		c.hits++
	}
	return id, ok
}

func (c *fakeMappingCache) Put(_ context.Context, storeID, sku string, inventoryItemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.skus[fmt.Sprintf("%s|%d", storeID, inventoryItemID)] = sku
	c.items[storeID+"|"+sku] = inventoryItemID
}

func (c *fakeMappingCache) Invalidate(_ context.Context, storeID, sku string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.items[storeID+"|"+sku]; ok {
		delete(c.skus, fmt.Sprintf("%s|%d", storeID, id))
	}
	delete(c.items, storeID+"|"+sku)
}

var _ ports.MappingCache = (*fakeMappingCache)(nil)

type fakeSyncLogRepo struct {
	mu   sync.Mutex
	seq  int
	logs []*domain.SyncLog
}

func newFakeSyncLogRepo() *fakeSyncLogRepo { return &fakeSyncLogRepo{} }

func (r *fakeSyncLogRepo) Create(_ context.Context, log *domain.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	log.ID = fmt.Sprintf("log%d", r.seq)
	r.logs = append(r.logs, log)
	return nil
}

func (r *fakeSyncLogRepo) Update(_ context.Context, log *domain.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.logs {
		if existing.ID == log.ID {
			copied := *log
			r.logs[i] = &copied
			return nil
		}
	}
	return fmt.Errorf("log %s not found", log.ID)
}

func (r *fakeSyncLogRepo) ListByStore(_ context.Context, storeID string) ([]*domain.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SyncLog
	for _, log := range r.logs {
		if log.StoreID == storeID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

var _ ports.SyncLogRepository = (*fakeSyncLogRepo)(nil)

type recordedPush struct {
	StoreID string
	Push    ports.InventoryPush
}

type fakeStorefront struct {
	mu sync.Mutex

	items     map[int64]*ports.InventoryItem // by inventory item id
	skuToItem map[string]int64               // FindInventoryItemID source

	pushes  []recordedPush
	pushErr error

	locationID int64

	// pages are keyed by cursor, "" for the first page
	productPages  map[string]*ports.ProductPage
	orderPages    map[string]*ports.OrderPage
	customerPages map[string]*ports.CustomerPage
	pageErrs      map[string]error

	webhooks    map[string][]ports.RegisteredWebhook // by store id
	webhookSeq  int64
	registered  []string // "storeID:topic" in registration order
	removed     []int64
	images      map[string][]byte
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{
		items:         make(map[int64]*ports.InventoryItem),
		skuToItem:     make(map[string]int64),
		locationID:    9100,
		productPages:  make(map[string]*ports.ProductPage),
		orderPages:    make(map[string]*ports.OrderPage),
		customerPages: make(map[string]*ports.CustomerPage),
		pageErrs:      make(map[string]error),
		webhooks:      make(map[string][]ports.RegisteredWebhook),
		images:        make(map[string][]byte),
	}
}

func (f *fakeStorefront) addItem(id int64, sku string, tracked bool) {
	f.items[id] = &ports.InventoryItem{ID: id, SKU: sku, Tracked: tracked}
	if sku != "" {
		f.skuToItem[sku] = id
	}
}

func (f *fakeStorefront) Products(_ context.Context, _ *domain.Store, page ports.PageRequest) (*ports.ProductPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pageErrs[page.Cursor]; err != nil {
		return nil, err
	}
	if p, ok := f.productPages[page.Cursor]; ok {
		return p, nil
	}
	return &ports.ProductPage{}, nil
}

func (f *fakeStorefront) Orders(_ context.Context, _ *domain.Store, page ports.PageRequest) (*ports.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pageErrs[page.Cursor]; err != nil {
		return nil, err
	}
	if p, ok := f.orderPages[page.Cursor]; ok {
		return p, nil
	}
	return &ports.OrderPage{}, nil
}

func (f *fakeStorefront) Customers(_ context.Context, _ *domain.Store, page ports.PageRequest) (*ports.CustomerPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pageErrs[page.Cursor]; err != nil {
		return nil, err
	}
	if p, ok := f.customerPages[page.Cursor]; ok {
		return p, nil
	}
	return &ports.CustomerPage{}, nil
}

func (f *fakeStorefront) InventoryItem(_ context.Context, _ *domain.Store, inventoryItemID int64) (*ports.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[inventoryItemID]
	if !ok {
		return nil, nil
	}
	return item, nil
}

func (f *fakeStorefront) FindInventoryItemID(_ context.Context, _ *domain.Store, sku string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.skuToItem[sku], nil
}

func (f *fakeStorefront) SetInventoryLevel(_ context.Context, store *domain.Store, push ports.InventoryPush) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, recordedPush{StoreID: store.ID, Push: push})
	return nil
}

func (f *fakeStorefront) PrimaryLocationID(_ context.Context, _ *domain.Store) (int64, error) {
	return f.locationID, nil
}

func (f *fakeStorefront) FetchImage(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if img, ok := f.images[url]; ok {
		return img, nil
	}
	return nil, fmt.Errorf("image %s not found", url)
}

func (f *fakeStorefront) ListWebhooks(_ context.Context, store *domain.Store) ([]ports.RegisteredWebhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.webhooks[store.ID], nil
}

func (f *fakeStorefront) RegisterWebhook(_ context.Context, store *domain.Store, topic, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhookSeq++
	f.webhooks[store.ID] = append(f.webhooks[store.ID], ports.RegisteredWebhook{
		ID:      f.webhookSeq,
		Topic:   topic,
		Address: address,
	})
	f.registered = append(f.registered, store.ID+":"+topic)
	return nil
}

func (f *fakeStorefront) RemoveWebhook(_ context.Context, store *domain.Store, webhookID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, webhookID)
	var kept []ports.RegisteredWebhook
	for _, hook := range f.webhooks[store.ID] {
		if hook.ID != webhookID {
			kept = append(kept, hook)
		}
	}
	f.webhooks[store.ID] = kept
	return nil
}

var _ ports.StorefrontClient = (*fakeStorefront)(nil)
