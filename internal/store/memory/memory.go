package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"kinmel/backend/internal/domain"
	"kinmel/backend/internal/store"
	"kinmel/backend/internal/xid"
)

type stockKey struct {
	storeID string
	batchID string
}

// Store holds the authoritative entity collections behind keyed maps. One
// RWMutex guards every read-modify-write, so each repository operation is a
// single atomic transition and a read never observes a half-applied write.
type Store struct {
	mu           sync.RWMutex
	products     map[string]domain.Product
	stores       map[string]domain.Store
	batches      map[string]domain.Batch
	stocks       map[stockKey]int
	priceHistory map[string][]domain.PriceHistory
	transactions []domain.SalesTransaction
	cash         map[string]int64
}

func New() *Store {
	return &Store{
		products:     make(map[string]domain.Product),
		stores:       make(map[string]domain.Store),
		batches:      make(map[string]domain.Batch),
		stocks:       make(map[stockKey]int),
		priceHistory: make(map[string][]domain.PriceHistory),
		transactions: make([]domain.SalesTransaction, 0, 64),
		cash:         make(map[string]int64),
	}
}

// NewSeeded builds the dev/demo snapshot: the Kathmandu main HQ, provincial
// HQs and retail stores of the distribution network, a small catalog, opening
// batches split across locations and opening cash balances.
func NewSeeded() *Store {
	s := New()

	for _, st := range []domain.Store{
		{ID: "hq-ktm", Name: "Kathmandu HQ", Warehouse: true, Type: domain.StoreTypeMainHQ, Location: "Balaju Industrial District, Kathmandu"},
		{ID: "hq-brt", Name: "Biratnagar HQ", Warehouse: true, Type: domain.StoreTypeProvincialHQ, Location: "Main Road, Biratnagar"},
		{ID: "hq-brg", Name: "Birgunj HQ", Warehouse: true, Type: domain.StoreTypeProvincialHQ, Location: "Adarsha Nagar, Birgunj"},
		{ID: "store-01", Name: "New Road Store", Warehouse: false, Type: domain.StoreTypeRetail, Location: "New Road, Kathmandu"},
		{ID: "store-02", Name: "Patan Store", Warehouse: false, Type: domain.StoreTypeRetail, Location: "Mangal Bazaar, Lalitpur"},
		{ID: "store-03", Name: "Bhaktapur Store", Warehouse: false, Type: domain.StoreTypeRetail, Location: "Durbar Square, Bhaktapur"},
	} {
		s.stores[st.ID] = st
	}

	for _, p := range []domain.Product{
		{ID: "prod-001", SKU: "RICE-BAS-25", Name: "Basmati Rice 25kg", Category: "staples", Unit: "sack", SellingPrice: 1950, Active: true},
		{ID: "prod-002", SKU: "SALT-TBL-01", Name: "Table Salt 1kg", Category: "staples", Unit: "packet", SellingPrice: 22, Active: true},
		{ID: "prod-003", SKU: "OIL-SUN-05", Name: "Sunflower Oil 5L", Category: "cooking", Unit: "jar", SellingPrice: 1250, Active: true},
		{ID: "prod-004", SKU: "LENT-MUS-01", Name: "Musuro Dal 1kg", Category: "staples", Unit: "packet", SellingPrice: 195, Active: true},
		{ID: "prod-005", SKU: "TEA-ILM-500", Name: "Ilam Tea 500g", Category: "beverage", Unit: "box", SellingPrice: 420, Active: true},
		{ID: "prod-006", SKU: "GHEE-BUF-01", Name: "Buffalo Ghee 1L", Category: "dairy", Unit: "tin", SellingPrice: 1480, Active: true},
	} {
		s.products[p.ID] = p
	}

	for _, b := range []domain.Batch{
		{ID: "batch-001", ProductID: "prod-001", PurchasePrice: 1500, InitialQty: 200, RemainingQty: 200, ReceivedDate: seedDate(2025, 11, 10), ExpiryDate: seedDatePtr(2026, 11, 10)},
		{ID: "batch-002", ProductID: "prod-001", PurchasePrice: 1600, InitialQty: 150, RemainingQty: 150, ReceivedDate: seedDate(2025, 12, 20), ExpiryDate: seedDatePtr(2026, 12, 20)},
		{ID: "batch-003", ProductID: "prod-001", PurchasePrice: 1700, InitialQty: 180, RemainingQty: 180, ReceivedDate: seedDate(2026, 1, 25), ExpiryDate: seedDatePtr(2027, 1, 25)},
		{ID: "batch-004", ProductID: "prod-002", PurchasePrice: 12, InitialQty: 500, RemainingQty: 500, ReceivedDate: seedDate(2025, 10, 5)},
		{ID: "batch-005", ProductID: "prod-002", PurchasePrice: 14, InitialQty: 400, RemainingQty: 400, ReceivedDate: seedDate(2025, 12, 10)},
		{ID: "batch-006", ProductID: "prod-003", PurchasePrice: 980, InitialQty: 120, RemainingQty: 120, ReceivedDate: seedDate(2026, 1, 8), ExpiryDate: seedDatePtr(2027, 7, 8)},
		{ID: "batch-007", ProductID: "prod-003", PurchasePrice: 1040, InitialQty: 90, RemainingQty: 90, ReceivedDate: seedDate(2026, 2, 14), ExpiryDate: seedDatePtr(2027, 8, 14)},
		{ID: "batch-008", ProductID: "prod-004", PurchasePrice: 150, InitialQty: 300, RemainingQty: 300, ReceivedDate: seedDate(2026, 1, 18)},
		{ID: "batch-009", ProductID: "prod-005", PurchasePrice: 310, InitialQty: 80, RemainingQty: 80, ReceivedDate: seedDate(2026, 2, 2), SupplierNote: "Ilam cooperative, spring flush"},
		{ID: "batch-010", ProductID: "prod-006", PurchasePrice: 1150, InitialQty: 60, RemainingQty: 60, ReceivedDate: seedDate(2026, 2, 20), ExpiryDate: seedDatePtr(2026, 8, 20)},
	} {
		s.batches[b.ID] = b
	}

	// Each batch's rows must sum to its initial quantity: nothing has been
	// sold yet in the seed state.
	for _, ss := range []domain.StoreStock{
		{StoreID: "hq-ktm", BatchID: "batch-001", CurrentQty: 120},
		{StoreID: "store-01", BatchID: "batch-001", CurrentQty: 50},
		{StoreID: "store-02", BatchID: "batch-001", CurrentQty: 30},
		{StoreID: "hq-ktm", BatchID: "batch-002", CurrentQty: 150},
		{StoreID: "hq-ktm", BatchID: "batch-003", CurrentQty: 180},
		{StoreID: "hq-ktm", BatchID: "batch-004", CurrentQty: 300},
		{StoreID: "hq-brt", BatchID: "batch-004", CurrentQty: 120},
		{StoreID: "store-03", BatchID: "batch-004", CurrentQty: 80},
		{StoreID: "hq-ktm", BatchID: "batch-005", CurrentQty: 400},
		{StoreID: "hq-ktm", BatchID: "batch-006", CurrentQty: 70},
		{StoreID: "store-01", BatchID: "batch-006", CurrentQty: 50},
		{StoreID: "hq-ktm", BatchID: "batch-007", CurrentQty: 90},
		{StoreID: "hq-ktm", BatchID: "batch-008", CurrentQty: 220},
		{StoreID: "hq-brg", BatchID: "batch-008", CurrentQty: 80},
		{StoreID: "hq-ktm", BatchID: "batch-009", CurrentQty: 80},
		{StoreID: "hq-ktm", BatchID: "batch-010", CurrentQty: 60},
	} {
		s.stocks[stockKey{ss.StoreID, ss.BatchID}] = ss.CurrentQty
	}

	for storeID, balance := range map[string]int64{
		"hq-ktm":   250000,
		"hq-brt":   120000,
		"hq-brg":   95000,
		"store-01": 45000,
		"store-02": 38000,
		"store-03": 30000,
	} {
		s.cash[storeID] = balance
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

// AddProduct seeds a catalog entry. Catalog management proper lives outside
// this system; tests and bootstrap code use this to shape initial state.
func (s *Store) AddProduct(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
}

// AddStore seeds a location, same contract as AddProduct.
func (s *Store) AddStore(st domain.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[st.ID] = st
}

func (s *Store) UpdateSellingPrice(_ context.Context, productID string, entry domain.PriceHistory) (*domain.Product, error) {
	if entry.SellingPrice < 1 {
		return nil, fmt.Errorf("%w: selling price must be greater than zero", store.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}

	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.EffectiveDate.IsZero() {
		entry.EffectiveDate = time.Now().UTC()
	}
	entry.ProductID = productID

	product.SellingPrice = entry.SellingPrice
	s.products[productID] = product
	s.priceHistory[productID] = append(s.priceHistory[productID], entry)

	updated := product
	return &updated, nil
}

func (s *Store) ListPriceHistory(_ context.Context, productID string, limit int) ([]domain.PriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.priceHistory[productID]
	result := make([]domain.PriceHistory, len(history))
	copy(result, history)
	slices.SortFunc(result, func(a, b domain.PriceHistory) int {
		if a.EffectiveDate.Equal(b.EffectiveDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.EffectiveDate.After(b.EffectiveDate) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListStores(_ context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := make([]domain.Store, 0, len(s.stores))
	for _, st := range s.stores {
		stores = append(stores, st)
	}
	slices.SortFunc(stores, func(a, b domain.Store) int {
		return cmpString(a.ID, b.ID)
	})
	return stores, nil
}

func (s *Store) GetStoreByID(_ context.Context, id string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.stores[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyStore := st
	return &copyStore, nil
}

func (s *Store) ListBatches(_ context.Context, productID string) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		if productID != "" && b.ProductID != productID {
			continue
		}
		batches = append(batches, cloneBatch(b))
	}
	slices.SortFunc(batches, compareBatchFIFO)
	return batches, nil
}

func (s *Store) ListStoreStocks(_ context.Context, storeID string) ([]domain.StoreStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StoreStock, 0, len(s.stocks))
	for key, qty := range s.stocks {
		if storeID != "" && key.storeID != storeID {
			continue
		}
		result = append(result, domain.StoreStock{StoreID: key.storeID, BatchID: key.batchID, CurrentQty: qty})
	}
	slices.SortFunc(result, func(a, b domain.StoreStock) int {
		if a.StoreID == b.StoreID {
			return cmpString(a.BatchID, b.BatchID)
		}
		return cmpString(a.StoreID, b.StoreID)
	})
	return result, nil
}

func (s *Store) ProductInventory(_ context.Context, storeID string, productID string) ([]domain.StoreStock, []domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.Batch, 0, 8)
	batchIDs := make(map[string]struct{}, 8)
	for _, b := range s.batches {
		if b.ProductID != productID {
			continue
		}
		batches = append(batches, cloneBatch(b))
		batchIDs[b.ID] = struct{}{}
	}
	slices.SortFunc(batches, compareBatchFIFO)

	stocks := make([]domain.StoreStock, 0, len(batches))
	for key, qty := range s.stocks {
		if key.storeID != storeID {
			continue
		}
		if _, ok := batchIDs[key.batchID]; !ok {
			continue
		}
		stocks = append(stocks, domain.StoreStock{StoreID: key.storeID, BatchID: key.batchID, CurrentQty: qty})
	}
	slices.SortFunc(stocks, func(a, b domain.StoreStock) int {
		return cmpString(a.BatchID, b.BatchID)
	})

	return stocks, batches, nil
}

func (s *Store) CommitSale(_ context.Context, sale domain.SalesTransaction, cashStoreID string) (*domain.SalesTransaction, error) {
	if len(sale.Lines) == 0 || sale.QtySold < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Verify every line before touching anything, so a stale plan leaves the
	// state untouched instead of half-applied.
	for _, line := range sale.Lines {
		key := stockKey{sale.StoreID, line.BatchID}
		available, ok := s.stocks[key]
		if !ok || available < line.QtyFromBatch {
			return nil, fmt.Errorf("stock row (%s, %s) holds %d, sale takes %d: %w",
				sale.StoreID, line.BatchID, available, line.QtyFromBatch, store.ErrStaleAllocation)
		}
		batch, ok := s.batches[line.BatchID]
		if !ok || batch.RemainingQty < line.QtyFromBatch {
			return nil, fmt.Errorf("batch %s cannot cover %d units: %w",
				line.BatchID, line.QtyFromBatch, store.ErrStaleAllocation)
		}
	}

	for _, line := range sale.Lines {
		key := stockKey{sale.StoreID, line.BatchID}
		s.stocks[key] -= line.QtyFromBatch
		batch := s.batches[line.BatchID]
		batch.RemainingQty -= line.QtyFromBatch
		s.batches[line.BatchID] = batch
	}

	if sale.ID == "" {
		sale.ID = xid.New("txn")
	}
	if sale.TransactionDate.IsZero() {
		sale.TransactionDate = time.Now().UTC()
	}

	// Ledger is kept most-recent-first, the display convention.
	s.transactions = append([]domain.SalesTransaction{cloneTransaction(sale)}, s.transactions...)
	s.cash[cashStoreID] += sale.TotalRevenue

	committed := cloneTransaction(sale)
	return &committed, nil
}

func (s *Store) TransferStock(_ context.Context, fromStoreID string, toStoreID string, batchID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}
	if fromStoreID == toStoreID {
		return fmt.Errorf("%w: source and destination must differ", store.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sourceKey := stockKey{fromStoreID, batchID}
	available := s.stocks[sourceKey]
	if available < qty {
		return fmt.Errorf("%w (available: %d)", store.ErrInsufficientStock, available)
	}

	// Relocation only: batch remaining quantity and cash are untouched.
	s.stocks[sourceKey] -= qty
	s.stocks[stockKey{toStoreID, batchID}] += qty
	return nil
}

func (s *Store) TransferCash(_ context.Context, fromStoreID string, toStoreID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", store.ErrInvalidInput)
	}
	if fromStoreID == toStoreID {
		return fmt.Errorf("%w: source and destination must differ", store.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	available := s.cash[fromStoreID]
	if available < amount {
		return fmt.Errorf("%w (available: %d)", store.ErrInsufficientCash, available)
	}

	s.cash[fromStoreID] -= amount
	s.cash[toStoreID] += amount
	return nil
}

func (s *Store) ReceiveBatch(_ context.Context, batch domain.Batch, targetStoreID string) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[batch.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.stores[targetStoreID]; !exists {
		return nil, store.ErrNotFound
	}

	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	if batch.ReceivedDate.IsZero() {
		batch.ReceivedDate = dateOnly(time.Now().UTC())
	}
	batch.RemainingQty = batch.InitialQty

	s.batches[batch.ID] = batch
	s.stocks[stockKey{targetStoreID, batch.ID}] += batch.InitialQty

	created := cloneBatch(batch)
	return &created, nil
}

func (s *Store) ListTransactions(_ context.Context, storeID string, limit int) ([]domain.SalesTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SalesTransaction, 0, 64)
	for _, tx := range s.transactions {
		if storeID != "" && tx.StoreID != storeID {
			continue
		}
		result = append(result, cloneTransaction(tx))
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListCashHoldings(_ context.Context) ([]domain.CashHolding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holdings := make([]domain.CashHolding, 0, len(s.cash))
	for storeID, balance := range s.cash {
		holdings = append(holdings, domain.CashHolding{StoreID: storeID, Balance: balance})
	}
	slices.SortFunc(holdings, func(a, b domain.CashHolding) int {
		return cmpString(a.StoreID, b.StoreID)
	})
	return holdings, nil
}

func (s *Store) SalesReport(_ context.Context, storeID string, from time.Time, to time.Time) (domain.SalesReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.SalesReport{
		StoreID:   storeID,
		Date:      from.Format("2006-01-02"),
		ByPayment: make([]domain.SalesReportPayment, 0, 2),
		ByProduct: make([]domain.SalesReportProduct, 0, 8),
	}
	byPayment := map[string]*domain.SalesReportPayment{}
	byProduct := map[string]*domain.SalesReportProduct{}

	for _, tx := range s.transactions {
		if storeID != "" && tx.StoreID != storeID {
			continue
		}
		if tx.TransactionDate.Before(from) || !tx.TransactionDate.Before(to) {
			continue
		}

		report.Transactions++
		report.UnitsSold += tx.QtySold
		report.Revenue += tx.TotalRevenue
		report.COGS += tx.TotalCOGS
		report.Margin += tx.TotalMargin

		payment := byPayment[tx.PaymentMethod]
		if payment == nil {
			payment = &domain.SalesReportPayment{PaymentMethod: tx.PaymentMethod}
			byPayment[tx.PaymentMethod] = payment
		}
		payment.Transactions++
		payment.Revenue += tx.TotalRevenue

		product := byProduct[tx.ProductID]
		if product == nil {
			product = &domain.SalesReportProduct{ProductID: tx.ProductID}
			byProduct[tx.ProductID] = product
		}
		product.UnitsSold += tx.QtySold
		product.Revenue += tx.TotalRevenue
		product.COGS += tx.TotalCOGS
		product.Margin += tx.TotalMargin
	}

	if report.Revenue > 0 {
		report.MarginPercent = float64(report.Margin) / float64(report.Revenue) * 100
	}

	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	for _, entry := range byProduct {
		report.ByProduct = append(report.ByProduct, *entry)
	}
	slices.SortFunc(report.ByPayment, func(a, b domain.SalesReportPayment) int {
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})
	slices.SortFunc(report.ByProduct, func(a, b domain.SalesReportProduct) int {
		return cmpString(a.ProductID, b.ProductID)
	})

	return report, nil
}

func compareBatchFIFO(a domain.Batch, b domain.Batch) int {
	if a.ReceivedDate.Before(b.ReceivedDate) {
		return -1
	}
	if a.ReceivedDate.After(b.ReceivedDate) {
		return 1
	}
	return cmpString(a.ID, b.ID)
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func seedDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func seedDatePtr(year int, month time.Month, day int) *time.Time {
	d := seedDate(year, month, day)
	return &d
}

func cloneBatch(src domain.Batch) domain.Batch {
	dup := src
	if src.ExpiryDate != nil {
		expiry := *src.ExpiryDate
		dup.ExpiryDate = &expiry
	}
	return dup
}

func cloneTransaction(src domain.SalesTransaction) domain.SalesTransaction {
	dup := src
	lines := make([]domain.SaleLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}
