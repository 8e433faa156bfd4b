package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kinmel/backend/internal/domain"
	"kinmel/backend/internal/store"
)

func newNetworkStore(t *testing.T) *Store {
	t.Helper()

	s := New()
	s.AddStore(domain.Store{ID: "hq-ktm", Name: "Kathmandu HQ", Warehouse: true, Type: domain.StoreTypeMainHQ})
	s.AddStore(domain.Store{ID: "store-01", Name: "New Road Store", Type: domain.StoreTypeRetail})
	s.AddProduct(domain.Product{ID: "prod-1", SKU: "RICE-01", Name: "Rice", Category: "staples", Unit: "sack", SellingPrice: 180, Active: true})
	return s
}

func receiveTestBatch(t *testing.T, s *Store, id string, price int64, qty int, storeID string) *domain.Batch {
	t.Helper()

	created, err := s.ReceiveBatch(context.Background(), domain.Batch{
		ID:            id,
		ProductID:     "prod-1",
		PurchasePrice: price,
		InitialQty:    qty,
		RemainingQty:  qty,
		ReceivedDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}, storeID)
	if err != nil {
		t.Fatalf("receive batch: %v", err)
	}
	return created
}

func stockAt(t *testing.T, s *Store, storeID string, batchID string) int {
	t.Helper()

	stocks, err := s.ListStoreStocks(context.Background(), storeID)
	if err != nil {
		t.Fatalf("list stocks: %v", err)
	}
	for _, ss := range stocks {
		if ss.BatchID == batchID {
			return ss.CurrentQty
		}
	}
	return 0
}

func TestReceiveBatchPlacesFullQuantity(t *testing.T) {
	s := newNetworkStore(t)

	created := receiveTestBatch(t, s, "batch-1", 100, 50, "hq-ktm")

	if created.RemainingQty != 50 {
		t.Fatalf("expected remaining 50, got %d", created.RemainingQty)
	}
	if got := stockAt(t, s, "hq-ktm", "batch-1"); got != 50 {
		t.Fatalf("expected 50 units at hq-ktm, got %d", got)
	}
}

func TestReceiveBatchUnknownProductOrStore(t *testing.T) {
	s := newNetworkStore(t)

	_, err := s.ReceiveBatch(context.Background(), domain.Batch{ProductID: "ghost", InitialQty: 5, PurchasePrice: 1}, "hq-ktm")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}

	_, err = s.ReceiveBatch(context.Background(), domain.Batch{ProductID: "prod-1", InitialQty: 5, PurchasePrice: 1}, "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown store, got %v", err)
	}
}

func TestTransferStockMovesQuantityOnly(t *testing.T) {
	s := newNetworkStore(t)
	receiveTestBatch(t, s, "batch-1", 100, 50, "hq-ktm")

	if err := s.TransferStock(context.Background(), "hq-ktm", "store-01", "batch-1", 20); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := stockAt(t, s, "hq-ktm", "batch-1"); got != 30 {
		t.Fatalf("expected 30 left at hq-ktm, got %d", got)
	}
	if got := stockAt(t, s, "store-01", "batch-1"); got != 20 {
		t.Fatalf("expected 20 at store-01, got %d", got)
	}

	batches, err := s.ListBatches(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if batches[0].RemainingQty != 50 {
		t.Fatalf("transfer must not touch batch remaining qty, got %d", batches[0].RemainingQty)
	}
}

func TestTransferStockValidations(t *testing.T) {
	s := newNetworkStore(t)
	receiveTestBatch(t, s, "batch-1", 100, 5, "hq-ktm")

	err := s.TransferStock(context.Background(), "hq-ktm", "store-01", "batch-1", 0)
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for qty 0, got %v", err)
	}

	err = s.TransferStock(context.Background(), "hq-ktm", "hq-ktm", "batch-1", 3)
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for same-store transfer, got %v", err)
	}
	if !strings.Contains(err.Error(), "differ") {
		t.Fatalf("expected same-store message, got %q", err.Error())
	}

	err = s.TransferStock(context.Background(), "hq-ktm", "store-01", "batch-1", 10)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if !strings.Contains(err.Error(), "available: 5") {
		t.Fatalf("expected available quantity in message, got %q", err.Error())
	}

	// Rejected transfers leave both sides untouched.
	if got := stockAt(t, s, "hq-ktm", "batch-1"); got != 5 {
		t.Fatalf("source changed after rejected transfers: %d", got)
	}
	if got := stockAt(t, s, "store-01", "batch-1"); got != 0 {
		t.Fatalf("destination changed after rejected transfers: %d", got)
	}
}

func TestTransferCash(t *testing.T) {
	s := newNetworkStore(t)
	receiveTestBatch(t, s, "batch-1", 100, 10, "store-01")

	sale := saleFixture("store-01", 2, 180, 100)
	if _, err := s.CommitSale(context.Background(), sale, "store-01"); err != nil {
		t.Fatalf("commit sale: %v", err)
	}

	if err := s.TransferCash(context.Background(), "store-01", "hq-ktm", 300); err != nil {
		t.Fatalf("transfer cash: %v", err)
	}

	holdings, err := s.ListCashHoldings(context.Background())
	if err != nil {
		t.Fatalf("list holdings: %v", err)
	}
	balances := map[string]int64{}
	for _, holding := range holdings {
		balances[holding.StoreID] = holding.Balance
	}
	if balances["store-01"] != 60 {
		t.Fatalf("expected 60 left at store-01 (360 revenue - 300 sent), got %d", balances["store-01"])
	}
	if balances["hq-ktm"] != 300 {
		t.Fatalf("expected 300 at hq-ktm, got %d", balances["hq-ktm"])
	}

	err = s.TransferCash(context.Background(), "store-01", "hq-ktm", 100)
	if !errors.Is(err, store.ErrInsufficientCash) {
		t.Fatalf("expected insufficient cash, got %v", err)
	}
	if !strings.Contains(err.Error(), "available: 60") {
		t.Fatalf("expected available balance in message, got %q", err.Error())
	}
}

func saleFixture(storeID string, qty int, sellingPrice int64, purchasePrice int64) domain.SalesTransaction {
	revenue := sellingPrice * int64(qty)
	cogs := purchasePrice * int64(qty)
	return domain.SalesTransaction{
		StoreID:      storeID,
		ProductID:    "prod-1",
		QtySold:      qty,
		SellingPrice: sellingPrice,
		Lines: []domain.SaleLine{{
			BatchID:       "batch-1",
			QtyFromBatch:  qty,
			PurchasePrice: purchasePrice,
			SellingPrice:  sellingPrice,
			LineMargin:    revenue - cogs,
		}},
		TotalRevenue:  revenue,
		TotalCOGS:     cogs,
		TotalMargin:   revenue - cogs,
		PaymentMethod: domain.PaymentCash,
	}
}

func TestCommitSaleConservesQuantity(t *testing.T) {
	s := newNetworkStore(t)
	receiveTestBatch(t, s, "batch-1", 100, 50, "store-01")

	committed, err := s.CommitSale(context.Background(), saleFixture("store-01", 30, 180, 100), "store-01")
	if err != nil {
		t.Fatalf("commit sale: %v", err)
	}
	if committed.ID == "" || committed.TransactionDate.IsZero() {
		t.Fatalf("committed transaction missing identity: %+v", committed)
	}

	batches, err := s.ListBatches(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	batch := batches[0]

	stockSum := 0
	stocks, err := s.ListStoreStocks(context.Background(), "")
	if err != nil {
		t.Fatalf("list stocks: %v", err)
	}
	for _, ss := range stocks {
		if ss.BatchID == batch.ID {
			stockSum += ss.CurrentQty
		}
	}
	sold := batch.InitialQty - batch.RemainingQty

	if stockSum+sold != batch.InitialQty {
		t.Fatalf("conservation broken: stock %d + sold %d != initial %d", stockSum, sold, batch.InitialQty)
	}
	if batch.RemainingQty != 20 {
		t.Fatalf("expected batch remaining 20, got %d", batch.RemainingQty)
	}

	transactions, err := s.ListTransactions(context.Background(), "store-01", 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 1 || transactions[0].QtySold != 30 {
		t.Fatalf("expected one ledger entry of 30 units, got %+v", transactions)
	}
}

func TestCommitSaleRejectsStalePlan(t *testing.T) {
	s := newNetworkStore(t)
	receiveTestBatch(t, s, "batch-1", 100, 10, "store-01")

	_, err := s.CommitSale(context.Background(), saleFixture("store-01", 15, 180, 100), "store-01")
	if !errors.Is(err, store.ErrStaleAllocation) {
		t.Fatalf("expected ErrStaleAllocation, got %v", err)
	}

	// Nothing was applied.
	if got := stockAt(t, s, "store-01", "batch-1"); got != 10 {
		t.Fatalf("stock changed after rejected sale: %d", got)
	}
	transactions, err := s.ListTransactions(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 0 {
		t.Fatalf("ledger must stay empty after rejected sale, got %d entries", len(transactions))
	}
	holdings, err := s.ListCashHoldings(context.Background())
	if err != nil {
		t.Fatalf("list holdings: %v", err)
	}
	if len(holdings) != 0 {
		t.Fatalf("cash must stay untouched after rejected sale, got %+v", holdings)
	}
}

func TestCommitSaleOrdersLedgerMostRecentFirst(t *testing.T) {
	s := newNetworkStore(t)
	receiveTestBatch(t, s, "batch-1", 100, 50, "store-01")

	first := saleFixture("store-01", 1, 180, 100)
	first.TransactionDate = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	second := saleFixture("store-01", 2, 180, 100)
	second.TransactionDate = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	if _, err := s.CommitSale(context.Background(), first, "store-01"); err != nil {
		t.Fatalf("commit first: %v", err)
	}
	if _, err := s.CommitSale(context.Background(), second, "store-01"); err != nil {
		t.Fatalf("commit second: %v", err)
	}

	transactions, err := s.ListTransactions(context.Background(), "store-01", 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if transactions[0].QtySold != 2 || transactions[1].QtySold != 1 {
		t.Fatalf("expected most recent first, got %+v", transactions)
	}
}

func TestUpdateSellingPriceWritesProductAndHistory(t *testing.T) {
	s := newNetworkStore(t)

	updated, err := s.UpdateSellingPrice(context.Background(), "prod-1", domain.PriceHistory{SellingPrice: 210, Note: "season"})
	if err != nil {
		t.Fatalf("update price: %v", err)
	}
	if updated.SellingPrice != 210 {
		t.Fatalf("expected price 210, got %d", updated.SellingPrice)
	}

	history, err := s.ListPriceHistory(context.Background(), "prod-1", 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].SellingPrice != 210 || history[0].Note != "season" {
		t.Fatalf("unexpected history: %+v", history)
	}

	_, err = s.UpdateSellingPrice(context.Background(), "prod-1", domain.PriceHistory{SellingPrice: 0})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero price, got %v", err)
	}
	_, err = s.UpdateSellingPrice(context.Background(), "ghost", domain.PriceHistory{SellingPrice: 100})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSeededSnapshotIsConsistent(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	batches, err := s.ListBatches(ctx, "")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) == 0 {
		t.Fatalf("seeded store has no batches")
	}

	stocks, err := s.ListStoreStocks(ctx, "")
	if err != nil {
		t.Fatalf("list stocks: %v", err)
	}
	stockByBatch := map[string]int{}
	for _, ss := range stocks {
		stockByBatch[ss.BatchID] += ss.CurrentQty
	}

	for _, batch := range batches {
		if batch.RemainingQty != batch.InitialQty {
			t.Fatalf("seed batch %s already partially sold", batch.ID)
		}
		if stockByBatch[batch.ID] != batch.InitialQty {
			t.Fatalf("batch %s splits to %d units, initial is %d", batch.ID, stockByBatch[batch.ID], batch.InitialQty)
		}
	}

	if _, err := s.GetStoreByID(ctx, "hq-ktm"); err != nil {
		t.Fatalf("seeded store must contain the main HQ: %v", err)
	}
}
