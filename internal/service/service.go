package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"kinmel/backend/internal/cache"
	"kinmel/backend/internal/domain"
	"kinmel/backend/internal/fifo"
	"kinmel/backend/internal/store"
	"kinmel/backend/internal/xid"
)

const exhaustionWindowDays = 14

// Service orchestrates the FIFO engine against the repository: it fetches the
// inventory snapshot, runs the pure allocation, and commits the resulting
// transaction as one repository call. Previews are cached under a revision
// counter that every committed mutation bumps, so a cached plan is always
// computed from the latest committed snapshot.
type Service struct {
	repo       store.Repository
	previews   cache.PreviewCache
	previewTTL time.Duration
	mainHQID   string
	revision   atomic.Int64
}

func New(repo store.Repository, previews cache.PreviewCache, previewTTL time.Duration, mainHQID string) *Service {
	if previews == nil {
		previews = cache.NoopPreviewCache{}
	}
	if previewTTL < time.Second {
		previewTTL = 5 * time.Second
	}
	if mainHQID == "" {
		mainHQID = "hq-ktm"
	}

	return &Service{
		repo:       repo,
		previews:   previews,
		previewTTL: previewTTL,
		mainHQID:   mainHQID,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	return s.repo.ListStores(ctx)
}

func (s *Service) ListBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	return s.repo.ListBatches(ctx, productID)
}

func (s *Service) ListStoreStocks(ctx context.Context, storeID string) ([]domain.StoreStock, error) {
	return s.repo.ListStoreStocks(ctx, storeID)
}

func (s *Service) ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.SalesTransaction, error) {
	return s.repo.ListTransactions(ctx, storeID, limit)
}

func (s *Service) ListCashHoldings(ctx context.Context) ([]domain.CashHolding, error) {
	return s.repo.ListCashHoldings(ctx)
}

func (s *Service) ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.PriceHistory, error) {
	return s.repo.ListPriceHistory(ctx, productID, limit)
}

// PreviewAllocation answers "which batches would this sale draw from, at what
// cost" without touching inventory. Calling it any number of times leaves
// state exactly as it was.
func (s *Service) PreviewAllocation(ctx context.Context, req domain.PreviewRequest) (domain.AllocationPlan, error) {
	cacheKey := fmt.Sprintf("preview:%d:%s:%s:%d", s.revision.Load(), req.StoreID, req.ProductID, req.Qty)
	if cached, hit, err := s.previews.Get(ctx, cacheKey); err != nil {
		log.Printf("[service] WARN: preview cache get failed: %v", err)
	} else if hit {
		return *cached, nil
	}

	plan, _, err := s.planAllocation(ctx, req.StoreID, req.ProductID, req.Qty)
	if err != nil {
		return domain.AllocationPlan{}, err
	}

	if err := s.previews.Set(ctx, cacheKey, &plan, s.previewTTL); err != nil {
		log.Printf("[service] WARN: preview cache set failed: %v", err)
	}
	return plan, nil
}

// RecordSale runs allocation and, when the full quantity is covered, commits
// the priced transaction atomically. A failed allocation returns the plan
// with its shortfall and leaves inventory, cash and the ledger untouched; the
// returned transaction is nil in that case.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.AllocationPlan, *domain.SalesTransaction, error) {
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = domain.PaymentCash
	}
	if method != domain.PaymentCash && method != domain.PaymentFonepay {
		return domain.AllocationPlan{}, nil, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, req.PaymentMethod)
	}

	plan, product, err := s.planAllocation(ctx, req.StoreID, req.ProductID, req.Qty)
	if err != nil {
		return domain.AllocationPlan{}, nil, err
	}
	if !plan.Success {
		return plan, nil, nil
	}

	tx := fifo.BuildTransaction(req.StoreID, req.ProductID, req.Qty, product.SellingPrice, plan, method, req.Note)

	// Digital payments settle to the main HQ account; cash stays in the till
	// of the selling store.
	cashStoreID := req.StoreID
	if method == domain.PaymentFonepay {
		cashStoreID = s.mainHQID
	}

	committed, err := s.repo.CommitSale(ctx, tx, cashStoreID)
	if err != nil {
		return domain.AllocationPlan{}, nil, err
	}
	s.revision.Add(1)

	return plan, committed, nil
}

func (s *Service) planAllocation(ctx context.Context, storeID string, productID string, qty int) (domain.AllocationPlan, *domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		shortfall := qty
		if shortfall < 0 {
			shortfall = 0
		}
		return domain.AllocationPlan{
			Allocations: []domain.Allocation{},
			Shortfall:   shortfall,
			Error:       "product not found",
		}, nil, nil
	}
	if err != nil {
		return domain.AllocationPlan{}, nil, err
	}

	stocks, batches, err := s.repo.ProductInventory(ctx, storeID, productID)
	if err != nil {
		return domain.AllocationPlan{}, nil, err
	}

	plan := fifo.Allocate(storeID, productID, qty, stocks, batches)
	return plan, product, nil
}

// TransferStock relocates units of one batch between stores. The batch's cost
// basis and remaining quantity travel untouched; only the physical split
// changes.
func (s *Service) TransferStock(ctx context.Context, req domain.StockTransferRequest) (domain.TransferResponse, error) {
	err := s.repo.TransferStock(ctx, req.FromStoreID, req.ToStoreID, req.BatchID, req.Qty)
	if err != nil {
		if isDomainRejection(err) {
			return domain.TransferResponse{Success: false, Error: err.Error()}, nil
		}
		return domain.TransferResponse{}, err
	}
	s.revision.Add(1)
	return domain.TransferResponse{Success: true}, nil
}

func (s *Service) TransferCash(ctx context.Context, req domain.CashTransferRequest) (domain.TransferResponse, error) {
	err := s.repo.TransferCash(ctx, req.FromStoreID, req.ToStoreID, req.Amount)
	if err != nil {
		if isDomainRejection(err) {
			return domain.TransferResponse{Success: false, Error: err.Error()}, nil
		}
		return domain.TransferResponse{}, err
	}
	s.revision.Add(1)
	return domain.TransferResponse{Success: true}, nil
}

// ReceiveBatch registers a supplier intake as a new batch and places the full
// quantity at the target store, defaulting to the main HQ warehouse.
func (s *Service) ReceiveBatch(ctx context.Context, req domain.BatchIntakeRequest) (*domain.Batch, error) {
	if req.Qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}
	if req.PurchasePrice < 1 {
		return nil, fmt.Errorf("%w: purchase price must be greater than zero", store.ErrInvalidInput)
	}

	targetStoreID := req.TargetStoreID
	if targetStoreID == "" {
		targetStoreID = s.mainHQID
	}

	var expiry *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.ExpiryDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: expiry_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		expiry = &parsed
	}

	now := time.Now().UTC()
	batch := domain.Batch{
		ID:            xid.New("batch"),
		ProductID:     req.ProductID,
		PurchasePrice: req.PurchasePrice,
		InitialQty:    req.Qty,
		RemainingQty:  req.Qty,
		ReceivedDate:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		ExpiryDate:    expiry,
		SupplierNote:  strings.TrimSpace(req.SupplierNote),
	}

	created, err := s.repo.ReceiveBatch(ctx, batch, targetStoreID)
	if err != nil {
		return nil, err
	}
	s.revision.Add(1)
	return created, nil
}

// UpdateSellingPrice changes the catalog price for future sales and appends
// the price-history entry. Recorded transactions keep the price they were
// sold at.
func (s *Service) UpdateSellingPrice(ctx context.Context, productID string, req domain.PriceUpdateRequest) (*domain.Product, error) {
	if req.NewPrice < 1 {
		return nil, fmt.Errorf("%w: selling price must be greater than zero", store.ErrInvalidInput)
	}

	entry := domain.PriceHistory{
		ID:            xid.New("ph"),
		ProductID:     productID,
		SellingPrice:  req.NewPrice,
		EffectiveDate: time.Now().UTC(),
		Note:          strings.TrimSpace(req.Note),
	}

	updated, err := s.repo.UpdateSellingPrice(ctx, productID, entry)
	if err != nil {
		return nil, err
	}
	s.revision.Add(1)
	return updated, nil
}

// SalesReport aggregates one store's ledger for a single day. dateStr is
// YYYY-MM-DD; empty means today (UTC).
func (s *Service) SalesReport(ctx context.Context, storeID string, dateStr string) (domain.SalesReport, error) {
	day := time.Now().UTC()
	if dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			return domain.SalesReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		day = parsed
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	return s.repo.SalesReport(ctx, storeID, from, to)
}

// BatchVisibility lists every batch of a product with its per-store split,
// the HQ view of where each intake currently sits and how much of it has been
// sold.
func (s *Service) BatchVisibility(ctx context.Context, productID string) ([]domain.BatchVisibilityRow, error) {
	batches, err := s.repo.ListBatches(ctx, productID)
	if err != nil {
		return nil, err
	}
	stocks, err := s.repo.ListStoreStocks(ctx, "")
	if err != nil {
		return nil, err
	}

	splitByBatch := make(map[string][]domain.StoreStock, len(batches))
	for _, ss := range stocks {
		if ss.CurrentQty < 1 {
			continue
		}
		splitByBatch[ss.BatchID] = append(splitByBatch[ss.BatchID], ss)
	}

	rows := make([]domain.BatchVisibilityRow, 0, len(batches))
	for _, batch := range batches {
		split := splitByBatch[batch.ID]
		if split == nil {
			split = []domain.StoreStock{}
		}
		rows = append(rows, domain.BatchVisibilityRow{
			Batch:      batch,
			QtySold:    batch.InitialQty - batch.RemainingQty,
			StoreSplit: split,
		})
	}
	return rows, nil
}

// ExhaustionEstimates projects how many days each product's stock at a store
// will last, based on average daily units sold over the trailing two weeks.
func (s *Service) ExhaustionEstimates(ctx context.Context, storeID string) ([]domain.ExhaustionEstimate, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	stocks, err := s.repo.ListStoreStocks(ctx, storeID)
	if err != nil {
		return nil, err
	}
	batches, err := s.repo.ListBatches(ctx, "")
	if err != nil {
		return nil, err
	}
	transactions, err := s.repo.ListTransactions(ctx, storeID, 0)
	if err != nil {
		return nil, err
	}

	productByBatch := make(map[string]string, len(batches))
	for _, b := range batches {
		productByBatch[b.ID] = b.ProductID
	}

	stockByProduct := make(map[string]int, len(products))
	for _, ss := range stocks {
		if productID, ok := productByBatch[ss.BatchID]; ok {
			stockByProduct[productID] += ss.CurrentQty
		}
	}

	windowStart := time.Now().UTC().AddDate(0, 0, -exhaustionWindowDays)
	soldByProduct := make(map[string]int, len(products))
	for _, tx := range transactions {
		if tx.TransactionDate.Before(windowStart) {
			continue
		}
		soldByProduct[tx.ProductID] += tx.QtySold
	}

	estimates := make([]domain.ExhaustionEstimate, 0, len(products))
	for _, product := range products {
		current := stockByProduct[product.ID]
		avgDaily := float64(soldByProduct[product.ID]) / float64(exhaustionWindowDays)

		daysLeft := 0.0
		if avgDaily > 0 {
			daysLeft = math.Round(float64(current)/avgDaily*10) / 10
		}

		estimates = append(estimates, domain.ExhaustionEstimate{
			ProductID:    product.ID,
			ProductName:  product.Name,
			CurrentStock: current,
			AvgDailySold: math.Round(avgDaily*100) / 100,
			DaysLeft:     daysLeft,
			Exhausted:    current == 0,
		})
	}
	return estimates, nil
}

// StoreOverview summarizes every location: total units on hand, cash balance
// and today's sales figures.
func (s *Service) StoreOverview(ctx context.Context) ([]domain.StoreOverview, error) {
	stores, err := s.repo.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	holdings, err := s.repo.ListCashHoldings(ctx)
	if err != nil {
		return nil, err
	}

	cashByStore := make(map[string]int64, len(holdings))
	for _, holding := range holdings {
		cashByStore[holding.StoreID] = holding.Balance
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	overviews := make([]domain.StoreOverview, 0, len(stores))
	for _, st := range stores {
		stocks, err := s.repo.ListStoreStocks(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		units := 0
		for _, ss := range stocks {
			units += ss.CurrentQty
		}

		report, err := s.repo.SalesReport(ctx, st.ID, from, to)
		if err != nil {
			return nil, err
		}

		overviews = append(overviews, domain.StoreOverview{
			Store:        st,
			StockUnits:   units,
			CashBalance:  cashByStore[st.ID],
			TodayRevenue: report.Revenue,
			TodayMargin:  report.Margin,
		})
	}
	return overviews, nil
}

// isDomainRejection reports whether err is a business-rule refusal that maps
// to a failed TransferResponse rather than a transport-level failure.
func isDomainRejection(err error) bool {
	return errors.Is(err, store.ErrInvalidInput) ||
		errors.Is(err, store.ErrInsufficientStock) ||
		errors.Is(err, store.ErrInsufficientCash) ||
		errors.Is(err, store.ErrNotFound)
}
