package store

import (
	"context"
	"errors"
	"time"

	"kinmel/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientCash  = errors.New("insufficient cash")

	// ErrStaleAllocation means a committed sale referenced a stock row or
	// batch that can no longer cover it. With plans applied immediately
	// against the snapshot they were computed from this cannot happen, so
	// hitting it indicates an internal consistency bug, not user error.
	ErrStaleAllocation = errors.New("allocation no longer matches inventory state")
)

// Repository is the single write path to the shared inventory aggregate.
// Every mutating method is one atomic state transition: either all of its
// effects are visible to subsequent reads, or none are.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	// UpdateSellingPrice writes the product's current price and appends the
	// price-history entry in the same transition, so the two never diverge.
	UpdateSellingPrice(ctx context.Context, productID string, entry domain.PriceHistory) (*domain.Product, error)
	ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.PriceHistory, error)

	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStoreByID(ctx context.Context, id string) (*domain.Store, error)

	ListBatches(ctx context.Context, productID string) ([]domain.Batch, error)
	ListStoreStocks(ctx context.Context, storeID string) ([]domain.StoreStock, error)
	// ProductInventory returns the stock rows at storeID that reference a
	// batch of productID, plus those batches. This is the snapshot the FIFO
	// engine allocates against.
	ProductInventory(ctx context.Context, storeID string, productID string) ([]domain.StoreStock, []domain.Batch, error)

	// CommitSale applies the sale's batch lines (decrementing store stock and
	// batch remaining quantities), appends the transaction to the ledger and
	// credits TotalRevenue to cashStoreID's holding, all atomically. A line
	// that would under-run returns ErrStaleAllocation and nothing is changed.
	CommitSale(ctx context.Context, sale domain.SalesTransaction, cashStoreID string) (*domain.SalesTransaction, error)

	TransferStock(ctx context.Context, fromStoreID string, toStoreID string, batchID string, qty int) error
	TransferCash(ctx context.Context, fromStoreID string, toStoreID string, amount int64) error
	ReceiveBatch(ctx context.Context, batch domain.Batch, targetStoreID string) (*domain.Batch, error)

	ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.SalesTransaction, error)
	ListCashHoldings(ctx context.Context) ([]domain.CashHolding, error)
	SalesReport(ctx context.Context, storeID string, from time.Time, to time.Time) (domain.SalesReport, error)
}
