package domain

import "time"

type Product struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Unit         string `json:"unit"`
	SellingPrice int64  `json:"selling_price"`
	Active       bool   `json:"active"`
}

// Batch is a discrete intake of stock for one product. PurchasePrice is fixed
// at intake and never changes afterwards; that is what makes per-batch cost
// basis meaningful. RemainingQty only ever decreases, and exhausted batches
// are kept as zero-remaining history.
type Batch struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"product_id"`
	PurchasePrice int64      `json:"purchase_price"`
	InitialQty    int        `json:"initial_qty"`
	RemainingQty  int        `json:"remaining_qty"`
	ReceivedDate  time.Time  `json:"received_date"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	SupplierNote  string     `json:"supplier_note,omitempty"`
}

type Store struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Warehouse bool   `json:"warehouse"`
	Type      string `json:"type"`
	Location  string `json:"location,omitempty"`
}

// StoreStock is the quantity of one batch physically present at one store.
// A batch may be split across many stores.
type StoreStock struct {
	StoreID    string `json:"store_id"`
	BatchID    string `json:"batch_id"`
	CurrentQty int    `json:"current_qty"`
}

type PriceHistory struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	SellingPrice  int64     `json:"selling_price"`
	EffectiveDate time.Time `json:"effective_date"`
	Note          string    `json:"note,omitempty"`
}

type CashHolding struct {
	StoreID string `json:"store_id"`
	Balance int64  `json:"balance"`
}

// SaleLine records how much of a sale was drawn from one batch and the margin
// that slice produced.
type SaleLine struct {
	BatchID       string `json:"batch_id"`
	QtyFromBatch  int    `json:"qty_from_batch"`
	PurchasePrice int64  `json:"purchase_price_per_unit"`
	SellingPrice  int64  `json:"selling_price_per_unit"`
	LineMargin    int64  `json:"line_margin"`
}

// SalesTransaction is the immutable ledger record of one sale. It is created
// exactly once per successful sale and never mutated or deleted.
type SalesTransaction struct {
	ID              string     `json:"id"`
	StoreID         string     `json:"store_id"`
	ProductID       string     `json:"product_id"`
	QtySold         int        `json:"qty_sold"`
	SellingPrice    int64      `json:"selling_price_per_unit"`
	Lines           []SaleLine `json:"batch_items"`
	TotalRevenue    int64      `json:"total_revenue"`
	TotalCOGS       int64      `json:"total_cogs"`
	TotalMargin     int64      `json:"total_margin"`
	MarginPercent   float64    `json:"margin_percent"`
	TransactionDate time.Time  `json:"transaction_date"`
	PaymentMethod   string     `json:"payment_method"`
	Note            string     `json:"note,omitempty"`
}

type Allocation struct {
	BatchID       string `json:"batch_id"`
	Qty           int    `json:"qty_allocated"`
	PurchasePrice int64  `json:"purchase_price_per_unit"`
}

// AllocationPlan is the transient output of the FIFO engine: which batches a
// requested quantity would be carved from, in receipt-date order, and the
// resulting cost basis. Success is true only when the full quantity was
// covered; callers must never apply a plan with Success == false.
type AllocationPlan struct {
	Success        bool         `json:"success"`
	Allocations    []Allocation `json:"allocations"`
	TotalAllocated int          `json:"total_allocated"`
	Shortfall      int          `json:"shortfall"`
	TotalCOGS      int64        `json:"total_cogs"`
	Error          string       `json:"error,omitempty"`
}

type SaleRequest struct {
	StoreID       string `json:"store_id"`
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	PaymentMethod string `json:"payment_method"`
	Note          string `json:"note,omitempty"`
}

type PreviewRequest struct {
	StoreID   string `json:"store_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type StockTransferRequest struct {
	FromStoreID string `json:"from_store_id"`
	ToStoreID   string `json:"to_store_id"`
	BatchID     string `json:"batch_id"`
	Qty         int    `json:"qty"`
}

type CashTransferRequest struct {
	FromStoreID string `json:"from_store_id"`
	ToStoreID   string `json:"to_store_id"`
	Amount      int64  `json:"amount"`
}

type TransferResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type BatchIntakeRequest struct {
	ProductID     string `json:"product_id"`
	PurchasePrice int64  `json:"purchase_price"`
	Qty           int    `json:"qty"`
	TargetStoreID string `json:"target_store_id,omitempty"`
	ExpiryDate    string `json:"expiry_date,omitempty"`
	SupplierNote  string `json:"supplier_note,omitempty"`
}

type PriceUpdateRequest struct {
	NewPrice int64  `json:"new_price"`
	Note     string `json:"note,omitempty"`
}

type SalesReportPayment struct {
	PaymentMethod string `json:"payment_method"`
	Transactions  int64  `json:"transactions"`
	Revenue       int64  `json:"revenue"`
}

type SalesReportProduct struct {
	ProductID string `json:"product_id"`
	UnitsSold int    `json:"units_sold"`
	Revenue   int64  `json:"revenue"`
	COGS      int64  `json:"cogs"`
	Margin    int64  `json:"margin"`
}

type SalesReport struct {
	StoreID       string               `json:"store_id"`
	Date          string               `json:"date"`
	Transactions  int64                `json:"transactions"`
	UnitsSold     int                  `json:"units_sold"`
	Revenue       int64                `json:"revenue"`
	COGS          int64                `json:"cogs"`
	Margin        int64                `json:"margin"`
	MarginPercent float64              `json:"margin_percent"`
	ByPayment     []SalesReportPayment `json:"by_payment"`
	ByProduct     []SalesReportProduct `json:"by_product"`
}

// BatchVisibilityRow shows one batch together with the per-store split of its
// remaining stock. QtySold is InitialQty minus RemainingQty, which makes the
// conservation invariant directly visible in the HQ batch table.
type BatchVisibilityRow struct {
	Batch      Batch        `json:"batch"`
	QtySold    int          `json:"qty_sold"`
	StoreSplit []StoreStock `json:"store_split"`
}

type ExhaustionEstimate struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	CurrentStock int     `json:"current_stock"`
	AvgDailySold float64 `json:"avg_daily_sold"`
	DaysLeft     float64 `json:"days_left"`
	Exhausted    bool    `json:"exhausted"`
}

type StoreOverview struct {
	Store        Store `json:"store"`
	StockUnits   int   `json:"stock_units"`
	CashBalance  int64 `json:"cash_balance"`
	TodayRevenue int64 `json:"today_revenue"`
	TodayMargin  int64 `json:"today_margin"`
}

const (
	PaymentCash    = "cash"
	PaymentFonepay = "fonepay"
)

const (
	StoreTypeMainHQ       = "mainHQ"
	StoreTypeProvincialHQ = "provincialHQ"
	StoreTypeRetail       = "retail"
)
