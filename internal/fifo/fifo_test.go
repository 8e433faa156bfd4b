package fifo

import (
	"strings"
	"testing"
	"time"

	"kinmel/backend/internal/domain"
)

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func twoBatchInventory() ([]domain.StoreStock, []domain.Batch) {
	batches := []domain.Batch{
		{ID: "batch-a", ProductID: "prod-1", PurchasePrice: 10, InitialQty: 5, RemainingQty: 5, ReceivedDate: day(0)},
		{ID: "batch-b", ProductID: "prod-1", PurchasePrice: 12, InitialQty: 20, RemainingQty: 20, ReceivedDate: day(10)},
	}
	stocks := []domain.StoreStock{
		{StoreID: "store-01", BatchID: "batch-a", CurrentQty: 5},
		{StoreID: "store-01", BatchID: "batch-b", CurrentQty: 20},
	}
	return stocks, batches
}

func TestAllocateSplitsAcrossOldestBatchesFirst(t *testing.T) {
	stocks, batches := twoBatchInventory()

	plan := Allocate("store-01", "prod-1", 8, stocks, batches)

	if !plan.Success {
		t.Fatalf("expected success, got error %q", plan.Error)
	}
	if len(plan.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(plan.Allocations))
	}
	first, second := plan.Allocations[0], plan.Allocations[1]
	if first.BatchID != "batch-a" || first.Qty != 5 || first.PurchasePrice != 10 {
		t.Fatalf("unexpected first allocation: %+v", first)
	}
	if second.BatchID != "batch-b" || second.Qty != 3 || second.PurchasePrice != 12 {
		t.Fatalf("unexpected second allocation: %+v", second)
	}
	if plan.TotalAllocated != 8 || plan.Shortfall != 0 {
		t.Fatalf("expected 8 allocated with no shortfall, got %d/%d", plan.TotalAllocated, plan.Shortfall)
	}
	if plan.TotalCOGS != 86 {
		t.Fatalf("expected COGS 86 (5*10 + 3*12), got %d", plan.TotalCOGS)
	}
}

func TestAllocateExactDepletion(t *testing.T) {
	stocks, batches := twoBatchInventory()

	plan := Allocate("store-01", "prod-1", 25, stocks, batches)

	if !plan.Success {
		t.Fatalf("expected success, got error %q", plan.Error)
	}
	if plan.TotalAllocated != 25 || plan.Shortfall != 0 {
		t.Fatalf("expected full allocation, got %d/%d", plan.TotalAllocated, plan.Shortfall)
	}
}

func TestAllocateReportsShortfall(t *testing.T) {
	stocks, batches := twoBatchInventory()

	plan := Allocate("store-01", "prod-1", 30, stocks, batches)

	if plan.Success {
		t.Fatalf("expected failure for request beyond available stock")
	}
	if plan.TotalAllocated != 25 {
		t.Fatalf("expected partial allocation of 25, got %d", plan.TotalAllocated)
	}
	if plan.Shortfall != 5 {
		t.Fatalf("expected shortfall 5, got %d", plan.Shortfall)
	}
	if !strings.Contains(plan.Error, "5") {
		t.Fatalf("expected error to mention shortfall quantity, got %q", plan.Error)
	}
	if len(plan.Allocations) != 2 {
		t.Fatalf("expected the partial plan to keep its allocations, got %d", len(plan.Allocations))
	}
}

func TestAllocateRejectsNonPositiveQty(t *testing.T) {
	stocks, batches := twoBatchInventory()

	for _, qty := range []int{0, -3} {
		plan := Allocate("store-01", "prod-1", qty, stocks, batches)
		if plan.Success {
			t.Fatalf("qty %d: expected failure", qty)
		}
		if plan.Shortfall != 0 {
			t.Fatalf("qty %d: invalid input must report shortfall 0, got %d", qty, plan.Shortfall)
		}
		if len(plan.Allocations) != 0 {
			t.Fatalf("qty %d: expected no allocations, got %d", qty, len(plan.Allocations))
		}
		if plan.Error == "" {
			t.Fatalf("qty %d: expected an error message", qty)
		}
	}
}

func TestAllocateIgnoresOtherStoresAndProducts(t *testing.T) {
	batches := []domain.Batch{
		{ID: "batch-a", ProductID: "prod-1", PurchasePrice: 10, InitialQty: 5, RemainingQty: 5, ReceivedDate: day(0)},
		{ID: "batch-x", ProductID: "prod-2", PurchasePrice: 3, InitialQty: 50, RemainingQty: 50, ReceivedDate: day(0)},
	}
	stocks := []domain.StoreStock{
		{StoreID: "store-01", BatchID: "batch-a", CurrentQty: 5},
		{StoreID: "store-02", BatchID: "batch-a", CurrentQty: 40},
		{StoreID: "store-01", BatchID: "batch-x", CurrentQty: 50},
	}

	plan := Allocate("store-01", "prod-1", 10, stocks, batches)

	if plan.Success {
		t.Fatalf("expected failure; only 5 units of prod-1 sit at store-01")
	}
	if plan.TotalAllocated != 5 || plan.Shortfall != 5 {
		t.Fatalf("expected 5 allocated and 5 short, got %d/%d", plan.TotalAllocated, plan.Shortfall)
	}
}

func TestAllocateBreaksReceiptDateTiesByBatchID(t *testing.T) {
	batches := []domain.Batch{
		{ID: "batch-b", ProductID: "prod-1", PurchasePrice: 12, InitialQty: 10, RemainingQty: 10, ReceivedDate: day(0)},
		{ID: "batch-a", ProductID: "prod-1", PurchasePrice: 10, InitialQty: 10, RemainingQty: 10, ReceivedDate: day(0)},
	}
	stocks := []domain.StoreStock{
		{StoreID: "store-01", BatchID: "batch-b", CurrentQty: 10},
		{StoreID: "store-01", BatchID: "batch-a", CurrentQty: 10},
	}

	plan := Allocate("store-01", "prod-1", 5, stocks, batches)

	if !plan.Success {
		t.Fatalf("expected success, got %q", plan.Error)
	}
	if plan.Allocations[0].BatchID != "batch-a" {
		t.Fatalf("expected batch-a to win the tie, got %s", plan.Allocations[0].BatchID)
	}
}

func TestAllocateIsPure(t *testing.T) {
	stocks, batches := twoBatchInventory()

	first := Allocate("store-01", "prod-1", 8, stocks, batches)
	second := Allocate("store-01", "prod-1", 8, stocks, batches)

	if first.TotalCOGS != second.TotalCOGS || first.TotalAllocated != second.TotalAllocated {
		t.Fatalf("repeated allocation diverged: %+v vs %+v", first, second)
	}
	if stocks[0].CurrentQty != 5 || stocks[1].CurrentQty != 20 {
		t.Fatalf("inputs were mutated: %+v", stocks)
	}
	if batches[0].RemainingQty != 5 || batches[1].RemainingQty != 20 {
		t.Fatalf("batch inputs were mutated: %+v", batches)
	}
}

func TestApplyDecrementsPlanQuantities(t *testing.T) {
	stocks, batches := twoBatchInventory()
	plan := Allocate("store-01", "prod-1", 8, stocks, batches)

	newStocks, newBatches, err := Apply(plan, "store-01", stocks, batches)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if newStocks[0].CurrentQty != 0 || newStocks[1].CurrentQty != 17 {
		t.Fatalf("unexpected stock quantities after apply: %+v", newStocks)
	}
	if newBatches[0].RemainingQty != 0 || newBatches[1].RemainingQty != 17 {
		t.Fatalf("unexpected batch quantities after apply: %+v", newBatches)
	}
	// Originals stay intact; Apply returns fresh slices.
	if stocks[0].CurrentQty != 5 || batches[0].RemainingQty != 5 {
		t.Fatalf("apply mutated its inputs")
	}
}

func TestApplyRefusesDriftedSnapshot(t *testing.T) {
	stocks, batches := twoBatchInventory()
	plan := Allocate("store-01", "prod-1", 8, stocks, batches)

	drifted := make([]domain.StoreStock, len(stocks))
	copy(drifted, stocks)
	drifted[0].CurrentQty = 2

	newStocks, newBatches, err := Apply(plan, "store-01", drifted, batches)
	if err == nil {
		t.Fatalf("expected apply against drifted snapshot to fail")
	}
	if newStocks != nil || newBatches != nil {
		t.Fatalf("failed apply must not produce partial results")
	}
}

func TestApplyRefusesMissingStockRow(t *testing.T) {
	stocks, batches := twoBatchInventory()
	plan := Allocate("store-01", "prod-1", 8, stocks, batches)

	_, _, err := Apply(plan, "store-01", stocks[:1], batches)
	if err == nil {
		t.Fatalf("expected apply to fail when a planned stock row is missing")
	}
}

func TestBuildTransactionPricesEveryLine(t *testing.T) {
	stocks, batches := twoBatchInventory()
	plan := Allocate("store-01", "prod-1", 8, stocks, batches)

	tx := BuildTransaction("store-01", "prod-1", 8, 20, plan, domain.PaymentCash, "walk-in")

	if tx.TotalRevenue != 160 {
		t.Fatalf("expected revenue 160, got %d", tx.TotalRevenue)
	}
	if tx.TotalCOGS != 86 {
		t.Fatalf("expected COGS 86, got %d", tx.TotalCOGS)
	}
	if tx.TotalMargin != 74 {
		t.Fatalf("expected margin 74, got %d", tx.TotalMargin)
	}
	if len(tx.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(tx.Lines))
	}

	lineMarginSum := int64(0)
	for _, line := range tx.Lines {
		if line.SellingPrice != 20 {
			t.Fatalf("every line carries the selling price, got %d", line.SellingPrice)
		}
		expected := (line.SellingPrice - line.PurchasePrice) * int64(line.QtyFromBatch)
		if line.LineMargin != expected {
			t.Fatalf("line %s margin %d, expected %d", line.BatchID, line.LineMargin, expected)
		}
		lineMarginSum += line.LineMargin
	}
	if lineMarginSum != tx.TotalMargin {
		t.Fatalf("line margins sum to %d, transaction says %d", lineMarginSum, tx.TotalMargin)
	}

	expectedPercent := float64(74) / float64(160) * 100
	if tx.MarginPercent != expectedPercent {
		t.Fatalf("expected margin percent %.4f, got %.4f", expectedPercent, tx.MarginPercent)
	}
	if tx.ID == "" || tx.PaymentMethod != domain.PaymentCash || tx.Note != "walk-in" {
		t.Fatalf("unexpected transaction metadata: %+v", tx)
	}
}

func TestBuildTransactionZeroRevenue(t *testing.T) {
	plan := domain.AllocationPlan{Success: true, Allocations: []domain.Allocation{}}

	tx := BuildTransaction("store-01", "prod-1", 0, 20, plan, domain.PaymentCash, "")

	if tx.MarginPercent != 0 {
		t.Fatalf("zero revenue must give margin percent 0, got %.4f", tx.MarginPercent)
	}
}
