// Package fifo implements first-in-first-out inventory costing: given the
// stock present at a store, a requested sale quantity is carved from the
// oldest-received batches first, producing the allocation plan, cost of goods
// sold and margin figures the rest of the system commits and reports on.
package fifo

import (
	"fmt"
	"slices"
	"time"

	"kinmel/backend/internal/domain"
	"kinmel/backend/internal/xid"
)

// Allocate computes which batches at storeID would satisfy a sale of qty
// units of productID, oldest receipt first. It is a pure function: inputs are
// never mutated, and identical inputs always produce an identical plan.
//
// A non-positive qty yields a failure plan with Shortfall 0, which keeps bad
// input distinguishable from insufficient stock. When stock runs out the plan
// carries the partial allocations, Success false and the shortfall, so a
// caller can report "short by N" without committing a partial sale.
func Allocate(storeID string, productID string, qty int, stocks []domain.StoreStock, batches []domain.Batch) domain.AllocationPlan {
	if qty <= 0 {
		return domain.AllocationPlan{
			Allocations: []domain.Allocation{},
			Error:       "quantity must be greater than zero",
		}
	}

	batchByID := make(map[string]domain.Batch, len(batches))
	for _, b := range batches {
		if b.ProductID == productID {
			batchByID[b.ID] = b
		}
	}

	type candidate struct {
		stock domain.StoreStock
		batch domain.Batch
	}
	eligible := make([]candidate, 0, len(stocks))
	for _, ss := range stocks {
		if ss.StoreID != storeID || ss.CurrentQty <= 0 {
			continue
		}
		batch, ok := batchByID[ss.BatchID]
		if !ok {
			continue
		}
		eligible = append(eligible, candidate{stock: ss, batch: batch})
	}

	// Oldest received date first; batch id breaks ties so the order is
	// deterministic for a given input.
	slices.SortFunc(eligible, func(a, b candidate) int {
		if a.batch.ReceivedDate.Before(b.batch.ReceivedDate) {
			return -1
		}
		if a.batch.ReceivedDate.After(b.batch.ReceivedDate) {
			return 1
		}
		return cmpString(a.batch.ID, b.batch.ID)
	})

	remaining := qty
	allocations := make([]domain.Allocation, 0, len(eligible))
	totalCOGS := int64(0)
	for _, c := range eligible {
		if remaining <= 0 {
			break
		}
		take := c.stock.CurrentQty
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, domain.Allocation{
			BatchID:       c.batch.ID,
			Qty:           take,
			PurchasePrice: c.batch.PurchasePrice,
		})
		totalCOGS += c.batch.PurchasePrice * int64(take)
		remaining -= take
	}

	plan := domain.AllocationPlan{
		Success:        remaining == 0,
		Allocations:    allocations,
		TotalAllocated: qty - remaining,
		Shortfall:      remaining,
		TotalCOGS:      totalCOGS,
	}
	if remaining > 0 {
		plan.Error = fmt.Sprintf("insufficient stock: short by %d units", remaining)
	}
	return plan
}

// Apply carves a successful plan out of the given collections, returning new
// slices with the matching store-stock and batch quantities decremented.
// Rows and batches not referenced by the plan are returned unchanged.
//
// A consistent plan applied against the snapshot it was computed from cannot
// under-run; if it would, the inputs have drifted and Apply returns an error
// without producing partial results.
func Apply(plan domain.AllocationPlan, storeID string, stocks []domain.StoreStock, batches []domain.Batch) ([]domain.StoreStock, []domain.Batch, error) {
	allocByBatch := make(map[string]int, len(plan.Allocations))
	for _, alloc := range plan.Allocations {
		allocByBatch[alloc.BatchID] += alloc.Qty
	}

	updatedStocks := make([]domain.StoreStock, len(stocks))
	copy(updatedStocks, stocks)
	covered := make(map[string]bool, len(allocByBatch))
	for i := range updatedStocks {
		if updatedStocks[i].StoreID != storeID {
			continue
		}
		take, ok := allocByBatch[updatedStocks[i].BatchID]
		if !ok {
			continue
		}
		if updatedStocks[i].CurrentQty < take {
			return nil, nil, fmt.Errorf("stock row (%s, %s) holds %d, plan takes %d",
				storeID, updatedStocks[i].BatchID, updatedStocks[i].CurrentQty, take)
		}
		updatedStocks[i].CurrentQty -= take
		covered[updatedStocks[i].BatchID] = true
	}
	for batchID := range allocByBatch {
		if !covered[batchID] {
			return nil, nil, fmt.Errorf("no stock row at %s for allocated batch %s", storeID, batchID)
		}
	}

	updatedBatches := make([]domain.Batch, len(batches))
	copy(updatedBatches, batches)
	for i := range updatedBatches {
		take, ok := allocByBatch[updatedBatches[i].ID]
		if !ok {
			continue
		}
		if updatedBatches[i].RemainingQty < take {
			return nil, nil, fmt.Errorf("batch %s has %d remaining, plan takes %d",
				updatedBatches[i].ID, updatedBatches[i].RemainingQty, take)
		}
		updatedBatches[i].RemainingQty -= take
	}

	return updatedStocks, updatedBatches, nil
}

// BuildTransaction derives the fully priced sale record from a plan and the
// product's selling price. It is a pure derivation and mutates nothing;
// committing the plan to inventory state happens separately.
func BuildTransaction(storeID string, productID string, qtySold int, sellingPrice int64, plan domain.AllocationPlan, paymentMethod string, note string) domain.SalesTransaction {
	lines := make([]domain.SaleLine, 0, len(plan.Allocations))
	for _, alloc := range plan.Allocations {
		lines = append(lines, domain.SaleLine{
			BatchID:       alloc.BatchID,
			QtyFromBatch:  alloc.Qty,
			PurchasePrice: alloc.PurchasePrice,
			SellingPrice:  sellingPrice,
			LineMargin:    (sellingPrice - alloc.PurchasePrice) * int64(alloc.Qty),
		})
	}

	revenue := sellingPrice * int64(qtySold)
	margin := revenue - plan.TotalCOGS
	marginPercent := 0.0
	if revenue > 0 {
		marginPercent = float64(margin) / float64(revenue) * 100
	}

	return domain.SalesTransaction{
		ID:              xid.New("txn"),
		StoreID:         storeID,
		ProductID:       productID,
		QtySold:         qtySold,
		SellingPrice:    sellingPrice,
		Lines:           lines,
		TotalRevenue:    revenue,
		TotalCOGS:       plan.TotalCOGS,
		TotalMargin:     margin,
		MarginPercent:   marginPercent,
		TransactionDate: time.Now().UTC(),
		PaymentMethod:   paymentMethod,
		Note:            note,
	}
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
