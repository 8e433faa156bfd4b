package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"kinmel/backend/internal/domain"
	"kinmel/backend/internal/store"
	"kinmel/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, category, unit, selling_price, active
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.SellingPrice, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category, unit, selling_price, active
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.SellingPrice, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateSellingPrice(ctx context.Context, productID string, entry domain.PriceHistory) (*domain.Product, error) {
	if entry.SellingPrice < 1 {
		return nil, fmt.Errorf("%w: selling price must be greater than zero", store.ErrInvalidInput)
	}
	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.EffectiveDate.IsZero() {
		entry.EffectiveDate = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET selling_price = $2, updated_at = now()
		WHERE id = $1
	`, productID, entry.SellingPrice)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO price_history (id, product_id, selling_price, effective_date, note)
		VALUES ($1,$2,$3,$4,$5)
	`, entry.ID, productID, entry.SellingPrice, entry.EffectiveDate, entry.Note)
	if err != nil {
		return nil, err
	}

	var p domain.Product
	err = tx.QueryRowContext(ctx, `
		SELECT id, sku, name, category, unit, selling_price, active
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.SellingPrice, &p.Active)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.PriceHistory, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, selling_price, effective_date, COALESCE(note, '')
		FROM price_history
		WHERE product_id = $1
		ORDER BY effective_date DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.PriceHistory, 0, limit)
	for rows.Next() {
		var entry domain.PriceHistory
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.SellingPrice, &entry.EffectiveDate, &entry.Note); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

func (s *Store) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, warehouse, type, COALESCE(location, '')
		FROM stores
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.Store, 0, 16)
	for rows.Next() {
		var st domain.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.Warehouse, &st.Type, &st.Location); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stores, nil
}

func (s *Store) GetStoreByID(ctx context.Context, id string) (*domain.Store, error) {
	var st domain.Store
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, warehouse, type, COALESCE(location, '')
		FROM stores
		WHERE id = $1
	`, id).Scan(&st.ID, &st.Name, &st.Warehouse, &st.Type, &st.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	query := `
		SELECT id, product_id, purchase_price, initial_qty, remaining_qty, received_date, expiry_date, COALESCE(supplier_note, '')
		FROM batches
		ORDER BY received_date, id
	`
	args := []any{}
	if productID != "" {
		query = `
			SELECT id, product_id, purchase_price, initial_qty, remaining_qty, received_date, expiry_date, COALESCE(supplier_note, '')
			FROM batches
			WHERE product_id = $1
			ORDER BY received_date, id
		`
		args = append(args, productID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.Batch, 0, 32)
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return batches, nil
}

func (s *Store) ListStoreStocks(ctx context.Context, storeID string) ([]domain.StoreStock, error) {
	query := `
		SELECT store_id, batch_id, current_qty
		FROM store_stocks
		ORDER BY store_id, batch_id
	`
	args := []any{}
	if storeID != "" {
		query = `
			SELECT store_id, batch_id, current_qty
			FROM store_stocks
			WHERE store_id = $1
			ORDER BY store_id, batch_id
		`
		args = append(args, storeID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stocks := make([]domain.StoreStock, 0, 64)
	for rows.Next() {
		var ss domain.StoreStock
		if err := rows.Scan(&ss.StoreID, &ss.BatchID, &ss.CurrentQty); err != nil {
			return nil, err
		}
		stocks = append(stocks, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stocks, nil
}

func (s *Store) ProductInventory(ctx context.Context, storeID string, productID string) ([]domain.StoreStock, []domain.Batch, error) {
	batches, err := s.ListBatches(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ss.store_id, ss.batch_id, ss.current_qty
		FROM store_stocks ss
		JOIN batches b ON b.id = ss.batch_id
		WHERE ss.store_id = $1 AND b.product_id = $2
		ORDER BY ss.batch_id
	`, storeID, productID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	stocks := make([]domain.StoreStock, 0, len(batches))
	for rows.Next() {
		var ss domain.StoreStock
		if err := rows.Scan(&ss.StoreID, &ss.BatchID, &ss.CurrentQty); err != nil {
			return nil, nil, err
		}
		stocks = append(stocks, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return stocks, batches, nil
}

func (s *Store) CommitSale(ctx context.Context, sale domain.SalesTransaction, cashStoreID string) (*domain.SalesTransaction, error) {
	if len(sale.Lines) == 0 || sale.QtySold < 1 {
		return nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("txn")
	}
	if sale.TransactionDate.IsZero() {
		sale.TransactionDate = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Guarded decrements: the WHERE clause refuses to under-run, so a stale
	// plan aborts the whole transaction with nothing applied.
	for _, line := range sale.Lines {
		res, err := tx.ExecContext(ctx, `
			UPDATE store_stocks
			SET current_qty = current_qty - $3
			WHERE store_id = $1 AND batch_id = $2 AND current_qty >= $3
		`, sale.StoreID, line.BatchID, line.QtyFromBatch)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("stock row (%s, %s) cannot cover %d units: %w",
				sale.StoreID, line.BatchID, line.QtyFromBatch, store.ErrStaleAllocation)
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE batches
			SET remaining_qty = remaining_qty - $2
			WHERE id = $1 AND remaining_qty >= $2
		`, line.BatchID, line.QtyFromBatch)
		if err != nil {
			return nil, err
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("batch %s cannot cover %d units: %w",
				line.BatchID, line.QtyFromBatch, store.ErrStaleAllocation)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales_transactions
			(id, store_id, product_id, qty_sold, selling_price, total_revenue, total_cogs, total_margin, margin_percent, transaction_date, payment_method, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.StoreID, sale.ProductID, sale.QtySold, sale.SellingPrice,
		sale.TotalRevenue, sale.TotalCOGS, sale.TotalMargin, sale.MarginPercent,
		sale.TransactionDate, sale.PaymentMethod, sale.Note)
	if err != nil {
		return nil, err
	}

	for _, line := range sale.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_lines (transaction_id, batch_id, qty_from_batch, purchase_price, selling_price, line_margin)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, sale.ID, line.BatchID, line.QtyFromBatch, line.PurchasePrice, line.SellingPrice, line.LineMargin)
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_holdings (store_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (store_id)
		DO UPDATE SET balance = cash_holdings.balance + EXCLUDED.balance
	`, cashStoreID, sale.TotalRevenue)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	committed := sale
	return &committed, nil
}

func (s *Store) TransferStock(ctx context.Context, fromStoreID string, toStoreID string, batchID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}
	if fromStoreID == toStoreID {
		return fmt.Errorf("%w: source and destination must differ", store.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var available int
	err = tx.QueryRowContext(ctx, `
		SELECT current_qty
		FROM store_stocks
		WHERE store_id = $1 AND batch_id = $2
		FOR UPDATE
	`, fromStoreID, batchID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		available = 0
	} else if err != nil {
		return err
	}
	if available < qty {
		return fmt.Errorf("%w (available: %d)", store.ErrInsufficientStock, available)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE store_stocks
		SET current_qty = current_qty - $3
		WHERE store_id = $1 AND batch_id = $2
	`, fromStoreID, batchID, qty)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO store_stocks (store_id, batch_id, current_qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (store_id, batch_id)
		DO UPDATE SET current_qty = store_stocks.current_qty + EXCLUDED.current_qty
	`, toStoreID, batchID, qty)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) TransferCash(ctx context.Context, fromStoreID string, toStoreID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", store.ErrInvalidInput)
	}
	if fromStoreID == toStoreID {
		return fmt.Errorf("%w: source and destination must differ", store.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var available int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance
		FROM cash_holdings
		WHERE store_id = $1
		FOR UPDATE
	`, fromStoreID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		available = 0
	} else if err != nil {
		return err
	}
	if available < amount {
		return fmt.Errorf("%w (available: %d)", store.ErrInsufficientCash, available)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE cash_holdings
		SET balance = balance - $2
		WHERE store_id = $1
	`, fromStoreID, amount)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_holdings (store_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (store_id)
		DO UPDATE SET balance = cash_holdings.balance + EXCLUDED.balance
	`, toStoreID, amount)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) ReceiveBatch(ctx context.Context, batch domain.Batch, targetStoreID string) (*domain.Batch, error) {
	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	if batch.ReceivedDate.IsZero() {
		now := time.Now().UTC()
		batch.ReceivedDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	batch.RemainingQty = batch.InitialQty

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, batch.ProductID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1)`, targetStoreID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	var expiry sql.NullTime
	if batch.ExpiryDate != nil {
		expiry = sql.NullTime{Time: *batch.ExpiryDate, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, product_id, purchase_price, initial_qty, remaining_qty, received_date, expiry_date, supplier_note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, batch.ID, batch.ProductID, batch.PurchasePrice, batch.InitialQty, batch.RemainingQty,
		batch.ReceivedDate, expiry, batch.SupplierNote)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO store_stocks (store_id, batch_id, current_qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (store_id, batch_id)
		DO UPDATE SET current_qty = store_stocks.current_qty + EXCLUDED.current_qty
	`, targetStoreID, batch.ID, batch.InitialQty)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := batch
	return &created, nil
}

func (s *Store) ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.SalesTransaction, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, store_id, product_id, qty_sold, selling_price, total_revenue, total_cogs, total_margin, margin_percent, transaction_date, payment_method, COALESCE(note, '')
		FROM sales_transactions
		ORDER BY transaction_date DESC, id DESC
		LIMIT $1
	`
	args := []any{limit}
	if storeID != "" {
		query = `
			SELECT id, store_id, product_id, qty_sold, selling_price, total_revenue, total_cogs, total_margin, margin_percent, transaction_date, payment_method, COALESCE(note, '')
			FROM sales_transactions
			WHERE store_id = $1
			ORDER BY transaction_date DESC, id DESC
			LIMIT $2
		`
		args = []any{storeID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.SalesTransaction, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var tx domain.SalesTransaction
		if err := rows.Scan(&tx.ID, &tx.StoreID, &tx.ProductID, &tx.QtySold, &tx.SellingPrice,
			&tx.TotalRevenue, &tx.TotalCOGS, &tx.TotalMargin, &tx.MarginPercent,
			&tx.TransactionDate, &tx.PaymentMethod, &tx.Note); err != nil {
			return nil, err
		}
		tx.Lines = []domain.SaleLine{}
		transactions = append(transactions, tx)
		ids = append(ids, tx.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return transactions, nil
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, batch_id, qty_from_batch, purchase_price, selling_price, line_margin
		FROM sale_lines
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, batch_id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	linesByTx := make(map[string][]domain.SaleLine, len(ids))
	for lineRows.Next() {
		var txID string
		var line domain.SaleLine
		if err := lineRows.Scan(&txID, &line.BatchID, &line.QtyFromBatch, &line.PurchasePrice, &line.SellingPrice, &line.LineMargin); err != nil {
			return nil, err
		}
		linesByTx[txID] = append(linesByTx[txID], line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	for i := range transactions {
		if lines, ok := linesByTx[transactions[i].ID]; ok {
			transactions[i].Lines = lines
		}
	}

	return transactions, nil
}

func (s *Store) ListCashHoldings(ctx context.Context) ([]domain.CashHolding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT store_id, balance
		FROM cash_holdings
		ORDER BY store_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holdings := make([]domain.CashHolding, 0, 16)
	for rows.Next() {
		var holding domain.CashHolding
		if err := rows.Scan(&holding.StoreID, &holding.Balance); err != nil {
			return nil, err
		}
		holdings = append(holdings, holding)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return holdings, nil
}

func (s *Store) SalesReport(ctx context.Context, storeID string, from time.Time, to time.Time) (domain.SalesReport, error) {
	report := domain.SalesReport{
		StoreID:   storeID,
		Date:      from.Format("2006-01-02"),
		ByPayment: make([]domain.SalesReportPayment, 0, 2),
		ByProduct: make([]domain.SalesReportProduct, 0, 8),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(qty_sold), 0), COALESCE(SUM(total_revenue), 0), COALESCE(SUM(total_cogs), 0), COALESCE(SUM(total_margin), 0)
		FROM sales_transactions
		WHERE ($1 = '' OR store_id = $1) AND transaction_date >= $2 AND transaction_date < $3
	`, storeID, from, to).Scan(&report.Transactions, &report.UnitsSold, &report.Revenue, &report.COGS, &report.Margin)
	if err != nil {
		return domain.SalesReport{}, err
	}
	if report.Revenue > 0 {
		report.MarginPercent = float64(report.Margin) / float64(report.Revenue) * 100
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_revenue), 0)
		FROM sales_transactions
		WHERE ($1 = '' OR store_id = $1) AND transaction_date >= $2 AND transaction_date < $3
		GROUP BY payment_method
		ORDER BY payment_method
	`, storeID, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	defer paymentRows.Close()

	for paymentRows.Next() {
		var entry domain.SalesReportPayment
		if err := paymentRows.Scan(&entry.PaymentMethod, &entry.Transactions, &entry.Revenue); err != nil {
			return domain.SalesReport{}, err
		}
		report.ByPayment = append(report.ByPayment, entry)
	}
	if err := paymentRows.Err(); err != nil {
		return domain.SalesReport{}, err
	}

	productRows, err := s.db.QueryContext(ctx, `
		SELECT product_id, COALESCE(SUM(qty_sold), 0), COALESCE(SUM(total_revenue), 0), COALESCE(SUM(total_cogs), 0), COALESCE(SUM(total_margin), 0)
		FROM sales_transactions
		WHERE ($1 = '' OR store_id = $1) AND transaction_date >= $2 AND transaction_date < $3
		GROUP BY product_id
		ORDER BY product_id
	`, storeID, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	defer productRows.Close()

	for productRows.Next() {
		var entry domain.SalesReportProduct
		if err := productRows.Scan(&entry.ProductID, &entry.UnitsSold, &entry.Revenue, &entry.COGS, &entry.Margin); err != nil {
			return domain.SalesReport{}, err
		}
		report.ByProduct = append(report.ByProduct, entry)
	}
	if err := productRows.Err(); err != nil {
		return domain.SalesReport{}, err
	}

	return report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (domain.Batch, error) {
	var batch domain.Batch
	var expiry sql.NullTime
	if err := row.Scan(&batch.ID, &batch.ProductID, &batch.PurchasePrice, &batch.InitialQty,
		&batch.RemainingQty, &batch.ReceivedDate, &expiry, &batch.SupplierNote); err != nil {
		return domain.Batch{}, err
	}
	if expiry.Valid {
		e := expiry.Time.UTC()
		batch.ExpiryDate = &e
	}
	return batch, nil
}
