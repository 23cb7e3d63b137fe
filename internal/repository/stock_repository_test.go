package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/online-storefront/internal/database"
)

func TestRetryableMySQLErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205}, true},
		{"deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"duplicate key", &mysql.MySQLError{Number: 1062}, false},
		{"wrapped deadlock", fmt.Errorf("tx: %w", &mysql.MySQLError{Number: 1213}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableMySQLErr(tt.err); got != tt.want {
				t.Fatalf("retryableMySQLErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithWriteRetryRetriesContention(t *testing.T) {
	calls := 0
	err := withWriteRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &mysql.MySQLError{Number: 1213}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withWriteRetry = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithWriteRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	contention := &mysql.MySQLError{Number: 1205}
	err := withWriteRetry(context.Background(), func() error {
		calls++
		return contention
	})
	if !errors.Is(err, contention) {
		t.Fatalf("withWriteRetry = %v, want the contention error", err)
	}
	if calls != writeRetryAttempts {
		t.Fatalf("calls = %d, want %d", calls, writeRetryAttempts)
	}
}

func TestWithWriteRetryDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := withWriteRetry(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("withWriteRetry = %v, want boom", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDecrementRejectsNonPositiveAmount(t *testing.T) {
	// Validation runs before any database access, so a nil handle is fine.
	repo := NewStockRepo(nil)
	for _, amount := range []int64{0, -1} {
		if _, err := repo.Decrement(context.Background(), 1, amount, "test", 1); err != ErrNonPositiveAmount {
			t.Errorf("Decrement(amount=%d) = %v, want ErrNonPositiveAmount", amount, err)
		}
		if _, err := repo.Increment(context.Background(), 1, amount, "test", 1); err != ErrNonPositiveAmount {
			t.Errorf("Increment(amount=%d) = %v, want ErrNonPositiveAmount", amount, err)
		}
	}
	if err := repo.SetQuantity(context.Background(), 1, -5, 1); err != ErrNegativeQuantity {
		t.Errorf("SetQuantity(-5) = %v, want ErrNegativeQuantity", err)
	}
}

// Integration tests below require a reachable MySQL instance and are
// skipped unless RUN_DB_INTEGRATION=true. They use the DB_* environment
// variables, same as the server.
func integrationDB(t *testing.T) *StockRepo {
	t.Helper()
	if os.Getenv("RUN_DB_INTEGRATION") != "true" {
		t.Skip("set RUN_DB_INTEGRATION=true to run database integration tests")
	}
	db, err := database.Open(
		os.Getenv("DB_USER"), os.Getenv("DB_PASS"),
		os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_NAME"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStockRepo(db)
}

func TestDecrementIntegration(t *testing.T) {
	repo := integrationDB(t)
	ctx := context.Background()

	res, err := repo.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price_cents, is_active) VALUES (?, '', 100, 1)`,
		fmt.Sprintf("it-product-%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	id, _ := res.LastInsertId()
	productID := uint64(id)
	t.Cleanup(func() {
		repo.db.ExecContext(ctx, `DELETE FROM stock_movements WHERE product_id = ?`, productID)
		repo.db.ExecContext(ctx, `DELETE FROM stock WHERE product_id = ?`, productID)
		repo.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, productID)
	})

	if _, err := repo.Increment(ctx, productID, 10, "seed", 1); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	after, err := repo.Decrement(ctx, productID, 4, "sale", 1)
	if err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if after != 6 {
		t.Fatalf("quantity after decrement = %d, want 6", after)
	}

	// The guard must refuse a decrement larger than what is on hand and
	// leave the quantity untouched.
	_, err = repo.Decrement(ctx, productID, 10, "sale", 1)
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Decrement(10 of 6) = %v, want *InsufficientStockError", err)
	}
	if insufficient.Requested != 10 || insufficient.Available != 6 {
		t.Fatalf("insufficient = %+v, want requested=10 available=6", insufficient)
	}
	if qty, err := repo.GetQuantity(ctx, productID); err != nil || qty != 6 {
		t.Fatalf("GetQuantity = %d, %v; want 6, nil", qty, err)
	}

	// Every mutation must show up in the ledger, oldest first: +10 then -4.
	movements, err := repo.History(ctx, productID, false, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("len(movements) = %d, want 2", len(movements))
	}
	if movements[0].Delta != 10 || movements[0].QuantityAfter != 10 {
		t.Errorf("movement[0] = %+v, want delta=10 after=10", movements[0])
	}
	if movements[1].Delta != -4 || movements[1].QuantityAfter != 6 || movements[1].Reason != "sale" {
		t.Errorf("movement[1] = %+v, want delta=-4 after=6 reason=sale", movements[1])
	}
}

// TestConcurrentDecrementIntegration hammers one product with parallel
// decrements. The conditional UPDATE guard must never let two writers both
// pass the precondition: the number of successful decrements is bounded by
// the seeded quantity and the final quantity is exactly what the successes
// account for, never negative.
func TestConcurrentDecrementIntegration(t *testing.T) {
	repo := integrationDB(t)
	ctx := context.Background()

	const seeded = 10
	const workers = 25

	res, err := repo.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price_cents, is_active) VALUES (?, '', 100, 1)`,
		fmt.Sprintf("it-product-%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	id, _ := res.LastInsertId()
	productID := uint64(id)
	t.Cleanup(func() {
		repo.db.ExecContext(ctx, `DELETE FROM stock_movements WHERE product_id = ?`, productID)
		repo.db.ExecContext(ctx, `DELETE FROM stock WHERE product_id = ?`, productID)
		repo.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, productID)
	})
	if _, err := repo.Increment(ctx, productID, seeded, "seed", 1); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	var successes, refusals int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Decrement(ctx, productID, 1, "sale", 1)
			var insufficient *InsufficientStockError
			switch {
			case err == nil:
				atomic.AddInt64(&successes, 1)
			case errors.As(err, &insufficient):
				atomic.AddInt64(&refusals, 1)
			default:
				t.Errorf("Decrement: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes > seeded {
		t.Fatalf("successes = %d, want <= %d", successes, seeded)
	}
	if successes+refusals != workers {
		t.Fatalf("successes+refusals = %d, want %d", successes+refusals, workers)
	}
	final, err := repo.GetQuantity(ctx, productID)
	if err != nil {
		t.Fatalf("GetQuantity: %v", err)
	}
	if final < 0 {
		t.Fatalf("final quantity = %d, went negative", final)
	}
	if final != seeded-successes {
		t.Fatalf("final quantity = %d, want %d - %d successes = %d",
			final, seeded, successes, seeded-successes)
	}

	// Every successful decrement, and only those, left a sale row.
	movements, err := repo.History(ctx, productID, false, workers+1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	sales := 0
	for _, m := range movements {
		if m.Reason == "sale" {
			sales++
		}
	}
	if int64(sales) != successes {
		t.Fatalf("sale movements = %d, want %d", sales, successes)
	}
}

func TestPlaceOrderDecrementsRollbackIntegration(t *testing.T) {
	repo := integrationDB(t)
	ctx := context.Background()

	newProduct := func(qty int64) uint64 {
		res, err := repo.db.ExecContext(ctx,
			`INSERT INTO products (name, description, price_cents, is_active) VALUES (?, '', 100, 1)`,
			fmt.Sprintf("it-product-%d", time.Now().UnixNano()))
		if err != nil {
			t.Fatalf("insert product: %v", err)
		}
		id, _ := res.LastInsertId()
		productID := uint64(id)
		if qty > 0 {
			if _, err := repo.Increment(ctx, productID, qty, "seed", 1); err != nil {
				t.Fatalf("Increment: %v", err)
			}
		}
		t.Cleanup(func() {
			repo.db.ExecContext(ctx, `DELETE FROM stock_movements WHERE product_id = ?`, productID)
			repo.db.ExecContext(ctx, `DELETE FROM stock WHERE product_id = ?`, productID)
			repo.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, productID)
		})
		return productID
	}

	plentiful := newProduct(10)
	scarce := newProduct(1)

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	err = repo.PlaceOrderDecrementsTx(ctx, tx, []OrderLine{
		{ProductID: plentiful, Quantity: 3},
		{ProductID: scarce, Quantity: 2},
	}, 1)
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		tx.Rollback()
		t.Fatalf("PlaceOrderDecrementsTx = %v, want *InsufficientStockError", err)
	}
	if insufficient.ProductID != scarce {
		tx.Rollback()
		t.Fatalf("failing product = %d, want %d", insufficient.ProductID, scarce)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	// After rollback the already-applied decrement on the first product
	// must be undone and no sale movements recorded.
	if qty, err := repo.GetQuantity(ctx, plentiful); err != nil || qty != 10 {
		t.Fatalf("GetQuantity(plentiful) = %d, %v; want 10, nil", qty, err)
	}
	movements, err := repo.History(ctx, plentiful, false, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, m := range movements {
		if m.Reason == "sale" {
			t.Fatalf("found sale movement %+v after rollback", m)
		}
	}
}
