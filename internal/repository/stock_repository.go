package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/online-storefront/internal/model"
)

// StockRepo maintains per-product quantity on hand with an enforced
// non-negative floor and records every mutation as an append-only row in
// stock_movements. The non-negative invariant is not guarded by any
// in-process lock: every decrement is a conditional
// `UPDATE ... WHERE quantity >= amount` inside a transaction, so two
// concurrent decrements can never both pass the precondition and jointly
// drive quantity below zero. Correctness is delegated entirely to the
// database's atomic conditional update.
type StockRepo struct {
	db *sql.DB
}

// NewStockRepo returns a StockRepo bound to the given database.
func NewStockRepo(db *sql.DB) *StockRepo { return &StockRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span stock decrements and other tables (e.g. order rows).
func (r *StockRepo) DB() *sql.DB { return r.db }

// OrderLine is one line item of an order batch passed to
// PlaceOrderDecrementsTx.
type OrderLine struct {
	ProductID uint64
	Quantity  int64
}

// Contended writes are retried a small bounded number of times when MySQL
// reports a lock wait timeout (1205) or deadlock (1213), then the storage
// failure is surfaced to the caller.
const (
	writeRetryAttempts = 3
	writeRetryDelay    = 50 * time.Millisecond
)

// retryableMySQLErr reports whether err is a transient lock contention
// error worth retrying.
func retryableMySQLErr(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1205 || me.Number == 1213
	}
	return false
}

// withWriteRetry runs fn up to writeRetryAttempts times, sleeping
// writeRetryDelay between attempts, but only while the failure is a
// transient contention error. Any other error returns immediately.
func withWriteRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < writeRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !retryableMySQLErr(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(writeRetryDelay):
		}
	}
	return err
}

// GetQuantity returns the current quantity on hand for a product, or
// ErrStockNotFound when no record exists. Reads are single statements and
// need no transaction.
func (r *StockRepo) GetQuantity(ctx context.Context, productID uint64) (int64, error) {
	var qty int64
	err := r.db.QueryRowContext(ctx,
		`SELECT quantity FROM stock WHERE product_id = ?`, productID).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, ErrStockNotFound
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// Get returns the full stock record for a product, or ErrStockNotFound.
func (r *StockRepo) Get(ctx context.Context, productID uint64) (model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT product_id, quantity, min_quantity, updated_at FROM stock WHERE product_id = ?`,
		productID).Scan(&rec.ProductID, &rec.Quantity, &rec.MinQuantity, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.StockRecord{}, ErrStockNotFound
	}
	if err != nil {
		return model.StockRecord{}, err
	}
	return rec, nil
}

// CreateTx seeds a stock row for a newly created product within the
// caller's transaction. When the initial quantity is positive a seed
// movement is recorded so the ledger explains where the units came from.
func (r *StockRepo) CreateTx(ctx context.Context, tx *sql.Tx, productID uint64, quantity, minQuantity int64, actorID uint64) error {
	if quantity < 0 || minQuantity < 0 {
		return ErrNegativeQuantity
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stock (product_id, quantity, min_quantity) VALUES (?, ?, ?)`,
		productID, quantity, minQuantity); err != nil {
		return err
	}
	if quantity > 0 {
		return insertMovementTx(ctx, tx, productID, quantity, quantity, "seed", actorID)
	}
	return nil
}

// Increment adds amount units to a product's stock, creating the record at
// amount when none exists. It always succeeds for a positive amount (there
// is no upper bound) and records a movement with the resulting quantity.
// The new quantity is returned.
func (r *StockRepo) Increment(ctx context.Context, productID uint64, amount int64, reason string, actorID uint64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	var after int64
	err := withWriteRetry(ctx, func() error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO stock (product_id, quantity) VALUES (?, ?)
				 ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
				productID, amount); err != nil {
				return err
			}
			if err := tx.QueryRowContext(ctx,
				`SELECT quantity FROM stock WHERE product_id = ?`, productID).Scan(&after); err != nil {
				return err
			}
			return insertMovementTx(ctx, tx, productID, amount, after, reason, actorID)
		})
	})
	if err != nil {
		return 0, err
	}
	return after, nil
}

// Decrement removes amount units from a product's stock. When fewer than
// amount units are on hand it returns *InsufficientStockError and performs
// no mutation. The check and the update are a single conditional statement
// inside one transaction. The new quantity is returned on success.
func (r *StockRepo) Decrement(ctx context.Context, productID uint64, amount int64, reason string, actorID uint64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	var after int64
	err := withWriteRetry(ctx, func() error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			var err error
			after, err = r.DecrementTx(ctx, tx, productID, amount, reason, actorID)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return after, nil
}

// DecrementTx is Decrement running inside the caller's transaction. Order
// placement uses it so that stock decrements roll back together with the
// order rows. It returns the quantity after the decrement.
func (r *StockRepo) DecrementTx(ctx context.Context, tx *sql.Tx, productID uint64, amount int64, reason string, actorID uint64) (int64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE stock SET quantity = quantity - ? WHERE product_id = ? AND quantity >= ?`,
		amount, productID, amount)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Either the row is missing or the guard refused the decrement.
		var available int64
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM stock WHERE product_id = ?`, productID).Scan(&available)
		if err == sql.ErrNoRows {
			return 0, ErrStockNotFound
		}
		if err != nil {
			return 0, err
		}
		return 0, &InsufficientStockError{ProductID: productID, Requested: amount, Available: available}
	}
	var after int64
	if err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM stock WHERE product_id = ?`, productID).Scan(&after); err != nil {
		return 0, err
	}
	if err := insertMovementTx(ctx, tx, productID, -amount, after, reason, actorID); err != nil {
		return 0, err
	}
	return after, nil
}

// PlaceOrderDecrementsTx applies one decrement per line item inside the
// caller's transaction. The first failing item aborts the batch; the caller
// must roll back the whole transaction so already-applied decrements are
// undone together with the order rows. The returned error names the failing
// product (via *InsufficientStockError or ErrStockNotFound).
func (r *StockRepo) PlaceOrderDecrementsTx(ctx context.Context, tx *sql.Tx, items []OrderLine, actorID uint64) error {
	for _, it := range items {
		if _, err := r.DecrementTx(ctx, tx, it.ProductID, it.Quantity, "sale", actorID); err != nil {
			return err
		}
	}
	return nil
}

// SetQuantity overwrites a product's quantity, creating the record when
// none exists. The movement row records delta = new - old so the ledger
// stays a complete account of every change.
func (r *StockRepo) SetQuantity(ctx context.Context, productID uint64, value int64, actorID uint64) error {
	if value < 0 {
		return ErrNegativeQuantity
	}
	return withWriteRetry(ctx, func() error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			var old int64
			err := tx.QueryRowContext(ctx,
				`SELECT quantity FROM stock WHERE product_id = ? FOR UPDATE`, productID).Scan(&old)
			switch {
			case err == sql.ErrNoRows:
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO stock (product_id, quantity) VALUES (?, ?)`, productID, value); err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if _, err := tx.ExecContext(ctx,
					`UPDATE stock SET quantity = ? WHERE product_id = ?`, value, productID); err != nil {
					return err
				}
			}
			if value == old {
				return nil
			}
			return insertMovementTx(ctx, tx, productID, value-old, value, "set_quantity", actorID)
		})
	})
}

// SetMinQuantity overwrites the reorder threshold. The movement row records
// the threshold change (delta = new - old) with the current quantity as
// quantity_after, keeping the ledger append-only and complete.
func (r *StockRepo) SetMinQuantity(ctx context.Context, productID uint64, value int64, actorID uint64) error {
	if value < 0 {
		return ErrNegativeQuantity
	}
	return withWriteRetry(ctx, func() error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			var oldMin, qty int64
			err := tx.QueryRowContext(ctx,
				`SELECT min_quantity, quantity FROM stock WHERE product_id = ? FOR UPDATE`,
				productID).Scan(&oldMin, &qty)
			if err == sql.ErrNoRows {
				return ErrStockNotFound
			}
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE stock SET min_quantity = ? WHERE product_id = ?`, value, productID); err != nil {
				return err
			}
			if value == oldMin {
				return nil
			}
			return insertMovementTx(ctx, tx, productID, value-oldMin, qty, "set_min_quantity", actorID)
		})
	})
}

// History returns the movement ledger for a product, newest-first or
// oldest-first as requested. Limit caps the number of rows; values <= 0
// fall back to 100.
func (r *StockRepo) History(ctx context.Context, productID uint64, newestFirst bool, limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	q := `SELECT id, product_id, delta, quantity_after, reason, actor_id, created_at
	      FROM stock_movements WHERE product_id = ? ORDER BY id ` + order + ` LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := make([]model.StockMovement, 0)
	for rows.Next() {
		var m model.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.QuantityAfter, &m.Reason, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

// inTx runs fn inside a transaction: rollback unless the function
// completed and the commit succeeded.
func (r *StockRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertMovementTx appends one row to the stock_movements ledger.
func insertMovementTx(ctx context.Context, tx *sql.Tx, productID uint64, delta, after int64, reason string, actorID uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO stock_movements (product_id, delta, quantity_after, reason, actor_id) VALUES (?, ?, ?, ?, ?)`,
		productID, delta, after, reason, actorID)
	return err
}
