package transaction

import (
	"context"
	"fmt"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/dialect"
)

// Func is the work of a transaction. It must use tx, not the driver, for
// every statement that belongs to the transaction.
type Func func(ctx context.Context, tx dialect.Tx) error

type txKey struct{}

// NewContext returns a copy of ctx carrying tx.
func NewContext(ctx context.Context, tx dialect.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext returns the transaction stored in ctx, if any.
func FromContext(ctx context.Context) dialect.Tx {
	tx, _ := ctx.Value(txKey{}).(dialect.Tx)
	return tx
}

// Run begins a transaction on drv and runs fn in it. The transaction is
// committed if fn succeeds and rolled back if it fails or panics. Constraint
// violations reported by the store are returned as sqlflow.ConstraintError.
// Run fails with sqlflow.ErrTxStarted if ctx already carries a transaction.
func Run(ctx context.Context, drv dialect.Driver, fn Func) (err error) {
	if FromContext(ctx) != nil {
		return sqlflow.ErrTxStarted
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("transaction: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(NewContext(ctx, tx), tx); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return sqlflow.NewConstraintError(fmt.Errorf("transaction: commit: %w", err))
	}
	return nil
}

func rollback(tx dialect.Tx, err error) error {
	err = sqlflow.NewConstraintError(err)
	if rerr := tx.Rollback(); rerr != nil {
		return sqlflow.NewAggregateError(err, &sqlflow.RollbackError{Err: rerr})
	}
	return err
}
