package transaction

import (
	"context"

	"github.com/syssam/sqlflow/dialect"
	"github.com/syssam/sqlflow/dialect/sql"
	"github.com/syssam/sqlflow/loader"
)

// QueryList queues a transaction loading the rows of q with l. cb receives
// the models, or the failure, once the rows are closed and the transaction
// has ended.
func QueryList[M any](queue *Queue, l *loader.List[M], q sql.Querier, cb func([]M, error)) (*Transaction, error) {
	var list []M
	t := New(func(ctx context.Context, tx dialect.Tx) (err error) {
		list, err = l.Load(ctx, tx, q)
		return err
	}).
		Success(func() { cb(list, nil) }).
		Error(func(err error) { cb(nil, err) })
	if err := queue.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// QuerySingle queues a transaction loading the first row of q with l. cb
// receives the model and whether one was found, or the failure.
func QuerySingle[M any](queue *Queue, l *loader.Single[M], q sql.Querier, cb func(M, bool, error)) (*Transaction, error) {
	var (
		m  M
		ok bool
	)
	t := New(func(ctx context.Context, tx dialect.Tx) (err error) {
		m, ok, err = l.Load(ctx, tx, q)
		return err
	}).
		Success(func() { cb(m, ok, nil) }).
		Error(func(err error) {
			var zero M
			cb(zero, false, err)
		})
	if err := queue.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}
