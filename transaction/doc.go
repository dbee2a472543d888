// Package transaction runs work inside store transactions, either directly
// with Run or asynchronously through a Queue.
//
// A Queue has a single worker: transactions run one at a time in the order
// they were added. Completion callbacks are delivered through an Executor
// chosen by the caller, after the transaction has committed or rolled back
// and every row iterator it opened has been closed.
//
//	q := transaction.NewQueue(drv)
//	if err := q.Start(ctx); err != nil {
//		...
//	}
//	defer q.Stop()
//	tx := transaction.New(func(ctx context.Context, tx dialect.Tx) error {
//		_, err := sql.Insert("users").Columns("name").Values("a8m").Exec(ctx, tx)
//		return err
//	}).Success(func() { ... }).Error(func(err error) { ... })
//	err := q.Add(tx)
package transaction
