package transaction

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/dialect"
)

// Executor runs completion callbacks.
type Executor interface {
	Execute(func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(func())

// Execute implements Executor.
func (f ExecutorFunc) Execute(fn func()) { f(fn) }

var (
	// Inline runs callbacks on the queue's worker goroutine, before the
	// next transaction starts.
	Inline Executor = ExecutorFunc(func(fn func()) { fn() })

	// Async runs every callback on a new goroutine.
	Async Executor = ExecutorFunc(func(fn func()) { go fn() })
)

// Chan returns an Executor that sends callbacks to ch, for callers that
// want them on a goroutine of their own.
func Chan(ch chan<- func()) Executor {
	return ExecutorFunc(func(fn func()) { ch <- fn })
}

type state uint8

const (
	statePending state = iota
	stateQueued
	stateRunning
	stateDone
	stateCanceled
)

// Transaction is a unit of work submitted to a Queue.
type Transaction struct {
	id       uuid.UUID
	name     string
	fn       Func
	success  func()
	failure  func(error)
	executor Executor

	// guarded by the owning queue's mutex.
	state state
	elem  *list.Element

	done chan struct{}
	err  error
}

// New returns a transaction running fn.
func New(fn Func) *Transaction {
	return &Transaction{id: uuid.New(), fn: fn, done: make(chan struct{})}
}

// Name sets a name used in logs.
func (t *Transaction) Name(name string) *Transaction {
	t.name = name
	return t
}

// Success sets the callback run after the transaction committed.
func (t *Transaction) Success(fn func()) *Transaction {
	t.success = fn
	return t
}

// Error sets the callback run after the transaction failed.
func (t *Transaction) Error(fn func(error)) *Transaction {
	t.failure = fn
	return t
}

// On sets the Executor the callbacks are delivered through, overriding
// the queue's.
func (t *Transaction) On(e Executor) *Transaction {
	t.executor = e
	return t
}

// ID returns the transaction id.
func (t *Transaction) ID() uuid.UUID { return t.id }

// Done returns a channel closed once the transaction's callback has run,
// or when it was canceled.
func (t *Transaction) Done() <-chan struct{} { return t.done }

// Err returns the outcome of a finished transaction.
func (t *Transaction) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the transaction has finished or ctx is done.
func (t *Transaction) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrCanceled is the outcome of a transaction removed with Queue.Cancel.
var ErrCanceled = errors.New("transaction: canceled")

// Queue runs transactions one at a time, in the order they were added.
type Queue struct {
	drv      dialect.Driver
	log      *slog.Logger
	executor Executor

	mu      sync.Mutex
	cond    *sync.Cond
	pending *list.List
	running bool
	stopped bool
	group   *errgroup.Group
	stop    func() bool
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.log = l
	}
}

// WithExecutor sets the default Executor for callbacks. It defaults to
// Inline.
func WithExecutor(e Executor) QueueOption {
	return func(q *Queue) {
		q.executor = e
	}
}

// NewQueue returns a stopped queue running transactions on drv.
func NewQueue(drv dialect.Driver, opts ...QueueOption) *Queue {
	q := &Queue{drv: drv, log: slog.Default(), executor: Inline, pending: list.New()}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start starts the worker. The worker stops when ctx is done or Stop is
// called; a stopped queue cannot be restarted.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case q.stopped:
		return sqlflow.ErrQueueStopped
	case q.running:
		return nil
	}
	q.running = true
	g, ctx := errgroup.WithContext(ctx)
	q.group = g
	q.stop = context.AfterFunc(ctx, q.halt)
	g.Go(func() error {
		q.work(ctx)
		return nil
	})
	return nil
}

func (q *Queue) halt() {
	q.mu.Lock()
	q.stopped = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Stop stops the worker and waits for the running transaction, if any, to
// finish. Transactions still queued are dropped and fail with
// sqlflow.ErrQueueStopped.
func (q *Queue) Stop() error {
	q.halt()
	q.mu.Lock()
	g, stop := q.group, q.stop
	q.mu.Unlock()
	if stop != nil {
		stop()
	}
	var err error
	if g != nil {
		err = g.Wait()
	}
	q.mu.Lock()
	var dropped []*Transaction
	for e := q.pending.Front(); e != nil; e = e.Next() {
		t := e.Value.(*Transaction)
		t.state, t.elem = stateCanceled, nil
		dropped = append(dropped, t)
	}
	q.pending.Init()
	q.mu.Unlock()
	for _, t := range dropped {
		q.finish(t, sqlflow.ErrQueueStopped)
	}
	return err
}

// Add queues t. It fails if the queue was stopped or t was already added.
func (q *Queue) Add(t *Transaction) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return sqlflow.ErrQueueStopped
	}
	if t.state != statePending {
		return errors.New("transaction: already added")
	}
	t.state = stateQueued
	t.elem = q.pending.PushBack(t)
	q.cond.Signal()
	return nil
}

// Cancel removes t from the queue if it has not started yet and reports
// whether it did. A running transaction is never interrupted. Callbacks of
// a canceled transaction are not run.
func (q *Queue) Cancel(t *Transaction) bool {
	q.mu.Lock()
	if t.state != stateQueued {
		q.mu.Unlock()
		return false
	}
	q.pending.Remove(t.elem)
	t.state, t.elem = stateCanceled, nil
	q.mu.Unlock()
	t.err = ErrCanceled
	close(t.done)
	q.log.Debug("transaction canceled", "id", t.id, "name", t.name)
	return true
}

// Len returns the number of transactions waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

func (q *Queue) next() *Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending.Len() == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return nil
	}
	t := q.pending.Remove(q.pending.Front()).(*Transaction)
	t.state, t.elem = stateRunning, nil
	return t
}

func (q *Queue) work(ctx context.Context) {
	for {
		t := q.next()
		if t == nil {
			return
		}
		start := time.Now()
		q.log.Debug("transaction started", "id", t.id, "name", t.name)
		err := Run(context.WithoutCancel(ctx), q.drv, t.fn)
		if err != nil {
			q.log.Error("transaction failed", "id", t.id, "name", t.name, "duration", time.Since(start), "error", err)
		} else {
			q.log.Debug("transaction committed", "id", t.id, "name", t.name, "duration", time.Since(start))
		}
		q.mu.Lock()
		t.state = stateDone
		q.mu.Unlock()
		q.finish(t, err)
	}
}

// finish records the outcome of t and delivers its callback.
func (q *Queue) finish(t *Transaction, err error) {
	t.err = err
	cb := func() {}
	switch {
	case err == nil && t.success != nil:
		cb = t.success
	case err != nil && t.failure != nil:
		cb = func() { t.failure(err) }
	}
	e := t.executor
	if e == nil {
		e = q.executor
	}
	e.Execute(func() {
		defer close(t.done)
		cb()
	})
}
