package offlinequeue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Transport sends one queued operation's HTTP request and reports the raw
// outcome; kept as a narrow interface so replay logic is testable without a
// real HTTP round trip.
type Transport interface {
	Send(ctx context.Context, op Operation) (statusCode int, body []byte, err error)
}

// TransportFunc adapts a plain function to Transport.
type TransportFunc func(ctx context.Context, op Operation) (int, []byte, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, op Operation) (int, []byte, error) {
	return f(ctx, op)
}

// Queue is the single-threaded cooperative scheduler for replaying queued
// operations: a sync pass triggers on page load, the `online` event,
// visibility regain, or a periodic timer whose interval is recomputed by
// IntervalPolicy every pass. Exactly one pass runs at a time, guarded by a
// boolean latch; timers that fire mid-pass observe the latch and no-op —
// there is no Go analogue for the browser's event loop, so this is modeled
// as a single goroutine driven by Run.
type Queue struct {
	Store      Store
	Transport  Transport
	History    *History
	Interval   *IntervalPolicy
	MaxRetries int
	Quality    func() ConnectionQuality

	syncing atomic.Bool
}

// NewQueue constructs a Queue with the spec's default retry bound.
func NewQueue(store Store, transport Transport) *Queue {
	return &Queue{
		Store:      store,
		Transport:  transport,
		History:    NewHistory(),
		Interval:   NewIntervalPolicy(),
		MaxRetries: DefaultMaxRetries,
		Quality:    func() ConnectionQuality { return QualityGood },
	}
}

// Enqueue appends a new operation in pending status. It rejects an
// operation with an empty IdempotencyKey.
func (q *Queue) Enqueue(op Operation) error {
	if op.IdempotencyKey == "" {
		return fmt.Errorf("offlinequeue: operation %q has no idempotency key", op.ID)
	}
	if op.Status == "" {
		op.Status = StatusPending
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	return q.Store.Enqueue(op)
}

// Run drives the scheduler until ctx is cancelled, triggering a sync pass
// immediately and then on every recomputed interval.
func (q *Queue) Run(ctx context.Context) {
	q.SyncOnce(ctx)
	for {
		counts, err := q.counts()
		if err != nil {
			counts = QueueCounts{}
		}
		interval := q.Interval.NextInterval(q.Quality(), counts)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			q.SyncOnce(ctx)
		}
	}
}

// Trigger requests an immediate out-of-band sync pass, as the `online` or
// visibility-regain events would in a browser. It no-ops if a pass is
// already running.
func (q *Queue) Trigger(ctx context.Context) {
	q.SyncOnce(ctx)
}

// SyncOnce runs one replay pass, in FIFO order, over every operation that is
// neither terminal nor in conflict or needs_review, provided no other pass
// is already running.
func (q *Queue) SyncOnce(ctx context.Context) {
	if !q.syncing.CompareAndSwap(false, true) {
		return
	}
	defer q.syncing.Store(false)

	ops, err := q.Store.List()
	if err != nil {
		slog.Error("offlinequeue: list failed", slog.Any("error", err))
		return
	}
	for _, op := range ops {
		if op.Status.terminal() || op.Status == StatusConflict || op.Status == StatusNeedsReview {
			continue
		}
		if !q.dueForReplay(op) {
			continue
		}
		q.replayOne(ctx, op)
	}
}

// dueForReplay reports whether a retrying operation's backoff window has
// elapsed; pending operations are always due.
func (q *Queue) dueForReplay(op Operation) bool {
	if op.Status != StatusRetrying || op.LastAttemptAt == nil {
		return true
	}
	return time.Since(*op.LastAttemptAt) >= nextRetryDelay(op.Retries)
}

// replayOne sends one operation and classifies the outcome per spec.md
// §4.5: 2xx syncs and removes it; 4xx other than 409 fails and counts
// toward needs_review; 409 marks conflict for admin resolution; 5xx or a
// network error retries with backoff up to MaxRetries before failing.
func (q *Queue) replayOne(ctx context.Context, op Operation) {
	now := time.Now().UTC()
	op.LastAttemptAt = &now

	status, body, err := q.Transport.Send(ctx, op)
	if err != nil {
		q.markRetrying(op, err.Error())
		return
	}

	switch {
	case status >= 200 && status < 300:
		q.markSynced(op)
	case status == 409:
		op.Status = StatusConflict
		op.LastError = string(body)
		q.save(op)
		q.History.Record(HistoryEntry{OperationID: op.ID, Status: StatusConflict, At: time.Now().UTC()})
	case status >= 400 && status < 500:
		op.Retries++
		op.LastError = string(body)
		if op.Retries >= q.retryLimit() {
			op.Status = StatusNeedsReview
		} else {
			op.Status = StatusFailed
		}
		q.save(op)
		q.History.Record(HistoryEntry{OperationID: op.ID, Status: op.Status, At: time.Now().UTC()})
	default:
		q.markRetrying(op, fmt.Sprintf("server returned status %d", status))
	}
}

func (q *Queue) markRetrying(op Operation, reason string) {
	op.Retries++
	op.LastError = reason
	if op.Retries >= q.retryLimit() {
		op.Status = StatusFailed
		q.save(op)
		q.History.Record(HistoryEntry{OperationID: op.ID, Status: StatusFailed, Note: reason, At: time.Now().UTC()})
		return
	}
	op.Status = StatusRetrying
	q.save(op)
}

func (q *Queue) markSynced(op Operation) {
	op.Status = StatusSynced
	if err := q.Store.Remove(op.ID); err != nil {
		slog.Error("offlinequeue: remove synced operation failed", slog.String("operation_id", op.ID), slog.Any("error", err))
	}
	q.History.Record(HistoryEntry{OperationID: op.ID, Status: StatusSynced, At: time.Now().UTC()})
}

func (q *Queue) save(op Operation) {
	if err := q.Store.Update(op); err != nil {
		slog.Error("offlinequeue: update operation failed", slog.String("operation_id", op.ID), slog.Any("error", err))
	}
}

func (q *Queue) retryLimit() int {
	if q.MaxRetries > 0 {
		return q.MaxRetries
	}
	return DefaultMaxRetries
}

func (q *Queue) counts() (QueueCounts, error) {
	ops, err := q.Store.List()
	if err != nil {
		return QueueCounts{}, err
	}
	var c QueueCounts
	for _, op := range ops {
		switch op.Status {
		case StatusPending, StatusRetrying:
			c.Pending++
		case StatusFailed, StatusNeedsReview:
			c.Failed++
		}
	}
	return c, nil
}

// ErrOperationNotFound is returned by admin actions targeting an unknown id.
var ErrOperationNotFound = errors.New("offlinequeue: operation not found")

// Retry forces an immediate resend attempt regardless of the operation's
// current backoff window, optionally recording an admin note.
func (q *Queue) Retry(ctx context.Context, id string, actorID int64, note string) error {
	op, ok, err := q.Store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOperationNotFound
	}
	op.Status = StatusPending
	op.AdminNote = note
	q.save(op)
	q.History.Record(HistoryEntry{OperationID: id, Status: StatusPending, Note: note, ActorID: &actorID, At: time.Now().UTC()})
	q.replayOne(ctx, op)
	return nil
}

// Resolve marks an operation resolved and removes it without resending it (the admin has
// confirmed the intended effect already happened, or should be abandoned).
func (q *Queue) Resolve(id string, actorID int64, note string) error {
	op, ok, err := q.Store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOperationNotFound
	}
	op.Status = StatusResolved
	op.AdminNote = note
	if err := q.Store.Remove(op.ID); err != nil {
		return err
	}
	q.History.Record(HistoryEntry{OperationID: id, Status: StatusResolved, Note: note, ActorID: &actorID, At: time.Now().UTC()})
	return nil
}

// Ignore marks an operation ignored, removing it from future sync passes.
func (q *Queue) Ignore(id string, actorID int64, note string) error {
	op, ok, err := q.Store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOperationNotFound
	}
	op.Status = StatusIgnored
	op.AdminNote = note
	if err := q.Store.Remove(op.ID); err != nil {
		return err
	}
	q.History.Record(HistoryEntry{OperationID: id, Status: StatusIgnored, Note: note, ActorID: &actorID, At: time.Now().UTC()})
	return nil
}

// replayBackOff matches the teacher's txrunner BEGIN-retry policy shape but
// with the queue's own bounds (base 1s, factor 2, cap 60s, jitter ±25%),
// per spec.md §4.5.
func replayBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 60 * time.Second
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0
	return b
}

// nextRetryDelay derives the delay before the (retries+1)th attempt by
// replaying the stateful backoff policy retries+1 times from a fresh start;
// retry counts are small (bounded by MaxRetries), so this is cheap.
func nextRetryDelay(retries int) time.Duration {
	b := replayBackOff()
	b.Reset()
	var d time.Duration
	for i := 0; i <= retries; i++ {
		d = b.NextBackOff()
	}
	return d
}
