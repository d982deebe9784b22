package draftsync

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/giveflow/giveflow/internal/draft"
	"github.com/giveflow/giveflow/internal/logging"
)

type intentKind int

const (
	intentUpsert intentKind = iota
	intentDelete
)

// intent is one pending persistence operation against the remote store.
type intent struct {
	kind   intentKind
	userID string
	draft  *draft.Draft
}

// outbox serializes persistence intents through a single worker. Because
// every write replaces the whole draft row, only the newest intent matters:
// enqueueing overwrites any undelivered one, which coalesces bursts of edits
// into a single remote write.
//
// Delivery is best effort: each intent is retried with exponential backoff a
// few times and then dropped with a log line. Local state stays
// authoritative for the session either way; the next write or foreground
// refresh is the recovery mechanism.
type outbox struct {
	store  draft.Store
	logger logging.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	next   *intent
	busy   bool
	closed bool

	wake chan struct{}
}

func newOutbox(store draft.Store, logger logging.Logger) *outbox {
	o := &outbox{
		store:  store,
		logger: logger.With("module", "draft_outbox"),
		wake:   make(chan struct{}, 1),
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// enqueue replaces the undelivered intent, if any, and wakes the worker.
func (o *outbox) enqueue(it intent) {
	o.mu.Lock()
	o.next = &it
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// run drains intents in order until ctx is cancelled.
func (o *outbox) run(ctx context.Context) {
	defer func() {
		o.mu.Lock()
		o.closed = true
		o.cond.Broadcast()
		o.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.wake:
		}

		for {
			o.mu.Lock()
			it := o.next
			o.next = nil
			if it == nil {
				o.mu.Unlock()
				break
			}
			o.busy = true
			o.mu.Unlock()

			o.deliver(ctx, *it)

			o.mu.Lock()
			o.busy = false
			o.cond.Broadcast()
			o.mu.Unlock()
		}
	}
}

func (o *outbox) deliver(ctx context.Context, it intent) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		switch it.kind {
		case intentUpsert:
			err = o.store.Upsert(ctx, it.draft)
		case intentDelete:
			err = o.store.Delete(ctx, it.userID)
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		o.logger.Error(ctx, "draft write failed, keeping local state", "user_id", it.userID, "error", err)
	}
}

// flush blocks until every enqueued intent has been delivered (or dropped),
// or ctx expires. A stopped worker also releases flush: nothing further
// will be delivered, so the outbox is as settled as it will ever be.
// Mutating callers do not wait on the outbox; flush exists for the few
// spots that need the remote store settled, such as tests.
func (o *outbox) flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.mu.Lock()
		for !o.closed && (o.next != nil || o.busy) {
			o.cond.Wait()
		}
		o.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
