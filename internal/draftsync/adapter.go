// Package draftsync mirrors the in-memory allocation state to the durable
// per-user draft store and reconciles concurrent edits arriving from other
// tabs or devices. Local edits are applied optimistically and persisted in
// the background; remote changes replace the whole local list
// (last-writer-wins at full-draft granularity, no field-level merge).
package draftsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/giveflow/giveflow/internal/allocation"
	"github.com/giveflow/giveflow/internal/checkout"
	"github.com/giveflow/giveflow/internal/common"
	"github.com/giveflow/giveflow/internal/draft"
	"github.com/giveflow/giveflow/internal/logging"
)

// Phase is the lifecycle state of the session's draft.
type Phase string

const (
	// PhaseUninitialized: Start has not hydrated from the remote store yet.
	PhaseUninitialized Phase = "uninitialized"
	// PhaseEmpty: no draft exists for this user.
	PhaseEmpty Phase = "empty"
	// PhaseActive: a draft exists and every local write is mirrored to it.
	PhaseActive Phase = "active"
)

// defaultRefreshThrottle bounds how often foreground refreshes hit the store.
const defaultRefreshThrottle = 2 * time.Second

// Option configures an Adapter.
type Option func(*Adapter)

// WithWatcher subscribes the adapter to a change-notification feed.
func WithWatcher(w draft.Watcher) Option {
	return func(a *Adapter) { a.watcher = w }
}

// WithRefreshThrottle overrides the minimum interval between foreground
// refreshes.
func WithRefreshThrottle(d time.Duration) Option {
	return func(a *Adapter) { a.refreshEvery = d }
}

// Adapter owns one user's editing session: the allocation store plus amount
// and frequency, the outbox that mirrors them to the remote draft row, and
// the reconciliation of external changes.
//
// The causality token: every write the adapter persists records the draft's
// fingerprint. An incoming notification whose fingerprint matches is the
// echo of our own write and is ignored; anything else is an external change
// and triggers full re-hydration.
type Adapter struct {
	mu sync.Mutex

	userID string
	remote draft.Store
	logger logging.Logger

	watcher      draft.Watcher
	refreshEvery time.Duration

	alloc       *allocation.Store
	amountCents int64
	frequency   draft.Frequency

	phase       Phase
	lastWritten string
	lastRefresh time.Time

	outbox    *outbox
	redirects chan struct{}
}

// New builds an adapter for the given user. Call Start before mutating.
func New(userID string, remote draft.Store, logger logging.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		userID:       userID,
		remote:       remote,
		logger:       logger.With("module", "draft_sync", "user_id", userID),
		refreshEvery: defaultRefreshThrottle,
		alloc:        allocation.NewStore(),
		frequency:    draft.FrequencyOneTime,
		phase:        PhaseUninitialized,
		redirects:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.outbox = newOutbox(remote, logger)
	return a
}

// Start hydrates local state from the remote draft (if one exists), starts
// the outbox worker, and subscribes to change notifications. A failed
// initial fetch is logged and treated as an empty draft; the session
// proceeds on local state.
func (a *Adapter) Start(ctx context.Context) error {
	go a.outbox.run(ctx)

	// Fetch before taking the lock so a slow remote cannot stall accessors.
	d, err := a.remote.Get(ctx, a.userID)

	a.mu.Lock()
	switch {
	case errors.Is(err, common.ErrorNotFound):
		a.phase = PhaseEmpty
	case err != nil:
		a.logger.Warn(ctx, "initial draft fetch failed, starting empty", "error", err)
		a.phase = PhaseEmpty
	default:
		a.applyLocked(d)
	}
	a.mu.Unlock()

	if a.watcher == nil {
		return nil
	}
	events, err := a.watcher.Watch(ctx, a.userID)
	if err != nil {
		// Notifications are a redundant layer over foreground refresh, so a
		// failed subscription degrades rather than fails the session.
		a.logger.Warn(ctx, "draft watch unavailable", "error", err)
		return nil
	}
	go func() {
		for ev := range events {
			a.handleEvent(ctx, ev)
		}
		a.logger.Info(ctx, "draft event feed closed")
	}()
	return nil
}

// applyLocked replaces local state with the fetched draft. Callers hold mu.
func (a *Adapter) applyLocked(d *draft.Draft) {
	a.alloc.SetItems(d.AllocationItems())
	a.amountCents = d.AmountCents
	a.frequency = d.Frequency
	a.phase = PhaseActive
	a.lastWritten = d.Fingerprint()
}

// persistLocked mirrors the current local state through the outbox and
// advances the phase. Removing the last item deletes the remote row.
func (a *Adapter) persistLocked() {
	if a.alloc.Len() == 0 {
		if a.phase == PhaseActive {
			a.lastWritten = ""
			a.outbox.enqueue(intent{kind: intentDelete, userID: a.userID})
		}
		a.phase = PhaseEmpty
		return
	}

	d := draft.FromAllocation(a.userID, a.amountCents, a.frequency, a.alloc.Items())
	a.lastWritten = d.Fingerprint()
	a.phase = PhaseActive
	a.outbox.enqueue(intent{kind: intentUpsert, userID: a.userID, draft: d})
}

// handleEvent reconciles one change notification.
func (a *Adapter) handleEvent(ctx context.Context, ev draft.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.Fingerprint != "" && ev.Fingerprint == a.lastWritten {
		return // echo of our own write
	}
	if ev.Kind == draft.EventDelete {
		if a.lastWritten == "" {
			return // echo of our own delete
		}
		a.remoteDeletedLocked(ctx)
		return
	}
	a.rehydrateLocked(ctx)
}

// rehydrateLocked re-fetches the remote draft and replaces local state with
// it. Callers hold mu.
func (a *Adapter) rehydrateLocked(ctx context.Context) {
	d, err := a.remote.Get(ctx, a.userID)
	if errors.Is(err, common.ErrorNotFound) {
		a.remoteDeletedLocked(ctx)
		return
	}
	if err != nil {
		a.logger.Warn(ctx, "re-fetch after change notification failed", "error", err)
		return
	}
	if d.Fingerprint() == a.lastWritten {
		return // store caught up with our own write in the meantime
	}
	a.logger.Info(ctx, "external draft change, replacing local state")
	a.applyLocked(d)
}

// remoteDeletedLocked handles the draft disappearing underneath an active
// session: another device cleared it. Local state is dropped and the caller
// is signalled to navigate away from the editing view. Callers hold mu.
func (a *Adapter) remoteDeletedLocked(ctx context.Context) {
	hadContent := a.phase == PhaseActive && a.alloc.Len() > 0
	a.alloc.SetItems(nil)
	a.amountCents = 0
	a.frequency = draft.FrequencyOneTime
	a.phase = PhaseEmpty
	a.lastWritten = ""

	if hadContent {
		a.logger.Info(ctx, "draft deleted remotely, signalling redirect")
		select {
		case a.redirects <- struct{}{}:
		default:
		}
	}
}

// Redirects delivers a signal when the draft backing an active session was
// deleted from elsewhere; the UI must leave the editing view.
func (a *Adapter) Redirects() <-chan struct{} { return a.redirects }

// Refresh re-fetches the remote draft, throttled to once per the configured
// interval. Hook it to foreground-visibility and focus events: notification
// delivery is not guaranteed, and this is the safety net.
func (a *Adapter) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if time.Since(a.lastRefresh) < a.refreshEvery {
		return nil
	}
	a.lastRefresh = time.Now()
	a.rehydrateLocked(ctx)
	return nil
}

// --- local mutations, mirrored through the outbox ---

// AddTarget adds an item (equal-split applied by the allocation store) and
// persists.
func (a *Adapter) AddTarget(item allocation.Item) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.alloc.AddItem(item); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// ProposeAdd computes a pending add suggestion; nothing persists until the
// suggestion is resolved.
func (a *Adapter) ProposeAdd(items ...allocation.Item) (*allocation.AddSuggestion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc.ProposeAdd(items...)
}

// Remove removes an item. An immediate removal (empty list or 0% item)
// persists right away; otherwise the returned suggestion must be resolved
// first.
func (a *Adapter) Remove(id string) (*allocation.RemovalSuggestion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sug, err := a.alloc.Remove(id)
	if err != nil {
		return nil, err
	}
	if sug == nil {
		a.persistLocked()
	}
	return sug, nil
}

// AcceptSuggestion applies the pending suggestion and persists.
func (a *Adapter) AcceptSuggestion() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.alloc.Accept(); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// DeclineSuggestion resolves the pending suggestion without its rebalance
// and persists the structural change.
func (a *Adapter) DeclineSuggestion() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.alloc.Decline(); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// CancelSuggestion discards the pending suggestion; nothing changed, so
// nothing persists.
func (a *Adapter) CancelSuggestion() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alloc.Cancel()
}

// SetPercentage hand-sets an item's share and persists.
func (a *Adapter) SetPercentage(id string, value int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.alloc.SetPercentage(id, value); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// StepPercentage nudges an item's share and persists.
func (a *Adapter) StepPercentage(id string, delta int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.alloc.StepPercentage(id, delta); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// ToggleLock flips an item's lock and persists (locks are part of the draft
// row).
func (a *Adapter) ToggleLock(targetID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.alloc.ToggleLock(targetID); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// UnlockAll releases all locks and persists.
func (a *Adapter) UnlockAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alloc.UnlockAll()
	a.persistLocked()
}

// AutoBalance rebalances to 100 and persists.
func (a *Adapter) AutoBalance() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alloc.AutoBalance()
	a.persistLocked()
}

// SetAmount updates the donation amount and persists.
func (a *Adapter) SetAmount(cents int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cents < 0 {
		cents = 0
	}
	a.amountCents = cents
	if a.alloc.Len() > 0 {
		a.persistLocked()
	}
}

// SetFrequency updates the recurrence and persists.
func (a *Adapter) SetFrequency(f draft.Frequency) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !f.Valid() {
		return common.ErrorInvalidFrequency
	}
	a.frequency = f
	if a.alloc.Len() > 0 {
		a.persistLocked()
	}
	return nil
}

// Clear discards the draft locally and remotely.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alloc.SetItems(nil)
	a.amountCents = 0
	a.frequency = draft.FrequencyOneTime
	if a.phase == PhaseActive {
		a.lastWritten = ""
		a.outbox.enqueue(intent{kind: intentDelete, userID: a.userID})
	}
	a.phase = PhaseEmpty
}

// --- checkout handoff ---

// Handoff snapshots the finalized allocation as the plain structure the
// payment initiation step consumes.
func (a *Adapter) Handoff() checkout.Handoff {
	a.mu.Lock()
	defer a.mu.Unlock()
	return checkout.FromAllocation(a.amountCents, a.frequency, a.alloc.Items())
}

// CompleteCheckout clears the draft after a donation was handed off. The
// remote delete runs in the background; the caller is free to navigate to
// the payment flow immediately.
func (a *Adapter) CompleteCheckout() {
	a.Clear()
}

// Flush waits for the outbox to settle. Useful before process exit and in
// tests; the interactive path never blocks on it.
func (a *Adapter) Flush(ctx context.Context) error {
	return a.outbox.flush(ctx)
}

// --- read accessors ---

// Items returns a copy of the current allocation list.
func (a *Adapter) Items() []allocation.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc.Items()
}

// Phase reports the draft lifecycle state.
func (a *Adapter) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// AmountCents reports the donation amount.
func (a *Adapter) AmountCents() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amountCents
}

// Frequency reports the donation recurrence.
func (a *Adapter) Frequency() draft.Frequency {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frequency
}

// Unallocated reports 100 minus the current total percentage.
func (a *Adapter) Unallocated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc.Unallocated()
}

// IsBalanced reports whether the allocation sums to exactly 100.
func (a *Adapter) IsBalanced() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc.IsBalanced()
}
