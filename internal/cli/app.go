// Package cli implements the interactive donor session: a REPL over the
// allocation engine, backed by the local SQLite draft store so an in-progress
// donation survives restarts and is visible to concurrent sessions on the
// same database.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/giveflow/giveflow/internal/allocation"
	"github.com/giveflow/giveflow/internal/catalog"
	"github.com/giveflow/giveflow/internal/checkout"
	"github.com/giveflow/giveflow/internal/common"
	"github.com/giveflow/giveflow/internal/draft"
	"github.com/giveflow/giveflow/internal/draftsync"
	"github.com/giveflow/giveflow/internal/logging"
)

// App wires the REPL to the adapter and the catalog.
type App struct {
	config  *Config
	adapter *draftsync.Adapter
	lookup  catalog.Lookup
	logger  logging.Logger
}

// demoDirectory is the bundled directory local sessions browse. A deployment
// would sync the platform's nonprofit directory instead.
func demoDirectory() (nonprofits, categories []catalog.Record) {
	nonprofits = []catalog.Record{
		{ID: "np-water", Name: "Clean Water Fund", Mission: "safe water access"},
		{ID: "np-food", Name: "Regional Food Bank", Mission: "hunger relief"},
		{ID: "np-books", Name: "Open Library Project", Mission: "literacy"},
	}
	categories = []catalog.Record{
		{ID: "cat-education", Name: "Education", Icon: "book"},
		{ID: "cat-health", Name: "Health", Icon: "heart"},
		{ID: "cat-environment", Name: "Environment", Icon: "leaf"},
	}
	return nonprofits, categories
}

// NewApp opens the local drafts database, loads the bundled directory, and
// starts a sync session for the configured user.
func NewApp(ctx context.Context, c *Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	db, err := draft.OpenSQLite(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	nonprofits, categories := demoDirectory()
	if err := catalog.Seed(ctx, db, nonprofits, categories); err != nil {
		return nil, fmt.Errorf("error loading directory: %w", err)
	}

	store := draft.NewSQLiteStore(db)
	watcher := draft.NewSQLiteWatcher(db, c.WatchInterval)
	adapter := draftsync.New(c.UserID, store, logger, draftsync.WithWatcher(watcher))

	return &App{config: c, adapter: adapter, lookup: catalog.NewSQLiteLookup(db), logger: logger}, nil
}

// Run starts the sync session and hands control to the REPL.
func (a *App) Run(ctx context.Context) error {
	if err := a.adapter.Start(ctx); err != nil {
		return err
	}

	go func() {
		for range a.adapter.Redirects() {
			printlnFn("draft was cleared from another session; starting over")
		}
	}()

	printlnFn("giveflow (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
	return a.adapter.Flush(ctx)
}

func (a *App) status() string {
	n := len(a.adapter.Items())
	if n == 0 {
		return "empty"
	}
	unallocated := a.adapter.Unallocated()
	if unallocated == 0 {
		return fmt.Sprintf("%d items, 100%%", n)
	}
	return fmt.Sprintf("%d items, %d%% unallocated", n, unallocated)
}

// itemAt resolves a 1-based list position from a command argument.
func (a *App) itemAt(arg string) (allocation.Item, error) {
	n, err := strconv.Atoi(arg)
	items := a.adapter.Items()
	if err != nil || n < 1 || n > len(items) {
		return allocation.Item{}, fmt.Errorf("no item number %q, see 'list'", arg)
	}
	return items[n-1], nil
}

func (a *App) list(ctx context.Context) {
	items := a.adapter.Items()
	if len(items) == 0 {
		printlnFn("nothing allocated yet; try: add nonprofit np-water")
		return
	}
	for n, it := range items {
		marker := " "
		switch it.State {
		case allocation.StateLocked:
			marker = "*"
		case allocation.StateManual:
			marker = "~"
		}
		printlnFn(fmt.Sprintf("%2d. %s %3d%%  %s (%s)", n+1, marker, it.Percentage, it.TargetName, it.Type))
	}
	printlnFn(fmt.Sprintf("    amount: $%.2f  frequency: %s  total: %d%%",
		float64(a.adapter.AmountCents())/100, a.adapter.Frequency(), 100-a.adapter.Unallocated()))
	if !a.adapter.IsBalanced() {
		printlnFn("    allocation does not sum to 100% yet; 'balance' fixes it")
	}
}

func (a *App) add(ctx context.Context, args []string) {
	if len(args) != 2 || (args[0] != "nonprofit" && args[0] != "category") {
		printlnFn("Usage: add <nonprofit|category> <id>")
		return
	}
	t := allocation.TargetType(args[0])

	item, err := catalog.Resolve(ctx, a.lookup, t, args[1])
	if errors.Is(err, common.ErrorNotFound) {
		printlnFn("Unknown id:", args[1])
		return
	}
	if err != nil {
		printlnFn("Lookup failed:", err.Error())
		return
	}

	err = a.adapter.AddTarget(item)
	switch {
	case errors.Is(err, common.ErrorDuplicateTarget):
		printlnFn(item.TargetName, "is already in your allocation")
	case errors.Is(err, common.ErrorMaxItems):
		printlnFn(fmt.Sprintf("you can split a donation across at most %d targets", allocation.MaxItems))
	case err != nil:
		printlnFn("Add failed:", err.Error())
	default:
		printlnFn("Added", item.TargetName)
		a.list(ctx)
	}
}

func (a *App) remove(ctx context.Context, args []string) {
	if len(args) != 1 {
		printlnFn("Usage: remove <n>")
		return
	}
	item, err := a.itemAt(args[0])
	if err != nil {
		printlnFn(err.Error())
		return
	}

	sug, err := a.adapter.Remove(item.ID)
	if errors.Is(err, common.ErrorCannotRedistribute) {
		printlnFn("cannot redistribute: unlock at least one other item first ('unlockall' releases every lock)")
		return
	}
	if err != nil {
		printlnFn("Remove failed:", err.Error())
		return
	}
	if sug == nil {
		printlnFn("Removed", item.TargetName)
		a.list(ctx)
		return
	}

	printlnFn(fmt.Sprintf("Removing %s frees %d%%. Proposed redistribution:", sug.RemovedName, sug.FreedPercent))
	for _, it := range sug.Proposed {
		printlnFn(fmt.Sprintf("    %3d%%  %s", it.Percentage, it.TargetName))
	}
	printlnFn("'accept' applies it, 'decline' removes without redistributing, 'cancel' keeps the item")
}

func (a *App) set(ctx context.Context, args []string) {
	if len(args) != 2 {
		printlnFn("Usage: set <n> <percent>")
		return
	}
	item, err := a.itemAt(args[0])
	if err != nil {
		printlnFn(err.Error())
		return
	}
	pct, err := strconv.Atoi(args[1])
	if err != nil {
		printlnFn("Usage: set <n> <percent>")
		return
	}
	if item.Locked() {
		printlnFn(item.TargetName, "is locked; 'lock' it again to release")
		return
	}
	if err := a.adapter.SetPercentage(item.ID, pct); err != nil {
		printlnFn("Set failed:", err.Error())
		return
	}
	a.list(ctx)
}

func (a *App) step(ctx context.Context, args []string, delta int) {
	if len(args) != 1 {
		printlnFn("Usage: up|down <n>")
		return
	}
	item, err := a.itemAt(args[0])
	if err != nil {
		printlnFn(err.Error())
		return
	}
	if err := a.adapter.StepPercentage(item.ID, delta); err != nil {
		printlnFn("Adjust failed:", err.Error())
		return
	}
	a.list(ctx)
}

func (a *App) lock(ctx context.Context, args []string) {
	if len(args) != 1 {
		printlnFn("Usage: lock <n>")
		return
	}
	item, err := a.itemAt(args[0])
	if err != nil {
		printlnFn(err.Error())
		return
	}
	err = a.adapter.ToggleLock(item.TargetID)
	if errors.Is(err, common.ErrorAllLocked) {
		printlnFn("at least one item must stay adjustable")
		return
	}
	if err != nil {
		printlnFn("Lock failed:", err.Error())
		return
	}
	a.list(ctx)
}

func (a *App) unlockAll(ctx context.Context) {
	a.adapter.UnlockAll()
	a.list(ctx)
}

func (a *App) balance(ctx context.Context) {
	a.adapter.AutoBalance()
	a.list(ctx)
}

func (a *App) accept(ctx context.Context) {
	if err := a.adapter.AcceptSuggestion(); err != nil {
		printlnFn("nothing to accept")
		return
	}
	a.list(ctx)
}

func (a *App) decline(ctx context.Context) {
	if err := a.adapter.DeclineSuggestion(); err != nil {
		printlnFn("nothing to decline")
		return
	}
	a.list(ctx)
}

func (a *App) cancel(ctx context.Context) {
	a.adapter.CancelSuggestion()
	a.list(ctx)
}

func (a *App) amount(ctx context.Context, args []string) {
	if len(args) != 1 {
		printlnFn("Usage: amount <dollars>, e.g. amount 25 or amount 12.50")
		return
	}
	dollars, err := strconv.ParseFloat(args[0], 64)
	if err != nil || dollars < 0 {
		printlnFn("Usage: amount <dollars>, e.g. amount 25 or amount 12.50")
		return
	}
	a.adapter.SetAmount(int64(dollars*100 + 0.5))
	a.list(ctx)
}

func (a *App) frequency(ctx context.Context, args []string) {
	if len(args) != 1 {
		printlnFn("Usage: freq <one-time|monthly|quarterly|annually>")
		return
	}
	if err := a.adapter.SetFrequency(draft.Frequency(args[0])); err != nil {
		printlnFn("Usage: freq <one-time|monthly|quarterly|annually>")
		return
	}
	a.list(ctx)
}

func (a *App) refresh(ctx context.Context) {
	if err := a.adapter.Refresh(ctx); err != nil {
		printlnFn("Refresh failed:", err.Error())
		return
	}
	a.list(ctx)
}

func (a *App) checkout(ctx context.Context) {
	h := a.adapter.Handoff()
	if err := h.Validate(checkout.Policy{}); err != nil {
		printlnFn("not ready for checkout:", err.Error())
		return
	}

	// Hand the finalized allocation to payment initiation. The draft clear
	// runs in the background; a real UI would navigate away immediately.
	printlnFn(fmt.Sprintf("Checking out $%.2f %s:", float64(h.AmountCents)/100, h.Frequency))
	for _, l := range h.Lines {
		printlnFn(fmt.Sprintf("    %3d%%  %s", l.Percentage, l.TargetName))
	}
	a.adapter.CompleteCheckout()
	printlnFn("Thank you!")
}

func (a *App) clear(ctx context.Context) {
	a.adapter.Clear()
	printlnFn("draft cleared")
}
