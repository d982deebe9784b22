package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giveflow/giveflow/internal/catalog"
	"github.com/giveflow/giveflow/internal/draft"
	"github.com/giveflow/giveflow/internal/draftsync"
	"github.com/giveflow/giveflow/internal/logging"
)

// capturePrintln redirects REPL output into a buffer for assertions.
func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func output(lines *[]string) string { return strings.Join(*lines, "\n") }

func newTestApp(t *testing.T) *App {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError})))

	db, err := draft.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := draft.NewSQLiteStore(db)
	adapter := draftsync.New("donor1", store, logger)
	require.NoError(t, adapter.Start(context.Background()))

	nonprofits, categories := demoDirectory()

	cfg := &Config{}
	cfg.LoadDefaults()

	return &App{
		config:  cfg,
		adapter: adapter,
		lookup:  catalog.NewStaticLookup(nonprofits, categories),
		logger:  logger,
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestApp_AddListRemove(t *testing.T) {
	lines := capturePrintln(t)
	app := newTestApp(t)
	ctx := context.Background()

	app.add(ctx, []string{"nonprofit", "np-water"})
	app.add(ctx, []string{"category", "cat-education"})

	items := app.adapter.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 50, items[0].Percentage)
	assert.Equal(t, 50, items[1].Percentage)
	assert.Contains(t, output(lines), "Clean Water Fund")

	*lines = (*lines)[:0]
	app.remove(ctx, []string{"2"})
	assert.Contains(t, output(lines), "Proposed redistribution")

	app.accept(ctx)
	items = app.adapter.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].Percentage)
}

func TestApp_AddRejectsUnknownAndDuplicate(t *testing.T) {
	lines := capturePrintln(t)
	app := newTestApp(t)
	ctx := context.Background()

	app.add(ctx, []string{"nonprofit", "np-nope"})
	assert.Contains(t, output(lines), "Unknown id")

	app.add(ctx, []string{"nonprofit", "np-water"})
	*lines = (*lines)[:0]
	app.add(ctx, []string{"nonprofit", "np-water"})
	assert.Contains(t, output(lines), "already in your allocation")
	assert.Len(t, app.adapter.Items(), 1)
}

func TestApp_SetLockBalance(t *testing.T) {
	lines := capturePrintln(t)
	app := newTestApp(t)
	ctx := context.Background()

	app.add(ctx, []string{"nonprofit", "np-water"})
	app.add(ctx, []string{"nonprofit", "np-food"})
	app.add(ctx, []string{"nonprofit", "np-books"})

	app.set(ctx, []string{"1", "60"})
	app.lock(ctx, []string{"1"})

	*lines = (*lines)[:0]
	app.set(ctx, []string{"1", "10"})
	assert.Contains(t, output(lines), "locked")

	app.balance(ctx)
	assert.True(t, app.adapter.IsBalanced())
	assert.Equal(t, 60, app.adapter.Items()[0].Percentage)
}

func TestApp_BadIndexReported(t *testing.T) {
	lines := capturePrintln(t)
	app := newTestApp(t)
	ctx := context.Background()

	app.set(ctx, []string{"7", "10"})
	assert.Contains(t, output(lines), "no item number")
}

func TestApp_CheckoutRequiresBalancedAllocation(t *testing.T) {
	lines := capturePrintln(t)
	app := newTestApp(t)
	ctx := context.Background()

	app.checkout(ctx)
	assert.Contains(t, output(lines), "not ready for checkout")

	app.add(ctx, []string{"nonprofit", "np-water"})
	app.amount(ctx, []string{"25"})
	app.frequency(ctx, []string{"monthly"})

	*lines = (*lines)[:0]
	app.checkout(ctx)
	out := output(lines)
	assert.Contains(t, out, "Checking out $25.00 monthly")
	assert.Contains(t, out, "Thank you!")
	assert.Equal(t, draftsync.PhaseEmpty, app.adapter.Phase())
}

func TestApp_StatusReflectsAllocation(t *testing.T) {
	capturePrintln(t)
	app := newTestApp(t)
	ctx := context.Background()

	assert.Equal(t, "empty", app.status())

	app.add(ctx, []string{"nonprofit", "np-water"})
	assert.Equal(t, "1 items, 100%", app.status())

	app.set(ctx, []string{"1", "40"})
	assert.Equal(t, "1 items, 60% unallocated", app.status())
}
