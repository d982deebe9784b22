// Package draftd initializes and runs the drafts daemon.
// It applies database migrations, tails the draft change feed for
// operational visibility, runs the retention sweep that removes abandoned
// drafts, and handles graceful shutdown.
package draftd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/giveflow/giveflow/internal/draft"
	"github.com/giveflow/giveflow/internal/draftd/config"
	"github.com/giveflow/giveflow/internal/logging"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   *draft.PostgresStore
	watcher *draft.PostgresWatcher
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	db, err := draft.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store := draft.NewPostgresStore(db)
	watcher := draft.NewPostgresWatcher(c.DatabaseDSN, logger)

	return &App{config: c, logger: logger, store: store, watcher: watcher}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// tailEvents logs every draft change until the feed closes. The feed closing
// while ctx is still live means the listening connection was lost, which is
// fatal for the daemon's visibility guarantee.
func (app *App) tailEvents(ctx context.Context, cancelFunc context.CancelFunc) {
	ch, err := app.watcher.WatchAll(ctx)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	for ev := range ch {
		app.logger.Info(ctx, "draft changed",
			"user_id", ev.UserID, "kind", string(ev.Kind), "fingerprint", ev.Fingerprint)
	}
	if ctx.Err() == nil {
		app.logger.Error(ctx, "event feed closed unexpectedly")
		cancelFunc()
	}
}

// runSweeper removes abandoned drafts on the configured interval. An initial
// sweep runs at startup so a long interval does not delay cleanup after a
// restart.
func (app *App) runSweeper(ctx context.Context) {
	app.sweep(ctx)

	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.sweep(ctx)
		}
	}
}

func (app *App) sweep(ctx context.Context) {
	n, err := app.store.DeleteStale(ctx, app.config.RetentionAge)
	if err != nil {
		app.logger.Error(ctx, "retention sweep failed", "error", err)
		return
	}
	if n > 0 {
		app.logger.Info(ctx, "removed stale drafts", "count", n)
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting drafts daemon...",
		"retention_age", app.config.RetentionAge.String(),
		"sweep_interval", app.config.SweepInterval.String())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.tailEvents(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runSweeper(ctx)
	}()

	wg.Wait()
}
