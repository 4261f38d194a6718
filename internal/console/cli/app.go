package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/config"
	"github.com/dmitrijs2005/matchdesk/internal/console/fallback"
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/repositories/checkout"
	"github.com/dmitrijs2005/matchdesk/internal/console/services"
	"github.com/dmitrijs2005/matchdesk/internal/console/storage"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    client.Client

	avail    *services.Availability
	sessions *services.SessionManager
	store    *services.EntityStore
	checkout *services.CheckoutCoordinator
	router   *services.NotificationRouter

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	api, err := client.NewHTTPClient(c.APIBaseURL, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var loader fallback.Loader = fallback.EmbeddedLoader{Now: time.Now}
	if c.Fallback.Enabled() {
		s3Loader, err := fallback.NewS3Loader(ctx, c.Fallback, logger)
		if err != nil {
			logger.Warn(ctx, "s3 fallback dataset disabled", "error", err)
		} else {
			loader = s3Loader
		}
	}
	dataset, err := loader.Load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load fallback dataset: %w", err)
	}

	return newApp(c, api, db, dataset, logger, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api client.Client, db *sql.DB, dataset *fallback.Dataset, logger logging.Logger, in io.Reader, out io.Writer) *App {
	a := &App{
		config: c,
		logger: logger,
		db:     db,
		api:    api,
		reader: bufio.NewReader(in),
		out:    out,
	}
	a.avail = services.NewAvailability(logger)
	a.sessions = services.NewSessionManager(api, db, a.avail, logger)
	a.store = services.NewEntityStore(api, a.sessions, a.avail, dataset, logger)
	a.checkout = services.NewCheckoutCoordinator(api, checkout.NewRepository(db, c.CheckoutStateTTL),
		a.sessions, a.store, c.AppURL, logger)
	a.router = services.NewNotificationRouter(api, a.store, a.sessions, newToastPrinter(out), logger)
	return a
}

// Run restores the previous session, processes a pending return URL and
// runs the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.startMetrics(ctx)
	a.startup(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	fmt.Fprintln(a.out, "Matchdesk console (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) startup(ctx context.Context) {
	if s := a.sessions.RestoreSession(ctx); s != nil {
		fmt.Fprintf(a.out, "Welcome back, %s\n", displayName(s))
		a.store.Refresh(ctx)
	}

	if attempt, err := a.checkout.PendingAttempt(ctx); err != nil {
		a.logger.Warn(ctx, "failed to read checkout attempt", "error", err)
	} else if attempt != nil {
		fmt.Fprintf(a.out, "A %s checkout (session %s) was interrupted. Type 'resume' to verify it.\n",
			attempt.Type, attempt.SessionID)
	}

	if a.config.ReturnURL != "" {
		if err := a.Return(ctx, []string{a.config.ReturnURL}); err != nil {
			fmt.Fprintln(a.out, "Error:", err)
		}
	}
}

// Close waits for background API calls and releases resources.
func (a *App) Close() {
	a.router.Wait()
	if err := a.api.Close(); err != nil {
		a.logger.Warn(context.Background(), "failed to close api client", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(context.Background(), "failed to close database", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.sessions.Current() != nil
}

func (a *App) status() string {
	s := string(a.avail.Get())
	if cur := a.sessions.Current(); cur != nil {
		s = displayName(cur) + " " + s
		if cur.Demo {
			s += " demo"
		}
	}
	return fmt.Sprintf("(%s)", s)
}

// StartOnlineStatusWatcher probes the API every interval. When the API comes
// back the cache is refreshed for the signed-in user.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	prev := a.avail.Get()
	state := a.sessions.ProbeHealth(ctx)
	if prev != models.AvailabilityOnline && state == models.AvailabilityOnline && a.isLoggedIn() {
		res := a.store.Refresh(ctx)
		a.logger.Info(ctx, "connection restored, cache refreshed", "failures", len(res.Failures))
	}
}

func displayName(s *models.Session) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}
