package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/client/client"
	"github.com/dmitrijs2005/healthrecords/internal/client/config"
	"github.com/dmitrijs2005/healthrecords/internal/client/services"
	"github.com/dmitrijs2005/healthrecords/internal/client/tokenstore"
	"github.com/dmitrijs2005/healthrecords/internal/filex"
	"github.com/dmitrijs2005/healthrecords/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// pingTimeout bounds one connectivity probe.
const pingTimeout = 3 * time.Second

type App struct {
	config      *config.Config
	authService services.AuthService
	logger      logging.Logger
	reader      *bufio.Reader
	out         io.Writer
	closers     []io.Closer

	mu   sync.Mutex
	mode Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)

	path, err := filex.DataFile(c.DataDir, "client.db")
	if err != nil {
		return nil, fmt.Errorf("error preparing data dir: %w", err)
	}
	db, err := tokenstore.OpenDatabase(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	store := tokenstore.New(db)

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, store, nil, logger)

	a := &App{
		config: c,
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	a.closers = append(a.closers, db)

	var pinger services.Pinger
	if c.HealthEndpointAddr != "" {
		hc, err := client.NewHealthChecker(c.HealthEndpointAddr)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.closers = append(a.closers, hc)
		pinger = hc
	}

	a.authService = services.NewAuthService(api, store, api.Transport(), pinger)
	return a, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.close()

	fmt.Fprintln(a.out, "Welcome to Health Records CLI (type 'help' for commands)")
	if st, err := a.authService.Status(ctx); err == nil && st.LoggedIn {
		fmt.Fprintf(a.out, "Restored session for %s\n", st.User.Username)
	}

	if a.config.HealthEndpointAddr != "" {
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) close() {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error(context.Background(), "error releasing resources", "error", err)
	}
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.authService.IsLoggedIn(ctx)
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) getStatus(ctx context.Context) string {
	s := ""
	if st, err := a.authService.Status(ctx); err == nil && st.LoggedIn {
		s = st.User.Username
	}
	if m := a.Mode(); m != "" {
		if s != "" {
			s += " "
		}
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher probes the server every interval and keeps the
// online/offline mode current until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
