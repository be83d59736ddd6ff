// Package server initializes and runs the auth server: it wires storage,
// token services and transports, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/logging"
	"github.com/dmitrijs2005/healthrecords/internal/server/auth"
	"github.com/dmitrijs2005/healthrecords/internal/server/config"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/healthrecords/internal/server/rest"
	"github.com/dmitrijs2005/healthrecords/internal/server/services"

	gs "github.com/dmitrijs2005/healthrecords/internal/server/grpc"
	"golang.org/x/sync/errgroup"
)

// bearerLeeway is the clock skew tolerated on bearer tokens.
const bearerLeeway = 5 * time.Minute

const healthCheckInterval = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *services.SessionService
	users       *services.UserService
	bearer      *auth.Validator
	proxies     []netip.Prefix
}

// NewApp validates c and builds the application. Missing signing material is
// reported here and must stop the process.
func NewApp(c *config.Config) (*App, error) {

	level := slog.LevelInfo
	if c.Development {
		level = slog.LevelDebug
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	return newApp(c, logger)
}

func newApp(c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	authCfg := auth.Config{
		SigningKey:           c.SigningKey,
		Issuer:               c.Issuer,
		Audience:             c.Audience,
		AccessTokenLifetime:  c.AccessTokenValidityDuration,
		RefreshTokenLifetime: c.RefreshTokenValidityDuration,
	}

	issuer, err := auth.NewIssuer(authCfg)
	if err != nil {
		return nil, err
	}
	validator, err := auth.NewValidator(authCfg)
	if err != nil {
		return nil, err
	}
	bearer, err := auth.NewValidator(authCfg, auth.WithLeeway(bearerLeeway))
	if err != nil {
		return nil, err
	}
	proxies, err := rest.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, m, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if db == nil {
		logger.Warn(context.Background(), "no database configured, users are kept in memory")
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: m,
		sessions:    services.NewSessionService(db, m, issuer, validator, logger),
		users:       services.NewUserService(db, m),
		bearer:      bearer,
		proxies:     proxies,
	}, nil
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

// prepare applies migrations and provisions the seed account.
func (app *App) prepare(ctx context.Context) error {
	app.logger.Info(ctx, "preparing credential store", "backend", app.repomanager.Backend())
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	c := app.config
	if c.SeedUsername == "" {
		return nil
	}
	if c.SeedEmail == "" || c.SeedPassword == "" {
		return fmt.Errorf("seed user %q needs an email and a password", c.SeedUsername)
	}

	created, err := app.users.EnsureUser(ctx, c.SeedUsername, c.SeedEmail, c.SeedPassword, c.SeedRole)
	if err != nil {
		return err
	}
	if created {
		app.logger.Info(ctx, "seed user created", "username", c.SeedUsername, "role", c.SeedRole)
	}
	return nil
}

func (app *App) httpHandler() *rest.HTTPServer {
	h := rest.NewHandler(rest.Options{
		Sessions:       app.sessions,
		Profiles:       app.users,
		Bearer:         app.bearer,
		Logger:         app.logger,
		LoginRateLimit: app.config.LoginRateLimit,
		TrustedProxies: app.proxies,
		Development:    app.config.Development,
	})
	return rest.NewHTTPServer(app.config.EndpointAddrHTTP, h, app.logger)
}

func (app *App) probe() gs.Probe {
	if app.db == nil {
		return nil
	}
	return app.db.PingContext
}

func (app *App) grpcServer() *gs.GRPCServer {
	return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.probe(), healthCheckInterval)
}

// Run serves HTTP and gRPC until ctx is cancelled or a signal arrives. A
// server that fails, e.g. on bind, stops the other and its error is returned.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if app.db != nil {
		defer app.db.Close()
	}

	if err := app.prepare(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.httpHandler().Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := app.grpcServer().Run(gctx); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "App stopped with error", "error", err)
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
