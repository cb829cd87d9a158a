package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	httpapi "github.com/pnvb/volunteer-portal/internal/portal/http"
	"github.com/pnvb/volunteer-portal/internal/portal/service"
	"github.com/pnvb/volunteer-portal/internal/portal/session"
	sessmem "github.com/pnvb/volunteer-portal/internal/portal/session/drivers/memory"
	sessredis "github.com/pnvb/volunteer-portal/internal/portal/session/drivers/redis"
	sesssqlite "github.com/pnvb/volunteer-portal/internal/portal/session/drivers/sqlite"
	"github.com/pnvb/volunteer-portal/internal/portal/store"
	"github.com/pnvb/volunteer-portal/internal/portal/store/drivers/rest"
	"github.com/pnvb/volunteer-portal/pkg/sealx"
	"github.com/pnvb/volunteer-portal/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the portal service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	backend  store.Store
	snaps    session.Snapshots
	sessions *session.Manager

	// Services
	authService         *service.AuthSession
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "volunteer-portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	backend, err := rest.NewStore(cfg.BackendBaseURL, cfg.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend store: %w", err)
	}
	app.backend = backend

	if err := app.initSnapshots(); err != nil {
		return nil, err
	}

	sealer, err := app.initSealer()
	if err != nil {
		_ = app.snaps.Close()
		return nil, err
	}

	app.sessions = session.NewManager(app.snaps, sealer, cfg.SessionTTL, app.logger)
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("portal service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down portal service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.sessions.Close(); err != nil {
		app.logger.Error("error closing snapshot store", "error", err)
		return err
	}
	if err := app.backend.Close(); err != nil {
		app.logger.Error("error closing backend store", "error", err)
	}

	app.logger.Info("portal service stopped")
	return nil
}

// initSnapshots selects and initializes the session snapshot store
func (app *Application) initSnapshots() error {
	switch app.cfg.SessionBackend {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.SessionDBFile)
		st, err := sesssqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize snapshot database: %w", err)
		}
		if err := st.ApplyMigrations(); err != nil {
			_ = st.Close()
			return fmt.Errorf("failed to apply snapshot migrations: %w", err)
		}
		app.logger.Info("snapshot database migrations applied successfully")
		app.snaps = st

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
		})
		app.snaps = sessredis.NewStore(client)
		app.logger.Info("using redis snapshot store", "addr", app.cfg.RedisAddr)

	case "memory":
		app.snaps = sessmem.NewStore()
		app.logger.Warn("using in-memory snapshot store, sessions will not survive a restart")

	default:
		return fmt.Errorf("unknown session backend %q", app.cfg.SessionBackend)
	}
	return nil
}

// initSealer builds the snapshot sealer from the configured key, or a random
// one when none is configured. A random key means persisted snapshots become
// unreadable after a restart, so warn loudly.
func (app *Application) initSealer() (*sealx.Sealer, error) {
	if app.cfg.SealKey == "" {
		app.logger.Warn("no seal key configured, sessions will not survive a restart")
		return sealx.New(sealx.NewRandomKey())
	}

	key, err := sealx.ParseKey(app.cfg.SealKey)
	if err != nil {
		return nil, fmt.Errorf("PORTAL_SEAL_KEY: %w", err)
	}
	return sealx.New(key)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authService = &service.AuthSession{
		Resolver: &service.Resolver{Store: app.backend},
		Sessions: app.sessions,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	secret := []byte(app.cfg.CookieSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		app.logger.Warn("no cookie secret configured, cookies will not survive a restart")
	}

	cookie := &httpapi.CookieCodec{
		Secret: secret,
		Secure: app.cfg.Env != "dev",
	}

	router := httpapi.NewRouter(
		app.authService,
		app.sessions,
		cookie,
		BuildVersion,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
