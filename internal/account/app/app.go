package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
	"github.com/aussiebroadwan/biblenation/internal/account/events"
	httpapi "github.com/aussiebroadwan/biblenation/internal/account/http"
	"github.com/aussiebroadwan/biblenation/internal/account/metrics"
	"github.com/aussiebroadwan/biblenation/internal/account/service"
	"github.com/aussiebroadwan/biblenation/internal/account/store"
	"github.com/aussiebroadwan/biblenation/internal/account/store/drivers/redis"
	"github.com/aussiebroadwan/biblenation/internal/account/store/drivers/sqlite"
	"github.com/aussiebroadwan/biblenation/pkg/cryptox"
	"github.com/aussiebroadwan/biblenation/pkg/jwtx"
	"github.com/aussiebroadwan/biblenation/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// hubBuffer is the per-subscriber event backlog before drops.
	hubBuffer = 64
)

// Demo credentials seeded when SEED_DEMO is set.
const (
	demoEmail    = "demo@biblenation.com"
	demoPassword = "demo123"
)

// Application wires the account service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	hub      *events.Hub
	relay    *events.AMQPRelay
	metrics  *metrics.Metrics
	location *time.Location

	// Services
	sessionService      *service.SessionService
	notificationService *service.NotificationService
	accountService      *service.AccountService
	entitlementService  *service.EntitlementService
	resetService        *service.PasswordResetService
	settingsService     *service.SettingsService
	statsService        *service.StatsService
	bootstrapService    *service.BootstrapService
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
			Service: "biblenation",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone: %w", err)
	}
	app.location = loc

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initEvents()

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.seed(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()
	if app.relay != nil {
		app.relay.Start()
	}

	app.logger.Info("account service starting",
		slog.Int("port", app.cfg.Port),
		slog.String("version", BuildVersion),
		slog.String("store", app.cfg.Store.Driver),
	)

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
		app.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down account service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Closing the hub ends open event streams so Shutdown does not wait on them.
	app.hub.Close()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	app.housekeepingService.Stop()
	if app.relay != nil {
		app.relay.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", slog.Any("error", err))
		return err
	}

	app.logger.Info("account service stopped")
	return nil
}

// initDatabase opens the configured KV backend and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.Store.Driver {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err = redis.NewStore(ctx, redis.Options{
			Addr:     app.cfg.Store.RedisAddr,
			Password: app.cfg.Store.RedisPassword,
			DB:       app.cfg.Store.RedisDB,
		})
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.Store.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.Store.Driver, err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply store migrations: %w", err)
	}

	app.logger.Info("store ready", slog.String("driver", app.cfg.Store.Driver))
	return nil
}

// initEvents creates the in-process hub and, when configured, the AMQP relay.
// A broker that cannot be reached is logged and skipped.
func (app *Application) initEvents() {
	app.hub = events.NewHub(hubBuffer)
	app.hub.OnDrop(func(events.Event) { app.metrics.EventDropped() })

	if app.cfg.AMQP.URL == "" {
		return
	}
	relay, err := events.NewAMQPRelay(app.hub, app.cfg.AMQP.URL, app.cfg.AMQP.Exchange, app.logger)
	if err != nil {
		app.logger.Error("amqp relay disabled", slog.Any("error", err))
		return
	}
	app.relay = relay
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.SessionSecret))
	if err != nil {
		return fmt.Errorf("failed to create session signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256([]byte(app.cfg.SessionSecret), jwtx.WithIssuer(app.cfg.SessionIssuer))
	if err != nil {
		return fmt.Errorf("failed to create session verifier: %w", err)
	}

	hasher := cryptox.NewPasswordHasher(app.cfg.PasswordPepper)

	app.sessionService = &service.SessionService{
		Store:    app.db,
		Signer:   signer,
		Verifier: verifier,
		Issuer:   app.cfg.SessionIssuer,
		TTL:      app.cfg.SessionTTL,
	}
	app.notificationService = &service.NotificationService{
		Store:      app.db,
		Events:     app.hub,
		Metrics:    app.metrics,
		AdminEmail: app.cfg.AdminEmail,
	}
	app.accountService = &service.AccountService{
		Store:         app.db,
		Sessions:      app.sessionService,
		Notifications: app.notificationService,
		Hasher:        hasher,
		Events:        app.hub,
		Metrics:       app.metrics,
		Location:      app.location,
		AdminEmail:    app.cfg.AdminEmail,
	}
	app.entitlementService = &service.EntitlementService{
		Store:         app.db,
		Notifications: app.notificationService,
		Events:        app.hub,
		Metrics:       app.metrics,
		FreeQuestions: app.cfg.Entitlement.FreeQuestions,
		TrialDays:     app.cfg.Entitlement.TrialDays,
		SingleTrial:   app.cfg.Entitlement.SingleTrial,
		AdminEmail:    app.cfg.AdminEmail,
	}
	app.resetService = &service.PasswordResetService{
		Store:         app.db,
		Notifications: app.notificationService,
		Hasher:        hasher,
		Metrics:       app.metrics,
	}
	app.settingsService = &service.SettingsService{Store: app.db}
	app.statsService = &service.StatsService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Hasher: hasher}

	app.housekeepingService = service.NewHousekeepingService(
		app.resetService,
		app.sessionService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Entitlements = app.entitlementService
	return nil
}

// seed creates the built-in administrator and, when enabled, the demo reader.
func (app *Application) seed(ctx context.Context) error {
	seeds := []domain.SeedAccount{{
		Email:     app.cfg.AdminEmail,
		Password:  app.cfg.AdminPassword,
		Name:      "Admin User",
		Role:      domain.RoleAdmin,
		Active:    true,
		Protected: true,
	}}
	if app.cfg.SeedDemo {
		seeds = append(seeds, domain.SeedAccount{
			Email:    demoEmail,
			Password: demoPassword,
			Name:     "Demo User",
			Role:     domain.RoleUser,
			Active:   true,
		})
	}

	created, err := app.bootstrapService.Seed(ctx, seeds...)
	if err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}
	if created > 0 {
		app.logger.Info("seeded accounts", slog.Int("created", created))
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.Hub = app.hub
	router.Metrics = app.metrics
	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.EntitlementService = app.entitlementService
	router.NotificationService = app.notificationService
	router.PasswordResetService = app.resetService
	router.SettingsService = app.settingsService
	router.StatsService = app.statsService
	router.ExposeResetCode = app.cfg.IsDev()
	router.ApplyRoutes()

	app.router = router

	// WriteTimeout stays unset; event streams are long lived.
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
