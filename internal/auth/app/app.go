package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/zenith-auth/internal/auth/http"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/service"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
	"github.com/aussiebroadwan/zenith-auth/pkg/httpx"
	"github.com/aussiebroadwan/zenith-auth/pkg/ratelimit"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "zenith-auth"
)

// Application encapsulates the auth service and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	redis *redis.Client

	meterShutdown func(context.Context) error

	orchestrator        *service.Orchestrator
	identityService     *service.IdentityService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialized. Resources
// opened before a failure are released.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initRedis(ctx); err != nil {
		app.closeResources(ctx)
		return nil, err
	}
	if err := app.initServices(ctx); err != nil {
		app.closeResources(ctx)
		return nil, err
	}
	if err := app.bootstrap(ctx); err != nil {
		app.closeResources(ctx)
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeResources(context.Background())
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

// Shutdown drains the HTTP server, stops housekeeping and closes the
// store, cache and metric exporter.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeResources(ctx); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// closeResources releases whatever New managed to open and returns the
// store close error, if any.
func (app *Application) closeResources(ctx context.Context) error {
	if app.meterShutdown != nil {
		if err := app.meterShutdown(ctx); err != nil {
			app.logger.Error("error flushing metrics", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			return err
		}
	}
	return nil
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL, postgres.Options{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initRedis connects the shared cache when one is configured. Without it,
// limiters and the role cache are process local.
func (app *Application) initRedis(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.logger.Info("redis not configured, using in-process limiters and role cache")
		return nil
	}

	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.redis = client
	app.logger.Info("redis connected", "addr", opts.Addr)
	return nil
}

// limiter returns a Redis-backed limiter when the cache is available and a
// process-local one otherwise.
func (app *Application) limiter(prefix string, cfg ratelimit.Config) ratelimit.Limiter {
	if app.redis != nil {
		return ratelimit.NewRedis(app.redis, "zenith:rl:"+prefix+":", cfg)
	}
	return ratelimit.NewMemory(cfg)
}

// initServices builds the credential, session, second factor and
// permission services and the orchestrator over them.
func (app *Application) initServices(ctx context.Context) error {
	mp, shutdown, err := newMeterProvider(ctx, app.cfg.OTLPEndpoint, app.cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	app.meterShutdown = shutdown

	metrics, err := service.NewMetrics(mp)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	hasher, err := cryptox.NewHasher(app.cfg.BcryptCost, app.cfg.HashWorkers)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  []byte(app.cfg.AccessSecret),
		RefreshSecret: []byte(app.cfg.RefreshSecret),
		Issuer:        app.cfg.Issuer,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		Leeway:        app.cfg.Leeway,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	policy, err := app.policy(ctx)
	if err != nil {
		return err
	}

	var cache service.RoleCache = service.NewMemoryRoleCache(app.cfg.PermissionCacheTTL)
	if app.redis != nil {
		cache = &service.RedisRoleCache{
			Client: app.redis,
			Prefix: "zenith:role:",
			TTL:    app.cfg.PermissionCacheTTL,
		}
	}

	sessions := &service.SessionManager{
		Store:        app.db,
		MaxSessions:  app.cfg.MaxSessions,
		TTL:          tokens.RefreshTTL(),
		StoreTimeout: app.cfg.StoreTimeout,
		Metrics:      metrics,
	}
	twoFactor := &service.TwoFactorEngine{
		Store:             app.db,
		Sender:            service.LogSender{Logger: app.logger},
		Issuer:            app.cfg.TOTPIssuer,
		Period:            app.cfg.TOTPPeriod,
		Skew:              app.cfg.TOTPSkew,
		RecoveryCodeCount: app.cfg.RecoveryCodeCount,
		EmailCodeTTL:      app.cfg.EmailCodeTTL,
		PendingSetupTTL:   app.cfg.PendingSetupTTL,
		StoreTimeout:      app.cfg.StoreTimeout,
		Metrics:           metrics,
	}
	perms := &service.PermissionResolver{
		Store:        app.db,
		Policy:       policy,
		Cache:        cache,
		StoreTimeout: app.cfg.StoreTimeout,
	}

	if app.cfg.ProviderSalt == "" {
		app.logger.Warn("AUTH_PROVIDER_SALT is empty, external identity passwords are derived without a salt")
	}
	app.identityService = &service.IdentityService{
		Store:        app.db,
		Hasher:       hasher,
		Permissions:  perms,
		Sessions:     sessions,
		ProviderSalt: []byte(app.cfg.ProviderSalt),
		StoreTimeout: app.cfg.StoreTimeout,
	}

	app.orchestrator = &service.Orchestrator{
		Store:       app.db,
		Hasher:      hasher,
		Tokens:      tokens,
		Sessions:    sessions,
		TwoFactor:   twoFactor,
		Permissions: perms,
		Identities:  app.identityService,
		LoginLimiter: app.limiter("login", ratelimit.Config{
			Requests: app.cfg.LoginLimit,
			Window:   app.cfg.LoginWindow,
		}),
		RefreshLimiter: app.limiter("refresh", ratelimit.Config{
			Requests: app.cfg.RefreshLimit,
			Window:   app.cfg.RefreshWindow,
		}),
		PendingLoginTTL:      app.cfg.PendingLoginTTL,
		MaxTwoFactorAttempts: app.cfg.MaxTwoFactorAttempts,
		StoreTimeout:         app.cfg.StoreTimeout,
		Metrics:              metrics,
	}

	if app.cfg.TrustedDeviceTTL > 0 {
		app.orchestrator.Devices = &service.TrustedDeviceService{
			Store:        app.db,
			TTL:          app.cfg.TrustedDeviceTTL,
			StoreTimeout: app.cfg.StoreTimeout,
		}
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// policy selects the capability policy. The rego engine loads
// AUTH_POLICY_FILE when set and the embedded policy otherwise.
func (app *Application) policy(ctx context.Context) (service.Policy, error) {
	if app.cfg.PolicyEngine != "rego" {
		return service.StaticPolicy{}, nil
	}

	var src string
	if app.cfg.PolicyFile != "" {
		b, err := os.ReadFile(app.cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		src = string(b)
	}

	p, err := service.NewRegoPolicy(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego policy: %w", err)
	}
	app.logger.Info("rego policy engine enabled", "file", app.cfg.PolicyFile)
	return p, nil
}

// bootstrap creates the first system administrator on an empty store.
func (app *Application) bootstrap(ctx context.Context) error {
	created, err := app.identityService.Bootstrap(ctx, app.cfg.BootstrapEmail, app.cfg.BootstrapPass)
	if err != nil {
		return fmt.Errorf("failed to bootstrap administrator: %w", err)
	}
	if created {
		app.logger.Info("bootstrap administrator created", "email", app.cfg.BootstrapEmail)
	}
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.Orchestrator = app.orchestrator
	router.Identities = app.identityService

	if app.redis != nil {
		router.Limits = httpapi.Limits{
			Strict:   app.limiter("strict", httpx.StrictLimit),
			Moderate: app.limiter("moderate", httpx.ModerateLimit),
			Lenient:  app.limiter("lenient", httpx.LenientLimit),
		}
		router.CachePing = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	} else {
		router.Limits = httpapi.MemoryLimits()
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
