package main

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

	"github.com/geocoder89/smartq/internal/accounts"
	"github.com/geocoder89/smartq/internal/auth"
	"github.com/geocoder89/smartq/internal/config"
	"github.com/geocoder89/smartq/internal/db"
	httpx "github.com/geocoder89/smartq/internal/http"
	"github.com/geocoder89/smartq/internal/http/handlers"
	"github.com/geocoder89/smartq/internal/identity"
	"github.com/geocoder89/smartq/internal/lock"
	"github.com/geocoder89/smartq/internal/notifications"
	"github.com/geocoder89/smartq/internal/observability"
	"github.com/geocoder89/smartq/internal/redisclient"
	"github.com/geocoder89/smartq/internal/repo/cached"
	"github.com/geocoder89/smartq/internal/repo/memory"
	"github.com/geocoder89/smartq/internal/repo/postgres"
	"github.com/geocoder89/smartq/internal/repo/redisstore"
	"github.com/geocoder89/smartq/internal/security"
	"github.com/geocoder89/smartq/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	serviceName    = "smartq-api"
	serviceVersion = "0.1.0"
	devJWTSecret   = "dev-secret-smartq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if !cfg.IsDev() && cfg.JWT.Secret == devJWTSecret {
		return errors.New("JWT_SECRET must be set outside dev")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, serviceVersion, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Check{}

	// stores
	var (
		users   accounts.UserStore
		pending accounts.PendingStore
		locks   lock.Locker = lock.NewKeyedMutex()
	)
	// nil when the store expires records on its own (redis TTL)
	var purger worker.ExpiredPurger

	switch cfg.PendingStore {
	case "memory":
		log.Warn("running with in-memory stores; data is lost on restart")
		users = memory.NewUsersRepo()
		mem := memory.NewPendingRegistrationsRepo()
		pending, purger = mem, mem

	case "postgres", "redis":
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		checks["postgres"] = pool.Ping

		users = postgres.NewUsersRepo(pool, prom)
		pg := postgres.NewPendingRegistrationsRepo(pool, prom)
		pending, purger = pg, pg

		if cfg.PendingStore == "redis" {
			rc := redisclient.New(redisclient.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer rc.Close()

			if err := rc.Ping(ctx); err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			checks["redis"] = rc.Ping

			pending = redisstore.NewPendingRegistrationsRepo(rc.Raw())
			locks = lock.NewRedisLocker(rc.Raw(), "smartq:lock:register:")
			purger = nil
		}

	default:
		return fmt.Errorf("unknown PENDING_STORE %q", cfg.PendingStore)
	}

	users = cached.NewUsers(users, 5*time.Second)

	if err := db.EnsureAdminUser(ctx, users, cfg, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// core services
	issuer, err := auth.NewIssuer(cfg.JWT.Secret)
	if err != nil {
		return err
	}
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	local := accounts.NewLocalFlow(users, pending, hasher, newMailer(cfg, log, prom), issuer, locks,
		accounts.LocalConfig{AppName: cfg.Mail.FromName, TokenTTL: cfg.JWT.TTLSeconds, LogCodes: cfg.IsDev()}, log)

	deps := httpx.Deps{
		Env:         cfg.Env,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Prom:        prom,
		Gatherer:    reg,
		Tokens:      issuer,
		Users:       users,
		Local:       local,
		Admin:       accounts.NewAdmin(users, hasher, log),
		Checks:      checks,
	}

	if cfg.ProviderEnabled() {
		idp := identity.NewClient(identity.Config{
			BaseURL:    cfg.Provider.URL,
			AnonKey:    cfg.Provider.AnonKey,
			ServiceKey: cfg.Provider.ServiceKey,
			Timeout:    cfg.Provider.Timeout,
		}, prom)
		reconciler := accounts.NewReconciler(idp, users, issuer, cfg.JWT.TTLSeconds, log)
		deps.External = reconciler
		deps.Staff = reconciler
	} else {
		log.Info("identity provider not configured; external auth routes disabled")
	}

	if purger != nil {
		sweeper := worker.NewSweeper(worker.Config{}, purger, log.With("component", "sweeper"))
		checks["sweeper"] = func(context.Context) error {
			if !sweeper.Ready() {
				return errors.New("sweeper not running")
			}
			return nil
		}
		go sweeper.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second, // covers the provider timeout
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "pending_store", cfg.PendingStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// newMailer uses SendGrid when a key is configured, otherwise writes mail
// to the log. Either way sends go through the breaker.
func newMailer(cfg config.Config, log *slog.Logger, prom *observability.Prom) notifications.Mailer {
	var inner notifications.Mailer
	if cfg.Mail.SendGridAPIKey != "" {
		inner = notifications.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.From, cfg.Mail.FromName)
	} else {
		log.Warn("SENDGRID_API_KEY not set; verification mail goes to the log")
		inner = notifications.NewLogMailer(log)
	}

	return notifications.NewProtectedMailer(inner, notifications.ProtectedMailerConfig{Timeout: cfg.Mail.Timeout}, prom)
}
