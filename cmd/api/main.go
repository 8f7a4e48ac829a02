package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
	"taskgate.org/internal/bootstrap"
	"taskgate.org/internal/config"
	"taskgate.org/internal/httpapi"
	"taskgate.org/internal/obs"
	"taskgate.org/internal/orgs"
	"taskgate.org/internal/store/memory"
	"taskgate.org/internal/store/pg"
	"taskgate.org/internal/tasks"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

type backend interface {
	auth.Store
	tasks.Store
	tasks.IdentityFinder
	audit.Store
	httpapi.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := obs.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	obs.SetLogger(logger)
	slog.SetDefault(logger)

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		store   backend
		closeDB func() error
	)
	if cfg.UsesDatabase() {
		db, err := pg.Open(cfg.PGDSN)
		if err != nil {
			logger.Error("open db", slog.Any("error", err))
			os.Exit(1)
		}
		store, closeDB = db, db.Close
	} else {
		logger.Warn("TASKGATE_PG_DSN not set, using in-memory store")
		store = memory.New()
	}

	creds := auth.NewCredentialManager(cfg.BcryptCost)
	issuer, err := auth.NewIssuer(cfg.JWTSecret,
		auth.WithIssuerName(cfg.JWTIssuer),
		auth.WithTokenTTL(cfg.JWTTTL))
	if err != nil {
		logger.Error("token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	authSvc, err := auth.NewService(store, creds, issuer, auth.WithLogger(logger))
	if err != nil {
		logger.Error("auth service", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.SeedOnStart {
		opts := bootstrap.Options{
			SuperAdminEmail:    cfg.SeedSuperAdminEmail,
			SuperAdminPassword: cfg.SeedSuperAdminPassword,
		}
		if cfg.SeedDefaultOrganizations {
			opts.Organizations = bootstrap.DefaultOrganizations
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := bootstrap.Seed(ctx, store, creds, opts, logger); err != nil {
			logger.Warn("seeding incomplete", slog.Any("error", err))
		}
		cancel()
	}

	gate := authz.NewGate(logger)
	recorder := audit.NewRecorder(store, logger)
	api := httpapi.New(httpapi.Services{
		Auth:  authSvc,
		Orgs:  orgs.NewService(store, authSvc, gate, recorder, logger),
		Tasks: tasks.NewService(store, store, gate, recorder, logger),
		Audit: audit.NewService(store, gate),
	}, httpapi.ReadyProbe{Store: store}, httpapi.Options{
		Version:          version,
		LoginRate:        cfg.LoginRate,
		LoginBurst:       cfg.LoginBurst,
		APIRatePerMinute: cfg.APIRatePerMinute,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		CORSOrigins:      cfg.CORSOrigins,
		TrustProxy:       cfg.TrustProxy,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting taskgate-api",
		slog.String("version", version),
		slog.String("addr", srv.Addr),
		slog.Bool("database", cfg.UsesDatabase()))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", slog.Any("error", err))
	}
	if closeDB != nil {
		_ = closeDB()
	}
	logger.Info("stopped")
}
