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

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/sentinel-auth/sentinel/internal/accounts"
	"github.com/sentinel-auth/sentinel/internal/app"
	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/demo"
	"github.com/sentinel-auth/sentinel/internal/grants"
	"github.com/sentinel-auth/sentinel/internal/platform/db"
	"github.com/sentinel-auth/sentinel/internal/shared"
	"github.com/sentinel-auth/sentinel/internal/verify"
	"github.com/sentinel-auth/sentinel/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "sentinel_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)

	authzService := authz.NewService(authz.NewPGStore(pool))
	guard := authz.Guard{Service: authzService, Resolver: accountsRepo, Logger: logger}

	mailClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("mail client close", slog.Any("error", err))
		}
	}()

	tokens := verify.NewTokenStore(redisClient, cfg.VerifyTokenTTL)
	verifyService := verify.NewService(tokens, accountsRepo, mailClient, cfg.BaseURL, logger)
	verifyHandler := verify.NewHandler(logger, verifyService)

	accountsHandler := accounts.NewHandler(logger, accountsService, sessionManager, verifyService, guard)

	grantsService := grants.NewService(grants.NewRepository(pool))
	grantsHandler := grants.NewHandler(logger, grantsService, guard)

	demoHandler := demo.NewHandler(guard)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		AccountsHandler: accountsHandler,
		VerifyHandler:   verifyHandler,
		GrantsHandler:   grantsHandler,
		DemoHandler:     demoHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
