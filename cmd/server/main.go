// Command server starts the bakery operations backend HTTP API.
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

	"github.com/redis/go-redis/v9"

	"github.com/bakeryhq/ops-backend/internal/adapter/events"
	httpserver "github.com/bakeryhq/ops-backend/internal/adapter/httpserver"
	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
	"github.com/bakeryhq/ops-backend/internal/app"
	"github.com/bakeryhq/ops-backend/internal/config"
	"github.com/bakeryhq/ops-backend/internal/repo/postgres"
	"github.com/bakeryhq/ops-backend/internal/service/ratelimiter"
	"github.com/bakeryhq/ops-backend/internal/usecase"
)

// redisPinger adapts *redis.Client's Ping to app.RedisClient, whose narrow
// interface exists so readiness.go doesn't need to import go-redis itself.
type redisPinger struct{ *redis.Client }

func (r redisPinger) Ping(ctx context.Context) app.RedisPingResult {
	return r.Client.Ping(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, "bakery-ops-backend-server")
	if err != nil {
		slog.Error("event publisher init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close event publisher", slog.Any("error", err))
		}
	}()

	buckets := map[string]ratelimiter.BucketConfig{
		"mutations": ratelimiter.NewBucketConfigFromPerMinute(cfg.RateLimitPerMin),
	}
	luaLimiter := ratelimiter.NewRedisLuaLimiter(rdb, pool, buckets)
	limiter := ratelimiter.NewDomainAdapter(luaLimiter)

	runner := postgres.NewRunner(pool)
	lock := postgres.NewAdvisoryLock(pool)

	actors := postgres.NewActorRepo(pool)
	staffProfiles := postgres.NewStaffProfileRepo(pool)
	products := postgres.NewProductRepo(pool)
	stock := postgres.NewStockRepo(pool)
	idem := postgres.NewIdempotencyRepo(pool)
	alertRules := postgres.NewAlertRuleRepo(pool)
	notifications := postgres.NewNotificationRepo(pool)
	expenses := postgres.NewExpenseRepo(pool)
	staffPayments := postgres.NewStaffPaymentRepo(pool)
	archiveSettings := postgres.NewArchiveSettingsRepo(pool)
	archiveRuns := postgres.NewArchiveRunRepo(pool)

	batchSvc := usecase.NewBatchService(runner, idem)
	batchSvc.EditWindow = cfg.BatchEditWindow
	saleSvc := usecase.NewSaleService(runner, products)
	inventorySvc := usecase.NewInventoryService(runner, stock)
	archiveSvc := usecase.NewArchiveService(runner, lock, archiveSettings, archiveRuns)
	staffSvc := usecase.NewStaffService(staffProfiles, actors)
	ledgerSvc := usecase.NewLedgerEntryService(expenses, staffPayments)
	notify := &usecase.AlertEvaluator{AlertRules: alertRules, Notifications: notifications}

	dbCheck, redisCheck := app.BuildReadinessChecks(pool, redisPinger{rdb})

	srv := &httpserver.Server{
		Cfg:        cfg,
		Sales:      saleSvc,
		Batches:    batchSvc,
		Inventory:  inventorySvc,
		Archive:    archiveSvc,
		Staff:      staffSvc,
		LedgerLog:  ledgerSvc,
		AlertRules: alertRules,
		Events:     publisher,
		Limiter:    limiter,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
	}

	handler := app.BuildRouter(cfg, srv)

	sweeper := app.NewArchiveSweeper(archiveSvc, archiveSettings, notify, time.Hour, cfg.ArchiveDailyRunLocalHour)
	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	defer cancelSweeper()
	if sweeper != nil {
		go sweeper.Run(sweeperCtx)
	}

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	cancelSweeper()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
