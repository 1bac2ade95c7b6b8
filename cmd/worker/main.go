package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/config"
	"github.com/ashwin275/billing-api/internal/customer"
	"github.com/ashwin275/billing-api/internal/db"
	"github.com/ashwin275/billing-api/internal/invoice"
	"github.com/ashwin275/billing-api/internal/jobs"
	"github.com/ashwin275/billing-api/internal/obs"
	"github.com/ashwin275/billing-api/internal/product"
	"github.com/ashwin275/billing-api/internal/report"
	"github.com/ashwin275/billing-api/internal/shop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	var mailer common.EmailSender = common.NopEmailSender{}
	if cfg.InvoiceEmailEnabled {
		mailer = common.LogEmailSender{Logger: logger, From: cfg.InvoiceEmailFrom}
	}

	productRepo := product.NewRepository(pool)
	productSvc := &product.Service{Q: productRepo, Logger: logger}
	renderer, err := invoice.NewRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse invoice template")
	}

	handlers := &jobs.Handlers{
		Invoices: &invoice.Service{
			Store:    invoice.NewRepository(pool),
			Products: productSvc,
			Stock:    productRepo,
			Logger:   logger,
		},
		Shops:     &shop.Service{Q: shop.NewRepository(pool), Logger: logger},
		Customers: &customer.Service{Q: customer.NewRepository(pool), Logger: logger},
		Reports: &report.Service{
			Q:      &report.PGQueries{DB: pool},
			R:      redis.NewClient(redisOpts),
			TTL:    cfg.ReportCacheTTL,
			Logger: logger,
		},
		Renderer: renderer,
		Email:    mailer,
		Logger:   logger,
	}

	worker := jobs.NewWorker(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}, handlers, logger)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down worker")
		worker.Shutdown()
	}()

	if err := worker.Start(); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
