package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/ashwin275/billing-api/internal/auth"
	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/config"
	"github.com/ashwin275/billing-api/internal/customer"
	"github.com/ashwin275/billing-api/internal/db"
	"github.com/ashwin275/billing-api/internal/events"
	"github.com/ashwin275/billing-api/internal/health"
	"github.com/ashwin275/billing-api/internal/invoice"
	"github.com/ashwin275/billing-api/internal/jobs"
	"github.com/ashwin275/billing-api/internal/obs"
	"github.com/ashwin275/billing-api/internal/product"
	"github.com/ashwin275/billing-api/internal/ratelimit"
	"github.com/ashwin275/billing-api/internal/report"
	"github.com/ashwin275/billing-api/internal/shop"
	"github.com/ashwin275/billing-api/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "billing")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "billing-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: 1.0,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	var mailer common.EmailSender = common.NopEmailSender{}
	if cfg.InvoiceEmailEnabled {
		mailer = common.LogEmailSender{Logger: logger, From: cfg.InvoiceEmailFrom}
	}

	bus := &events.Bus{
		Store:  &events.PGStore{DB: pool},
		Logger: logger,
	}

	reportSvc := &report.Service{
		Q:      &report.PGQueries{DB: pool},
		R:      redisClient,
		TTL:    cfg.ReportCacheTTL,
		Logger: logger,
	}
	for _, topic := range []string{events.TopicInvoiceIssued, events.TopicInvoiceVoided} {
		bus.Subscribe(topic, func(ctx context.Context, _ events.Event) {
			reportSvc.Invalidate(ctx)
		})
	}

	userRepo := user.NewRepository(pool)
	userSvc := &user.Service{Q: userRepo, Logger: logger}
	userHandler := &user.Handler{Svc: userSvc, DefaultPerPage: cfg.ListDefaultLimit, MaxPerPage: cfg.ListMaxLimit}

	tokens := &auth.TokenIssuer{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.AccessTokenTTL,
	}
	authSvc := &auth.Service{
		Users:      userRepo,
		Store:      auth.NewRepository(pool),
		Tokens:     tokens,
		Email:      mailer,
		RefreshTTL: cfg.RefreshTokenTTL,
		ResetTTL:   cfg.PasswordResetTTL,
		Logger:     logger,
	}
	authHandler := &auth.Handler{Svc: authSvc, Users: userRepo}

	shopSvc := &shop.Service{Q: shop.NewRepository(pool), Logger: logger}
	shopHandler := &shop.Handler{Svc: shopSvc, DefaultPerPage: cfg.ListDefaultLimit, MaxPerPage: cfg.ListMaxLimit}

	customerSvc := &customer.Service{Q: customer.NewRepository(pool), Bus: bus, Logger: logger}
	customerHandler := &customer.Handler{Svc: customerSvc, DefaultPerPage: cfg.ListDefaultLimit, MaxPerPage: cfg.ListMaxLimit}

	productRepo := product.NewRepository(pool)
	productSvc := &product.Service{Q: productRepo, Bus: bus, Logger: logger}
	productHandler := &product.Handler{Svc: productSvc, DefaultPerPage: cfg.ListDefaultLimit, MaxPerPage: cfg.ListMaxLimit}

	renderer, err := invoice.NewRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse invoice template")
	}
	invoiceSvc := &invoice.Service{
		Store:    invoice.NewRepository(pool),
		Products: productSvc,
		Stock:    productRepo,
		Bus:      bus,
		Jobs:     &jobs.Enqueuer{Client: asynqClient},
		Logger:   logger,
	}
	invoiceHandler := &invoice.Handler{
		Svc:            invoiceSvc,
		Renderer:       renderer,
		Shops:          shopSvc,
		Customers:      customerSvc,
		DefaultPerPage: cfg.ListDefaultLimit,
		MaxPerPage:     cfg.ListMaxLimit,
	}

	reportHandler := &report.Handler{Svc: reportSvc, DefaultDays: cfg.ReportDefaultRange}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	loginLimiter, err := ratelimit.Middleware(redisClient, cfg.LoginRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure login rate limit")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checker: health.Deps{DB: pool, Redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	requireAuth := auth.RequireAuth(tokens)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimiter).Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.Post("/password/forgot", authHandler.ForgotPassword)
			a.Post("/password/reset", authHandler.ResetPassword)

			a.Group(func(protected chi.Router) {
				protected.Use(requireAuth)
				protected.Get("/me", authHandler.Me)
			})
		})

		v.Group(func(g chi.Router) {
			g.Use(requireAuth)

			g.Route("/shops", func(s chi.Router) {
				s.Get("/", shopHandler.List)
				s.Get("/{id}", shopHandler.Get)
				s.Group(func(admin chi.Router) {
					admin.Use(auth.RequireRole(user.RoleAdmin))
					admin.Post("/", shopHandler.Create)
					admin.Put("/{id}", shopHandler.Update)
					admin.Delete("/{id}", shopHandler.Delete)
				})
			})

			g.Route("/customers", customerHandler.Routes)
			g.Route("/products", productHandler.Routes)

			g.Route("/invoices", func(i chi.Router) {
				i.Get("/", invoiceHandler.List)
				i.With(idem.Middleware).Post("/", invoiceHandler.Create)
				i.Get("/{id}", invoiceHandler.Get)
				i.Put("/{id}", invoiceHandler.Update)
				i.Post("/{id}/issue", invoiceHandler.Issue)
				i.Post("/{id}/void", invoiceHandler.Void)
				i.Post("/{id}/pay", invoiceHandler.Pay)
				i.Get("/{id}/print", invoiceHandler.Print)
			})

			g.Route("/reports", func(rep chi.Router) {
				rep.Use(auth.RequireRole(user.RoleAdmin))
				reportHandler.Routes(rep)
			})

			g.Route("/users", func(u chi.Router) {
				u.Use(auth.RequireRole(user.RoleAdmin))
				userHandler.Routes(u)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
