package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"delivery-settlement/internal/audit"
	"delivery-settlement/internal/auth"
	"delivery-settlement/internal/config"
	courierapp "delivery-settlement/internal/courier/application"
	courierrepo "delivery-settlement/internal/courier/infrastructure/postgres"
	deliveryhttp "delivery-settlement/internal/delivery/interfaces/http"
	feesapp "delivery-settlement/internal/fees/application"
	feesrepo "delivery-settlement/internal/fees/infrastructure/postgres"
	"delivery-settlement/internal/observability/metrics"
	partnerapp "delivery-settlement/internal/partner/application"
	partnerrepo "delivery-settlement/internal/partner/infrastructure/postgres"
	"delivery-settlement/internal/platform/postgres"
	settlementfees "delivery-settlement/internal/settlement/adapters/fees"
	settlementpartners "delivery-settlement/internal/settlement/adapters/partners"
	settlementapp "delivery-settlement/internal/settlement/application"
	"delivery-settlement/internal/settlement/infrastructure/orders"
	"delivery-settlement/internal/settlement/infrastructure/payables"
	settlementrepo "delivery-settlement/internal/settlement/infrastructure/postgres"
	settlementinterfaces "delivery-settlement/internal/settlement/interfaces"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("config error")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("db open error")
	}
	defer db.Close()
	if cfg.InitSchema {
		if err := postgres.InitSchema(ctx, db); err != nil {
			logger.WithError(err).Fatal("schema init error")
		}
	}

	ordersDB := db
	if cfg.OrdersURL() != cfg.DatabaseURL {
		ordersDB, err = postgres.Open(ctx, cfg.OrdersURL())
		if err != nil {
			logger.WithError(err).Fatal("orders db open error")
		}
		defer ordersDB.Close()
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	courierRepo := courierrepo.NewCourierRepository(db)
	tracker, err := courierapp.NewActivityTracker(courierRepo, nil, logger)
	if err != nil {
		logger.WithError(err).Fatal("activity tracker error")
	}
	directory, err := partnerapp.NewService(partnerrepo.NewPartnerRepository(db), courierRepo, nil, logger)
	if err != nil {
		logger.WithError(err).Fatal("partner service error")
	}
	calcRepo := feesrepo.NewFeeCalculationRepository(db)
	calculator, err := feesapp.NewFeeCalculator(calcRepo, tracker, nil, logger)
	if err != nil {
		logger.WithError(err).Fatal("fee calculator error")
	}

	source := orders.NewPostgresSource(ordersDB)
	bonuses, err := settlementfees.NewBonusReader(calcRepo)
	if err != nil {
		logger.WithError(err).Fatal("bonus reader error")
	}
	resolver, err := settlementpartners.NewResolver(directory, source, logger)
	if err != nil {
		logger.WithError(err).Fatal("partner resolver error")
	}
	gateway, err := buildPayables(cfg.Payables, logger)
	if err != nil {
		logger.WithError(err).Fatal("payables client error")
	}
	settlementService, err := settlementapp.NewSettlementService(
		settlementrepo.NewSettlementRepository(db),
		gateway,
		settlementinterfaces.NewLoggingPublisher(logger),
		cfg.Accounts,
		nil,
		logger,
	)
	if err != nil {
		logger.WithError(err).Fatal("settlement service error")
	}
	aggregator, err := settlementapp.NewAggregator(source, bonuses, resolver, settlementService, nil, logger,
		settlementapp.WithConcurrency(cfg.Concurrency))
	if err != nil {
		logger.WithError(err).Fatal("settlement aggregator error")
	}

	weekday, _ := cfg.Schedule.Weekday()
	scheduler := settlementapp.NewScheduler(aggregator, tracker, settlementapp.Schedule{
		WeeklyDay:    weekday,
		WeeklyAt:     cfg.Schedule.WeeklyAt,
		DailyResetAt: cfg.Schedule.DailyResetAt,
	}, logger)
	go scheduler.Start(ctx)

	deliveryHandler, err := deliveryhttp.NewHandler(calculator, directory, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("delivery handler error")
	}
	settlementHandler, err := settlementinterfaces.NewSettlementHandler(settlementService, aggregator, directory, tracker, auditRepo, logger)
	if err != nil {
		logger.WithError(err).Fatal("settlement handler error")
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(authMiddleware.Wrap)
	r.Route("/api/delivery", deliveryHandler.Routes)
	r.Route("/api/v1", settlementHandler.Routes)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(db))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(r, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", cfg.HTTPAddr).Info("http server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("http server error")
	}
}

func buildPayables(cfg config.PayablesConfig, logger logrus.FieldLogger) (settlementapp.PayablesGateway, error) {
	if cfg.BaseURL == "" {
		logger.Warn("PAYABLES_BASE_URL not set, bills are kept in process")
		return payables.NewMemoryLedger(), nil
	}
	return payables.NewClient(cfg.BaseURL, cfg.Token)
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func loggingMiddleware(next http.Handler, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   resp.status,
			"duration": time.Since(start).String(),
		}).Info("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
