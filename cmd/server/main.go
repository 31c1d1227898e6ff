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

	"bestpay-client/internal/audit"
	"bestpay-client/internal/bestpay"
	"bestpay-client/internal/config"
	"bestpay-client/internal/db"
	"bestpay-client/internal/logger"
	"bestpay-client/internal/metrics"
	"bestpay-client/internal/middleware"
	"bestpay-client/internal/settlement"
	"bestpay-client/internal/utils"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

// run serves until the server fails or ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	var database *sql.DB
	if cfg.AuditEnabled() {
		database = initDBFunc(cfg)
		defer database.Close()
	} else {
		logger.L().Warn("DB_HOST not set, gateway exchanges will not be recorded")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(ctx, cfg, database),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L().Info("bestpay settlement server running",
		zap.String("port", cfg.AppPort),
		zap.String("env", cfg.AppEnv),
		zap.Bool("audit", database != nil),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- startServerFunc(srv) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.L().Info("server stopped cleanly")
	return nil
}

// newServer wires the gateway client and the settlement API. database may be nil.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) http.Handler {
	stats := metrics.NewGatewayStats()
	opts := []bestpay.Option{bestpay.WithRecorder(stats)}
	var exchanges settlement.ExchangeLister
	if database != nil {
		repo := audit.NewRepository(database)
		opts = append(opts, bestpay.WithRecorder(repo))
		exchanges = repo
	}
	if cfg.Bestpay.UpperCaseMAC {
		opts = append(opts, bestpay.WithUpperCaseMAC())
	}

	transport := bestpay.NewHTTPTransport(&http.Client{Timeout: cfg.Bestpay.Timeout})
	client := bestpay.NewClient(transport, cfg.Endpoints(), opts...)

	handler := settlement.NewHandler(client, settlement.Merchant{
		ID:       cfg.Bestpay.MerchantID,
		Key:      cfg.Bestpay.Key,
		Password: cfg.Bestpay.MerchantPwd,
	}, exchanges)

	api := http.NewServeMux()
	handler.Register(api)

	limiter := middleware.NewRateLimiter()
	go limiter.Run(ctx)

	return setupRouter(middleware.Auth(cfg.JWTSecret)(limiter.Middleware(api)), stats)
}

func setupRouter(api http.Handler, stats *metrics.GatewayStats) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]any{"gateway": stats.Snapshot()})
	})
	mux.Handle("/v1/", api)

	return logger.RequestIDMiddleware(logger.LoggingMiddleware(mux))
}
