package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sigesp/prestamos-api/internal/config"
	"github.com/sigesp/prestamos-api/internal/handler"
	"github.com/sigesp/prestamos-api/internal/logging"
	"github.com/sigesp/prestamos-api/internal/middleware"
	"github.com/sigesp/prestamos-api/internal/repository"
	"github.com/sigesp/prestamos-api/internal/service/cash"
	"github.com/sigesp/prestamos-api/internal/service/client"
	"github.com/sigesp/prestamos-api/internal/service/loan"
	"github.com/sigesp/prestamos-api/internal/service/report"
	"github.com/sigesp/prestamos-api/internal/service/user"
)

//go:embed openapi.yaml
var openapiSpec []byte

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("prestamos-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	referrerRepo := repository.NewReferrerRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Hourly sweep keeps expired replay entries out of the idempotency
	// cache.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			if n, err := idempotencyRepo.CleanExpired(sweepCtx); err != nil {
				slog.Warn("idempotency cache sweep failed", "error", err)
			} else if n > 0 {
				slog.Info("idempotency cache swept", "removed", n)
			}
			select {
			case <-ticker.C:
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	jwtExpiry := time.Duration(cfg.JWTExpiryH) * time.Hour
	userService := user.NewService(userRepo, cfg.JWTSecret, jwtExpiry)
	clientService := client.NewService(clientRepo)
	cashService := cash.NewService(ledgerRepo, db)
	loanService := loan.NewService(loanRepo, installmentRepo, clientRepo, userRepo, configRepo, cashService, db)
	reportService := report.NewService(installmentRepo, loanRepo, clientRepo, userRepo, ledgerRepo)

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	clientHandler := handler.NewClientHandler(clientService)
	loanHandler := handler.NewLoanHandler(loanService)
	cashHandler := handler.NewCashHandler(cashService)
	reportHandler := handler.NewReportHandler(reportService)
	referrerHandler := handler.NewReferrerHandler(referrerRepo)
	configurationHandler := handler.NewConfigurationHandler(configRepo)
	healthHandler := handler.NewHealthHandler(db)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(h)
	}
	// Lifecycle mutations additionally require an Idempotency-Key so a
	// double-submitted form cannot disburse or collect twice.
	idempotent := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(middleware.Idempotency(idempotencyRepo)(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.Handle("GET /docs", handler.ServeDocs())
	mux.Handle("GET /docs/openapi.yaml", handler.ServeSpec(openapiSpec))

	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("POST /api/v1/clients", authed(clientHandler.Create))
	mux.Handle("GET /api/v1/clients", authed(clientHandler.List))
	mux.Handle("GET /api/v1/clients/{id}", authed(clientHandler.Get))
	mux.Handle("PUT /api/v1/clients/{id}", authed(clientHandler.Update))
	mux.Handle("PUT /api/v1/clients/{id}/eligibility", authed(clientHandler.SetEligibility))
	mux.Handle("DELETE /api/v1/clients/{id}", authed(clientHandler.Delete))

	mux.Handle("POST /api/v1/loans", idempotent(loanHandler.Originate))
	mux.Handle("GET /api/v1/loans", authed(loanHandler.List))
	mux.Handle("GET /api/v1/loans/{id}", authed(loanHandler.Get))
	mux.Handle("POST /api/v1/loans/{id}/installments/{installmentID}/collect", idempotent(loanHandler.Collect))
	mux.Handle("POST /api/v1/loans/{id}/payments", idempotent(loanHandler.CollectFlexible))
	mux.Handle("POST /api/v1/loans/{id}/refinance", idempotent(loanHandler.Refinance))
	mux.Handle("POST /api/v1/loans/{id}/finalize", authed(loanHandler.Finalize))

	mux.Handle("POST /api/v1/cash/entries", authed(cashHandler.PostEntry))
	mux.Handle("GET /api/v1/cash/entries", authed(cashHandler.Entries))
	mux.Handle("GET /api/v1/cash/balances", authed(cashHandler.Balances))

	mux.Handle("GET /api/v1/reports/delinquency", authed(reportHandler.Delinquency))
	mux.Handle("GET /api/v1/reports/month", authed(reportHandler.MonthProjection))
	mux.Handle("GET /api/v1/reports/agents/{email}", authed(reportHandler.AgentStanding))
	mux.Handle("GET /api/v1/reports/dashboard", authed(reportHandler.Dashboard))

	mux.Handle("POST /api/v1/users", authed(userHandler.Create))
	mux.Handle("GET /api/v1/users", authed(userHandler.List))
	mux.Handle("PUT /api/v1/users/{email}", authed(userHandler.Update))
	mux.Handle("DELETE /api/v1/users/{email}", authed(userHandler.Delete))
	mux.Handle("GET /api/v1/users/{email}/limits", authed(userHandler.ListLimits))
	mux.Handle("PUT /api/v1/users/{email}/limits", authed(userHandler.SetLimit))

	mux.Handle("POST /api/v1/referrers", authed(referrerHandler.Create))
	mux.Handle("GET /api/v1/referrers", authed(referrerHandler.List))
	mux.Handle("DELETE /api/v1/referrers/{id}", authed(referrerHandler.Delete))

	mux.Handle("GET /api/v1/configuration", authed(configurationHandler.Get))
	mux.Handle("PUT /api/v1/configuration", authed(configurationHandler.Put))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
