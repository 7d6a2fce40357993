package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/danielobanda/treasury-backend/api/routes"
	"github.com/danielobanda/treasury-backend/internal/allocations"
	"github.com/danielobanda/treasury-backend/internal/assets"
	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/budgets"
	"github.com/danielobanda/treasury-backend/internal/risk"
	"github.com/danielobanda/treasury-backend/internal/transactions"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
	"github.com/danielobanda/treasury-backend/pkg/config"
	"github.com/danielobanda/treasury-backend/pkg/db"
	"github.com/danielobanda/treasury-backend/pkg/logger"
	"github.com/danielobanda/treasury-backend/pkg/metrics"
	"github.com/danielobanda/treasury-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	auditSvc, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	treasuryRepo := treasuries.NewRepository(dbClient.DB())
	assetRepo := assets.NewRepository(dbClient.DB())
	budgetRepo := budgets.NewRepository(dbClient.DB())

	treasurySvc, err := treasuries.NewService(treasuryRepo, dbClient, auditSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create treasury service", err)
		os.Exit(1)
	}

	assetSvc, err := assets.NewService(assetRepo, treasuryRepo, dbClient, auditSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create asset service", err)
		os.Exit(1)
	}

	budgetSvc, err := budgets.NewService(budgetRepo, treasuryRepo, dbClient, auditSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create budget service", err)
		os.Exit(1)
	}

	allocationSvc, err := allocations.NewService(allocations.NewRepository(dbClient.DB()), budgetRepo, dbClient, auditSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation service", err)
		os.Exit(1)
	}

	transactionSvc, err := transactions.NewService(transactions.NewRepository(dbClient.DB()), assetRepo, treasuryRepo, dbClient, auditSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	riskSvc, err := risk.NewService(risk.NewRepository(dbClient.DB()), assetRepo, treasuryRepo, dbClient, auditSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create risk service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, registry, httpMetrics, routes.Services{
			Treasuries:   treasurySvc,
			Assets:       assetSvc,
			Budgets:      budgetSvc,
			Allocations:  allocationSvc,
			Transactions: transactionSvc,
			Risk:         riskSvc,
			Audit:        auditSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
