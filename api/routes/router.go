package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielobanda/treasury-backend/api/controllers"
	"github.com/danielobanda/treasury-backend/api/middleware"
	"github.com/danielobanda/treasury-backend/internal/allocations"
	"github.com/danielobanda/treasury-backend/internal/assets"
	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/budgets"
	"github.com/danielobanda/treasury-backend/internal/risk"
	"github.com/danielobanda/treasury-backend/internal/transactions"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
	"github.com/danielobanda/treasury-backend/pkg/config"
	"github.com/danielobanda/treasury-backend/pkg/logger"
	"github.com/danielobanda/treasury-backend/pkg/metrics"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the domain services the router exposes.
type Services struct {
	Treasuries   treasuries.Service
	Assets       assets.Service
	Budgets      budgets.Service
	Allocations  allocations.Service
	Transactions transactions.Service
	Risk         risk.Service
	Audit        audit.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	db dbPinger,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, db))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))

		r.Route("/treasuries", func(r chi.Router) {
			r.Get("/", controllers.TreasuryList(svcs.Treasuries, logg))
			r.Post("/", controllers.TreasuryCreate(svcs.Treasuries, logg))
			r.Route("/{treasuryId}", func(r chi.Router) {
				r.Get("/", controllers.TreasuryDetail(svcs.Treasuries, logg))
				r.Patch("/", controllers.TreasuryUpdate(svcs.Treasuries, logg))
				r.Delete("/", controllers.TreasuryDelete(svcs.Treasuries, logg))
				r.Post("/recalculate-balance", controllers.TreasuryRecalculateBalance(svcs.Treasuries, logg))
				r.Get("/assets", controllers.AssetsByTreasury(svcs.Assets, logg))
				r.Get("/budgets", controllers.BudgetsByTreasury(svcs.Budgets, logg))
				r.Get("/transactions", controllers.TransactionsByTreasury(svcs.Transactions, logg))
				r.Route("/risk-assessments", func(r chi.Router) {
					r.Get("/", controllers.RiskAssessmentsByTreasury(svcs.Risk, logg))
					r.Get("/latest", controllers.RiskAssessmentLatest(svcs.Risk, logg))
					r.Post("/generate", controllers.RiskAssessmentGenerate(svcs.Risk, logg))
				})
				r.Get("/audit-logs", controllers.AuditByTreasury(svcs.Audit, logg))
			})
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", controllers.AssetList(svcs.Assets, logg))
			r.Post("/", controllers.AssetCreate(svcs.Assets, logg))
			r.Route("/{assetId}", func(r chi.Router) {
				r.Get("/", controllers.AssetDetail(svcs.Assets, logg))
				r.Patch("/", controllers.AssetUpdate(svcs.Assets, logg))
				r.Delete("/", controllers.AssetDelete(svcs.Assets, logg))
				r.Post("/value", controllers.AssetUpdateValue(svcs.Assets, logg))
			})
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", controllers.BudgetList(svcs.Budgets, logg))
			r.Post("/", controllers.BudgetCreate(svcs.Budgets, logg))
			r.Route("/{budgetId}", func(r chi.Router) {
				r.Get("/", controllers.BudgetDetail(svcs.Budgets, logg))
				r.Patch("/", controllers.BudgetUpdate(svcs.Budgets, logg))
				r.Delete("/", controllers.BudgetDelete(svcs.Budgets, logg))
				r.Post("/submit", controllers.BudgetSubmit(svcs.Budgets, logg))
				r.Post("/approve", controllers.BudgetApprove(svcs.Budgets, logg))
				r.Post("/reject", controllers.BudgetReject(svcs.Budgets, logg))
				r.Get("/allocations", controllers.AllocationsByBudget(svcs.Allocations, logg))
			})
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Get("/", controllers.AllocationList(svcs.Allocations, logg))
			r.Post("/", controllers.AllocationCreate(svcs.Allocations, logg))
			r.Route("/{allocationId}", func(r chi.Router) {
				r.Get("/", controllers.AllocationDetail(svcs.Allocations, logg))
				r.Patch("/", controllers.AllocationUpdate(svcs.Allocations, logg))
				r.Delete("/", controllers.AllocationDelete(svcs.Allocations, logg))
				r.Post("/approve", controllers.AllocationApprove(svcs.Allocations, logg))
				r.Post("/release", controllers.AllocationRelease(svcs.Allocations, logg))
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionList(svcs.Transactions, logg))
			r.Post("/", controllers.TransactionCreate(svcs.Transactions, logg))
			r.Route("/{transactionId}", func(r chi.Router) {
				r.Get("/", controllers.TransactionDetail(svcs.Transactions, logg))
				r.Patch("/", controllers.TransactionUpdate(svcs.Transactions, logg))
				r.Delete("/", controllers.TransactionDelete(svcs.Transactions, logg))
				r.Post("/complete", controllers.TransactionComplete(svcs.Transactions, logg))
			})
		})

		r.Route("/risk-assessments", func(r chi.Router) {
			r.Get("/", controllers.RiskAssessmentList(svcs.Risk, logg))
			r.Post("/", controllers.RiskAssessmentCreate(svcs.Risk, logg))
			r.Route("/{assessmentId}", func(r chi.Router) {
				r.Get("/", controllers.RiskAssessmentDetail(svcs.Risk, logg))
				r.Patch("/", controllers.RiskAssessmentUpdate(svcs.Risk, logg))
				r.Delete("/", controllers.RiskAssessmentDelete(svcs.Risk, logg))
			})
		})

		r.Route("/audit-logs", func(r chi.Router) {
			r.Get("/", controllers.AuditList(svcs.Audit, logg))
			r.Get("/entity/{entityId}", controllers.AuditByEntity(svcs.Audit, logg))
			r.Get("/{entryId}", controllers.AuditDetail(svcs.Audit, logg))
		})
	})

	return r
}
