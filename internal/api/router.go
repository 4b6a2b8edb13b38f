package api

import (
	"context"
	"loan-engine/internal/api/handler"
	mw "loan-engine/internal/api/middleware"
	"loan-engine/internal/config"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/money"
	"log/slog"
	"net/http"
	"time"

	_ "loan-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// SetupRouter builds the HTTP surface. ctx bounds the lifetime of background
// middleware goroutines.
func SetupRouter(ctx context.Context, loanService loan.LoanService, currency money.Currency, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(ctx, router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupLoanRoutes(router, loanService, currency, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(ctx context.Context, router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(ctx, cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupLoanRoutes(router *chi.Mux, loanService loan.LoanService, currency money.Currency, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewLoanHandler(loanService, currency, logger)
	authHandler := handler.NewAuthHandler(*cfg, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})

	router.Route("/schedules", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/preview", h.PreviewSchedule)
	})

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.SubmitApplication)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", h.GetLoan)
			r.Put("/", h.ModifyApplication)
			r.Delete("/", h.DeleteApplication)
			r.Get("/summary", h.GetSummary)

			r.Post("/approve", h.Approve)
			r.Post("/undo-approval", h.UndoApproval)
			r.Post("/reject", h.Reject)
			r.Post("/withdraw", h.Withdraw)
			r.Post("/disburse", h.Disburse)
			r.Post("/undo-disbursal", h.UndoDisbursal)
			r.Post("/write-off", h.WriteOff)
			r.Post("/close", h.Close)
			r.Post("/close-as-rescheduled", h.CloseAsRescheduled)

			r.Post("/transactions", h.MakeRepayment)
			r.Post("/transactions/{transactionID}/adjust", h.AdjustTransaction)
			r.Post("/transactions/{transactionID}/reverse", h.ReverseTransaction)
			r.Post("/waivers", h.Waive)
			r.Post("/charges", h.AddCharge)
			r.Post("/charges/payments", h.PayCharge)
			r.Post("/charges/adjustments", h.AdjustCharge)
			r.Post("/chargebacks", h.Chargeback)
			r.Post("/credit-balance-refunds", h.RefundCreditBalance)
			r.Post("/accruals", h.RecordAccrual)
		})
	})
}
