// Package app wires application components and startup helpers.
//
// It provides dependency injection and application initialization.
// The package coordinates between different layers and provides
// a clean application bootstrap process.
package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/bakeryhq/ops-backend/internal/adapter/httpserver"
	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
	"github.com/bakeryhq/ops-backend/internal/config"
)

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	r.Use(httpserver.TimeoutMiddleware(requestTimeout))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health/readiness endpoints are unauthenticated and unrated.
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())

	// Every branch-operations route requires an authenticated actor and
	// counts against the per-IP rate limit.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		wr.Use(httpserver.ContextActor)
		wr.Use(httpserver.RateLimitActor(srv.Limiter, "mutations", 1))

		wr.Post("/sales", srv.CreateSaleHandler())

		wr.Post("/inventory/batches", srv.CreateBatchHandler())
		wr.Put("/inventory/batches/{id}", srv.EditBatchHandler())
		wr.Post("/inventory/batches/{id}/void", srv.VoidBatchHandler())

		wr.Get("/inventory", srv.ListInventoryHandler())
		wr.Put("/inventory/{product_id}", srv.AdjustInventoryHandler())
		wr.Delete("/inventory/{product_id}", srv.RemoveInventoryHandler())

		wr.Post("/expenses", srv.CreateExpenseHandler())
		wr.Get("/expenses", srv.ListExpensesHandler())
		wr.Post("/payments", srv.CreateStaffPaymentHandler())
		wr.Get("/payments", srv.ListStaffPaymentsHandler())

		wr.Get("/notifications/rules", srv.ListAlertRulesHandler())

		wr.Post("/admin/users", srv.CreateStaffAccountHandler())
		wr.Patch("/admin/users/{id}/status", srv.ArchiveStaffAccountHandler())

		wr.Post("/archive/run", srv.RunArchiveHandler())
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return httpserver.SecurityHeaders(r)
}
