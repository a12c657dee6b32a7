package routes

import (
	"net/http"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/api/handlers"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/api/middleware"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	coverageHandler *handlers.CoverageHandler
	claimHandler    *handlers.ClaimHandler
	reportHandler   *handlers.ReportHandler
	planHandler     *handlers.PlanHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	coverageHandler *handlers.CoverageHandler,
	claimHandler *handlers.ClaimHandler,
	reportHandler *handlers.ReportHandler,
	planHandler *handlers.PlanHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		coverageHandler: coverageHandler,
		claimHandler:    claimHandler,
		reportHandler:   reportHandler,
		planHandler:     planHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Coverage resolution and rule management
	r.mux.HandleFunc("POST /api/coverage/resolve", r.coverageHandler.ResolveCoverage)
	r.mux.HandleFunc("PUT /api/plans/{plan_id}/categories/{category}/default", r.coverageHandler.SetCategoryDefault)
	r.mux.HandleFunc("GET /api/plans/{plan_id}/categories/{category}/exceptions", r.coverageHandler.ListExceptions)
	r.mux.HandleFunc("POST /api/plans/{plan_id}/categories/{category}/exceptions", r.coverageHandler.UpsertException)
	r.mux.HandleFunc("POST /api/plans/{plan_id}/categories/{category}/exceptions/import", r.coverageHandler.ImportExceptions)

	// Plan and provider administration
	r.mux.HandleFunc("GET /api/plans", r.planHandler.ListPlans)
	r.mux.HandleFunc("GET /api/plans/{plan_id}", r.planHandler.GetPlan)
	r.mux.HandleFunc("PATCH /api/plans/{plan_id}", r.planHandler.UpdatePlan)
	r.mux.HandleFunc("DELETE /api/plans/{plan_id}", r.planHandler.DeactivatePlan)
	r.mux.HandleFunc("GET /api/insurance-providers", r.planHandler.ListProviders)

	// Claim lifecycle
	r.mux.HandleFunc("POST /api/claims", r.claimHandler.CreateClaim)
	r.mux.HandleFunc("GET /api/claims", r.claimHandler.ListClaims)
	r.mux.HandleFunc("GET /api/claims/{id}", r.claimHandler.GetClaim)
	r.mux.HandleFunc("POST /api/claims/{id}/transition", r.claimHandler.TransitionClaim)

	// Reports
	r.mux.HandleFunc("GET /api/reports/claims-summary", r.reportHandler.GetClaimsSummary)
	r.mux.HandleFunc("GET /api/reports/outstanding-aging", r.reportHandler.GetOutstandingAging)
	r.mux.HandleFunc("GET /api/reports/rejection-analysis", r.reportHandler.GetRejectionAnalysis)
	r.mux.HandleFunc("GET /api/reports/revenue-analysis", r.reportHandler.GetRevenueAnalysis)
	r.mux.HandleFunc("GET /api/reports/tariff-coverage", r.reportHandler.GetTariffCoverage)
	r.mux.HandleFunc("GET /api/reports/vetting-performance", r.reportHandler.GetVettingPerformance)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so cached responses also get CORS headers.

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	// Apply cache middleware if available
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
