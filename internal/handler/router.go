package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/echolabs/echo-support-go/internal/domain"
	"github.com/echolabs/echo-support-go/internal/infra/observability"
	"github.com/echolabs/echo-support-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// CORS is open to every origin on every route: the dashboard and the
// chat widget are served from arbitrary origins.
func NewRouter(svc *service.Support, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Post("/support", supportHandler(svc, logger))
		r.Get("/logs/{agentID}", logsHandler(svc, logger))
		r.Get("/metrics/support", supportMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// POST /api/support
// ============================================================

// supportHandler is thin: decode, delegate, map errors. The error
// surface is part of the public contract: validation problems come
// back as 400 with the reason in "reply"; everything else collapses to
// one generic 500 body so no internal detail leaks to the caller.
func supportHandler(svc *service.Support, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/support")
		defer span.End()

		var req domain.SupportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeReply(w, http.StatusBadRequest, "Invalid request: JSON body required.")
			return
		}

		resp, err := svc.HandleMessage(ctx, &req)
		if err != nil {
			handleSupportError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("support.intent", resp.Intent))

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// GET /api/logs/{agentID}
// ============================================================

func logsHandler(svc *service.Support, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/logs/{agentID}")
		defer span.End()

		agentID := chi.URLParam(r, "agentID")
		span.SetAttributes(attribute.String("agent.id", agentID))

		entries, err := svc.ListLogs(ctx, agentID)
		if err != nil {
			handleLogsError(w, err, logger)
			return
		}
		if entries == nil {
			entries = []domain.LogEntry{}
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(svc *service.Support) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "echo-support", Status: "healthy", LastChecked: now},
		}

		storeStatus := "healthy"
		if svc == nil || !svc.StoreAvailable() {
			storeStatus = "unavailable"
		}
		services = append(services, domain.ServiceHealth{
			Name: "logstore", Status: storeStatus, LastChecked: now,
		})

		overall := "healthy"
		if storeStatus != "healthy" {
			overall = "degraded"
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func supportMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSupportSnapshot())
	}
}
