package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/domain/escalation"
	"competency/internal/domain/notifications"
	"competency/internal/platform/config"
	"competency/internal/platform/metrics"
	"competency/internal/transport/http/api"
	assessmentshandler "competency/internal/transport/http/handlers/assessments"
	cycleshandler "competency/internal/transport/http/handlers/cycles"
	notificationshandler "competency/internal/transport/http/handlers/notifications"
	remindershandler "competency/internal/transport/http/handlers/reminders"
	"competency/internal/transport/http/middleware"
)

// Deps is everything the HTTP surface needs. Tests build it from memory
// stores.
type Deps struct {
	Config      config.Config
	Location    *time.Location
	Assessments *assessment.Service
	Snapshots   cycleshandler.Assessments
	Cycles      cycle.StoreAPI
	Escalation  *escalation.Policy
	Inbox       notificationshandler.Inbox
	Failures    notifications.FailureReader
	Reminders   remindershandler.Runner
	Metrics     *metrics.Collector
	Ready       func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	var recorder middleware.HTTPRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(d.Config.Environment == "production"))
	router.Use(middleware.BodyLimit(d.Config.MaxBodyBytes))
	router.Use(middleware.Auth(d.Config.JWTSecret))
	router.Use(middleware.RateLimit(d.Config.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if d.Config.MetricsEnabled && d.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, d.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Use(middleware.RequireJSON)
		r.Use(middleware.MutationRateLimit(d.Config.RateLimitPerMinute, time.Minute))

		assessmentshandler.NewHandler(d.Assessments, d.Cycles, d.Escalation).RegisterRoutes(r)
		cycleshandler.NewHandler(d.Cycles, d.Snapshots, d.Location).RegisterRoutes(r)
		remindershandler.NewHandler(d.Reminders, d.Location).RegisterRoutes(r)
		notificationshandler.NewHandler(d.Inbox, d.Failures).RegisterRoutes(r)
	})

	return router
}
