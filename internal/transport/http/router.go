// Package http assembles the HTTP surface: the middleware chain, every
// feature's routes, and the operational endpoints.
package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"communityhub/internal/admin"
	"communityhub/internal/auth"
	"communityhub/internal/discussion"
	"communityhub/internal/document"
	"communityhub/internal/event"
	"communityhub/internal/notification"
	"communityhub/internal/platform/metrics"
	"communityhub/internal/platform/middleware"
	"communityhub/internal/settings"
	"communityhub/internal/user"
	"communityhub/internal/volunteer"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	DB      *sql.DB

	RequestTimeout time.Duration

	AuthService   *auth.Service
	UserService   *user.Service
	Auth          *auth.Handler
	Users         *user.Handler
	Events        *event.Handler
	Volunteers    *volunteer.Handler
	Discussions   *discussion.Handler
	Documents     *document.Handler
	Notifications *notification.Handler
	Settings      *settings.Handler
	Admin         *admin.Handler
}

// New builds the router. All API routes live under /api/v1; /health and
// /metrics sit at the root for probes and scrapers.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.Latency(d.Metrics))

	requireAuth := middleware.RequireAuth(d.AuthService, d.UserService, d.Logger)
	optionalAuth := middleware.OptionalAuth(d.AuthService, d.UserService, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		d.Auth.Register(r)
		d.Users.Register(r, requireAuth)
		d.Events.Register(r, requireAuth, optionalAuth)
		d.Volunteers.Register(r, requireAuth, optionalAuth)
		d.Discussions.Register(r, requireAuth, optionalAuth)
		d.Documents.Register(r, requireAuth, optionalAuth)
		d.Notifications.Register(r, requireAuth)
		d.Settings.Register(r, requireAuth)
		d.Admin.Register(r, requireAuth)
	})

	r.Get("/health", healthHandler(d.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
