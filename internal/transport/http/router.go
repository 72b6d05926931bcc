package http

import (
	"net/http"

	"github.com/edutok-api/internal/config"
	"github.com/edutok-api/internal/infrastructure/ws"
	"github.com/edutok-api/internal/transport/http/handler"
	appmiddleware "github.com/edutok-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Verifier)

	// One token request every 10 seconds per user, burst of 3.
	pushRL := appmiddleware.NewRateLimiter(rate.Limit(0.1), 3)

	healthH := handler.NewHealthHandler(deps.Store)
	firebaseH := handler.NewFirebaseConfigHandler(cfg.FirebaseWeb)
	notifH := handler.NewNotificationHandler(deps.Notifications, deps.Hub, ws.NewUpgrader(cfg.AllowedOrigins))
	pushH := handler.NewPushHandler(deps.Push)
	cleanupH := handler.NewCleanupHandler(deps.Cleaner)

	r.Get("/api/firebase-config", firebaseH.Get)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/stream", notifH.Stream)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)
			r.Delete("/notifications/{id}", notifH.Delete)

			r.Get("/push-token", pushH.Get)
			r.With(pushRL.Limit).Post("/push-token", pushH.Register)
			r.With(pushRL.Limit).Post("/push-token/rotate", pushH.Rotate)

			r.With(appmiddleware.RequireRole(appmiddleware.NotificationProducers...)).
				Post("/notifications", notifH.Create)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(appmiddleware.Operators...))

				r.Post("/admin/cleanup", cleanupH.Run)
			})
		})
	})

	return r
}
