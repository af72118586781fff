package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/event-service/internal/transport/http/middleware"
)

type Deps struct {
	Admin   *handlers.AdminHandler
	Private *handlers.PrivateHandler
	Public  *handlers.PublicHandler
	Health  *handlers.HealthHandler
	Auth    *authmw.AuthMiddleware
	Config  *config.Config
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(authmw.RequestID)
	r.Use(authmw.SecurityHeaders)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(authmw.Metrics)
	r.Use(authmw.AccessLog)

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.Config != nil && d.Config.RLEnabled {
			r.Use(httprate.LimitByIP(d.Config.RLLimit, d.Config.RLWindow))
		}

		// public
		r.Get("/events", d.Public.SearchEvents)
		r.Get("/events/{id}", d.Public.GetEvent)
		r.Get("/categories", d.Public.ListCategories)
		r.Get("/categories/{catId}", d.Public.GetCategory)

		// private: the caller acts as {userId}
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Use(d.Auth.Require)
			r.Use(authmw.RequireSelf("userId"))

			r.Get("/events", d.Private.ListEvents)
			r.Post("/events", d.Private.CreateEvent)
			r.Get("/events/{eventId}", d.Private.GetEvent)
			r.Patch("/events/{eventId}", d.Private.PatchEvent)
			r.Get("/events/{eventId}/requests", d.Private.ListEventRequests)
			r.Patch("/events/{eventId}/requests", d.Private.ModerateRequests)

			r.Get("/requests", d.Private.ListRequests)
			r.Post("/requests", d.Private.CreateRequest)
			r.Patch("/requests/{requestId}/cancel", d.Private.CancelRequest)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(d.Auth.Require)
			r.Use(authmw.RequireAdmin)

			r.Get("/events", d.Admin.SearchEvents)
			r.Patch("/events/{eventId}", d.Admin.PatchEvent)

			r.Post("/users", d.Admin.CreateUser)
			r.Get("/users", d.Admin.ListUsers)
			r.Delete("/users/{userId}", d.Admin.DeleteUser)

			r.Post("/categories", d.Admin.CreateCategory)
			r.Patch("/categories/{catId}", d.Admin.RenameCategory)
			r.Delete("/categories/{catId}", d.Admin.DeleteCategory)
		})
	})

	return r
}
