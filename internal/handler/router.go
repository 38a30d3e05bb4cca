package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes builds the chi router with the full middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.Logger)
	r.Use(h.Metrics)
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.With(h.Authenticate).Get("/me", h.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.With(RequireRole(model.RoleOrganizer)).Post("/", h.CreateEvent)
			r.Get("/{id}", h.GetEvent)
			r.Patch("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.With(RequireRole(model.RoleAdmin)).Post("/{id}/decision", h.DecideEvent)
			r.With(RequireRole(model.RoleStudent)).Post("/{id}/register", h.Register)
			r.Get("/{id}/registrations", h.ListEventRegistrations)
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", h.ListRegistrations)
			r.Post("/{id}/cancel", h.CancelRegistration)
			r.Patch("/{id}/status", h.UpdateRegistrationStatus)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(RequireRole(model.RoleAdmin))
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Patch("/{id}/role", h.ChangeRole)
			r.Delete("/{id}", h.DeleteUser)
		})

		r.Route("/reports", func(r chi.Router) {
			r.With(RequireRole(model.RoleAdmin)).Get("/overview", h.ReportsOverview)
			r.With(RequireRole(model.RoleOrganizer)).Get("/organizer", h.OrganizerAnalytics)
		})
	})

	return r
}
