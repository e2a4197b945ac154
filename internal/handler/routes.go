package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes groups the handlers that make up the public API.
type Routes struct {
	Root     *Handler
	Health   *HealthHandler
	Metrics  *MetricsHandler
	Auth     *AuthHandler
	Expenses *ExpenseHandler

	// RequireAuth guards every route that acts on behalf of a user.
	RequireAuth func(http.Handler) http.Handler
}

// Mount registers the API routes on r.
func (rt Routes) Mount(r chi.Router) {
	r.NotFound(rt.Root.NotFound)
	r.MethodNotAllowed(rt.Root.MethodNotAllowed)

	r.Get("/", rt.Root.Hello)
	r.Get("/healthz", rt.Health.Healthz)
	r.Get("/readyz", rt.Health.Readyz)
	r.Get("/metrics", rt.Metrics.Metrics)

	r.Post("/signup", rt.Auth.Signup)
	r.Post("/login", rt.Auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(rt.RequireAuth)

		r.Get("/me", rt.Auth.Me)
		r.Post("/logout", rt.Auth.Logout)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", rt.Expenses.List)
			r.Post("/", rt.Expenses.Create)
			r.Get("/{id}", rt.Expenses.Get)
			r.Patch("/{id}", rt.Expenses.Update)
			r.Delete("/{id}", rt.Expenses.Delete)
		})
	})
}
