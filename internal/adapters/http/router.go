package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/viralforge/webauth/internal/application"
	"github.com/viralforge/webauth/internal/domain"
)

// Options tunes the HTTP surface. The zero value is usable.
type Options struct {
	Cookie CookieConfig
	// DevErrors exposes raw internal error text in 500 responses.
	DevErrors bool
	// Ready reports dependency health for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Handler is the HTTP adapter entrypoint for auth use-cases.
type Handler struct {
	service   *application.Service
	cookie    CookieConfig
	devErrors bool
	ready     func(ctx context.Context) error
}

func NewHandler(service *application.Service, opts Options) *Handler {
	return &Handler{
		service:   service,
		cookie:    opts.Cookie.withDefaults(),
		devErrors: opts.DevErrors,
		ready:     opts.Ready,
	}
}

// NewRouter registers routes and the middleware stack. Every request past the
// health probes has its identity resolved before reaching a handler.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Group(func(r chi.Router) {
		r.Use(handler.identityMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handler.register)
			r.Post("/login", handler.login)
			r.Get("/logout", handler.logout)
			r.Post("/logout", handler.logout)
			r.Post("/forgot-password", handler.forgotPassword)
			r.Post("/reset-password", handler.resetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(handler.requireRole())
			r.Get("/profile", handler.profile)
			r.Get("/dashboard", handler.dashboard)
			r.Post("/user/update-profile", handler.updateProfile)
			r.Post("/user/change-password", handler.changePassword)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(handler.requireRole(domain.RoleAdmin)).Get("/dashboard", handler.adminDashboard)
			r.With(handler.requireRole(domain.RoleAdmin, domain.RoleModerator)).Get("/users", handler.listUsers)
			r.With(handler.requireRole(domain.RoleAdmin)).Post("/users/{id}/toggle-status", handler.toggleUserStatus)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", "dependency unavailable", err)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependency unavailable")
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}
