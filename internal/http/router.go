package http

import (
	"context"
	"log/slog"
	"net/http"
)

type RouterConfig struct {
	Reservations *ReservationHandler
	Resources    *ResourceHandler
	// Health reports readiness for /healthz. A nil func always reports ready.
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	member := RequireClubMember(cfg.Logger)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, member(h))
	}

	if cfg.Reservations != nil {
		protect("POST /reservations", cfg.Reservations.Create)
		protect("GET /reservations/{id}", cfg.Reservations.Get)
		protect("PUT /reservations/{id}", cfg.Reservations.Modify)
		protect("POST /reservations/{id}/approve", cfg.Reservations.Approve)
		protect("POST /reservations/{id}/reject", cfg.Reservations.Reject)
		protect("POST /reservations/{id}/cancel", cfg.Reservations.Cancel)
		protect("GET /resources/{id}/reservations", cfg.Reservations.ListByResource)
		protect("GET /resources/{id}/conflicts", cfg.Reservations.Conflicts)
	}

	if cfg.Resources != nil {
		protect("GET /clubs/{id}/resources", cfg.Resources.List)
		protect("POST /clubs/{id}/resources", cfg.Resources.Create)
		protect("DELETE /resources/{id}", cfg.Resources.Delete)
		protect("GET /resources/{id}/locks", cfg.Resources.ListLocks)
		protect("POST /resources/{id}/locks", cfg.Resources.CreateLock)
		protect("DELETE /locks/{id}", cfg.Resources.DeleteLock)
	}

	responder := newResponder(cfg.Logger)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

type healthResponse struct {
	Status string `json:"status"`
}
