// Package httptransport is the thin HTTP layer. Handlers decode JSON, call
// the identity service, and render domain errors; business logic stays in the
// service packages.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mssola/useragent"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credgate/pkg/requestcontext"
)

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMeta)

	r.Post("/users", h.handleRegister)
	r.Patch("/users/{id}/credentials", h.handleUpdateCredentials)
	r.Post("/sessions", h.handleLogin)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// requestMeta copies the request ID and a compact parsed user agent into the
// context so the service can stamp them onto audit events.
func requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimiddleware.GetReqID(ctx); id != "" {
			ctx = requestcontext.WithRequestID(ctx, id)
		}
		if raw := r.UserAgent(); raw != "" {
			ctx = requestcontext.WithUserAgent(ctx, compactUserAgent(raw))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// compactUserAgent reduces a raw User-Agent header to "Browser version (OS)"
// for audit storage. Unparseable agents fall back to the raw header.
func compactUserAgent(raw string) string {
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	out := name
	if version != "" {
		out += " " + version
	}
	if os := ua.OS(); os != "" {
		out += " (" + os + ")"
	}
	return out
}
