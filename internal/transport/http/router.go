// Package httptransport is the thin HTTP layer over the facade. Handlers
// decode, delegate and encode; trust decisions stay in the policy engine.
package httptransport

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"arx/internal/facade"
	"arx/internal/session"
)

// Handler wires the public endpoints to the facade and session manager.
type Handler struct {
	facade   *facade.Facade
	sessions *session.Manager
	log      *slog.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// NewHandler constructs the HTTP handler over an assembled facade.
func NewHandler(f *facade.Facade, sessions *session.Manager, opts ...Option) *Handler {
	h := &Handler{
		facade:   f,
		sessions: sessions,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter mounts every endpoint. Statement and network mutations require a
// session; replication and session login do not.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestMetadata)

	r.Get("/healthz", h.handleHealth)
	r.Get("/v1/status", h.handleStatus)

	r.Post("/v1/sessions", h.handleSessionStart)
	r.Get("/v1/portfolios/{id}", h.handlePortfolioGet)
	r.Post("/v1/portfolios", h.handlePortfolioImport)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/v1/sessions", h.handleSessionList)
		r.Delete("/v1/sessions/{id}", h.handleSessionEnd)

		r.Post("/v1/statements/trusted", h.handleCreateTrusted)
		r.Post("/v1/statements/verified", h.handleCreateVerified)
		r.Post("/v1/statements/revoked", h.handleCreateRevoked)
		r.Post("/v1/statements/accept", h.handleAcceptStatement)

		r.Post("/v1/networks", h.handleCreateNetwork)
		r.Get("/v1/networks", h.handleListNetworks)
		r.Post("/v1/index/run", h.handleIndexRun)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
