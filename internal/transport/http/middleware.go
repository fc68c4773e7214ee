package httptransport

import (
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"arx/pkg/platform/httputil"
	"arx/pkg/requestcontext"
)

// requestMetadata copies transport facts into the request context so services
// below the HTTP layer can use them without seeing the request.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, chimw.GetReqID(ctx))
		ctx = requestcontext.WithClientIP(ctx, r.RemoteAddr)
		ctx = requestcontext.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession resolves the bearer token to a live session and injects the
// caller's identity. Revoked or expired sessions get a 401.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "unauthorized",
				"error_description": "bearer token required",
			})
			return
		}
		s, err := h.sessions.Resolve(r.Context(), raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
			return
		}
		ctx := requestcontext.WithEntityID(r.Context(), s.Entity)
		ctx = requestcontext.WithSessionID(ctx, s.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
