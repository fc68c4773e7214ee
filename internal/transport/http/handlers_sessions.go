package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arx/internal/session"
	"arx/pkg/platform/httputil"
	"arx/pkg/requestcontext"
)

type sessionStartRequest struct {
	EntityID uuid.UUID `json:"entity_id"`
}

type sessionStartResponse struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
}

// handleSessionStart opens a session for an entity whose portfolio this node
// already holds. Unknown entities cannot log in.
func (h *Handler) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[sessionStartRequest](w, r)
	if !ok {
		return
	}

	if _, err := h.facade.Vault().LoadPortfolio(ctx, req.EntityID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	s, token, err := h.sessions.Start(ctx,
		req.EntityID,
		requestcontext.UserAgent(ctx),
		requestcontext.ClientIP(ctx),
	)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sessionStartResponse{Token: token, Session: s})
}

// handleSessionList returns the caller's live sessions.
func (h *Handler) handleSessionList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.sessions.Sessions(ctx, requestcontext.EntityID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleSessionEnd revokes one of the caller's sessions.
func (h *Handler) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "bad_request",
			"error_description": "malformed session id",
		})
		return
	}

	s, err := h.sessions.Sessions(ctx, requestcontext.EntityID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	owned := false
	for _, candidate := range s {
		if candidate.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}

	if err := h.sessions.End(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
