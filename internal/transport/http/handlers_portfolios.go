package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"arx/internal/document"
	"arx/internal/portfolio"
	"arx/pkg/platform/httputil"
	"arx/pkg/requestcontext"
)

type portfolioResponse struct {
	Entity    uuid.UUID         `json:"entity"`
	Documents []json.RawMessage `json:"documents"`
}

// handlePortfolioGet exports a stored portfolio's public documents.
func (h *Handler) handlePortfolioGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "bad_request",
			"error_description": "malformed portfolio id",
		})
		return
	}

	p, err := h.facade.Vault().LoadPortfolio(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := portfolioResponse{Entity: p.ID()}
	for _, doc := range p.Snapshot().Documents() {
		raw, err := document.Marshal(doc)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp.Documents = append(resp.Documents, raw)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handlePortfolioImport replicates a foreign portfolio into the vault. The
// document set must stand on its own as a portfolio before anything is
// stored.
func (h *Handler) handlePortfolioImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[portfolioResponse](w, r)
	if !ok {
		return
	}

	docs := make([]document.Document, 0, len(req.Documents))
	for _, raw := range req.Documents {
		doc, err := document.Unmarshal(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "bad_request",
				"error_description": "undecodable document",
			})
			return
		}
		docs = append(docs, doc)
	}

	c, err := portfolio.NewCollection(docs...)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "bad_request",
			"error_description": err.Error(),
		})
		return
	}
	p, err := portfolio.New(c)
	if err != nil {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":             "policy_rejected",
			"error_description": err.Error(),
		})
		return
	}

	if err := h.facade.Vault().AddPortfolio(ctx, p); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "portfolio imported",
		"request_id", requestcontext.RequestID(ctx),
		"entity", p.ID(),
		"documents", len(docs),
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"entity": p.ID()})
}

// handleStatus reports the node's composition.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entity": h.facade.Portfolio().ID(),
		"tag":    h.facade.Tag(),
	})
}
