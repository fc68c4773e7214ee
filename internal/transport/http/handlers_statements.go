package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"arx/internal/document"
	"arx/internal/portfolio"
	"arx/internal/vault"
	"arx/pkg/platform/httputil"
	"arx/pkg/requestcontext"
)

type statementRequest struct {
	OwnerID uuid.UUID `json:"owner_id"`
}

type revokeRequest struct {
	IssuanceID uuid.UUID `json:"issuance_id"`
}

type statementResponse struct {
	Document json.RawMessage `json:"document"`
}

// handleCreateTrusted issues a trust statement about a known entity and files
// it in the vault.
func (h *Handler) handleCreateTrusted(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, h.facade.Policy().CreateTrusted)
}

// handleCreateVerified issues a verification statement about a known entity.
func (h *Handler) handleCreateVerified(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, h.facade.Policy().CreateVerified)
}

func (h *Handler) createStatement(
	w http.ResponseWriter,
	r *http.Request,
	create func(ctx context.Context, issuer *portfolio.PrivatePortfolio, owner *portfolio.Portfolio) (*document.Statement, error),
) {
	ctx := r.Context()
	req, ok := httputil.Decode[statementRequest](w, r)
	if !ok {
		return
	}

	owner, err := h.facade.Vault().LoadPortfolio(ctx, req.OwnerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stmt, err := create(ctx, h.facade.Portfolio(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.facade.Vault().SaveDocument(ctx, stmt); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "statement issued",
		"request_id", requestcontext.RequestID(ctx),
		"kind", string(stmt.Kind),
		"owner", req.OwnerID,
	)
	writeDocument(w, http.StatusCreated, stmt)
}

// handleCreateRevoked revokes one of the node's own statements. The original
// is replaced by its revocation in both portfolio and vault.
func (h *Handler) handleCreateRevoked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[revokeRequest](w, r)
	if !ok {
		return
	}

	own := h.facade.Portfolio()
	doc := own.Snapshot().GetID(req.IssuanceID)
	stmt, ok2 := doc.(*document.Statement)
	if !ok2 {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}

	revoked, err := h.facade.Policy().CreateRevoked(ctx, own, stmt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.facade.Policy().RemoveRevoked(ctx, &own.Portfolio, revoked); err != nil {
		httputil.WriteError(w, err)
		return
	}

	v := h.facade.Vault()
	if err := v.Delete(ctx, vault.DocPath(stmt)); err != nil {
		h.log.WarnContext(ctx, "revoked original not tombstoned", "error", err)
	}
	if err := v.SaveDocument(ctx, revoked); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "statement revoked",
		"request_id", requestcontext.RequestID(ctx),
		"issuance", req.IssuanceID,
	)
	writeDocument(w, http.StatusCreated, revoked)
}

// handleAcceptStatement takes a foreign statement or revocation, validates it
// against its issuer's known portfolio and files it.
func (h *Handler) handleAcceptStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[statementResponse](w, r)
	if !ok {
		return
	}

	doc, err := document.Unmarshal(req.Document)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "bad_request",
			"error_description": "undecodable document",
		})
		return
	}

	issuer, err := h.facade.Vault().LoadPortfolio(ctx, doc.Head().Issuer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.facade.Policy().AcceptStatement(ctx, issuer, doc); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if revoked, ok := doc.(*document.Revoked); ok {
		original := issuer.Snapshot().GetID(revoked.Issuance)
		if err := h.facade.Policy().RemoveRevoked(ctx, issuer, revoked); err != nil {
			httputil.WriteError(w, err)
			return
		}
		// Tombstone the revoked original so a portfolio rebuild cannot
		// resurrect it.
		if original != nil {
			if err := h.facade.Vault().Delete(ctx, vault.DocPath(original)); err != nil {
				h.log.WarnContext(ctx, "revoked original not tombstoned", "error", err)
			}
		}
	}
	if err := h.facade.Vault().SaveDocument(ctx, doc); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "statement accepted",
		"request_id", requestcontext.RequestID(ctx),
		"kind", string(doc.Head().Kind),
		"issuer", doc.Head().Issuer,
	)
	writeDocument(w, http.StatusOK, doc)
}

func writeDocument(w http.ResponseWriter, status int, doc document.Document) {
	raw, err := document.Marshal(doc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, status, statementResponse{Document: raw})
}
