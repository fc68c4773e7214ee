package httptransport

import (
	"net/http"

	"arx/internal/index"
	"arx/pkg/platform/httputil"
	"arx/pkg/requestcontext"
)

type networkRequest struct {
	Hostname string `json:"hostname"`
	Domain   string `json:"domain"`
}

type networkRow struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	Trusted  bool   `json:"trusted"`
}

// handleCreateNetwork declares the network this node hosts.
func (h *Handler) handleCreateNetwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[networkRequest](w, r)
	if !ok {
		return
	}

	network, err := h.facade.Policy().CreateNetwork(ctx, h.facade.Portfolio(), req.Hostname, req.Domain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.facade.Vault().SaveDocument(ctx, network); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.log.InfoContext(ctx, "network declared",
		"request_id", requestcontext.RequestID(ctx),
		"hostname", req.Hostname,
	)
	writeDocument(w, http.StatusCreated, network)
}

// handleListNetworks serves the indexer's last verdicts.
func (h *Handler) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	rows, err := h.facade.Vault().LoadSettings(r.Context(), index.SettingsTable)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]networkRow, 0, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			continue
		}
		out = append(out, networkRow{ID: row[0], Hostname: row[1], Trusted: row[2] == "1"})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"networks": out})
}

// handleIndexRun triggers a trust graph recomputation.
func (h *Handler) handleIndexRun(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.RunTask(r.Context(), "network-index"); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
