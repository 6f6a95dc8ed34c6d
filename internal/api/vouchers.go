package api

import (
	"encoding/json"
	"net/http"

	"github.com/gitmanhimanshu/verdantia/internal/middleware"
	"github.com/gitmanhimanshu/verdantia/internal/util"
)

func (h *Handlers) Vouchers(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	page, err := h.svc.Vouchers(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "vouchers_failed", err)
		return
	}
	util.WriteJSON(w, 200, page)
}

func (h *Handlers) Redeem(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	var req struct {
		VoucherID string `json:"voucher_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	res, err := h.svc.Redeem(r.Context(), cur, req.VoucherID)
	if err != nil {
		writeServiceError(w, r, "redeem_failed", err)
		return
	}
	util.WriteJSON(w, 200, res)
}

func (h *Handlers) VoucherHistory(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	items, err := h.svc.RedemptionHistory(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "history_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) UpstreamVouchers(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	raw, err := h.svc.UpstreamVouchers(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "history_failed", err)
		return
	}
	if raw == nil {
		raw = []byte("[]")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
