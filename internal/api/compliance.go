package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gitmanhimanshu/verdantia/internal/middleware"
	"github.com/gitmanhimanshu/verdantia/internal/models"
	"github.com/gitmanhimanshu/verdantia/internal/service"
	"github.com/gitmanhimanshu/verdantia/internal/util"
)

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	data, err := h.svc.Dashboard(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "dashboard_failed", err)
		return
	}
	util.WriteJSON(w, 200, data)
}

func (h *Handlers) SetStep(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	var req struct {
		Step int `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.SetStep(cur, req.Step); err != nil {
		writeServiceError(w, r, "step_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]int{"step": req.Step})
}

func (h *Handlers) Location(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	util.WriteJSON(w, 200, h.svc.Location(cur))
}

func (h *Handlers) PickLocation(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	var req struct {
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
		Drag bool    `json:"drag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, h.svc.PickLocation(cur, req.Lat, req.Lon, req.Drag))
}

func (h *Handlers) Recommendation(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	var req struct {
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		AreaSqm float64 `json:"area_sqm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	rec, err := h.svc.Recommendation(r.Context(), cur, req.Lat, req.Lon, req.AreaSqm)
	if err != nil {
		writeServiceError(w, r, "recommendation_failed", err)
		return
	}
	util.WriteJSON(w, 200, rec)
}

func (h *Handlers) SubmitCompliance(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	var req models.ComplianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	rep, err := h.svc.SubmitCompliance(r.Context(), cur, req)
	if err != nil {
		writeServiceError(w, r, "submit_failed", err)
		return
	}
	required := service.RequiredTrees(req.AreaSqm)
	util.WriteJSON(w, 201, map[string]any{
		"report":        rep,
		"readiness_pct": service.ReadinessPct(req.TreesPlanned, required),
	})
}

func (h *Handlers) ListCompliance(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	items, err := h.svc.MyReports(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "list_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) RequestDeleteReport(w http.ResponseWriter, r *http.Request) {
	h.requestDelete(w, r, "report")
}

func (h *Handlers) RequestDeleteUpload(w http.ResponseWriter, r *http.Request) {
	h.requestDelete(w, r, "upload")
}

func (h *Handlers) requestDelete(w http.ResponseWriter, r *http.Request, kind string) {
	cur, _ := middleware.Cur(r.Context())
	token, exp, err := h.svc.RequestDelete(cur, kind, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "delete_request_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{
		"confirm_token": token,
		"expires_at":    exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) DeleteReport(w http.ResponseWriter, r *http.Request) {
	h.confirmDelete(w, r, "report")
}

func (h *Handlers) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	h.confirmDelete(w, r, "upload")
}

func (h *Handlers) confirmDelete(w http.ResponseWriter, r *http.Request, kind string) {
	cur, _ := middleware.Cur(r.Context())
	token := r.Header.Get("X-Confirm-Token")
	if token == "" {
		token = r.URL.Query().Get("confirm_token")
	}
	if err := h.svc.ConfirmDelete(r.Context(), cur, token, kind, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "delete_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "deleted"})
}

func (h *Handlers) Certificate(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	filename, data, fallbackURL, err := h.svc.Certificate(r.Context(), cur, chi.URLParam(r, "id"))
	if err != nil {
		rid := middleware.RequestID(r.Context())
		util.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"code":         "certificate_failed",
			"message":      err.Error(),
			"fallback_url": fallbackURL,
			"request_id":   rid,
		})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	if err := r.ParseMultipartForm(h.cfg.UploadMaxBytes); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid multipart form", middleware.RequestID(r.Context()))
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		util.WriteError(w, 400, "bad_request", "file field is required", middleware.RequestID(r.Context()))
		return
	}
	defer file.Close()
	if hdr.Size > h.cfg.UploadMaxBytes {
		util.WriteError(w, 413, "file_too_large", "file exceeds the upload size limit", middleware.RequestID(r.Context()))
		return
	}
	proof, err := h.svc.Upload(r.Context(), cur, hdr.Filename, hdr.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, r, "upload_failed", err)
		return
	}
	util.WriteJSON(w, 201, proof)
}

func (h *Handlers) ListUploads(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	items, err := h.svc.MyUploads(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "list_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	items, err := h.svc.Leaderboard(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "leaderboard_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) PendingCompliance(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	items, err := h.svc.PendingCompliance(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "pending_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) ApproveCompliance(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	if err := h.svc.ApproveCompliance(r.Context(), cur, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "approve_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "approved"})
}

func (h *Handlers) PendingUploads(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	items, err := h.svc.PendingUploads(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "pending_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) ApproveUpload(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	if err := h.svc.ApproveUpload(r.Context(), cur, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, "approve_failed", err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "approved"})
}
