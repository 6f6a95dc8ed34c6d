package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gitmanhimanshu/verdantia/internal/games"
	"github.com/gitmanhimanshu/verdantia/internal/middleware"
	"github.com/gitmanhimanshu/verdantia/internal/util"
)

func (h *Handlers) NewMatch(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	id, g := h.svc.Games().NewMatch(cur.Session.ID)
	util.WriteJSON(w, 201, map[string]any{"id": id, "game": g.View()})
}

func (h *Handlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	g, err := h.svc.Games().Match(cur.Session.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "game_failed", err)
		return
	}
	util.WriteJSON(w, 200, g.View())
}

func (h *Handlers) FlipMatch(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	g, err := h.svc.Games().Match(cur.Session.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "game_failed", err)
		return
	}
	var req struct {
		Card    int  `json:"card"`
		Resolve bool `json:"resolve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	if req.Resolve {
		g.Resolve()
		util.WriteJSON(w, 200, g.View())
		return
	}
	if err := g.Flip(req.Card); err != nil {
		writeServiceError(w, r, "flip_failed", err)
		return
	}
	util.WriteJSON(w, 200, g.View())
}

func (h *Handlers) NewPlot(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	id, g := h.svc.Games().NewPlot(cur.Session.ID)
	native, invasive := games.Species()
	util.WriteJSON(w, 201, map[string]any{
		"id":       id,
		"game":     g.View(),
		"native":   native,
		"invasive": invasive,
	})
}

func (h *Handlers) GetPlot(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	g, err := h.svc.Games().Plot(cur.Session.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "game_failed", err)
		return
	}
	util.WriteJSON(w, 200, g.View())
}

func (h *Handlers) DropPlot(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	g, err := h.svc.Games().Plot(cur.Session.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "game_failed", err)
		return
	}
	var req struct {
		Species string  `json:"species"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	if err := g.Drop(req.Species, req.X, req.Y); err != nil {
		writeServiceError(w, r, "drop_failed", err)
		return
	}
	util.WriteJSON(w, 200, g.View())
}

func (h *Handlers) ResetPlot(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	g, err := h.svc.Games().Plot(cur.Session.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "game_failed", err)
		return
	}
	g.Reset()
	util.WriteJSON(w, 200, g.View())
}
