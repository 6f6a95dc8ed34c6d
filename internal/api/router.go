package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gitmanhimanshu/verdantia/internal/config"
	"github.com/gitmanhimanshu/verdantia/internal/middleware"
	"github.com/gitmanhimanshu/verdantia/internal/obs"
	"github.com/gitmanhimanshu/verdantia/internal/rate"
	"github.com/gitmanhimanshu/verdantia/internal/service"
	"github.com/gitmanhimanshu/verdantia/internal/util"
	"github.com/gitmanhimanshu/verdantia/internal/version"
)

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	limiter *rate.Limiter
}

func NewRouter(cfg config.Config, svc *service.Service, logger *zap.Logger, metrics *obs.Metrics) http.Handler {
	h := &Handlers{cfg: cfg, svc: svc, limiter: rate.NewLimiter()}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecurityHeaders)
	if metrics != nil {
		r.Use(metrics.Middleware("gateway"))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]string{"status": "ok", "version": version.Current().Version})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		dbOK, upOK := h.svc.Health(r.Context())
		ready := map[string]any{
			"checked_at": time.Now().UTC().Format(time.RFC3339),
			"components": map[string]any{
				"db":       map[string]any{"ok": dbOK},
				"upstream": map[string]any{"ok": upOK},
			},
		}
		if dbOK && upOK {
			ready["status"] = "ready"
			util.WriteJSON(w, 200, ready)
			return
		}
		ready["status"] = "degraded"
		util.WriteJSON(w, 503, ready)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(h.limiter, "register", 10, time.Minute, h.cfg.TrustProxy)).Post("/register", h.Register)
		r.With(middleware.RateLimit(h.limiter, "login", 20, time.Minute, h.cfg.TrustProxy)).Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authn(h.svc, h.cfg.SessionCookieName))
			r.Get("/me", h.Me)
			r.Get("/alerts", h.Alerts)

			r.Get("/dashboard", h.Dashboard)
			r.Put("/dashboard/step", h.SetStep)
			r.Get("/dashboard/location", h.Location)
			r.Put("/dashboard/location", h.PickLocation)
			r.Post("/recommendation", h.Recommendation)

			r.Post("/compliance", h.SubmitCompliance)
			r.Get("/compliance", h.ListCompliance)
			r.Post("/compliance/{id}/delete-request", h.RequestDeleteReport)
			r.Delete("/compliance/{id}", h.DeleteReport)
			r.Get("/compliance/{id}/certificate", h.Certificate)

			r.Post("/uploads", h.Upload)
			r.Get("/uploads", h.ListUploads)
			r.Post("/uploads/{id}/delete-request", h.RequestDeleteUpload)
			r.Delete("/uploads/{id}", h.DeleteUpload)

			r.Get("/leaderboard", h.Leaderboard)

			r.Get("/vouchers", h.Vouchers)
			r.With(middleware.RateLimit(h.limiter, "redeem", 30, time.Minute, h.cfg.TrustProxy)).Post("/vouchers/redeem", h.Redeem)
			r.Get("/vouchers/history", h.VoucherHistory)
			r.Get("/vouchers/upstream", h.UpstreamVouchers)

			r.Route("/games", func(r chi.Router) {
				r.Post("/match", h.NewMatch)
				r.Get("/match/{id}", h.GetMatch)
				r.Post("/match/{id}/flip", h.FlipMatch)
				r.Post("/plot", h.NewPlot)
				r.Get("/plot/{id}", h.GetPlot)
				r.Post("/plot/{id}/drop", h.DropPlot)
				r.Post("/plot/{id}/reset", h.ResetPlot)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.GovernmentOnly)
				r.Get("/compliance-pending", h.PendingCompliance)
				r.Put("/compliance-approve/{id}", h.ApproveCompliance)
				r.Get("/uploads-pending", h.PendingUploads)
				r.Put("/upload-approve/{id}", h.ApproveUpload)
			})
		})
	})

	fs := http.FileServer(http.Dir("web"))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/health/") || p == "/metrics" {
			http.NotFound(w, r)
			return
		}
		if p == "/" {
			http.ServeFile(w, r, filepath.Join("web", "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})

	return r
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	if err := h.svc.Register(r.Context(), req.Username, req.Password, req.Role); err != nil {
		writeServiceError(w, r, "register_failed", err)
		return
	}
	util.WriteJSON(w, 201, map[string]string{"status": "registered"})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	token, user, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, "login_failed", err)
		return
	}
	h.setSessionCookie(w, token)
	util.WriteJSON(w, 200, map[string]any{"username": user.Username, "role": user.Role, "points": user.Points})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, _ := r.Cookie(h.cfg.SessionCookieName); c != nil && c.Value != "" {
		if cur, err := h.svc.ValidateSession(r.Context(), c.Value); err == nil {
			_ = h.svc.Logout(r.Context(), cur)
		}
	}
	h.clearSessionCookie(w)
	util.WriteJSON(w, 200, map[string]string{"status": "ok"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	user, err := h.svc.Me(r.Context(), cur)
	if err != nil {
		writeServiceError(w, r, "me_failed", err)
		return
	}
	util.WriteJSON(w, 200, user)
}

func (h *Handlers) Alerts(w http.ResponseWriter, r *http.Request) {
	cur, _ := middleware.Cur(r.Context())
	alerts := h.svc.Alerts(cur.Session.ID)
	if alerts == nil {
		alerts = []service.Alert{}
	}
	util.WriteJSON(w, 200, map[string]any{"items": alerts})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cfg.SessionAbsoluteDuration().Seconds()),
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(1, 0).UTC(),
	})
}
