package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/gitmanhimanshu/verdantia/internal/config"
	"github.com/gitmanhimanshu/verdantia/internal/db"
	"github.com/gitmanhimanshu/verdantia/internal/games"
	"github.com/gitmanhimanshu/verdantia/internal/models"
	"github.com/gitmanhimanshu/verdantia/internal/service"
	"github.com/gitmanhimanshu/verdantia/internal/session"
	"github.com/gitmanhimanshu/verdantia/internal/store"
	"github.com/gitmanhimanshu/verdantia/internal/upstream"
)

func platformToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "asha",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("platform-secret"))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return tok
}

// newTestGateway wires the full router against a fake platform.
func newTestGateway(t *testing.T, platform http.Handler) http.Handler {
	t.Helper()
	upSrv := httptest.NewServer(platform)
	t.Cleanup(upSrv.Close)

	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "gw.db"), 2, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.Migrate(conn, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(conn, "sqlite")

	cfg := config.Config{
		UpstreamBaseURL:      upSrv.URL,
		SessionCookieName:    "verdantia_session",
		SessionIdleMinutes:   60,
		SessionAbsoluteHour:  24,
		UploadMaxBytes:       1 << 20,
		ConfirmTokenTTLSec:   120,
		AlertTTLSec:          5,
		UpstreamProbeTimeout: time.Second,
	}
	sessions := session.NewManager(st, "test-seal-key-0123456789abcdef", time.Hour, 24*time.Hour)
	svc := service.New(cfg, zap.NewNop(), st, sessions, upstream.NewClient(upSrv.URL, "test"), games.NewRegistry())
	return NewRouter(cfg, svc, zap.NewNop(), nil)
}

func defaultPlatform(t *testing.T, user models.User) *http.ServeMux {
	t.Helper()
	tok := platformToken(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"token": tok, "user": user})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"user": user})
	})
	mux.HandleFunc("/api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"leaderboard": []models.LeaderboardEntry{{Username: user.Username, Points: user.Points}},
		})
	})
	mux.HandleFunc("/api/compliance-reports", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reports": []models.ComplianceReport{{ID: "rep-1", Status: models.StatusApproved}},
		})
	})
	mux.HandleFunc("/api/my-videos", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"videos": []models.UploadProof{}})
	})
	return mux
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"username":"asha","password":"pw"}`))
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "verdantia_session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie set")
	return nil
}

func TestLoginThenDashboard(t *testing.T) {
	user := models.User{ID: "u1", Username: "asha", Role: models.RoleUser, Points: 120}
	h := newTestGateway(t, defaultPlatform(t, user))
	cookie := login(t, h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("dashboard status %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		User    models.User               `json:"user"`
		Step    int                       `json:"step"`
		Reports []models.ComplianceReport `json:"reports"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.User.Username != "asha" || data.Step != 1 || len(data.Reports) != 1 {
		t.Fatalf("unexpected dashboard payload: %+v", data)
	}
}

func TestVouchersRequireSession(t *testing.T) {
	user := models.User{Username: "asha", Role: models.RoleUser, Points: 120}
	h := newTestGateway(t, defaultPlatform(t, user))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vouchers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated vouchers = %d, want 401", rec.Code)
	}
}

func TestAdminRoutesRequireGovernmentRole(t *testing.T) {
	user := models.User{Username: "asha", Role: models.RoleUser, Points: 120}
	h := newTestGateway(t, defaultPlatform(t, user))
	cookie := login(t, h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/compliance-pending", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("planner hitting admin queue = %d, want 403", rec.Code)
	}
}

func TestTwoStepDeleteOverHTTP(t *testing.T) {
	user := models.User{Username: "asha", Role: models.RoleUser, Points: 120}
	mux := defaultPlatform(t, user)
	deleted := 0
	mux.HandleFunc("/api/compliance-report/rep-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleted++
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "deleted"})
	})
	h := newTestGateway(t, mux)
	cookie := login(t, h)

	// DELETE without a confirm token is refused and never proxied.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/compliance/rep-1", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete without token = %d, want 409", rec.Code)
	}
	if deleted != 0 {
		t.Fatalf("upstream DELETE happened without confirmation")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/compliance/rep-1/delete-request", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("delete-request status %d", rec.Code)
	}
	var tokenResp struct {
		ConfirmToken string `json:"confirm_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&tokenResp); err != nil || tokenResp.ConfirmToken == "" {
		t.Fatalf("confirm token missing: %v %+v", err, tokenResp)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/compliance/rep-1", nil)
	req.Header.Set("X-Confirm-Token", tokenResp.ConfirmToken)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("confirmed delete status %d: %s", rec.Code, rec.Body.String())
	}
	if deleted != 1 {
		t.Fatalf("upstream DELETE count = %d, want 1", deleted)
	}
}

func multipartBody(t *testing.T, filename, contentType, payload string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(payload)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadRejectsBadFilename(t *testing.T) {
	user := models.User{Username: "asha", Role: models.RoleUser, Points: 120}
	mux := defaultPlatform(t, user)
	uploaded := 0
	mux.HandleFunc("/api/upload-video", func(w http.ResponseWriter, r *http.Request) {
		uploaded++
		_ = json.NewEncoder(w).Encode(models.UploadProof{ID: "up-1"})
	})
	h := newTestGateway(t, mux)
	cookie := login(t, h)

	body, ct := multipartBody(t, "holiday.mp4", "video/mp4", "clip")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", ct)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filename upload = %d, want 400", rec.Code)
	}
	if uploaded != 0 {
		t.Fatalf("rejected upload must not reach the platform")
	}

	body, ct = multipartBody(t, "my-sapling.mp4", "video/mp4", "clip")
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", ct)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid upload = %d: %s", rec.Code, rec.Body.String())
	}
	if uploaded != 1 {
		t.Fatalf("upload count = %d, want 1", uploaded)
	}
}

func TestRedeemOverHTTP(t *testing.T) {
	user := models.User{Username: "asha", Role: models.RoleUser, Points: 120}
	mux := defaultPlatform(t, user)
	mux.HandleFunc("/api/redeem-voucher", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "BREW-50"})
	})
	h := newTestGateway(t, mux)
	cookie := login(t, h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers/redeem", strings.NewReader(`{"voucher_id":"V50"}`))
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("redeem status %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Code   string `json:"code"`
		Points int    `json:"points"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Code != "BREW-50" || res.Points != 70 {
		t.Fatalf("unexpected redeem result: %+v", res)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/history", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "BREW-50") {
		t.Fatalf("history should show the committed code: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGamesOverHTTP(t *testing.T) {
	user := models.User{Username: "asha", Role: models.RoleUser, Points: 120}
	h := newTestGateway(t, defaultPlatform(t, user))
	cookie := login(t, h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/games/plot", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("new plot status %d", rec.Code)
	}
	var created struct {
		ID     string   `json:"id"`
		Native []string `json:"native"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil || created.ID == "" {
		t.Fatalf("plot create payload: %v %+v", err, created)
	}
	if len(created.Native) == 0 {
		t.Fatalf("species palette missing")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/games/plot/"+created.ID+"/drop",
		strings.NewReader(`{"species":"Azadirachta indica (Neem)","x":40,"y":60}`))
	req.AddCookie(cookie)
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("drop status %d: %s", rec.Code, rec.Body.String())
	}
	var view games.PlotView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Score != 10 || view.Lives != 3 {
		t.Fatalf("unexpected plot view: %+v", view)
	}
}

func TestHealthLive(t *testing.T) {
	user := models.User{Username: "asha", Role: models.RoleUser}
	h := newTestGateway(t, defaultPlatform(t, user))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != 200 {
		t.Fatalf("health/live = %d", rec.Code)
	}
}
