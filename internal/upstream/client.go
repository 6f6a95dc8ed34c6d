package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gitmanhimanshu/verdantia/internal/models"
)

// APIError is a non-2xx answer from the Verdantia platform with its message
// extracted from the response body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

// Client talks to the remote Verdantia REST API. Calls are single-attempt;
// deadlines come from the caller's context.
type Client struct {
	base       string
	httpClient *http.Client
	userAgent  string
}

func NewClient(base, userAgent string) *Client {
	return &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{},
		userAgent:  userAgent,
	}
}

func (c *Client) BaseURL() string { return c.base }

// do issues one request. A JSON body is marshaled when body is non-nil; the
// response is decoded into out when it is JSON, otherwise the raw text is
// assigned when out is *string.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("upstream read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok && !json.Valid(raw) {
		*s = string(raw)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("upstream decode: %w", err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")
}

// decodeError prefers the platform's "msg" field, then "error", then the raw
// body text.
func decodeError(status int, raw []byte) *APIError {
	var payload struct {
		Msg   string `json:"msg"`
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Msg != "" {
			msg = payload.Msg
		} else if payload.Error != "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}

// loginResponse matches the platform's login envelope. Older deployments
// used access_token; current ones send token.
type loginResponse struct {
	Token       string      `json:"token"`
	AccessToken string      `json:"access_token"`
	User        models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, username, password, role string) error {
	body := map[string]string{"username": username, "password": password, "role": role}
	return c.do(ctx, http.MethodPost, "/api/auth/register", "", body, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (string, models.User, error) {
	body := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &resp); err != nil {
		return "", models.User{}, err
	}
	tok := resp.Token
	if tok == "" {
		tok = resp.AccessToken
	}
	if tok == "" {
		return "", models.User{}, fmt.Errorf("upstream login: missing access token")
	}
	return tok, resp.User, nil
}

// Me fetches the profile; the platform wraps it as {"user": {...}}.
func (c *Client) Me(ctx context.Context, token string) (models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &resp)
	return resp.User, err
}

func (c *Client) Recommendation(ctx context.Context, token string, lat, lon, areaSqm float64) (models.Recommendation, error) {
	body := map[string]float64{"lat": lat, "lon": lon, "area_sqm": areaSqm}
	var rec models.Recommendation
	err := c.do(ctx, http.MethodPost, "/api/recommendation", token, body, &rec)
	return rec, err
}

func (c *Client) ComplianceCheck(ctx context.Context, token string, req models.ComplianceRequest) (models.ComplianceReport, error) {
	var rep models.ComplianceReport
	err := c.do(ctx, http.MethodPost, "/api/compliance-check", token, req, &rep)
	return rep, err
}

func (c *Client) ComplianceReports(ctx context.Context, token string) ([]models.ComplianceReport, error) {
	var resp struct {
		Reports []models.ComplianceReport `json:"reports"`
	}
	err := c.do(ctx, http.MethodGet, "/api/compliance-reports", token, nil, &resp)
	return resp.Reports, err
}

func (c *Client) DeleteComplianceReport(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/compliance-report/"+url.PathEscape(id), token, nil, nil)
}

// DownloadCertificate fetches the PDF for an approved report. The filename
// comes from the Content-Disposition hint when present. On transport failure
// it returns a browser fallback URL the caller can surface instead.
func (c *Client) DownloadCertificate(ctx context.Context, token, reportID string) (filename string, data []byte, fallbackURL string, err error) {
	fallbackURL = fmt.Sprintf("%s/api/compliance-certificate/%s?token=%s", c.base, url.PathEscape(reportID), url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/compliance-certificate/"+url.PathEscape(reportID), nil)
	if err != nil {
		return "", nil, fallbackURL, err
	}
	c.decorate(req, token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fallbackURL, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", nil, fallbackURL, fmt.Errorf("upstream read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fallbackURL, decodeError(resp.StatusCode, raw)
	}

	filename = "certificate.pdf"
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, perr := mime.ParseMediaType(cd); perr == nil {
			if fn := strings.TrimSpace(params["filename"]); fn != "" {
				filename = fn
			}
		}
	}
	return filename, raw, fallbackURL, nil
}

func (c *Client) AdminCompliancePending(ctx context.Context, token string) ([]models.ComplianceReport, error) {
	var resp struct {
		Reports []models.ComplianceReport `json:"reports"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/compliance-pending", token, nil, &resp)
	return resp.Reports, err
}

func (c *Client) ApproveCompliance(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodPut, "/api/compliance-approve/"+url.PathEscape(id), token, nil, nil)
}

// UploadVideo streams a multipart proof upload. Validation happens before
// this call; the platform re-checks on its side.
func (c *Client) UploadVideo(ctx context.Context, token, filename, contentType string, file io.Reader) (models.UploadProof, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename))}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return models.UploadProof{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return models.UploadProof{}, err
	}
	if err := mw.Close(); err != nil {
		return models.UploadProof{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/upload-video", &buf)
	if err != nil {
		return models.UploadProof{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.decorate(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.UploadProof{}, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.UploadProof{}, fmt.Errorf("upstream read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.UploadProof{}, decodeError(resp.StatusCode, raw)
	}
	var proof models.UploadProof
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &proof); err != nil {
			return models.UploadProof{}, fmt.Errorf("upstream decode: %w", err)
		}
	}
	return proof, nil
}

func (c *Client) MyVideos(ctx context.Context, token string) ([]models.UploadProof, error) {
	var resp struct {
		Videos []models.UploadProof `json:"videos"`
	}
	err := c.do(ctx, http.MethodGet, "/api/my-videos", token, nil, &resp)
	return resp.Videos, err
}

func (c *Client) DeleteUpload(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/upload-video/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) AdminUploadsPending(ctx context.Context, token string) ([]models.UploadProof, error) {
	var resp struct {
		Uploads []models.UploadProof `json:"uploads"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/uploads-pending", token, nil, &resp)
	return resp.Uploads, err
}

// ApproveUpload awards the points upstream. The platform answers a bare
// {"ok": true}; callers re-fetch the queue for fresh state.
func (c *Client) ApproveUpload(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodPut, "/api/upload-approve/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) Leaderboard(ctx context.Context, token string) ([]models.LeaderboardEntry, error) {
	var resp struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", token, nil, &resp)
	return resp.Leaderboard, err
}

type redeemResponse struct {
	Code        string `json:"code"`
	VoucherCode string `json:"voucher_code"`
}

// RedeemVoucher posts a redemption; the platform validates cost server-side.
func (c *Client) RedeemVoucher(ctx context.Context, token, voucherID string, cost int) (string, error) {
	body := map[string]any{"voucher_id": voucherID, "cost": cost}
	var resp redeemResponse
	if err := c.do(ctx, http.MethodPost, "/api/redeem-voucher", token, body, &resp); err != nil {
		return "", err
	}
	if resp.Code != "" {
		return resp.Code, nil
	}
	return resp.VoucherCode, nil
}

// MyVouchers is a passthrough; the platform owns the record shape.
func (c *Client) MyVouchers(ctx context.Context, token string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/my-vouchers", token, nil, &out)
	return out, err
}

// Ping probes upstream reachability for the readiness endpoint. Any HTTP
// answer counts; only transport failure is an error.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/leaderboard", nil)
	if err != nil {
		return err
	}
	c.decorate(req, "")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
