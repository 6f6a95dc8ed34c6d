package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gitmanhimanshu/verdantia/internal/models"
	"github.com/gitmanhimanshu/verdantia/internal/session"
)

// DashboardData is the role-branched aggregate behind the dashboard view.
type DashboardData struct {
	User           models.User               `json:"user"`
	Step           int                       `json:"step"`
	Reports        []models.ComplianceReport `json:"reports,omitempty"`
	Uploads        []models.UploadProof      `json:"uploads,omitempty"`
	PendingReports []models.ComplianceReport `json:"pending_reports,omitempty"`
	PendingUploads []models.UploadProof      `json:"pending_uploads,omitempty"`
	Leaderboard    []models.LeaderboardEntry `json:"leaderboard"`
}

// Dashboard refreshes the profile, then loads the role's queues plus the
// public leaderboard.
func (s *Service) Dashboard(ctx context.Context, cur session.Current) (DashboardData, error) {
	user, err := s.Me(ctx, cur)
	if err != nil {
		return DashboardData{}, err
	}
	out := DashboardData{User: user, Step: s.Step(cur.Session.ID)}

	if user.IsGovernment() {
		if out.PendingReports, err = s.up.AdminCompliancePending(ctx, cur.UpstreamToken); err != nil {
			return DashboardData{}, s.mapUpstreamErr(ctx, cur, err)
		}
		if out.PendingUploads, err = s.up.AdminUploadsPending(ctx, cur.UpstreamToken); err != nil {
			return DashboardData{}, s.mapUpstreamErr(ctx, cur, err)
		}
	} else {
		if out.Reports, err = s.up.ComplianceReports(ctx, cur.UpstreamToken); err != nil {
			return DashboardData{}, s.mapUpstreamErr(ctx, cur, err)
		}
		if out.Uploads, err = s.up.MyVideos(ctx, cur.UpstreamToken); err != nil {
			return DashboardData{}, s.mapUpstreamErr(ctx, cur, err)
		}
	}
	if out.Leaderboard, err = s.Leaderboard(ctx, cur); err != nil {
		return DashboardData{}, err
	}
	return out, nil
}

// Step returns the session's wizard step, defaulting to 1.
func (s *Service) Step(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.steps[sessionID]; ok {
		return st
	}
	return 1
}

// SetStep moves the wizard. Only planners use the wizard; the step is
// ephemeral per session.
func (s *Service) SetStep(cur session.Current, step int) error {
	if cur.User.IsGovernment() {
		return ErrRoleNotAllowed
	}
	if step < 1 || step > 3 {
		return ErrBadStep
	}
	s.mu.Lock()
	s.steps[cur.Session.ID] = step
	s.mu.Unlock()
	return nil
}

// RequiredTrees is the local readiness rule: one tree per 80 m² of built
// area, rounded up.
func RequiredTrees(areaSqm float64) int {
	if areaSqm <= 0 {
		return 0
	}
	n := int(areaSqm) / 80
	if float64(n*80) < areaSqm {
		n++
	}
	return n
}

// ReadinessPct scores planned trees against the requirement, clamped to
// 0-100.
func ReadinessPct(treesPlanned, required int) int {
	if required <= 0 {
		return 100
	}
	pct := int(float64(treesPlanned)/float64(required)*100 + 0.5)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// SubmitCompliance forwards the wizard's final payload. Submits are
// serialized per session: a second submit while one is in flight is refused.
func (s *Service) SubmitCompliance(ctx context.Context, cur session.Current, req models.ComplianceRequest) (models.ComplianceReport, error) {
	s.mu.Lock()
	if s.submitBusy[cur.Session.ID] {
		s.mu.Unlock()
		return models.ComplianceReport{}, ErrSubmitInFlight
	}
	s.submitBusy[cur.Session.ID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.submitBusy, cur.Session.ID)
		s.mu.Unlock()
	}()

	if req.ProjectName == "" || req.AreaSqm <= 0 || req.TreesPlanned < 0 {
		return models.ComplianceReport{}, fmt.Errorf("%w: project name, positive area and non-negative trees required", ErrValidation)
	}
	rep, err := s.up.ComplianceCheck(ctx, cur.UpstreamToken, req)
	if err != nil {
		return models.ComplianceReport{}, s.mapUpstreamErr(ctx, cur, err)
	}
	_ = s.store.InsertActivity(ctx, cur.User.Username, "compliance_submit", rep.ID,
		fmt.Sprintf(`{"project":%q,"compliant":%t}`, req.ProjectName, rep.Result.Compliant))
	return rep, nil
}

// RequestDelete is step one of the delete confirmation: it issues a short
// lived token bound to the session, target kind and id. Nothing reaches the
// platform yet.
func (s *Service) RequestDelete(cur session.Current, kind, targetID string) (string, time.Time, error) {
	if kind != "report" && kind != "upload" {
		return "", time.Time{}, fmt.Errorf("%w: unknown delete kind %q", ErrValidation, kind)
	}
	token := uuid.NewString()
	exp := time.Now().Add(s.cfg.ConfirmTokenTTL())
	s.mu.Lock()
	s.confirms[token] = confirmEntry{sessionID: cur.Session.ID, kind: kind, targetID: targetID, expiresAt: exp}
	s.mu.Unlock()
	return token, exp, nil
}

// ConfirmDelete is step two: a matching unexpired token triggers the actual
// upstream DELETE. Tokens are single-use.
func (s *Service) ConfirmDelete(ctx context.Context, cur session.Current, token, kind, targetID string) error {
	s.mu.Lock()
	entry, ok := s.confirms[token]
	if ok {
		delete(s.confirms, token)
	}
	s.mu.Unlock()
	if !ok || entry.sessionID != cur.Session.ID || entry.kind != kind || entry.targetID != targetID || time.Now().After(entry.expiresAt) {
		return ErrInvalidConfirm
	}

	var err error
	switch kind {
	case "report":
		err = s.up.DeleteComplianceReport(ctx, cur.UpstreamToken, targetID)
	case "upload":
		err = s.up.DeleteUpload(ctx, cur.UpstreamToken, targetID)
	}
	if err != nil {
		return s.mapUpstreamErr(ctx, cur, err)
	}
	_ = s.store.InsertActivity(ctx, cur.User.Username, kind+"_delete", targetID, "{}")
	return nil
}

// Certificate proxies the PDF download for an approved report.
func (s *Service) Certificate(ctx context.Context, cur session.Current, reportID string) (filename string, data []byte, fallbackURL string, err error) {
	filename, data, fallbackURL, err = s.up.DownloadCertificate(ctx, cur.UpstreamToken, reportID)
	if err != nil {
		err = s.mapUpstreamErr(ctx, cur, err)
	}
	return filename, data, fallbackURL, err
}

// ApproveCompliance is the one-shot government approval; callers re-fetch
// their queues afterwards instead of patching local state.
func (s *Service) ApproveCompliance(ctx context.Context, cur session.Current, reportID string) error {
	if err := s.up.ApproveCompliance(ctx, cur.UpstreamToken, reportID); err != nil {
		return s.mapUpstreamErr(ctx, cur, err)
	}
	_ = s.store.InsertActivity(ctx, cur.User.Username, "compliance_approve", reportID, "{}")
	return nil
}

// ApproveUpload awards points upstream. The platform acknowledges without a
// body worth keeping, so callers re-fetch their queue afterwards.
func (s *Service) ApproveUpload(ctx context.Context, cur session.Current, uploadID string) error {
	if err := s.up.ApproveUpload(ctx, cur.UpstreamToken, uploadID); err != nil {
		return s.mapUpstreamErr(ctx, cur, err)
	}
	_ = s.store.InsertActivity(ctx, cur.User.Username, "upload_approve", uploadID, "{}")
	return nil
}

func (s *Service) PendingCompliance(ctx context.Context, cur session.Current) ([]models.ComplianceReport, error) {
	out, err := s.up.AdminCompliancePending(ctx, cur.UpstreamToken)
	if err != nil {
		return nil, s.mapUpstreamErr(ctx, cur, err)
	}
	return out, nil
}

func (s *Service) PendingUploads(ctx context.Context, cur session.Current) ([]models.UploadProof, error) {
	out, err := s.up.AdminUploadsPending(ctx, cur.UpstreamToken)
	if err != nil {
		return nil, s.mapUpstreamErr(ctx, cur, err)
	}
	return out, nil
}

func (s *Service) MyReports(ctx context.Context, cur session.Current) ([]models.ComplianceReport, error) {
	out, err := s.up.ComplianceReports(ctx, cur.UpstreamToken)
	if err != nil {
		return nil, s.mapUpstreamErr(ctx, cur, err)
	}
	return out, nil
}
