package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gitmanhimanshu/verdantia/internal/config"
	"github.com/gitmanhimanshu/verdantia/internal/games"
	"github.com/gitmanhimanshu/verdantia/internal/geo"
	"github.com/gitmanhimanshu/verdantia/internal/models"
	"github.com/gitmanhimanshu/verdantia/internal/session"
	"github.com/gitmanhimanshu/verdantia/internal/store"
	"github.com/gitmanhimanshu/verdantia/internal/upstream"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSubmitInFlight = errors.New("submit_in_flight")
	ErrRedeemInFlight = errors.New("redeem_in_flight")
	ErrInvalidConfirm = errors.New("invalid or expired confirm token")
	ErrValidation     = errors.New("validation failed")
	ErrUnknownVoucher = errors.New("unknown voucher")
	ErrBadStep        = errors.New("step must be 1, 2 or 3")
	ErrRoleNotAllowed = errors.New("role not allowed")
)

type confirmEntry struct {
	sessionID string
	kind      string
	targetID  string
	expiresAt time.Time
}

// Service orchestrates gateway sessions, per-session UI state and calls to
// the Verdantia platform. All per-session volatile state (wizard step,
// in-flight flags, confirm tokens, alert feed) lives here, keyed by session
// id.
type Service struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *store.Store
	sessions *session.Manager
	up       *upstream.Client
	games    *games.Registry

	mu         sync.Mutex
	steps      map[string]int
	submitBusy map[string]bool
	redeemBusy map[string]bool
	confirms   map[string]confirmEntry
	alerts     map[string][]Alert
	pickers    map[string]*geo.Picker
	picked     map[string]PickedLocation

	lbCache    []models.LeaderboardEntry
	lbCachedAt time.Time
}

func New(cfg config.Config, logger *zap.Logger, st *store.Store, sessions *session.Manager, up *upstream.Client, reg *games.Registry) *Service {
	return &Service{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		sessions:   sessions,
		up:         up,
		games:      reg,
		steps:      map[string]int{},
		submitBusy: map[string]bool{},
		redeemBusy: map[string]bool{},
		confirms:   map[string]confirmEntry{},
		alerts:     map[string][]Alert{},
		pickers:    map[string]*geo.Picker{},
		picked:     map[string]PickedLocation{},
	}
}

func (s *Service) Games() *games.Registry { return s.games }

func (s *Service) Register(ctx context.Context, username, password, role string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if role != models.RoleUser && role != models.RoleGovernment {
		return ErrRoleNotAllowed
	}
	return s.up.Register(ctx, username, password, role)
}

// Login exchanges credentials for an upstream token and opens one fresh
// gateway session around it.
func (s *Service) Login(ctx context.Context, username, password string) (string, models.User, error) {
	token, user, err := s.up.Login(ctx, username, password)
	if err != nil {
		return "", models.User{}, err
	}
	raw, _, err := s.sessions.Login(ctx, token, user)
	if err != nil {
		return "", models.User{}, err
	}
	s.logger.Info("login", zap.String("username", user.Username), zap.String("role", user.Role))
	return raw, user, nil
}

// ValidateSession resolves a cookie token. Tokens whose upstream JWT already
// expired are invalidated without an upstream round trip.
func (s *Service) ValidateSession(ctx context.Context, rawToken string) (session.Current, error) {
	cur, err := s.sessions.Validate(ctx, rawToken)
	if err != nil {
		return session.Current{}, ErrInvalidSession
	}
	if upstream.TokenExpired(cur.UpstreamToken, time.Now()) {
		_ = s.sessions.Invalidate(ctx, cur.Session.ID)
		return session.Current{}, ErrInvalidSession
	}
	return cur, nil
}

func (s *Service) Logout(ctx context.Context, cur session.Current) error {
	s.games.DropOwner(cur.Session.ID)
	s.mu.Lock()
	delete(s.steps, cur.Session.ID)
	delete(s.submitBusy, cur.Session.ID)
	delete(s.redeemBusy, cur.Session.ID)
	delete(s.alerts, cur.Session.ID)
	delete(s.pickers, cur.Session.ID)
	delete(s.picked, cur.Session.ID)
	for tok, c := range s.confirms {
		if c.sessionID == cur.Session.ID {
			delete(s.confirms, tok)
		}
	}
	s.mu.Unlock()
	return s.sessions.Logout(ctx, cur.Session.ID)
}

// Me refreshes the profile from upstream and rewrites the cached snapshot.
func (s *Service) Me(ctx context.Context, cur session.Current) (models.User, error) {
	user, err := s.up.Me(ctx, cur.UpstreamToken)
	if err != nil {
		return models.User{}, s.mapUpstreamErr(ctx, cur, err)
	}
	if err := s.sessions.UpdateUser(ctx, cur.Session.ID, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// mapUpstreamErr turns an upstream 401 into a revoked gateway session.
func (s *Service) mapUpstreamErr(ctx context.Context, cur session.Current, err error) error {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 401 {
		_ = s.sessions.Invalidate(ctx, cur.Session.ID)
		return ErrInvalidSession
	}
	return err
}

// Recommendation proxies the species suggestion. A zero lat/lon pair falls
// back to the session's picked map location; explicit coordinates re-center
// the map widget without counting as a pick.
func (s *Service) Recommendation(ctx context.Context, cur session.Current, lat, lon, areaSqm float64) (models.Recommendation, error) {
	if lat == 0 && lon == 0 {
		if loc := s.Location(cur); loc.Set {
			lat, lon = loc.Lat, loc.Lon
		}
	} else {
		s.CenterMap(cur, lat, lon)
	}
	rec, err := s.up.Recommendation(ctx, cur.UpstreamToken, lat, lon, areaSqm)
	if err != nil {
		return models.Recommendation{}, s.mapUpstreamErr(ctx, cur, err)
	}
	return rec, nil
}

// Leaderboard serves the public board, optionally from a short shared cache
// so dashboard refreshes do not hammer the platform.
func (s *Service) Leaderboard(ctx context.Context, cur session.Current) ([]models.LeaderboardEntry, error) {
	ttl := s.cfg.LeaderboardCacheTTL()
	if ttl > 0 {
		s.mu.Lock()
		if s.lbCache != nil && time.Since(s.lbCachedAt) < ttl {
			out := make([]models.LeaderboardEntry, len(s.lbCache))
			copy(out, s.lbCache)
			s.mu.Unlock()
			return out, nil
		}
		s.mu.Unlock()
	}

	out, err := s.up.Leaderboard(ctx, cur.UpstreamToken)
	if err != nil {
		return nil, s.mapUpstreamErr(ctx, cur, err)
	}
	if ttl > 0 {
		s.mu.Lock()
		s.lbCache = out
		s.lbCachedAt = time.Now()
		s.mu.Unlock()
	}
	return out, nil
}

// Health reports readiness: local store plus upstream reachability.
func (s *Service) Health(ctx context.Context) (dbOK, upstreamOK bool) {
	dbOK = s.store.Ping(ctx) == nil
	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamProbeTimeout)
	defer cancel()
	upstreamOK = s.up.Ping(probeCtx) == nil
	return dbOK, upstreamOK
}

// CleanupLoop prunes expired sessions until the context ends.
func (s *Service) CleanupLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.store.CleanupExpiredSessions(ctx, time.Now().UTC()); err != nil {
				s.logger.Warn("session cleanup", zap.Error(err))
			}
		}
	}
}
