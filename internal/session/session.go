package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gitmanhimanshu/verdantia/internal/models"
	"github.com/gitmanhimanshu/verdantia/internal/store"
	"github.com/gitmanhimanshu/verdantia/internal/util"
)

var ErrInvalidSession = errors.New("invalid session")

// Manager owns gateway login sessions. The browser holds an opaque random
// token; only its sha256 hash is stored. The upstream bearer token is sealed
// at rest and opened per request.
type Manager struct {
	store    *store.Store
	sealKey  *[32]byte
	idle     time.Duration
	absolute time.Duration
}

func NewManager(st *store.Store, sealSecret string, idle, absolute time.Duration) *Manager {
	return &Manager{
		store:    st,
		sealKey:  util.Derive32ByteKey(sealSecret),
		idle:     idle,
		absolute: absolute,
	}
}

// Current is a validated session plus the opened upstream token.
type Current struct {
	Session       models.Session
	User          models.User
	UpstreamToken string
}

func NewOpaqueToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Login seals the upstream token, persists a fresh session and returns the
// raw cookie token. One session per login; nothing from a previous login is
// reused.
func (m *Manager) Login(ctx context.Context, upstreamToken string, user models.User) (string, models.Session, error) {
	raw, hash, err := NewOpaqueToken()
	if err != nil {
		return "", models.Session{}, err
	}
	sealed, err := util.SealString(m.sealKey, upstreamToken)
	if err != nil {
		return "", models.Session{}, fmt.Errorf("seal upstream token: %w", err)
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return "", models.Session{}, err
	}
	now := time.Now().UTC()
	sess := models.Session{
		ID:             uuid.NewString(),
		TokenHash:      hash,
		UpstreamSecret: sealed,
		UserJSON:       string(userJSON),
		ExpiresAt:      now.Add(m.absolute),
		IdleExpiresAt:  now.Add(m.idle),
		CreatedAt:      now,
		LastSeenAt:     now,
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", models.Session{}, err
	}
	return raw, sess, nil
}

// Validate resolves a raw cookie token to a live session, slides the idle
// window and opens the sealed upstream token. Expired, revoked and unknown
// tokens all return ErrInvalidSession.
func (m *Manager) Validate(ctx context.Context, rawToken string) (Current, error) {
	if rawToken == "" {
		return Current{}, ErrInvalidSession
	}
	sess, err := m.store.GetSessionByTokenHash(ctx, HashToken(rawToken))
	if err == store.ErrNotFound {
		return Current{}, ErrInvalidSession
	}
	if err != nil {
		return Current{}, err
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) || now.After(sess.IdleExpiresAt) {
		return Current{}, ErrInvalidSession
	}
	if err := m.store.TouchSession(ctx, sess.ID, now.Add(m.idle)); err != nil {
		return Current{}, err
	}

	token, err := util.OpenString(m.sealKey, sess.UpstreamSecret)
	if err != nil {
		// Seal key rotated or row tampered with; the session is unusable.
		_ = m.store.RevokeSession(ctx, sess.ID)
		return Current{}, ErrInvalidSession
	}
	var user models.User
	if err := json.Unmarshal([]byte(sess.UserJSON), &user); err != nil {
		return Current{}, fmt.Errorf("decode cached user: %w", err)
	}
	return Current{Session: sess, User: user, UpstreamToken: token}, nil
}

// UpdateUser rewrites the cached profile snapshot for the session.
func (m *Manager) UpdateUser(ctx context.Context, sessionID string, user models.User) error {
	b, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return m.store.UpdateSessionUser(ctx, sessionID, string(b))
}

func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	return m.store.RevokeSession(ctx, sessionID)
}

// Invalidate revokes a session after the upstream rejected its token.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) error {
	return m.store.RevokeSession(ctx, sessionID)
}
