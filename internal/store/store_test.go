package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/gitmanhimanshu/verdantia/internal/db"
	"github.com/gitmanhimanshu/verdantia/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "gw.db"), 2, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.Migrate(conn, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn, "sqlite")
}

func TestSessionRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sess := models.Session{
		ID:             "sess-1",
		TokenHash:      "abc123",
		UpstreamSecret: "sealed",
		UserJSON:       `{"username":"asha"}`,
		ExpiresAt:      now.Add(24 * time.Hour),
		IdleExpiresAt:  now.Add(time.Hour),
		CreatedAt:      now,
		LastSeenAt:     now,
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetSessionByTokenHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != sess.ID || got.UpstreamSecret != "sealed" || got.UserJSON != sess.UserJSON {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.RevokedAt != nil {
		t.Fatalf("new session must not be revoked")
	}

	if err := s.UpdateSessionUser(ctx, sess.ID, `{"username":"asha","points":60}`); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if err := s.TouchSession(ctx, sess.ID, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := s.RevokeSession(ctx, sess.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = s.GetSessionByTokenHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("get after revoke: %v", err)
	}
	if got.RevokedAt == nil {
		t.Fatalf("expected revoked_at to be set")
	}

	if _, err := s.GetSessionByTokenHash(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := models.Session{
		ID: "old", TokenHash: "old-hash", UpstreamSecret: "x", UserJSON: "{}",
		ExpiresAt: now.Add(-time.Hour), IdleExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-48 * time.Hour), LastSeenAt: now.Add(-2 * time.Hour),
	}
	fresh := stale
	fresh.ID, fresh.TokenHash = "new", "new-hash"
	fresh.ExpiresAt, fresh.IdleExpiresAt = now.Add(time.Hour), now.Add(time.Hour)
	for _, sess := range []models.Session{stale, fresh} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("create %s: %v", sess.ID, err)
		}
	}

	if err := s.CleanupExpiredSessions(ctx, now); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := s.GetSessionByTokenHash(ctx, "old-hash"); err != ErrNotFound {
		t.Fatalf("stale session should be gone, got %v", err)
	}
	if _, err := s.GetSessionByTokenHash(ctx, "new-hash"); err != nil {
		t.Fatalf("fresh session should survive: %v", err)
	}
}

func TestRedemptionJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := models.Redemption{
		Username: "asha", VoucherID: "V50", Brand: "Cafe Verde", Cost: 50, Status: "pending",
	}
	r.ID = "red-1"
	if err := s.InsertRedemption(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpdateRedemption(ctx, "red-1", "committed", "BREW-50"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateRedemption(ctx, "nope", "committed", ""); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := s.ListRedemptions(ctx, "asha", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Status != "committed" || list[0].Code != "BREW-50" {
		t.Fatalf("unexpected journal: %+v", list)
	}
	other, err := s.ListRedemptions(ctx, "someone-else", 10, 0)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("journal must be scoped per username")
	}
}

func TestActivityLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertActivity(ctx, "gov1", "compliance_approve", "rep-9", `{"status":"Approved"}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	out, err := s.ListActivity(ctx, 5, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Action != "compliance_approve" || out[0].Target != "rep-9" {
		t.Fatalf("unexpected activity: %+v", out)
	}
}

func TestRebindPostgresPlaceholders(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()
	s := New(conn, "pgx")

	if got := s.rebind(`UPDATE sessions SET user_json=? WHERE id=?`); got != `UPDATE sessions SET user_json=$1 WHERE id=$2` {
		t.Fatalf("rebind produced %q", got)
	}

	mock.ExpectExec(`UPDATE sessions SET user_json=\$1 WHERE id=\$2`).
		WithArgs(`{"points":10}`, "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := s.UpdateSessionUser(context.Background(), "sess-1", `{"points":10}`); err != nil {
		t.Fatalf("update via pgx placeholders: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
