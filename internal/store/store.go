package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gitmanhimanshu/verdantia/internal/models"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

type Store struct {
	db     *sql.DB
	driver string
}

func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: strings.ToLower(driver)}
}

// rebind rewrites ? placeholders to $n for postgres drivers. All queries in
// this package are written with ? ordinals.
func (s *Store) rebind(q string) string {
	if s.driver != "pgx" && s.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO sessions(id,token_hash,upstream_secret,user_json,expires_at,idle_expires_at,created_at,last_seen_at) VALUES(?,?,?,?,?,?,?,?)`),
		sess.ID, sess.TokenHash, sess.UpstreamSecret, sess.UserJSON, sess.ExpiresAt, sess.IdleExpiresAt, sess.CreatedAt, sess.LastSeenAt,
	)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var sess models.Session
	var revoked sql.NullTime
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id,token_hash,upstream_secret,user_json,expires_at,idle_expires_at,created_at,last_seen_at,revoked_at FROM sessions WHERE token_hash=?`),
		tokenHash,
	).Scan(&sess.ID, &sess.TokenHash, &sess.UpstreamSecret, &sess.UserJSON, &sess.ExpiresAt, &sess.IdleExpiresAt, &sess.CreatedAt, &sess.LastSeenAt, &revoked)
	if err == sql.ErrNoRows {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, idleExpiry time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE sessions SET last_seen_at=?, idle_expires_at=? WHERE id=?`), now, idleExpiry, id)
	return err
}

func (s *Store) UpdateSessionUser(ctx context.Context, id, userJSON string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE sessions SET user_json=? WHERE id=?`), userJSON, id)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE sessions SET revoked_at=? WHERE id=? AND revoked_at IS NULL`), now, id)
	return err
}

func (s *Store) CleanupExpiredSessions(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE expires_at < ? OR idle_expires_at < ?`), before, before)
	return err
}

func (s *Store) InsertRedemption(ctx context.Context, r models.Redemption) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO redemptions(id,username,voucher_id,brand,cost,code,status,created_at) VALUES(?,?,?,?,?,?,?,?)`),
		r.ID, r.Username, r.VoucherID, r.Brand, r.Cost, r.Code, r.Status, r.CreatedAt,
	)
	return err
}

func (s *Store) UpdateRedemption(ctx context.Context, id, status, code string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE redemptions SET status=?, code=? WHERE id=?`), status, code, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListRedemptions(ctx context.Context, username string, limit, offset int) ([]models.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id,username,voucher_id,brand,cost,code,status,created_at FROM redemptions WHERE username=? ORDER BY created_at DESC LIMIT ? OFFSET ?`),
		username, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Redemption, 0, limit)
	for rows.Next() {
		var r models.Redemption
		if err := rows.Scan(&r.ID, &r.Username, &r.VoucherID, &r.Brand, &r.Cost, &r.Code, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertActivity(ctx context.Context, actor, action, target, metadata string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO activity_log(id,actor,action,target,metadata_json,created_at) VALUES(?,?,?,?,?,?)`),
		uuid.NewString(), actor, action, target, metadata, time.Now().UTC(),
	)
	return err
}

func (s *Store) ListActivity(ctx context.Context, limit, offset int) ([]models.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id,actor,action,target,metadata_json,created_at FROM activity_log ORDER BY created_at DESC LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.ActivityEntry, 0, limit)
	for rows.Next() {
		var e models.ActivityEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Target, &e.MetadataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
