package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate applies the schema for the given driver. Statements are written to
// be re-runnable; "already exists" errors from older revisions are tolerated.
func Migrate(conn *sql.DB, driver string) error {
	for _, stmt := range statements(driver) {
		if _, err := conn.Exec(stmt); err != nil && !isAlreadyExistsErr(err) {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

func statements(driver string) []string {
	ts := "TIMESTAMP"
	if strings.ToLower(driver) == "mysql" {
		ts = "DATETIME(6)"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sessions (
			id VARCHAR(64) PRIMARY KEY,
			token_hash VARCHAR(128) NOT NULL,
			upstream_secret TEXT NOT NULL,
			user_json TEXT NOT NULL,
			expires_at %[1]s NOT NULL,
			idle_expires_at %[1]s NOT NULL,
			created_at %[1]s NOT NULL,
			last_seen_at %[1]s NOT NULL,
			revoked_at %[1]s NULL
		)`, ts),
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_token_hash ON sessions(token_hash)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS redemptions (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(190) NOT NULL,
			voucher_id VARCHAR(32) NOT NULL,
			brand VARCHAR(190) NOT NULL,
			cost INTEGER NOT NULL,
			code VARCHAR(190) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL,
			created_at %[1]s NOT NULL
		)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_redemptions_username ON redemptions(username)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS activity_log (
			id VARCHAR(64) PRIMARY KEY,
			actor VARCHAR(190) NOT NULL,
			action VARCHAR(64) NOT NULL,
			target VARCHAR(190) NOT NULL,
			metadata_json TEXT NOT NULL,
			created_at %[1]s NOT NULL
		)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_log(created_at)`,
	}
}

func isAlreadyExistsErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
