package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects with the configured driver. For sqlite the DSN is a file path
// and the parent directory is created on demand.
func Open(driver, dsn string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir db dir: %w", err)
			}
		}
		conn, err = sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dsn))
	case "mysql":
		conn, err = sql.Open("mysql", dsn)
	case "pgx", "postgres":
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	conn.SetConnMaxLifetime(maxLifetime)
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return conn, nil
}
