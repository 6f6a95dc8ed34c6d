package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string

	UpstreamBaseURL string

	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	SessionCookieName   string
	SessionIdleMinutes  int
	SessionAbsoluteHour int
	SessionSealKey      string
	CookieSecure        bool
	TrustProxy          bool
	CORSAllowedOrigins  []string

	UploadMaxBytes       int64
	ConfirmTokenTTLSec   int
	AlertTTLSec          int
	LeaderboardCacheSec  int
	UpstreamUserAgent    string
	UpstreamProbeTimeout time.Duration

	LogLevel string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", ":8080"),
		UpstreamBaseURL:          env("VERDANTIA_API_BASE", "http://localhost:5000"),
		DBDriver:                 strings.ToLower(env("APP_DB_DRIVER", "sqlite")),
		DBDSN:                    env("APP_DB_DSN", "./data/gateway.db"),
		DBMaxOpenConns:           envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		SessionCookieName:        env("SESSION_COOKIE_NAME", "verdantia_session"),
		SessionIdleMinutes:       envInt("SESSION_IDLE_MINUTES", 60),
		SessionAbsoluteHour:      envInt("SESSION_ABSOLUTE_HOURS", 24),
		SessionSealKey:           env("SESSION_SEAL_KEY", "CHANGE_ME_PRODUCTION_SEAL_KEY"),
		CookieSecure:             envBool("COOKIE_SECURE", false),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		UploadMaxBytes:           int64(envInt("UPLOAD_MAX_BYTES", 25<<20)),
		ConfirmTokenTTLSec:       envInt("CONFIRM_TOKEN_TTL_SEC", 120),
		AlertTTLSec:              envInt("ALERT_TTL_SEC", 5),
		LeaderboardCacheSec:      envInt("LEADERBOARD_CACHE_SEC", 0),
		UpstreamUserAgent:        env("UPSTREAM_USER_AGENT", "verdantia-gateway/1"),
		UpstreamProbeTimeout:     time.Duration(envInt("UPSTREAM_PROBE_TIMEOUT_SEC", 5)) * time.Second,
		LogLevel:                 env("LOG_LEVEL", "info"),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 60),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
	}

	if cfg.SessionIdleMinutes <= 0 || cfg.SessionAbsoluteHour <= 0 {
		return Config{}, fmt.Errorf("session timeouts must be positive")
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	switch cfg.DBDriver {
	case "sqlite", "mysql", "pgx", "postgres":
	default:
		return Config{}, fmt.Errorf("APP_DB_DRIVER must be one of: sqlite, mysql, pgx, postgres")
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		return Config{}, fmt.Errorf("APP_DB_DSN is required")
	}
	u, err := url.Parse(cfg.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("VERDANTIA_API_BASE must be an absolute URL")
	}
	cfg.UpstreamBaseURL = strings.TrimRight(cfg.UpstreamBaseURL, "/")
	if strings.TrimSpace(cfg.SessionSealKey) == "" ||
		cfg.SessionSealKey == "CHANGE_ME_PRODUCTION_SEAL_KEY" ||
		len(cfg.SessionSealKey) < 24 {
		return Config{}, fmt.Errorf("SESSION_SEAL_KEY must be set to a strong non-default value (>=24 chars)")
	}
	if !cfg.CookieSecure && !isLocalListen(cfg.ListenAddr) {
		return Config{}, fmt.Errorf("COOKIE_SECURE=false is allowed only for local listen addresses")
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return cfg, nil
}

func (c Config) SessionIdleDuration() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c Config) SessionAbsoluteDuration() time.Duration {
	return time.Duration(c.SessionAbsoluteHour) * time.Hour
}

func (c Config) ConfirmTokenTTL() time.Duration {
	return time.Duration(c.ConfirmTokenTTLSec) * time.Second
}

func (c Config) AlertTTL() time.Duration {
	return time.Duration(c.AlertTTLSec) * time.Second
}

func (c Config) LeaderboardCacheTTL() time.Duration {
	return time.Duration(c.LeaderboardCacheSec) * time.Second
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLocalListen(addr string) bool {
	a := strings.ToLower(strings.TrimSpace(addr))
	return strings.Contains(a, "127.0.0.1") || strings.Contains(a, "localhost") || strings.Contains(a, "[::1]") || strings.HasPrefix(a, ":")
}
