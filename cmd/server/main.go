package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gitmanhimanshu/verdantia/internal/api"
	"github.com/gitmanhimanshu/verdantia/internal/config"
	"github.com/gitmanhimanshu/verdantia/internal/db"
	"github.com/gitmanhimanshu/verdantia/internal/games"
	"github.com/gitmanhimanshu/verdantia/internal/obs"
	"github.com/gitmanhimanshu/verdantia/internal/service"
	"github.com/gitmanhimanshu/verdantia/internal/session"
	"github.com/gitmanhimanshu/verdantia/internal/store"
	"github.com/gitmanhimanshu/verdantia/internal/upstream"
	"github.com/gitmanhimanshu/verdantia/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := db.Open(cfg.DBDriver, cfg.DBDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer conn.Close()
	if err := db.Migrate(conn, cfg.DBDriver); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	st := store.New(conn, cfg.DBDriver)
	sessions := session.NewManager(st, cfg.SessionSealKey, cfg.SessionIdleDuration(), cfg.SessionAbsoluteDuration())
	up := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamUserAgent)
	svc := service.New(cfg, logger, st, sessions, up, games.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.CleanupLoop(ctx, 15*time.Minute)

	info := version.Current()
	metrics := obs.NewMetrics(info.Version, info.Commit)
	r := api.NewRouter(cfg, svc, logger, metrics)

	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("upstream", cfg.UpstreamBaseURL),
		zap.String("version", info.Version),
	)
	if err := hsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
}
