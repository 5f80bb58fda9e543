// Command server runs the AI summary HTTP API.
//
// @title        AI Summary Service API
// @version      1.0.0
// @description  Summarizes text through an OpenAI-compatible chat-completions API and keeps a history of results.
// @BasePath     /api
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-summary-backend/internal/config"
	httpapi "github.com/tbourn/go-summary-backend/internal/http"
	"github.com/tbourn/go-summary-backend/internal/llm"
	"github.com/tbourn/go-summary-backend/internal/observability"
	"github.com/tbourn/go-summary-backend/internal/repo"
	"github.com/tbourn/go-summary-backend/internal/sysutil"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

// run wires storage, tracing and routes, serves until ctx is cancelled and
// then drains in-flight requests.
func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, cfg.ServiceVersion)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeIdempotency(purgeCtx, db, purgeInterval)

	if cfg.Completion.APIKey == "" {
		log.Warn().Msg("GROQ_API_KEY is not set; summary requests will return a diagnostic")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	client := llm.NewClient(cfg.Completion.BaseURL, completionHTTPClient())
	httpapi.RegisterRoutes(r, db, cfg, client)

	srv := newServer(cfg, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Str("model", cfg.Completion.Model).
			Msg("http server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// purgeIdempotency deletes expired Idempotency-Key mappings now and then
// every interval until ctx is cancelled.
func purgeIdempotency(ctx context.Context, db *gorm.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn().Err(err).Msg("idempotency purge failed")
		case n > 0:
			log.Debug().Int64("deleted", n).Msg("expired idempotency keys purged")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// completionHTTPClient carries no timeout of its own; a completion call is
// bounded only by the context handed to it.
func completionHTTPClient() *http.Client {
	return &http.Client{}
}

func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
