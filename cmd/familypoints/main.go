package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/config"
	"github.com/dukerupert/familypoints/internal/database"
	"github.com/dukerupert/familypoints/internal/logging"
	"github.com/dukerupert/familypoints/internal/push"
	"github.com/dukerupert/familypoints/internal/server"
	"github.com/dukerupert/familypoints/internal/upload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "familypoints:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if cfg.Seed {
		if err := seed(db, logger.With("component", "seed")); err != nil {
			db.Close()
			return fmt.Errorf("seed: %w", err)
		}
	}

	opts := server.Options{
		Issuer:         auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL),
		UploadMaxBytes: cfg.UploadMaxBytes,
		CORSOrigins:    cfg.CORSOrigins,
	}

	if cfg.S3.Enabled() {
		opts.Storage = upload.NewS3Storage(upload.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		})
		logger.Info("evidence storage", "backend", "s3", "bucket", cfg.S3.Bucket)
	} else {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			db.Close()
			return fmt.Errorf("create upload dir: %w", err)
		}
		opts.Storage = upload.NewLocalStorage(cfg.UploadDir, "/static/uploads")
		opts.StaticDir = cfg.UploadDir
		logger.Info("evidence storage", "backend", "local", "dir", cfg.UploadDir)
	}

	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		svc, err := push.NewService(push.Config{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
			TTL:        cfg.PushTTL,
		})
		if err != nil {
			db.Close()
			return fmt.Errorf("push service: %w", err)
		}
		opts.PushService = svc
	} else {
		logger.Info("push notifications disabled, VAPID keys not set")
	}

	srv := server.New(db, opts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.RateLimiter().StartCleanup(ctx, 5*time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("familypoints running", "addr", "http://localhost:"+cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		db.Close()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return multierr.Combine(
		httpServer.Shutdown(shutdownCtx),
		db.Close(),
	)
}
