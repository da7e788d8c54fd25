package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/lborres/bantay"
	fiberadapter "github.com/lborres/bantay/adapters/fiber"
	redisadapter "github.com/lborres/bantay/adapters/redis"
	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/cache"
	"github.com/lborres/bantay/pkg/metrics"
)

const purgeInterval = 15 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func logFormat() string {
	format := []string{
		"${time}|${requestid}",
		"${status}|${latency}",
		"${ip}:${port}",
		"${method}|${path}|${queryParams}",
		"${errors}",
	}
	return strings.Join(format, "|") + "\n"
}

func serve(ctx context.Context) error {
	pool, db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	local, closeLocal, err := openLocalStore()
	if err != nil {
		return err
	}
	defer closeLocal()

	snapshot, closeSnapshot, err := openSnapshotStore(ctx)
	if err != nil {
		return err
	}
	defer closeSnapshot()

	signUpRoles, err := cfg.Server.SignUpRoles()
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{AppName: "bantay"})
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	var m *metrics.Metrics
	if cfg.Server.Metrics {
		m = metrics.New(prometheus.DefaultRegisterer)
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	b, err := bantay.New(bantay.Config{
		Database:        db,
		Documents:       db,
		LocalStore:      local,
		Snapshot:        snapshot,
		HTTP:            fiberadapter.New(app, fiberadapter.WithSelfServiceRoles(signUpRoles...)),
		SessionConfig:   &cfg.Session,
		Bounds:          cfg.Bounds,
		FreshnessWindow: cfg.Content.FreshnessWindow,
		BasePath:        cfg.Server.BasePath,
		Logger:          log,
		Metrics:         m,
	})
	if err != nil {
		return fmt.Errorf("could not create bantay instance: %w", err)
	}
	defer b.Close()

	go purgeSessions(ctx, b)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "base_path", b.BasePath)
		errCh <- app.Listen(cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// openLocalStore picks bbolt when a path is configured and memory otherwise.
func openLocalStore() (core.LocalStore, func(), error) {
	if cfg.Local.BoltPath == "" {
		return cache.NewMemoryStore(core.CacheConfig{MaxSize: cfg.Local.MemorySize}), func() {}, nil
	}

	store, err := cache.OpenBoltStore(cfg.Local.BoltPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("closing local store", "error", err)
		}
	}, nil
}

// openSnapshotStore uses Redis when an address is configured so that
// replicas share one content snapshot.
func openSnapshotStore(ctx context.Context) (core.ContentSnapshotStore, func(), error) {
	if cfg.Redis.Addr == "" {
		return cache.NewMemorySnapshot(), func() {}, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	store := redisadapter.NewSnapshotStore(client, cfg.Redis.SnapshotKey, cfg.Redis.SnapshotTTL)
	return store, func() { _ = client.Close() }, nil
}

func purgeSessions(ctx context.Context, b *bantay.Bantay) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := b.Sessions.PurgeExpired(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("purging expired sessions", "error", err)
				continue
			}
			if n > 0 {
				log.Info("purged expired sessions", "count", n)
			}
		}
	}
}
