package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/felixgeelhaar/circuitscribe/internal/auth"
	"github.com/felixgeelhaar/circuitscribe/internal/config"
	"github.com/felixgeelhaar/circuitscribe/internal/daemon"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/events"
	"github.com/felixgeelhaar/circuitscribe/internal/logging"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/circuitscribe/internal/scheduler"
	"github.com/felixgeelhaar/circuitscribe/internal/storage"
	"github.com/felixgeelhaar/fortify/ratelimit"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFileName = "scribed.pid"

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(logging.Options{
		Level: cfg.Daemon.LogLevel,
		File:  cfg.Daemon.LogFile,
	})
	defer logger.Close()

	fmt.Fprintln(os.Stderr, figure.NewFigure("SCRIBE", "", true).String())

	pidPath := filepath.Join(dir, pidFileName)
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	if m, ok := store.(storage.Maintainer); ok && cfg.Storage.MaintainAt != "" {
		sched := scheduler.New(time.Local)
		if err := sched.Daily(ctx, cfg.Storage.MaintainAt, "store-maintenance", m.Maintain); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	dispatcher := domain.NewEventDispatcher()
	dispatcher.SubscribeAll(events.LogHandler)
	if cfg.Events.Enabled {
		conn, err := events.Dial(cfg.Events.URL, cfg.Events.Queue)
		if err != nil {
			return fmt.Errorf("connect events: %w", err)
		}
		defer conn.Close()
		dispatcher.SubscribeAll(events.NewPublisher(conn).Publish)
	}

	warnAtomicFallback(cfg.Progress.AtomicXP, cfg.Storage.Driver, store)

	ledger := progress.NewService(store,
		progress.WithPublisher(dispatcher),
		progress.WithAtomicXP(cfg.Progress.AtomicXP),
	)

	authn, err := auth.New(cfg.Auth.Mode, cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("setup auth: %w", err)
	}
	if cfg.Auth.Mode == auth.ModeHeader {
		slog.Warn("header auth trusts X-Learner-ID; use jwt outside development")
	}

	var limiter ratelimit.RateLimiter
	if cfg.RateLimit.VerifyPerSecond > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = cfg.RateLimit.VerifyPerSecond
		}
		limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RateLimit.VerifyPerSecond,
			Burst:    burst,
			Interval: time.Second,
		})
	}

	server, err := daemon.NewServer(daemon.ServerConfig{
		Addr:          cfg.Daemon.Addr(),
		Version:       Version,
		StoreDriver:   cfg.Storage.Driver,
		Ledger:        ledger,
		Auth:          authn,
		VerifyLimiter: limiter,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("received signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	slog.Info("daemon stopped")
	return nil
}

// warnAtomicFallback reports when atomic XP is requested but the store can
// only read-modify-write. It returns whether it warned.
func warnAtomicFallback(atomicXP bool, driver string, store progress.Store) bool {
	if !atomicXP {
		return false
	}
	if _, ok := store.(progress.XPIncrementer); ok {
		return false
	}
	slog.Warn("progress.atomic_xp is set but the store has no atomic increment; XP awards use read-modify-write",
		"driver", driver)
	return true
}
