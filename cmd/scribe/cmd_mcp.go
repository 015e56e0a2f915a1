package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/circuitscribe/internal/config"
	"github.com/felixgeelhaar/circuitscribe/internal/logging"
	mcpserver "github.com/felixgeelhaar/circuitscribe/internal/mcp"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/circuitscribe/internal/storage"
)

// cmdMCP serves the learning tools over stdio for editor integration.
// Stdout carries the protocol, so logs go to stderr and the log file.
func cmdMCP(cfg *config.Config) error {
	logger := logging.Setup(logging.Options{
		Level:   cfg.Daemon.LogLevel,
		File:    cfg.Daemon.LogFile,
		Console: os.Stderr,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	ledger := progress.NewService(store, progress.WithAtomicXP(cfg.Progress.AtomicXP))

	srv := mcpserver.NewServer(mcpserver.Config{
		Ledger:    ledger,
		LearnerID: cfg.MCP.LearnerID,
		Version:   Version,
	})

	return srv.ServeStdio(ctx)
}
