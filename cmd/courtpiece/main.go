package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courtpiece/internal/app"
	"courtpiece/internal/config"
	"courtpiece/internal/platform/logging"
	"courtpiece/internal/ports"
	"courtpiece/internal/storage/memory"
	"courtpiece/internal/storage/sqlite"
	"courtpiece/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "courtpiece:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	delay := cfg.TrickResolveDelay
	if cfg.GameConfigPath != "" {
		if err := config.LoadGameConfig(cfg.GameConfigPath); err != nil {
			return err
		}
		delay = config.GetGameConfig().TrickResolveDelay()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store ports.SnapshotStore
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	}

	rooms := app.NewRegistry(store, app.NewService(nil), logger)
	defer rooms.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           ws.NewGateway(rooms, logger, delay, cfg.AllowedOrigins).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server: listening on %s (store=%s, trick delay=%s)", cfg.Addr, cfg.StoreDriver, delay)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
