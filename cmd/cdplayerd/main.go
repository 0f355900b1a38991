package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cdplayer/internal/config"
	"cdplayer/internal/daemon"
	"cdplayer/internal/ipc"
	"cdplayer/internal/logging"
)

const logStreamCapacity = 2048

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("CDPLAYER_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logOpts, err := logging.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	hub := logging.NewStreamHub(logStreamCapacity)
	logOpts.Stream = hub
	logger, err := logging.New(logOpts)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := run(ctx, cfg, logger, daemon.WithLogStream(hub)); err != nil {
		logger.Error("cdplayerd exited with error", logging.Error(err))
		log.Fatal(err)
	}
}

// run owns the daemon lifetime: it returns after a signal or a Shutdown
// request once the active session has wound down.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...daemon.Option) error {
	d, err := daemon.New(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.Socket, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	err = d.Wait(context.Background())
	logger.Info("cdplayerd shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
