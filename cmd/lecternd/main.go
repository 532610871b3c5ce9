// Command lecternd runs the Lectern daemon: the job registry, the
// processing pipeline, and the HTTP API used by the CLI and the browser
// extension.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (defaults to ~/.config/lectern/config.toml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "lecternd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}
	logger.Info("lecternd running",
		logging.String("config", resolvedPath),
		logging.String("bind", cfg.Paths.APIBind),
	)

	<-ctx.Done()
	logger.Info("lecternd shutting down")
	d.Stop()
}
