package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/janisto/gitops-demo/internal/platform/config"
	applog "github.com/janisto/gitops-demo/internal/platform/logging"
	"github.com/janisto/gitops-demo/internal/server"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run serves until ctx is cancelled and returns the process exit code.
func run(ctx context.Context) int {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(context.Background(), "invalid configuration", err)
		return 1
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogError(context.Background(), "invalid log level", err)
		return 1
	}

	if err := server.Run(ctx, cfg, server.WithVersion(Version)); err != nil {
		return 1
	}
	return 0
}
