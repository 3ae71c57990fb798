package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/gitops-demo/internal/apiclient"
	"github.com/janisto/gitops-demo/internal/platform/config"
	applog "github.com/janisto/gitops-demo/internal/platform/logging"
	"github.com/janisto/gitops-demo/internal/view"
)

const requestTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, out io.Writer) int {
	defer func() { _ = applog.Sync() }()

	cfg, err := config.LoadView()
	if err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		return 1
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogError(ctx, "invalid log level", err)
		return 1
	}

	ctx = applog.WithFields(ctx, zap.String("apiUrl", cfg.APIURL))
	client := apiclient.NewClient(&http.Client{Timeout: requestTimeout}, apiclient.WithBaseURL(cfg.APIURL))
	return show(ctx, view.New(client), out)
}

// show mounts v, renders the loading state, then renders the final state once
// the fetch finishes or ctx is cancelled.
func show(ctx context.Context, v *view.View, out io.Writer) int {
	v.Mount(ctx)
	if err := v.Render(out); err != nil {
		applog.LogError(ctx, "render failed", err)
		return 1
	}

	select {
	case <-v.Done():
	case <-ctx.Done():
		applog.LogInfo(context.Background(), "interrupted, unmounting view")
		v.Unmount()
		<-v.Done()
	}

	if _, err := io.WriteString(out, "\n"); err != nil {
		return 1
	}
	if err := v.Render(out); err != nil {
		applog.LogError(ctx, "render failed", err)
		return 1
	}
	if v.State().Error != "" {
		return 1
	}
	return 0
}
