// Package app wires together this proxy's configuration, dispatcher, and
// HTTP front end and owns their startup/shutdown lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkroman/model-router-proxy/internal/config"
	"github.com/mkroman/model-router-proxy/internal/dispatch"
	"github.com/mkroman/model-router-proxy/internal/proxy"
	"github.com/mkroman/model-router-proxy/internal/router"
	"github.com/mkroman/model-router-proxy/internal/upstream"
)

// App orchestrates the lifecycle of the proxy server and related services.
type App struct {
	cfg    *config.Config
	proxy  *proxy.Proxy
	health *Health
}

// New creates a new App instance from cfg.
func New(cfg *config.Config) (*App, error) {
	overrides := make(map[string]router.Flavor, len(cfg.ModelClassificationOverrides))
	for model, flavor := range cfg.ModelClassificationOverrides {
		overrides[model] = router.Flavor(flavor)
	}
	r := router.Router{Overrides: overrides, ForceResponses: cfg.ForceResponses}

	u := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamConnectTimeout)
	d := dispatch.New(r, u, cfg.DefaultModelOverride)

	health := NewHealth()

	proxyServer, err := proxy.New(d, health)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{cfg: cfg, proxy: proxyServer, health: health}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	slog.InfoContext(gCtx, "starting proxy server", "addr", a.cfg.ListenAddr)
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)
	a.health.SetReady(true)

	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")
	a.health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
