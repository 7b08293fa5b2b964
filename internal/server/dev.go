package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// DevConfig configures the development preview.
type DevConfig struct {
	Host       string
	OutputDir  string
	Port       int
	ReloadPort int
	WatchPaths []string
	Debounce   time.Duration
	// Rebuild regenerates the reports after a source change.
	Rebuild ChangeFunc
	Logger  *slog.Logger
}

// RunDev serves the output tree, the reload hub and the watcher until ctx is
// cancelled or one of them fails. Listeners are shut down before it returns.
func RunDev(ctx context.Context, cfg DevConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	site, err := New(cfg.OutputDir, cfg.ReloadPort, logger)
	if err != nil {
		return err
	}
	hub := NewHub(logger)

	onChange := func(ctx context.Context, changed []string) error {
		if err := cfg.Rebuild(ctx, changed); err != nil {
			return err
		}
		n := hub.Broadcast(ctx, ReloadMessage)
		logger.Info("reload sent", "component", "server", "pages", n)
		return nil
	}
	watcher := NewWatcher(cfg.WatchPaths, cfg.Debounce, onChange, logger)

	servers := []*http.Server{
		{Addr: net.JoinHostPort(host, strconv.Itoa(cfg.Port)), Handler: site.Handler(), ReadHeaderTimeout: 10 * time.Second},
		{Addr: net.JoinHostPort(host, strconv.Itoa(cfg.ReloadPort)), Handler: hub, ReadHeaderTimeout: 10 * time.Second},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", "component", "server", "url", "http://"+srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down dev server", "component", "server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
