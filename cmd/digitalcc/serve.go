package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/metrics"
	"github.com/coloradocollege/digitalcc/internal/repository/respcache"
	chiTransport "github.com/coloradocollege/digitalcc/internal/transport/chi"
	"github.com/coloradocollege/digitalcc/internal/transport/sitechrome"
	healthuc "github.com/coloradocollege/digitalcc/internal/usecase/health"
	"github.com/coloradocollege/digitalcc/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP front end",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, "server")
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	logger.Info("starting digitalcc server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", a.cfg.HTTP.Port),
	)

	if err := a.docs.EnsureSchema(a.withLogger(ctx)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	deps := chiTransport.Deps{
		Engine:    a.searchService(),
		Harvester: a.harvestService(),
		Media:     a.fedora,
		Health:    healthuc.New(a.store, a.fedora),
	}
	if a.cfg.Site.URL != "" {
		deps.Chrome = sitechrome.New(sitechrome.Config{
			URL: a.cfg.Site.URL,
			Selectors: sitechrome.Selectors{
				Header: a.cfg.Site.HeaderSelector,
				Footer: a.cfg.Site.FooterSelector,
				Tabs:   a.cfg.Site.TabsSelector,
			},
			Timeout: 10 * time.Second,
		})
		// chrome changes with the website, not the index, so it gets its own generation
		deps.ChromeCache = respcache.New(a.store, a.cfg.Search.KeyPrefix+"chrome:",
			time.Duration(a.cfg.Site.TTLSec)*time.Second, metrics.CacheTotal, logger)
	}

	server := chiTransport.NewServer(deps, logger)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		AdminKeys: a.cfg.Auth.APIKeys,
		Metrics:   true,
		Logger:    logger,
	})

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	server.Wait()

	logger.Info("server stopped gracefully")
	return nil
}
