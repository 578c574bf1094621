// Package main wires together the plant acquisition service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/aggregate"
	"github.com/gardenshed/seedscout/internal/api"
	"github.com/gardenshed/seedscout/internal/canonical"
	"github.com/gardenshed/seedscout/internal/config"
	"github.com/gardenshed/seedscout/internal/fetch"
	"github.com/gardenshed/seedscout/internal/images"
	"github.com/gardenshed/seedscout/internal/logging"
	"github.com/gardenshed/seedscout/internal/metrics"
	"github.com/gardenshed/seedscout/internal/pipeline"
	"github.com/gardenshed/seedscout/internal/sites"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := fetch.NewClient(fetch.Config{
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		PerHostRate: cfg.Fetch.PerHostRate,
	}, logger.Named("fetch"))

	adapters := make([]sites.Adapter, 0, 6)
	adapters = append(adapters, sites.NewVendors(fetcher, logger.Named("vendor"))...)
	trefle := sites.NewTrefle(cfg.Trefle.APIToken, cfg.Trefle.BaseURL, logger.Named("trefle"))
	if trefle.Enabled() {
		adapters = append(adapters, trefle)
	} else {
		logger.Info("trefle disabled: no API token configured")
	}
	wiki := sites.NewWikipedia(fetcher, logger.Named("wikipedia"))
	adapters = append(adapters, wiki)

	canon := canonical.New(cfg.Canonical, cfg.Grower, logger.Named("canonical"))
	if !canon.Enabled() {
		logger.Info("canonical lookup disabled: no API key configured")
	}

	searcher := images.NewSearcher(fetcher, trefle, wiki, logger.Named("images"))
	downloader, err := images.NewDownloader(cfg.Images, cfg.Fetch.UserAgent, logger.Named("images"))
	if err != nil {
		logger.Fatal("image store init failed", zap.Error(err))
	}

	agg := aggregate.New(adapters, logger.Named("aggregate"))
	pipe := pipeline.New(agg, canon, searcher, downloader, cfg.Images.MaxDownload, logger.Named("pipeline"))
	apiServer := api.NewServer(pipe, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
