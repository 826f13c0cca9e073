package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	bfcfg "backfill/internal/config"
	"backfill/internal/gateway"
	"backfill/internal/logger"
	"backfill/internal/request"
	"backfill/internal/service"
	"backfill/internal/store/gormstore"
)

func main() {
	defaultPath := os.Getenv("BACKFILL_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	cfgPath := flag.String("config", defaultPath, "path to the yaml config file")
	flag.Parse()

	cfg, err := bfcfg.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initializing log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := cfg.Request.ToRequest(cfg.Exchange.Name)
	if err != nil {
		log.Fatalf("building request failed: %v", err)
	}

	venue := gateway.VenueName(cfg.Exchange.Name, req.MarketType == request.MarketPerpetualFuture)
	vendor, err := gateway.New(venue, gateway.Options{
		RESTBaseURL:  cfg.Exchange.RESTBaseURL,
		HTTPTimeout:  cfg.Exchange.HTTPTimeout,
		ProxyEnabled: cfg.Exchange.ProxyEnabled,
		RESTProxyURL: cfg.Exchange.RESTProxyURL,
	})
	if err != nil {
		log.Fatalf("initializing exchange %q failed: %v", venue, err)
	}
	logger.Infof("config loaded (exchange=%s venue=%s tickers=%d)", cfg.Exchange.Name, venue, len(req.Tickers))

	svc := service.New(vendor, service.Config{
		CacheTTL:         cfg.Fetch.CacheTTL,
		MaxInFlight:      cfg.Fetch.MaxInFlight,
		Timeout:          cfg.Fetch.Timeout,
		MaxRetries:       cfg.Fetch.MaxRetries,
		BreakerThreshold: cfg.Fetch.BreakerThreshold,
		BreakerCooldown:  cfg.Fetch.BreakerCooldown,
	})

	table, failures, err := svc.GetData(ctx, req)
	if err != nil {
		log.Fatalf("backfill failed: %v", err)
	}
	for _, failure := range failures {
		logger.Warnf("stream degraded: ticker=%s stream=%s err=%v", failure.Ticker, failure.Stream, failure.Err)
	}
	logger.Infof("backfill done: rows=%d tickers=%d failures=%d", len(table.Rows), len(table.Tickers()), len(failures))

	if strings.TrimSpace(cfg.Store.Path) != "" {
		store, err := gormstore.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("opening store failed: %v", err)
		}
		defer store.Close()
		if err := store.SaveTable(ctx, table); err != nil {
			log.Fatalf("persisting table failed: %v", err)
		}
		logger.Infof("persisted %d rows to %s", len(table.Rows), cfg.Store.Path)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
