package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slpdexd/indexer/internal/api"
	"github.com/slpdexd/indexer/internal/broadcast"
	"github.com/slpdexd/indexer/internal/cashaddr"
	"github.com/slpdexd/indexer/internal/config"
	"github.com/slpdexd/indexer/internal/indexer"
	"github.com/slpdexd/indexer/internal/logging"
	"github.com/slpdexd/indexer/internal/remote"
	"github.com/slpdexd/indexer/internal/store"
	"github.com/slpdexd/indexer/internal/token"
	"github.com/slpdexd/indexer/internal/tradeoffer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal startup error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	closer, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closer.Close()

	slog.Info("starting indexer", "peer", cfg.PeerAddress, "port", cfg.Port)

	db, err := store.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	feeAddr, err := cashaddr.Decode(cfg.FeeAddress)
	if err != nil {
		return fmt.Errorf("decode fee address: %w", err)
	}
	tradeCfg := tradeoffer.Config{
		Version:    byte(cfg.ExchVersion),
		FeeAddress: feeAddr,
		FeeDivisor: cfg.FeeDivisor,
		DustLimit:  cfg.DustLimit,
	}

	httpClient := &http.Client{Timeout: config.RemoteRequestTimeout}
	remoteClient := remote.New(httpClient, cfg.SlpdbURL, cfg.BitdbURL, cfg.RemoteRequestsPerSecond)

	registry := token.New(db, remoteClient)

	engine := &indexer.Engine{
		Store:    db,
		Tokens:   remoteClient,
		Txs:      remoteClient,
		Lookup:   registry,
		Validity: remoteClient,
		TradeCfg: tradeCfg,
	}

	fabric := broadcast.NewFabric(db)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go runResyncLoop(ctx, "tokens", time.Duration(cfg.ResyncPollInterval)*time.Second, engine.ResyncTokens)
	go runResyncLoop(ctx, "trade offers", time.Duration(cfg.ResyncPollInterval)*time.Second, engine.ResyncTradeOffers)

	router := api.NewRouter(db, engine, fabric.Bus, cfg)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// runResyncLoop invokes step on a fixed interval until ctx is cancelled,
// logging and continuing past a failed cycle rather than aborting the
// process (spec.md §7: a Remote error aborts only the current cycle; the
// next cycle resumes from the last persisted checkpoint).
func runResyncLoop(ctx context.Context, name string, interval time.Duration, step func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := step(ctx); err != nil {
			slog.Warn("resync cycle failed, retrying next tick", "loop", name, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
