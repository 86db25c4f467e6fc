package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"escrowbook/config"
	"escrowbook/core"
	"escrowbook/observability/logging"
	"escrowbook/rpc"
	"escrowbook/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	logger := logging.Setup("escrowbookd", cfg.Environment, cfg.LogFile)

	var db storage.Database
	if strings.TrimSpace(cfg.DataDir) == "" {
		logger.Warn("no data directory configured, state will not survive restarts")
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open database", "dir", cfg.DataDir, "err", err)
			os.Exit(1)
		}
		db = ldb
	}

	feeCollector, err := cfg.FeeCollectorAddress()
	if err != nil {
		logger.Error("resolve fee collector", "err", err)
		os.Exit(1)
	}
	node := core.NewNode(db, feeCollector)
	defer func() {
		if err := node.Close(); err != nil {
			logger.Error("close node", "err", err)
		}
	}()

	if strings.TrimSpace(cfg.AuthToken) == "" {
		logger.Warn("no auth token configured, mutating RPC methods are disabled")
	}
	server := rpc.NewServer(node, cfg.AuthToken, logger)
	srv := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("rpc listening", "addr", cfg.RPCAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
