package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VivekJangam126/server-survival-sub000/internal/engine"
	"github.com/VivekJangam126/server-survival-sub000/internal/persist"
	"github.com/VivekJangam126/server-survival-sub000/internal/server"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/logger"
)

func main() {
	var httpAddr string
	var catalogPath string
	var saveDir string
	var redisAddr string
	var redisPassword string
	var redisDB int
	var seed int64
	var logLevel string

	flag.StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	flag.StringVar(&catalogPath, "catalog", "", "catalog YAML path (built-in defaults when empty)")
	flag.StringVar(&saveDir, "save-dir", "saves", "directory for file-backed save slots")
	flag.StringVar(&redisAddr, "redis-addr", "", "redis address for save slots (file store when empty)")
	flag.StringVar(&redisPassword, "redis-password", "", "redis password")
	flag.IntVar(&redisDB, "redis-db", 0, "redis database number")
	flag.Int64Var(&seed, "seed", 0, "random seed (0 seeds from the clock)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides catalog")
	flag.Parse()

	catalog := config.DefaultCatalog()
	if catalogPath != "" {
		loaded, err := config.LoadCatalog(catalogPath)
		if err != nil {
			logger.SetDefault(logger.NewText("info", os.Stderr))
			logger.Error("load catalog failed", "path", catalogPath, "error", err)
			os.Exit(1)
		}
		catalog = loaded
	}
	if logLevel == "" {
		logLevel = catalog.LogLevel
	}
	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store persist.Store
	if redisAddr != "" {
		redisStore, err := persist.NewRedisStore(ctx, redisAddr, redisPassword, redisDB)
		if err != nil {
			logger.Error("connect redis failed", "addr", redisAddr, "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info("using redis save store", "addr", redisAddr)
	} else {
		fileStore, err := persist.NewFileStore(saveDir)
		if err != nil {
			logger.Error("create save directory failed", "dir", saveDir, "error", err)
			os.Exit(1)
		}
		store = fileStore
		logger.Info("using file save store", "dir", saveDir)
	}

	clock := engine.NewClock(catalog, seed)
	srv := server.NewServer(catalog, clock, store, seed)

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go srv.Run(ctx)

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
