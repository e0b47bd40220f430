package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/config"
	"github.com/hamed0406/uptimewatch/internal/httpapi"
	apimw "github.com/hamed0406/uptimewatch/internal/httpapi/middleware"
	"github.com/hamed0406/uptimewatch/internal/logging"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/backend"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_error", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}

	api := httpapi.NewServer(logger, repo.NewDocuments(store), apimw.Keys{
		Public: cfg.PublicAPIKeys,
		Admin:  cfg.AdminAPIKeys,
	})
	api.AllowedOrigins = cfg.AllowedOrigins
	api.RatePerMinute = cfg.PublicRPM
	api.Burst = cfg.PublicBurst

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.StoreBackend),
	)
	err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if err = multierr.Append(err, store.Close()); err != nil {
		logger.Error("api_exit", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("api_stopped")
}
