package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lv-paperledger/internal/app"
	"lv-paperledger/internal/config"
	"lv-paperledger/internal/health"
	"lv-paperledger/internal/httpserver"
	"lv-paperledger/internal/orders"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	startedAt := time.Now()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		OrderHandler: orders.NewHandler(a.Executor, a.Store),
		AuthService:  a.Auth,
		WSHandler:    httpserver.NewWSHandler(a.Bus, a.Auth, cfg.WebSocketOrigin, a.Log),
		Origin:       cfg.WebSocketOrigin,
		Health:       health.NewHandler(a.Store, cfg.StoreDriver, startedAt),
	})
	srv := httpserver.NewServer(cfg.HTTPAddr, router)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.Log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.Log.Info().Msg("server stopped")
	return nil
}
