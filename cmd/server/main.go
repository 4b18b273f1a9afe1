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

	"github.com/gramudyog/assist/internal/app"
	"github.com/gramudyog/assist/internal/config"
	httpserver "github.com/gramudyog/assist/internal/httpserver"
	"github.com/gramudyog/assist/internal/logger"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("app init failed", "error", err)
	}
	defer a.Close()

	srv := httpserver.New(cfg.AllowedOrigins, httpserver.Deps{
		NewSession: a.NewSession,
		Events:     a.Events,
		Translator: a.Chunker,
		Log:        lg,
	})
	defer srv.Close()

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		lg.Info("server listening", "addr", cfg.HTTPAddress, "api_base", cfg.APIBaseURL)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", "error", err)
		}
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Warn("graceful shutdown failed", "error", err)
		_ = server.Close()
	}
}
