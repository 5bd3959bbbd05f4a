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

	"voice-detect/internal/audio"
	"voice-detect/internal/auth"
	"voice-detect/internal/config"
	"voice-detect/internal/detection"
	"voice-detect/internal/server"
)

func main() {
	logger := log.New(os.Stdout, "voice-detect ", log.LstdFlags|log.Lmsgprefix)

	cfg, err := config.Resolve()
	if err != nil {
		logger.Fatalf("resolve config: %v", err)
	}

	if err := config.ValidateListenAddr(cfg.ListenAddr); err != nil {
		logger.Fatalf("invalid listen address %q: %v", cfg.ListenAddr, err)
	}

	var static []string
	if cfg.APIKey != "" {
		static = []string{cfg.APIKey}
	}

	keyStore, err := auth.NewKeyStore(cfg.APIKeyFile, static, cfg.RefreshDebounce, logger)
	if err != nil {
		logger.Fatalf("initialise key store: %v", err)
	}
	defer func() {
		if err := keyStore.Close(); err != nil {
			logger.Printf("error closing key store: %v", err)
		}
	}()

	service := detection.NewService(cfg.Languages, audio.NewDecoder(cfg.ScratchDir), logger)
	guard := auth.Guard{Validator: keyStore, RequireHeader: cfg.RequireAuthHeader}

	handler := server.New(service, guard, cfg.MaxBodyBytes, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("graceful shutdown error: %v", err)
		}
	}()

	logger.Printf("listening on %s (languages: %v, strict auth: %t, scratch: %s)",
		cfg.ListenAddr, cfg.Languages, cfg.RequireAuthHeader, cfg.ScratchDir)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
	logger.Println("shutdown complete")
}
