package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crowny-exchange/internal/api"
	"crowny-exchange/internal/auth"
	"crowny-exchange/internal/config"
	"crowny-exchange/internal/db"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/executor"
	"crowny-exchange/internal/gateway"
	"crowny-exchange/internal/logger"
	"crowny-exchange/internal/vault"
)

var version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides PORT env / config default)")
	host := flag.String("host", "127.0.0.1", "Host to bind to (use 0.0.0.0 to allow LAN/remote access)")
	flag.Parse()

	logger.Banner(version)

	cfg := config.Load()
	if *port != 0 {
		cfg.Port = *port
	}
	if cfg.JWTSecret == "" {
		logger.Warn("CONFIG", "JWT_SECRET not set; using an ephemeral secret, sessions won't survive a restart")
		cfg.JWTSecret = randomSecret()
	}
	if cfg.EncryptionKey == "" {
		logger.Warn("CONFIG", "ENCRYPTION_KEY not set; using an ephemeral key, stored venue credentials won't survive a restart")
		cfg.EncryptionKey = randomSecret()
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("open database: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	dex := engine.NewDEX(time.Now())

	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		logger.Error("VAULT", fmt.Sprintf("init: %v", err))
		os.Exit(1)
	}

	exec := executor.New(store, v)
	authSvc := auth.NewService(store, cfg.JWTSecret)
	gw := gateway.New(store, dex, exec, v)
	gw.StartBackground()
	defer gw.Shutdown()

	srv := api.NewServer(cfg, gw, authSvc)

	addr := fmt.Sprintf("%s:%d", *host, cfg.Port)
	logger.Server(addr)

	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("SERVER", "shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("SERVER", fmt.Sprintf("shutdown error: %v", err))
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("SERVER", fmt.Sprintf("failed: %v", err))
		os.Exit(1)
	}
	logger.Info("SERVER", "stopped")
}

// randomSecret produces a throwaway hex secret for dev runs that omit
// JWT_SECRET/ENCRYPTION_KEY; never used once either is actually configured.
func randomSecret() string {
	return fmt.Sprintf("%x-%x", time.Now().UnixNano(), os.Getpid())
}
