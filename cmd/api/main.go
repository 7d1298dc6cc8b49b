package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"lec-market/internal/api"
	"lec-market/internal/config"
	"lec-market/internal/data"
	"lec-market/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	log, err := logger.New(config.LogConfig{
		Level:    os.Getenv("LOG_LEVEL"),
		Encoding: os.Getenv("LOG_ENCODING"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	storageDir := os.Getenv("STORAGE_DIR")
	if storageDir == "" {
		storageDir = filepath.Join("examples", "storage")
	}
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	ttl := data.DefaultRunTTL
	if v := os.Getenv("RUN_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal("invalid RUN_CACHE_TTL", zap.String("value", v), zap.Error(err))
		}
		ttl = d
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := data.NewRunCache(ttl)
	go cache.Cleanup(ctx, time.Minute)

	router := api.NewRouter(api.Options{
		Cache:          cache,
		Logger:         log,
		StorageDir:     storageDir,
		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		StaticDir:      staticDir,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting API server",
		zap.String("addr", srv.Addr),
		zap.String("storage_dir", storageDir),
		zap.Duration("run_ttl", ttl),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
