package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/littlebee/portalbot/internal/catalog"
	"github.com/littlebee/portalbot/internal/config"
	"github.com/littlebee/portalbot/internal/engine"
	"github.com/littlebee/portalbot/internal/health"
	"github.com/littlebee/portalbot/internal/logging"
	"github.com/littlebee/portalbot/internal/middleware"
	"github.com/littlebee/portalbot/internal/ratelimit"
	"github.com/littlebee/portalbot/internal/secrets"
)

func main() {
	// Load .env file for local development; production deploys set real env vars.
	envPaths := []string{".env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("loaded environment file", "path", path)
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode, cfg.LogLevel); err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.LoadCatalog(cfg.SpaceCatalogPath)
	if err != nil {
		logging.Fatal(context.Background(), "failed to load space catalog", zap.Error(err))
	}

	store, err := secrets.LoadStore(cfg.RobotSecretsDir)
	if err != nil {
		logging.Fatal(context.Background(), "failed to load robot secrets", zap.Error(err))
	}

	eng := engine.New(cat, store)

	limiter, err := ratelimit.New(cfg.RateLimitWsConnect)
	if err != nil {
		logging.Fatal(context.Background(), "failed to configure rate limiter", zap.Error(err))
	}

	hub := engine.NewHub(eng, limiter, cfg.AllowedOrigins)
	healthHandler := health.NewHandler(eng)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitOrigins(cfg.AllowedOrigins)
	router.Use(cors.New(corsConfig))
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	router.GET("/ws", hub.ServeWs)
	router.GET("/health", healthHandler.Check)
	router.GET("/spaces", func(c *gin.Context) {
		c.JSON(http.StatusOK, cat.ToResponse())
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	staticDir := cfg.StaticAssetsDir
	router.NoRoute(func(c *gin.Context) {
		requestPath := c.Request.URL.Path
		if filepath.Ext(requestPath) != "" {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("portalbot signaling server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exiting")
}

func splitOrigins(csv string) []string {
	origins := []string{}
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				origins = append(origins, csv[start:i])
			}
			start = i + 1
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
