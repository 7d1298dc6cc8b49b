package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lec-market/internal/api/handlers"
	"lec-market/internal/api/middleware"
	"lec-market/internal/data"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Cache          *data.RunCache
	Logger         *zap.Logger
	StorageDir     string
	AllowedOrigins []string
	// StaticDir holds a built web client. Skipped when it does not exist.
	StaticDir string
}

// NewRouter wires every route. Middleware order: recovery, CORS, logging.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := opts.Cache
	if cache == nil {
		cache = data.NewRunCache(data.DefaultRunTTL)
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins...))
	router.Use(middleware.Logger(logger))

	simulationHandler := handlers.NewSimulationHandler(cache, logger)
	rankHandler := handlers.NewRankHandler(cache)
	agentTypeHandler := handlers.NewAgentTypeHandler()
	storageHandler := handlers.NewStorageHandler(opts.StorageDir, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_runs": cache.Len()})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/simulations", simulationHandler.RunSimulation)
		v1.GET("/simulations/:id", simulationHandler.GetSimulation)
		v1.GET("/simulations/:id/records", simulationHandler.GetRecords)
		v1.GET("/simulations/:id/clearing", simulationHandler.GetClearing)
		v1.GET("/simulations/:id/rank", rankHandler.RankAgents)
		v1.DELETE("/simulations/:id", simulationHandler.DeleteSimulation)

		v1.GET("/agent-types", agentTypeHandler.ListAgentTypes)
		v1.GET("/storage-presets", storageHandler.ListPresets)
	}

	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	}
	if info, err := os.Stat(opts.StaticDir); opts.StaticDir != "" && err == nil && info.IsDir() {
		router.Static("/assets", filepath.Join(opts.StaticDir, "assets"))
		router.StaticFile("/favicon.ico", filepath.Join(opts.StaticDir, "favicon.ico"))
		index := filepath.Join(opts.StaticDir, "index.html")

		// SPA routing: every non-API path serves index.html.
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				notFound(c)
				return
			}
			c.File(index)
		})
		logger.Info("serving static files", zap.String("dir", opts.StaticDir))
	} else {
		router.NoRoute(notFound)
	}
	return router
}
