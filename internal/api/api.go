package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/api/handlers"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/api/middleware"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/drive"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/pipeline"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/service"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/storage"
)

// Services are the dependencies of the router. Only Ingestion and Planning
// are required.
type Services struct {
	Ingestion *service.IngestionService
	Planning  *service.PlanningService
	Sync      *service.SyncService
	Runner    handlers.Runner
	Runs      *pipeline.Tracker
	Intake    storage.ObjectStorage
	Drive     *drive.Handler
	TempDir   string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	apiGroup := router.Group("/api/v1")

	if services == nil {
		return router
	}

	if services.Ingestion != nil {
		ingestHandler := handlers.NewIngestHandler(services.Ingestion, services.Sync, services.Runner, services.Runs, services.Intake, services.TempDir)
		apiGroup.POST("/upload/:type", ingestHandler.Upload)
		apiGroup.POST("/uploads/batch", ingestHandler.UploadBatch)
		apiGroup.POST("/preview/:type", ingestHandler.Preview)
		apiGroup.POST("/sync/:type", ingestHandler.Sync)
		apiGroup.POST("/storage/ingest", ingestHandler.IngestStorage)

		runsGroup := apiGroup.Group("/runs")
		{
			runsGroup.GET("", ingestHandler.ListRuns)
			runsGroup.GET("/:id", ingestHandler.GetRun)
		}
	}

	if services.Planning != nil {
		planningHandler := handlers.NewPlanningHandler(services.Planning)
		apiGroup.GET("/uploads", planningHandler.ListUploads)
		apiGroup.GET("/stats", planningHandler.GetStats)
		apiGroup.GET("/system/status", planningHandler.GetStatus)
		apiGroup.GET("/maestro", planningHandler.ListMasters)
		apiGroup.GET("/demanda", planningHandler.ListDemand)
		apiGroup.GET("/movimientos", planningHandler.ListMovements)

		projectionGroup := apiGroup.Group("/projection")
		{
			projectionGroup.GET("/:sku", planningHandler.GetProjection)
		}
		apiGroup.GET("/alerts", planningHandler.GetAlerts)

		safetyGroup := apiGroup.Group("/safety-stock")
		{
			safetyGroup.GET("", planningHandler.ListSafetyStocks)
			safetyGroup.GET("/:sku", planningHandler.GetSafetyStock)
		}
	}

	if services.Drive != nil {
		services.Drive.RegisterRoutes(apiGroup)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
