package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/kpi-import/internal/api/handlers"
	"github.com/pulseboard/kpi-import/internal/api/middleware"
	"github.com/pulseboard/kpi-import/internal/catalog"
	"github.com/pulseboard/kpi-import/internal/config"
	"github.com/pulseboard/kpi-import/internal/ingest"
	"github.com/pulseboard/kpi-import/internal/kpi"
	"github.com/pulseboard/kpi-import/internal/repository"
	"github.com/pulseboard/kpi-import/pkg/auth"
)

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.StructuredLogging())

	// Health check (no auth required)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "kpi-import",
		})
	})

	// Initialize repositories
	fieldRepo := repository.NewDataFieldRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	entryRepo := repository.NewEntryRepository(pool)
	kpiRepo := repository.NewKPIRepository(pool)

	// Initialize the import pipeline over its collaborators
	catalogStore := catalog.NewStore(fieldRepo, roomRepo)
	recalc := kpi.NewRecalculator(kpiRepo, cfg.Import.RecomputeTimeout)
	pipeline := ingest.NewPipeline(catalogStore, entryRepo, recalc)

	// Initialize handlers
	importHandler := handlers.NewImportHandler(pipeline, cfg)
	catalogHandler := handlers.NewCatalogHandler(fieldRepo, roomRepo, kpiRepo)

	// API v1 routes (authenticated)
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		// Imports mutate the catalog — require admin or analyst role
		v1.POST("/data-fields/import",
			middleware.RequireRole("admin", "analyst"),
			importHandler.HandleImport,
		)
		v1.POST("/data-fields/import/preview",
			middleware.RequireRole("admin", "analyst"),
			importHandler.HandlePreview,
		)
		v1.GET("/data-fields/import/template",
			middleware.RequireRole("admin", "analyst", "viewer"),
			importHandler.HandleTemplate,
		)

		// Catalog views — all authenticated roles can read
		v1.GET("/data-fields",
			middleware.RequireRole("admin", "analyst", "viewer"),
			catalogHandler.HandleListFields,
		)
		v1.GET("/rooms",
			middleware.RequireRole("admin", "analyst", "viewer"),
			catalogHandler.HandleListRooms,
		)
		v1.GET("/kpis",
			middleware.RequireRole("admin", "analyst", "viewer"),
			catalogHandler.HandleListKPIs,
		)
	}

	// Token generation endpoint (dev only — generates test JWTs)
	r.POST("/dev/token", devTokenHandler(cfg))

	return r
}

// devTokenHandler returns a handler that generates test JWTs for development.
func devTokenHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			OrgID  string `json:"org_id"`
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request"})
			return
		}

		orgID, err := uuid.Parse(req.OrgID)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid org_id"})
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid user_id"})
			return
		}
		if req.Role == "" {
			req.Role = "admin"
		}

		token, err := auth.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, orgID, userID, req.Role, cfg.JWT.ExpiryHours)
		if err != nil {
			c.JSON(500, gin.H{"error": "failed to generate token"})
			return
		}

		c.JSON(200, gin.H{"token": token})
	}
}
