package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/knowledgehub/internal/audit"
	"github.com/mrlokans/knowledgehub/internal/database"
	"github.com/mrlokans/knowledgehub/internal/importers"
)

// RouterConfig contains the dependencies needed to build the router.
// Database and AuditService are optional; without them the audit routes
// are not registered and previews are not recorded.
type RouterConfig struct {
	Importer     *importers.Service
	AuditService *audit.Service
	Database     *database.Database
	Version      string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(RequestIDMiddleware())

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	importController := NewImportController(cfg.Importer, cfg.AuditService)
	api := router.Group("/api/import")
	api.POST("", importController.Preview)
	api.GET("/sources", importController.Sources)

	if cfg.AuditService != nil {
		auditController := NewAuditController(cfg.AuditService)
		api.GET("/audit", auditController.GetEvents)
		api.GET("/audit/summary", auditController.Summary)
		api.GET("/audit/requests/:request_id", auditController.GetEvent)
	}

	return router
}
