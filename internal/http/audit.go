package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/knowledgehub/internal/audit"
	auditRepo "github.com/mrlokans/knowledgehub/internal/database/audit"
	"github.com/mrlokans/knowledgehub/internal/entities"
)

type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetEvents returns paginated import audit events as JSON
// GET /api/import/audit?source=&status=&client_request_id=&page=&limit=
func (ac *AuditController) GetEvents(c *gin.Context) {
	page := queryInt(c, "page", 1, 0)
	limit := queryInt(c, "limit", 25, 100)

	filter := auditRepo.Filter{
		Source:          c.Query("source"),
		Status:          entities.AuditStatus(c.Query("status")),
		ClientRequestID: c.Query("client_request_id"),
	}

	events, total, err := ac.auditService.GetEvents(filter, limit, (page-1)*limit)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}

// GetEvent returns the audit record of one preview request.
// GET /api/import/audit/requests/:request_id
func (ac *AuditController) GetEvent(c *gin.Context) {
	event, err := ac.auditService.GetEvent(c.Param("request_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "audit event")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get audit event")
		return
	}
	c.JSON(http.StatusOK, event)
}

// Summary counts preview outcomes per source.
// GET /api/import/audit/summary?hours=24
func (ac *AuditController) Summary(c *gin.Context) {
	hours := queryInt(c, "hours", 24, 24*90)

	counts, err := ac.auditService.Summary(time.Duration(hours) * time.Hour)
	if err != nil {
		respondInternalError(c, err, "audit summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hours":    hours,
		"outcomes": counts,
	})
}
