package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// CheckHealth reports whether the service can reach its database.
// GET /api/health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	if err := models.Ping(h.db); err != nil {
		logger.Errorf("health check: database ping failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "MeshFlow API is running"})
}
