package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erp/productsync/internal/interfaces/http/dto"
)

const healthPingTimeout = 2 * time.Second

// DatabasePinger reports database reachability
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	BaseHandler
	db      DatabasePinger
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db DatabasePinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// Health godoc
// @ID           health
// @Summary      Service health
// @Description  Answers 503 when the database cannot be reached
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Failure      503 {object} dto.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:    "ok",
		Database:  "up",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if h.db == nil || h.db.PingContext(ctx) != nil {
		resp.Status = "degraded"
		resp.Database = "down"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	h.OK(c, resp)
}
