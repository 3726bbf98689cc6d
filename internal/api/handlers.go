package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/modelaudit/modelaudit/internal/integrations"
)

// Handler serves the read-only observability surface over the registered
// integrations
type Handler struct {
	manager *integrations.Manager
}

// NewHandler creates a new API handler
func NewHandler(manager *integrations.Manager) *Handler {
	return &Handler{manager: manager}
}

// GetHealth reports overall service health
func (h *Handler) GetHealth(c *gin.Context) {
	stats := h.manager.Stats()

	status := "ok"
	if err := h.manager.Health(); err != nil {
		status = "unavailable"
	}

	payload := gin.H{
		"status":       status,
		"integrations": stats.Integrations,
		"uptime":       stats.Uptime.String(),
		"checked_at":   time.Now(),
	}

	if status != "ok" {
		c.JSON(http.StatusServiceUnavailable, payload)
		return
	}
	SuccessResponse(c, payload)
}

// GetIntegrationHealth reports the health of a single integration
func (h *Handler) GetIntegrationHealth(c *gin.Context) {
	adapter, err := h.manager.Get(c.Param("name"))
	if err != nil {
		ErrorResponseFromError(c, err)
		return
	}

	SuccessResponse(c, adapter.Health())
}

// ListIntegrations returns the registered integrations with their recorded
// health bookkeeping
func (h *Handler) ListIntegrations(c *gin.Context) {
	SuccessResponse(c, h.manager.Stats())
}

// ListIntegrationProbes returns the probes one integration offers
func (h *Handler) ListIntegrationProbes(c *gin.Context) {
	adapter, err := h.manager.Get(c.Param("name"))
	if err != nil {
		ErrorResponseFromError(c, err)
		return
	}

	probeIDs, err := adapter.ListProbes(c.Request.Context())
	if err != nil {
		ErrorResponseFromError(c, err)
		return
	}

	SuccessResponse(c, gin.H{
		"integration": adapter.Name(),
		"probes":      probeIDs,
	})
}

// GetProbeInfo returns descriptive metadata for one probe
func (h *Handler) GetProbeInfo(c *gin.Context) {
	adapter, err := h.manager.Get(c.Param("name"))
	if err != nil {
		ErrorResponseFromError(c, err)
		return
	}

	info, err := adapter.GetProbeInfo(c.Request.Context(), c.Param("probe_id"))
	if err != nil {
		ErrorResponseFromError(c, err)
		return
	}

	SuccessResponse(c, info)
}

// GetIntegrationMetrics returns execution statistics for one integration
func (h *Handler) GetIntegrationMetrics(c *gin.Context) {
	adapter, err := h.manager.Get(c.Param("name"))
	if err != nil {
		ErrorResponseFromError(c, err)
		return
	}

	SuccessResponse(c, adapter.Metrics())
}
