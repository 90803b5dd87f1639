package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetEdgeGateways handles GET /api/edge-gateways. With refresh=true every
// gateway is probed before answering.
func (h *Handler) GetEdgeGateways(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("refresh") == "true" {
		if err := h.gateways.CheckAll(ctx); err != nil {
			log.Printf("Warning: gateway refresh failed: %v", err)
		}
	}

	statuses, err := h.gateways.Statuses(ctx)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}
