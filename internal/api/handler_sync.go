package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aasx-facility-backend/internal/syncer"
)

// Synchronize handles POST /api/facility/synchronize. It blocks until the
// run has committed or rolled back.
func (h *Handler) Synchronize(c *gin.Context) {
	report, err := h.syncer.RunOnce(c.Request.Context())
	if errors.Is(err, syncer.ErrAlreadyRunning) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("Error during requested synchronization: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "synchronization failed; no changes were applied"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetSyncStatus handles GET /api/facility/synchronize.
func (h *Handler) GetSyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":    h.syncer.Running(),
		"lastReport": h.syncer.LastReport(),
	})
}
