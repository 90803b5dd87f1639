package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aasx-facility-backend/internal/converter"
)

type convertRequest struct {
	Path     string `json:"path" binding:"required"`
	LinkName string `json:"linkName"`
	Format   string `json:"format" binding:"required,oneof=aas aasx"`
}

type deleteFilesRequest struct {
	Paths []string `json:"paths" binding:"required,min=1"`
}

func converterError(c *gin.Context, err error) {
	if errors.Is(err, converter.ErrNotConfigured) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	log.Printf("Error calling converter: %v", err)
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

// ConvertFile handles POST /api/files/convert.
func (h *Handler) ConvertFile(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var err error
	if req.Format == "aasx" {
		err = h.converter.CreateAASX(c.Request.Context(), req.Path)
	} else {
		err = h.converter.CreateAAS(c.Request.Context(), req.Path, req.LinkName)
	}
	if err != nil {
		converterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": req.Path, "format": req.Format})
}

// DeleteFiles handles DELETE /api/files.
func (h *Handler) DeleteFiles(c *gin.Context) {
	var req deleteFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.converter.DeleteFiles(c.Request.Context(), req.Paths); err != nil {
		converterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(req.Paths)})
}
