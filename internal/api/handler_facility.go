package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aasx-facility-backend/internal/store"
)

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func companyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("company_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid company_id"})
		return 0, false
	}
	return id, true
}

func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidName):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrParentNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// GetFactories handles GET /api/facility/factories?company_id=.
func (h *Handler) GetFactories(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	factories, err := h.store.ListFactories(c.Request.Context(), company)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, factories)
}

// GetTree handles GET /api/facility/tree?company_id=.
func (h *Handler) GetTree(c *gin.Context) {
	company, ok := companyID(c)
	if !ok {
		return
	}
	tree, err := h.store.Tree(c.Request.Context(), company)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// GetFacilityGroups handles GET /api/facility/factories/:id/groups.
func (h *Handler) GetFacilityGroups(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	groups, err := h.store.ListFacilityGroups(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetFacilities handles GET /api/facility/groups/:id/facilities.
func (h *Handler) GetFacilities(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	facilities, err := h.store.ListFacilities(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, facilities)
}

// GetSensors handles GET /api/facility/facilities/:id/sensors.
func (h *Handler) GetSensors(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	sensors, err := h.store.ListSensors(c.Request.Context(), id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

type createRequest struct {
	CompanyID  int64  `json:"company_id"`
	FactoryID  int64  `json:"factory_id"`
	GroupID    int64  `json:"group_id"`
	FacilityID int64  `json:"facility_id"`
	Name       string `json:"name" binding:"required"`
}

// CreateNode handles POST /api/facility/{factories,groups,facilities,sensors}.
func (h *Handler) CreateNode(level store.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		ctx := c.Request.Context()
		var (
			id  int64
			err error
		)
		switch level {
		case store.LevelFactory:
			id, err = h.store.CreateFactory(ctx, req.CompanyID, req.Name)
		case store.LevelFacilityGroup:
			id, err = h.store.CreateFacilityGroup(ctx, req.FactoryID, req.Name)
		case store.LevelFacility:
			id, err = h.store.CreateFacility(ctx, req.GroupID, req.Name)
		default:
			id, err = h.store.CreateSensor(ctx, req.FacilityID, req.Name)
		}
		if err != nil {
			storeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

type deleteRequest struct {
	IDs       []int64 `json:"ids" binding:"required"`
	CompanyID int64   `json:"company_id"`
}

// DeleteNodes handles POST /api/facility/{level}/delete. A rejected request
// answers 409 with the result describing the protected records.
func (h *Handler) DeleteNodes(level store.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		ctx := c.Request.Context()
		var (
			result *store.DeleteResult
			err    error
		)
		switch level {
		case store.LevelFactory:
			if req.CompanyID == 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "company_id is required"})
				return
			}
			result, err = h.store.DeleteFactories(ctx, req.IDs, req.CompanyID)
		case store.LevelFacilityGroup:
			result, err = h.store.DeleteFacilityGroups(ctx, req.IDs)
		case store.LevelFacility:
			result, err = h.store.DeleteFacilities(ctx, req.IDs)
		default:
			result, err = h.store.DeleteSensors(ctx, req.IDs)
		}
		if err != nil {
			storeError(c, err)
			return
		}
		if !result.Success {
			c.AbortWithStatusJSON(http.StatusConflict, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
