package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"aasx-facility-backend/config"
	"aasx-facility-backend/internal/metrics"
	"aasx-facility-backend/internal/mw"
	"aasx-facility-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(cacheStore))
	{
		facility := api.Group("/facility")

		facility.GET("/factories", caching, handler.GetFactories)
		facility.GET("/tree", caching, handler.GetTree)
		facility.GET("/factories/:id/groups", caching, handler.GetFacilityGroups)
		facility.GET("/groups/:id/facilities", caching, handler.GetFacilities)
		facility.GET("/facilities/:id/sensors", caching, handler.GetSensors)

		facility.POST("/factories", handler.CreateNode(store.LevelFactory))
		facility.POST("/groups", handler.CreateNode(store.LevelFacilityGroup))
		facility.POST("/facilities", handler.CreateNode(store.LevelFacility))
		facility.POST("/sensors", handler.CreateNode(store.LevelSensor))

		facility.POST("/factories/delete", handler.DeleteNodes(store.LevelFactory))
		facility.POST("/groups/delete", handler.DeleteNodes(store.LevelFacilityGroup))
		facility.POST("/facilities/delete", handler.DeleteNodes(store.LevelFacility))
		facility.POST("/sensors/delete", handler.DeleteNodes(store.LevelSensor))

		facility.POST("/synchronize", handler.Synchronize)
		facility.GET("/synchronize", handler.GetSyncStatus)

		api.GET("/edge-gateways", handler.GetEdgeGateways)

		api.POST("/files/convert", handler.ConvertFile)
		api.DELETE("/files", handler.DeleteFiles)
	}

	return r
}
