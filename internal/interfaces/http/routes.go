package http

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api/v1")
	{
		api.POST("/depots/:id/publications", handler.IngestPublication)
		api.GET("/depots/:id/instruments", handler.ActiveInstruments)
		api.GET("/depots/:id/value", handler.ValueAt)
		api.GET("/depots/:id/versions", handler.ListVersions)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
