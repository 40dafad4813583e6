//go:build !embed

package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyassist/internal/logger"
)

// setupStaticFiles serves the chat widget from disk during development
func setupStaticFiles(router *gin.Engine, log logger.Logger) {
	log.Info("serving frontend from ./web (development mode)", map[string]interface{}{
		"hint": "run 'cd web && npm run dev' for the live-reloading widget",
	})

	router.Static("/static", "./web/static")
	router.StaticFile("/", "./web/index.html")

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Frontend is running separately",
			"dev_url": "http://localhost:3000",
		})
	})
}
