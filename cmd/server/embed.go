//go:build embed

package main

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyassist/internal/logger"
)

//go:embed web/dist
var webDist embed.FS

// setupStaticFiles serves the embedded chat widget build. Unknown paths fall
// back to index.html for client side routing.
func setupStaticFiles(router *gin.Engine, log logger.Logger) {
	distFS, err := fs.Sub(webDist, "web/dist")
	if err != nil {
		fatal(log, "failed to open embedded frontend", err)
	}
	log.Info("serving embedded frontend assets", nil)

	router.NoRoute(func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if strings.HasPrefix(urlPath, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}

		name := strings.TrimPrefix(path.Clean(urlPath), "/")
		if name == "" {
			name = "index.html"
		}

		content, err := fs.ReadFile(distFS, name)
		if err != nil {
			name = "index.html"
			if content, err = fs.ReadFile(distFS, name); err != nil {
				c.String(http.StatusNotFound, "404 page not found")
				return
			}
		}

		contentType := mime.TypeByExtension(path.Ext(name))
		if contentType == "" {
			contentType = "text/html; charset=utf-8"
		}
		c.Data(http.StatusOK, contentType, content)
	})
}
