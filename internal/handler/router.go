package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"realtyassist/internal/logger"
	"realtyassist/internal/middleware"
)

// BuildInfo is reported by /health and /version
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// Handlers groups the API handlers. Avatar is nil when no avatar is configured.
type Handlers struct {
	Chat      *ChatHandler
	Listings  *ListingsHandler
	Embedding *EmbeddingHandler
	Feedback  *FeedbackHandler
	Avatar    *AvatarHandler
}

// RouterOptions configures the engine around the handlers
type RouterOptions struct {
	AllowedOrigins []string
	RateLimiter    *middleware.IPRateLimiter
	Build          BuildInfo
	// Ping checks the database for /health; nil when there is none
	Ping func(ctx context.Context) error
	Log  logger.Logger
}

// NewRouter builds the gin engine with middleware and every API route
func NewRouter(opts RouterOptions, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(opts.Log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = opts.AllowedOrigins
	if len(opts.AllowedOrigins) == 0 || opts.AllowedOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", middleware.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{middleware.HeaderRequestID}
	router.Use(cors.New(corsConfig))

	router.GET("/health", health(opts))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    opts.Build.Version,
			"build_time": opts.Build.BuildTime,
			"git_commit": opts.Build.GitCommit,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		chat := api.Group("/chat")
		if opts.RateLimiter != nil {
			chat.Use(opts.RateLimiter.RateLimit())
		}
		chat.POST("", h.Chat.Chat)
		chat.POST("/stream", h.Chat.ChatStream)

		api.GET("/listings", h.Listings.List)
		api.GET("/listings/:id", h.Listings.GetListing)
		api.POST("/listings/embeddings", h.Embedding.BatchUpdate)

		api.POST("/feedback", h.Feedback.Submit)

		if h.Avatar != nil {
			api.POST("/avatar/speak", h.Avatar.Speak)
			api.POST("/avatar/events", h.Avatar.Event)
			api.GET("/avatar/status", h.Avatar.Status)
		}
	}

	return router
}

func health(opts RouterOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":     "healthy",
			"service":    "realty-assistant",
			"version":    opts.Build.Version,
			"build_time": opts.Build.BuildTime,
			"git_commit": opts.Build.GitCommit,
		}
		if opts.Ping == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := opts.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
		c.JSON(http.StatusOK, body)
	}
}
