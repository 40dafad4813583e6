package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyassist/internal/avatar"
	"realtyassist/internal/model"
)

// AvatarHandler exposes the avatar speech queue
type AvatarHandler struct {
	queue *avatar.Queue
}

// NewAvatarHandler creates a new avatar handler
func NewAvatarHandler(queue *avatar.Queue) *AvatarHandler {
	return &AvatarHandler{queue: queue}
}

// Speak handles POST /api/avatar/speak
func (h *AvatarHandler) Speak(c *gin.Context) {
	var req model.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	switch err := h.queue.Enqueue(req.Text); {
	case err == nil:
		c.JSON(http.StatusAccepted, h.queue.Status())
	case errors.Is(err, avatar.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, avatar.ErrQueueFull):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	}
}

// Event handles POST /api/avatar/events
func (h *AvatarHandler) Event(c *gin.Context) {
	var req model.AvatarEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.queue.HandleEvent(req.Type, req.Message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.queue.Status())
}

// Status handles GET /api/avatar/status
func (h *AvatarHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Status())
}
