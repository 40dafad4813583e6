package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyassist/internal/model"
	"realtyassist/internal/service"
)

// FeedbackHandler records what users do with listings shown in chat
type FeedbackHandler struct {
	listingsService *service.ListingsService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(listingsService *service.ListingsService) *FeedbackHandler {
	return &FeedbackHandler{listingsService: listingsService}
}

// Submit handles POST /api/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: action must be one of click, contact, view_details"})
		return
	}

	err := h.listingsService.LogFeedback(c.Request.Context(), req)
	if errors.Is(err, service.ErrNoRepository) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
