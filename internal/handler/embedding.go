package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyassist/internal/model"
	"realtyassist/internal/service"
)

// EmbeddingHandler accepts precomputed listing embeddings
type EmbeddingHandler struct {
	listingsService *service.ListingsService
	dimensions      int
}

// NewEmbeddingHandler creates a new embedding handler. Uploaded vectors must
// have exactly dimensions entries.
func NewEmbeddingHandler(listingsService *service.ListingsService, dimensions int) *EmbeddingHandler {
	return &EmbeddingHandler{
		listingsService: listingsService,
		dimensions:      dimensions,
	}
}

// BatchUpdate handles POST /api/listings/embeddings
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	for i, item := range req.Embeddings {
		if len(item.Embedding) != h.dimensions {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid embedding dimension at index %d, expected %d", i, h.dimensions),
			})
			return
		}
	}

	success, failures, err := h.listingsService.UpdateEmbeddings(c.Request.Context(), req.Embeddings)
	if errors.Is(err, service.ErrNoRepository) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update embeddings: " + err.Error()})
		return
	}

	response := model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  failures,
	}

	if len(failures) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
