package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyassist/internal/logger"
	"realtyassist/internal/middleware"
	"realtyassist/internal/model"
	"realtyassist/internal/service"
)

// ChatHandler handles the assistant chat endpoints
type ChatHandler struct {
	chatService *service.ChatService
	log         logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log.With(map[string]interface{}{"component": "chat_handler"}),
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.chatService.Reply(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChatStream handles POST /api/chat/stream - SSE streaming reply
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	_, err := h.chatService.ReplyStream(c.Request.Context(), req, func(event string, data any) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTranscript) {
			sendSSE(c, "error", gin.H{"error": err.Error()})
		} else {
			h.log.Warn("chat stream aborted", map[string]interface{}{
				"request_id": middleware.RequestIDFrom(c),
				"error":      err,
			})
			sendSSE(c, "error", gin.H{"error": "stream interrupted"})
		}
		flusher.Flush()
	}
}

func (h *ChatHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidTranscript) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.log.Error("chat failed", map[string]interface{}{
		"request_id": middleware.RequestIDFrom(c),
		"error":      err,
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat failed"})
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data == nil {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
}
