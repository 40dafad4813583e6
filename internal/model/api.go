package model

import "time"

// ChatMessage is a single transcript entry
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest carries the conversation so far
type ChatRequest struct {
	Messages  []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	SessionID string        `json:"sessionId,omitempty"`
}

// ChatResponse is the chat endpoint reply
type ChatResponse struct {
	Reply       string        `json:"reply"`
	Listings    []Listing     `json:"listings"`
	HasListings bool          `json:"hasListings"`
	Filter      *SearchFilter `json:"filter,omitempty"`
	ChatID      string        `json:"chatId,omitempty"`
}

// ListingsQuery is the listings endpoint input after parameter binding
type ListingsQuery struct {
	Filter SearchFilter
	Search string // free text over title, address, description and features
	Limit  int
}

// ListingsResponse is the listings endpoint reply
type ListingsResponse struct {
	Success     bool      `json:"success"`
	Count       int       `json:"count"`
	Listings    []Listing `json:"listings"`
	Source      string    `json:"source"` // "live" or "fallback"
	Message     string    `json:"message,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Listings sources
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required,min=1,dive"`
}

// EmbeddingItem represents a single embedding for one listing
type EmbeddingItem struct {
	ListingID string    `json:"listingId" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required,min=1"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// FeedbackRequest represents a user action on a listing shown in chat
type FeedbackRequest struct {
	ChatID    string `json:"chatId" binding:"required"`
	ListingID string `json:"listingId" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=click contact view_details"`
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SpeakRequest asks the avatar to say something
type SpeakRequest struct {
	Text string `json:"text" binding:"required"`
}

// AvatarEvent is a lifecycle notification from the avatar widget
type AvatarEvent struct {
	Type    string `json:"type" binding:"required,oneof=ready speaking finished error"`
	Message string `json:"message,omitempty"`
}
