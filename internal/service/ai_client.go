package service

import (
	"context"
	"errors"
)

var (
	// ErrAIDisabled is returned when no API key is configured
	ErrAIDisabled = errors.New("language model API is not enabled (missing API key)")
	// ErrAITimeout is returned when the model did not answer within the caller's budget
	ErrAITimeout = errors.New("language model call timed out")
	// ErrEmptyCompletion is returned when a completion has no choices
	ErrEmptyCompletion = errors.New("no choices in completion response")
)

// LLMClient is the interface for OpenAI-compatible model providers
type LLMClient interface {
	// ChatCompletion performs a single non-streaming completion
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// ChatCompletionStream invokes callback for every decoded chunk
	ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error

	// CreateEmbeddings generates embeddings for texts, in input order
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	Content string

	// Reasoning content, only sent by some providers
	ThinkingContent string

	Role string
	Done bool
}

// StreamCallback is called for each chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

// Ensure OpenAIClient implements LLMClient
var _ LLMClient = (*OpenAIClient)(nil)
