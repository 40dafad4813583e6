package service

import (
	"encoding/json"
	"strings"
)

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

type streamDelta struct {
	Role             string  `json:"role,omitempty"`
	Content          string  `json:"content,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type rawStreamChunk struct {
	Choices []struct {
		Delta        streamDelta `json:"delta"`
		FinishReason *string     `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

func decodeChunk(data []byte) (*rawStreamChunk, error) {
	var raw rawStreamChunk
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// OpenAIStreamChunkParser parses standard OpenAI-format streaming chunks
type OpenAIStreamChunkParser struct{}

// ParseChunk converts a standard chunk to a StreamChunk
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	raw, err := decodeChunk(data)
	if err != nil {
		return nil, err
	}
	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		chunk.Role = c.Delta.Role
		chunk.Content = c.Delta.Content
		chunk.Done = c.FinishReason != nil && *c.FinishReason != ""
	}
	return chunk, nil
}

// ReasoningStreamChunkParser also surfaces reasoning_content (NVIDIA, DeepSeek)
type ReasoningStreamChunkParser struct{}

// ParseChunk converts a reasoning-model chunk to a StreamChunk
func (p *ReasoningStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	raw, err := decodeChunk(data)
	if err != nil {
		return nil, err
	}
	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		chunk.Role = c.Delta.Role
		chunk.Content = c.Delta.Content
		if c.Delta.ReasoningContent != nil {
			chunk.ThinkingContent = *c.Delta.ReasoningContent
		}
		chunk.Done = c.FinishReason != nil && *c.FinishReason != ""
	}
	return chunk, nil
}

// ChunkParserFor picks the parser matching the provider behind baseURL.
func ChunkParserFor(baseURL string) StreamChunkParser {
	switch {
	case IsNVIDIAProvider(baseURL), strings.Contains(baseURL, "deepseek"):
		return &ReasoningStreamChunkParser{}
	default:
		return &OpenAIStreamChunkParser{}
	}
}

// IsNVIDIAProvider checks if the base URL is the NVIDIA API
func IsNVIDIAProvider(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://integrate.api.nvidia.com")
}

// IsOpenAIProvider checks if the base URL is the official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}
