package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_ChatCompletionAppliesDefaults(t *testing.T) {
	var got ChatCompletionRequest
	client, cfg := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		respondJSON(w, completionBody("hello"))
	})
	cfg.ChatTemperature = 0.5
	cfg.ChatMaxTokens = 300

	resp, err := client.ChatCompletion(t.Context(), ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	content, err := resp.Content()
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 0.5, got.Temperature)
	assert.Equal(t, 300, got.MaxTokens)
	assert.False(t, got.Stream)
}

func TestOpenAIClient_APIError(t *testing.T) {
	client, _ := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.ChatCompletion(t.Context(), ChatCompletionRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestOpenAIClient_Disabled(t *testing.T) {
	client, cfg := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg.Enabled = false

	_, err := client.ChatCompletion(t.Context(), ChatCompletionRequest{})
	assert.ErrorIs(t, err, ErrAIDisabled)
	assert.ErrorIs(t, client.ChatCompletionStream(t.Context(), ChatCompletionRequest{}, nil), ErrAIDisabled)
	_, err = client.CreateEmbeddings(t.Context(), []string{"x"})
	assert.ErrorIs(t, err, ErrAIDisabled)
}

func TestOpenAIClient_ChatCompletionStream(t *testing.T) {
	client, _ := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.True(t, req.Stream)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Two ", "condos ", "match."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var sb strings.Builder
	done := false
	err := client.ChatCompletionStream(t.Context(), ChatCompletionRequest{}, func(c *StreamChunk) error {
		sb.WriteString(c.Content)
		done = done || c.Done
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Two condos match.", sb.String())
	assert.True(t, done)
}

func TestOpenAIClient_CreateEmbeddings(t *testing.T) {
	client, cfg := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		respondJSON(w, map[string]any{
			"model": "emb",
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	})
	cfg.EmbeddingModel = "emb"

	got, err := client.CreateEmbeddings(t.Context(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)

	empty, err := client.CreateEmbeddings(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChunkParsers(t *testing.T) {
	data := []byte(`{"choices":[{"delta":{"role":"assistant","content":"hi","reasoning_content":"thinking"}}]}`)

	std, err := ChunkParserFor("https://api.openai.com/v1").ParseChunk(data)
	require.NoError(t, err)
	assert.Equal(t, "hi", std.Content)
	assert.Empty(t, std.ThinkingContent)

	reasoning, err := ChunkParserFor("https://integrate.api.nvidia.com/v1").ParseChunk(data)
	require.NoError(t, err)
	assert.Equal(t, "hi", reasoning.Content)
	assert.Equal(t, "thinking", reasoning.ThinkingContent)
	assert.Equal(t, "assistant", reasoning.Role)
	assert.False(t, reasoning.Done)

	_, err = (&OpenAIStreamChunkParser{}).ParseChunk([]byte("{"))
	assert.Error(t, err)
}
