package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyassist/internal/config"
	"realtyassist/internal/logger"
	"realtyassist/internal/metrics"
	"realtyassist/internal/model"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":    "cmpl-1",
		"model": "test-model",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
}

func newFakeLLM(t *testing.T, handler http.HandlerFunc) (*OpenAIClient, *config.OpenAIConfig) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.OpenAIConfig{
		APIKey:            "test-key",
		APIBase:           srv.URL,
		ChatModel:         "test-model",
		Timeout:           5,
		ExtractionTimeout: 100 * time.Millisecond,
		AIExtraction:      true,
		Enabled:           true,
	}
	return NewOpenAIClient(cfg, logger.NewTestLogger(t)), cfg
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestIntentParser_AIPath(t *testing.T) {
	var gotAuth string
	var gotReq ChatCompletionRequest
	client, cfg := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		respondJSON(w, completionBody("```json\n{\"propertyCategory\": \"residential\", \"location\": \"north york\", \"beds\": 2, \"propertySubType\": \"Condominium\"}\n```"))
	})

	parser := NewIntentParser(client, cfg, logger.NewTestLogger(t))
	filter, path := parser.Parse(t.Context(), "two bed condo up in north york")

	assert.Equal(t, metrics.PathAI, path)
	assert.Equal(t, "Bearer test-key", gotAuth)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	assert.Equal(t, model.SearchFilter{
		PropertyCategory: model.CategoryResidential,
		Location:         model.Ptr("North York"),
		Beds:             model.Ptr(2),
		PropertySubType:  model.Ptr("condo"),
	}, filter)
}

func TestIntentParser_FallsBack(t *testing.T) {
	const text = "condos in Toronto under $2 million"

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
					return
				}
				respondJSON(w, completionBody(`{"propertyCategory": "commercial"}`))
			},
		},
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
			},
		},
		{
			name: "unparsable content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respondJSON(w, completionBody("Sorry, I can only help with real estate."))
			},
		},
		{
			name: "invalid sub-type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respondJSON(w, completionBody(`{"propertyCategory": "residential", "propertySubType": "castle"}`))
			},
		},
		{
			name: "schema mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respondJSON(w, completionBody(`{"propertyCategory": "residential", "beds": "two"}`))
			},
		},
		{
			name: "inverted price range",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respondJSON(w, completionBody(`{"minPrice": 3000000, "maxPrice": 1000000}`))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respondJSON(w, map[string]any{"choices": []any{}})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cfg := newFakeLLM(t, tt.handler)
			parser := NewIntentParser(client, cfg, logger.NewTestLogger(t))

			start := time.Now()
			filter, path := parser.Parse(t.Context(), text)

			assert.Equal(t, metrics.PathFallback, path)
			assert.Equal(t, Extract(text), filter)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestIntentParser_TimeoutError(t *testing.T) {
	release := make(chan struct{})
	client, cfg := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })
	parser := NewIntentParser(client, cfg, logger.NewTestLogger(t))

	_, err := parser.parseWithTimeout(t.Context(), "condo")
	assert.ErrorIs(t, err, ErrAITimeout)
}

func TestIntentParser_RulesPath(t *testing.T) {
	t.Run("no client", func(t *testing.T) {
		parser := NewIntentParser(nil, &config.OpenAIConfig{AIExtraction: true}, logger.NewNop())
		filter, path := parser.Parse(t.Context(), "houses over 800k in Mississauga")
		assert.Equal(t, metrics.PathRules, path)
		assert.Equal(t, Extract("houses over 800k in Mississauga"), filter)
	})

	t.Run("AI extraction switched off", func(t *testing.T) {
		called := false
		client, cfg := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})
		cfg.AIExtraction = false
		parser := NewIntentParser(client, cfg, logger.NewTestLogger(t))

		_, path := parser.Parse(t.Context(), "3 bedroom house")
		assert.Equal(t, metrics.PathRules, path)
		assert.False(t, called)
	})

	t.Run("client disabled", func(t *testing.T) {
		client, cfg := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {})
		cfg.Enabled = false
		parser := NewIntentParser(client, cfg, logger.NewTestLogger(t))

		_, path := parser.Parse(t.Context(), "3 bedroom house")
		assert.Equal(t, metrics.PathRules, path)
	})
}

func TestIntentParser_IsSearchIntent(t *testing.T) {
	parser := NewIntentParser(nil, nil, logger.NewNop())
	assert.True(t, parser.IsSearchIntent("any listings in Ajax?"))
	assert.False(t, parser.IsSearchIntent("good morning"))
}

func TestValidateFilterJSON(t *testing.T) {
	assert.NoError(t, validateFilterJSON([]byte(`{"location": "Toronto", "maxPrice": 900000, "beds": null}`)))
	assert.NoError(t, validateFilterJSON([]byte(`{"propertyCategory": "residential", "note": "extra fields are ignored"}`)))
	assert.Error(t, validateFilterJSON([]byte(`["condo"]`)))
	assert.Error(t, validateFilterJSON([]byte(`{"maxPrice": "900k"}`)))
	assert.Error(t, validateFilterJSON([]byte(`{"baths": 1.5}`)))
}
