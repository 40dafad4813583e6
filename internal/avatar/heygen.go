package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"realtyassist/internal/config"
)

// HeyGenSpeaker drives an existing HeyGen streaming avatar session
type HeyGenSpeaker struct {
	apiKey     string
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

// NewHeyGenSpeaker creates a speaker for the configured session
func NewHeyGenSpeaker(cfg config.AvatarConfig) *HeyGenSpeaker {
	return &HeyGenSpeaker{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.APIBase, "/"),
		sessionID:  cfg.SessionID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type streamingTask struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	TaskType  string `json:"task_type"`
}

type streamingStop struct {
	SessionID string `json:"session_id"`
}

// Speak asks the avatar to repeat text verbatim
func (s *HeyGenSpeaker) Speak(ctx context.Context, text string) error {
	return s.post(ctx, "/v1/streaming.task", streamingTask{
		SessionID: s.sessionID,
		Text:      text,
		TaskType:  "repeat",
	})
}

// Stop ends the streaming session
func (s *HeyGenSpeaker) Stop(ctx context.Context) error {
	return s.post(ctx, "/v1/streaming.stop", streamingStop{SessionID: s.sessionID})
}

func (s *HeyGenSpeaker) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HeyGen %s failed with status %d: %s", path, resp.StatusCode, string(msg))
	}
	return nil
}
