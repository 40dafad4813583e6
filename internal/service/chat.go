package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"realtyassist/internal/config"
	"realtyassist/internal/logger"
	"realtyassist/internal/metrics"
	"realtyassist/internal/model"
	"realtyassist/internal/repository"
	"realtyassist/internal/utils"
)

const assistantPrompt = `You are an AI real estate assistant for the Greater Toronto Area.
- Be friendly and professional.
- Answer questions about buying, selling, mortgages, and legal basics.
- When listings are provided, recommend only from them and never invent properties, prices or addresses.
- Keep answers clear and concise.`

const (
	chatMaxTokens = 300
	maxHistory    = 12
	chatLogBudget = 5 * time.Second
)

// Chat reply outcomes
const (
	OutcomeLLM         = "llm"
	OutcomeSummary     = "summary"
	OutcomeSoftFailure = "soft_failure"
)

// ErrInvalidTranscript is returned when a transcript has no user message to answer
var ErrInvalidTranscript = errors.New("transcript must contain a non-empty user message")

// ChatLogger persists chat exchanges
type ChatLogger interface {
	LogChat(ctx context.Context, entry repository.ChatLog) error
}

// ChatEventCallback receives streaming chat events
type ChatEventCallback func(event string, data any) error

// ChatService answers chat transcripts, searching listings when the latest
// message asks for properties.
type ChatService struct {
	intent   *IntentParser
	listings *ListingsService
	ranker   *Ranker
	llm      LLMClient
	chatLog  ChatLogger
	agent    config.AgentConfig
	limit    int
	log      logger.Logger
}

// NewChatService creates a new chat service. llm and chatLog may be nil.
func NewChatService(
	intent *IntentParser,
	listings *ListingsService,
	ranker *Ranker,
	llm LLMClient,
	chatLog ChatLogger,
	agent config.AgentConfig,
	limit int,
	log logger.Logger,
) *ChatService {
	if limit <= 0 {
		limit = 3
	}
	return &ChatService{
		intent:   intent,
		listings: listings,
		ranker:   ranker,
		llm:      llm,
		chatLog:  chatLog,
		agent:    agent,
		limit:    limit,
		log:      log.With(map[string]interface{}{"component": "chat"}),
	}
}

// chatTurn is the per-request state shared by the plain and streaming paths
type chatTurn struct {
	id      string
	text    string
	start   time.Time
	filter  *model.SearchFilter
	path    string
	matches []model.ListingMatch
}

func (t *chatTurn) listings() []model.Listing {
	out := make([]model.Listing, len(t.matches))
	for i, m := range t.matches {
		out[i] = m.Listing
	}
	return out
}

// Reply answers the transcript. Model failures never surface as errors; the
// user gets a soft message with the agent's contact instead.
func (s *ChatService) Reply(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	turn, err := s.prepare(ctx, req.Messages)
	if err != nil {
		return nil, err
	}

	var reply, outcome string
	if !s.llmEnabled() {
		reply, outcome = s.summaryReply(turn), OutcomeSummary
	} else {
		reply, outcome = s.complete(ctx, req.Messages, turn)
	}

	metrics.ChatRepliesTotal.WithLabelValues(outcome).Inc()
	s.record(req.SessionID, turn, outcome)
	return s.response(turn, reply), nil
}

// ReplyStream answers the transcript as a stream of events: start, intent
// (search turns only), listings, thinking, delta and done.
func (s *ChatService) ReplyStream(ctx context.Context, req model.ChatRequest, callback ChatEventCallback) (*model.ChatResponse, error) {
	turn, err := s.prepare(ctx, req.Messages)
	if err != nil {
		return nil, err
	}

	if err := callback("start", map[string]any{"chatId": turn.id}); err != nil {
		return nil, err
	}
	if turn.filter != nil {
		if err := callback("intent", map[string]any{"filter": turn.filter, "path": turn.path}); err != nil {
			return nil, err
		}
	}
	listings := turn.listings()
	if err := callback("listings", map[string]any{"listings": listings, "hasListings": len(listings) > 0}); err != nil {
		return nil, err
	}

	var reply, outcome string
	if !s.llmEnabled() {
		reply, outcome = s.summaryReply(turn), OutcomeSummary
		if err := callback("delta", map[string]any{"content": reply}); err != nil {
			return nil, err
		}
	} else {
		reply, outcome, err = s.stream(ctx, req.Messages, turn, callback)
		if err != nil {
			return nil, err
		}
	}

	metrics.ChatRepliesTotal.WithLabelValues(outcome).Inc()
	s.record(req.SessionID, turn, outcome)

	resp := s.response(turn, reply)
	if err := callback("done", resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ChatService) llmEnabled() bool {
	return s.llm != nil && s.llm.IsEnabled()
}

// prepare validates the transcript and, for search requests, extracts the
// filter and fetches matching listings. Listing failures leave the turn
// without listings.
func (s *ChatService) prepare(ctx context.Context, messages []model.ChatMessage) (*chatTurn, error) {
	text := lastUserMessage(messages)
	if text == "" {
		return nil, ErrInvalidTranscript
	}

	turn := &chatTurn{id: uuid.NewString(), text: text, start: time.Now()}
	if !s.intent.IsSearchIntent(text) {
		return turn, nil
	}

	filter, path := s.intent.Parse(ctx, text)
	turn.filter, turn.path = &filter, path

	resp, err := s.listings.Search(ctx, model.ListingsQuery{Filter: filter, Limit: s.limit})
	if err != nil {
		s.log.Warn("listing search failed", map[string]interface{}{"chat_id": turn.id, "error": err})
		return turn, nil
	}
	turn.matches = s.ranker.Explain(filter, resp.Listings)
	return turn, nil
}

func (s *ChatService) complete(ctx context.Context, messages []model.ChatMessage, turn *chatTurn) (string, string) {
	resp, err := s.llm.ChatCompletion(ctx, ChatCompletionRequest{
		Messages:  s.buildMessages(messages, turn),
		MaxTokens: chatMaxTokens,
	})
	if err == nil {
		var content string
		content, err = resp.Content()
		if err == nil && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content), OutcomeLLM
		}
		if err == nil {
			err = ErrEmptyCompletion
		}
	}

	s.log.Error("chat completion failed", map[string]interface{}{"chat_id": turn.id, "error": err})
	return s.softFailure(), OutcomeSoftFailure
}

// stream forwards model deltas. A model failure is answered with the soft
// message as a final delta; only callback errors end the stream early.
func (s *ChatService) stream(ctx context.Context, messages []model.ChatMessage, turn *chatTurn, callback ChatEventCallback) (string, string, error) {
	var (
		sb    strings.Builder
		cbErr error
	)
	err := s.llm.ChatCompletionStream(ctx, ChatCompletionRequest{
		Messages:  s.buildMessages(messages, turn),
		MaxTokens: chatMaxTokens,
	}, func(chunk *StreamChunk) error {
		if chunk.ThinkingContent != "" {
			cbErr = callback("thinking", map[string]any{"content": chunk.ThinkingContent})
		}
		if cbErr == nil && chunk.Content != "" {
			sb.WriteString(chunk.Content)
			cbErr = callback("delta", map[string]any{"content": chunk.Content})
		}
		return cbErr
	})
	if cbErr != nil {
		return "", "", cbErr
	}
	if err == nil && strings.TrimSpace(sb.String()) != "" {
		return sb.String(), OutcomeLLM, nil
	}
	if err == nil {
		err = ErrEmptyCompletion
	}

	s.log.Error("chat stream failed", map[string]interface{}{"chat_id": turn.id, "error": err})
	soft := s.softFailure()
	if sb.Len() > 0 {
		soft = "\n\n" + soft
	}
	if cbErr := callback("delta", map[string]any{"content": soft}); cbErr != nil {
		return "", "", cbErr
	}
	return sb.String() + soft, OutcomeSoftFailure, nil
}

// buildMessages puts the assistant prompt and listing context ahead of the
// most recent transcript entries. Client supplied system messages are dropped.
func (s *ChatService) buildMessages(messages []model.ChatMessage, turn *chatTurn) []ChatMessage {
	out := []ChatMessage{{Role: "system", Content: assistantPrompt}}
	if turn.filter != nil {
		out = append(out, ChatMessage{Role: "system", Content: s.listingContext(turn.matches)})
	}

	var history []ChatMessage
	for _, m := range messages {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		if content := strings.TrimSpace(m.Content); content != "" {
			history = append(history, ChatMessage{Role: m.Role, Content: content})
		}
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return append(out, history...)
}

func (s *ChatService) listingContext(matches []model.ListingMatch) string {
	if len(matches) == 0 {
		return fmt.Sprintf("No listings currently match the user's request. Say so briefly and offer to connect them with %s.", s.agentName())
	}

	var sb strings.Builder
	sb.WriteString("Listings matching the user's request (recommend only from these):\n")
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. %s (matched: %s)\n", i+1, describeListing(m.Listing), strings.Join(m.MatchedReasons, ", "))
	}
	return sb.String()
}

func (s *ChatService) summaryReply(turn *chatTurn) string {
	if turn.filter == nil {
		return `I can help you find homes and commercial properties around Toronto, and answer questions about buying, selling and mortgages. Try something like "2 bedroom condo in Toronto under $900k".`
	}
	if len(turn.matches) == 0 {
		return "I couldn't find any listings matching that right now. " + s.contactLine()
	}

	var sb strings.Builder
	if len(turn.matches) == 1 {
		sb.WriteString("Here is a listing that matches what you're looking for:\n")
	} else {
		fmt.Fprintf(&sb, "Here are %d listings that match what you're looking for:\n", len(turn.matches))
	}
	for _, m := range turn.matches {
		sb.WriteString("- " + describeListing(m.Listing) + "\n")
	}
	sb.WriteString("Would you like more details on any of these?")
	return sb.String()
}

func (s *ChatService) softFailure() string {
	return "Sorry, I'm having trouble answering right now. " + s.contactLine()
}

func (s *ChatService) contactLine() string {
	line := "Please contact " + s.agentName()
	if s.agent.Phone != "" {
		line += " at " + utils.FormatPhone(s.agent.Phone)
	}
	if s.agent.Brokerage != "" {
		line += ", " + s.agent.Brokerage
	}
	return line + ", for personal assistance."
}

func (s *ChatService) agentName() string {
	if s.agent.Name == "" {
		return "our listing agent"
	}
	return s.agent.Name
}

// record writes the chat log in the background
func (s *ChatService) record(sessionID string, turn *chatTurn, outcome string) {
	if s.chatLog == nil {
		return
	}
	ids := make([]string, len(turn.matches))
	for i, m := range turn.matches {
		ids[i] = m.ID
	}
	entry := repository.ChatLog{
		ID:             turn.id,
		SessionID:      sessionID,
		Message:        turn.text,
		Filter:         turn.filter,
		ExtractionPath: turn.path,
		ListingIDs:     ids,
		Outcome:        outcome,
		ResponseTimeMs: time.Since(turn.start).Milliseconds(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), chatLogBudget)
		defer cancel()
		if err := s.chatLog.LogChat(ctx, entry); err != nil {
			s.log.Warn("failed to log chat", map[string]interface{}{"chat_id": entry.ID, "error": err})
		}
	}()
}

func (s *ChatService) response(turn *chatTurn, reply string) *model.ChatResponse {
	listings := turn.listings()
	return &model.ChatResponse{
		Reply:       reply,
		Listings:    listings,
		HasListings: len(listings) > 0,
		Filter:      turn.filter,
		ChatID:      turn.id,
	}
}

func lastUserMessage(messages []model.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

// describeListing is the one line form used in prompts and summaries
func describeListing(l model.Listing) string {
	parts := []string{l.Title}
	if l.Address != "" && l.Address != l.Title {
		parts[0] += ", " + l.Address
	}
	if l.Price != nil {
		parts = append(parts, utils.FormatPrice(*l.Price))
	}
	if l.Beds != nil {
		parts = append(parts, fmt.Sprintf("%d bd", *l.Beds))
	}
	if l.Baths != nil {
		parts = append(parts, fmt.Sprintf("%d ba", *l.Baths))
	}
	if l.Sqft != nil {
		parts = append(parts, fmt.Sprintf("%d sqft", *l.Sqft))
	}
	return strings.Join(parts, " | ")
}
