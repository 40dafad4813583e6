package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"realtyassist/internal/config"
	"realtyassist/internal/logger"
	"realtyassist/internal/metrics"
	"realtyassist/internal/model"
	"realtyassist/internal/utils"
)

const defaultExtractionTimeout = 4 * time.Second

const extractionPrompt = `You are a real estate search assistant for the Greater Toronto Area. Convert the user's message into search filters.

Respond ONLY with a JSON object using these fields, omitting any that are not mentioned:
- propertyCategory: "residential" or "commercial" (always present; commercial for business, retail, office, warehouse or industrial requests)
- location: city or neighbourhood name, capitalised (e.g. "Toronto", "Richmond Hill", "North York")
- minPrice: minimum price in CAD (integer)
- maxPrice: maximum price in CAD (integer)
- beds: minimum number of bedrooms (integer)
- baths: minimum number of bathrooms (integer)
- propertySubType: one of "condo", "house", "townhouse", "apartment", "penthouse", "retail", "office", "warehouse", "industrial"

Rules:
- "1.5M" = 1500000, "800k" = 800000
- "under", "below", "less than" set maxPrice; "over", "above", "more than" set minPrice
- A budget with no direction is a maxPrice
- Never guess a location that is not in the message

Examples:
Message: "condos in Toronto under $2 million"
Response: {"propertyCategory": "residential", "location": "Toronto", "maxPrice": 2000000, "propertySubType": "condo"}

Message: "3 bedroom, 2 bath house in Oakville between 1.2M and 1.8M"
Response: {"propertyCategory": "residential", "location": "Oakville", "minPrice": 1200000, "maxPrice": 1800000, "beds": 3, "baths": 2, "propertySubType": "house"}

Message: "warehouse space over 5 million"
Response: {"propertyCategory": "commercial", "minPrice": 5000000, "propertySubType": "warehouse"}`

// filterSchema describes the JSON object the extraction prompt asks for.
// Values are range checked afterwards in normalizeAIFilter.
var filterSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"properties": {
		"propertyCategory": {"type": ["string", "null"]},
		"location":         {"type": ["string", "null"]},
		"minPrice":         {"type": ["integer", "null"]},
		"maxPrice":         {"type": ["integer", "null"]},
		"beds":             {"type": ["integer", "null"]},
		"baths":            {"type": ["integer", "null"]},
		"propertySubType":  {"type": ["string", "null"]}
	}
}`)

var subTypeVocabularySet = map[string]bool{
	"condo": true, "house": true, "townhouse": true, "apartment": true, "penthouse": true,
	"retail": true, "office": true, "warehouse": true, "industrial": true,
}

// IntentParser turns a chat message into a SearchFilter, optionally asking the
// language model first and falling back to the rule based extractor.
type IntentParser struct {
	llm     LLMClient
	useAI   bool
	timeout time.Duration
	log     logger.Logger
}

// NewIntentParser creates a new intent parser. llm may be nil.
func NewIntentParser(llm LLMClient, cfg *config.OpenAIConfig, log logger.Logger) *IntentParser {
	p := &IntentParser{
		llm:     llm,
		timeout: defaultExtractionTimeout,
		log:     log.With(map[string]interface{}{"component": "intent"}),
	}
	if cfg != nil {
		p.useAI = cfg.AIExtraction
		if cfg.ExtractionTimeout > 0 {
			p.timeout = cfg.ExtractionTimeout
		}
	}
	return p
}

// IsSearchIntent is the keyword gate callers check before Parse
func (p *IntentParser) IsSearchIntent(text string) bool {
	return IsSearchIntent(text)
}

// Parse extracts a filter and reports which path produced it
// (metrics.PathAI, metrics.PathRules or metrics.PathFallback).
func (p *IntentParser) Parse(ctx context.Context, text string) (model.SearchFilter, string) {
	text = strings.TrimSpace(text)
	if text == "" || !p.useAI || p.llm == nil || !p.llm.IsEnabled() {
		metrics.ExtractionsTotal.WithLabelValues(metrics.PathRules).Inc()
		return Extract(text), metrics.PathRules
	}

	filter, err := p.parseWithTimeout(ctx, text)
	if err == nil {
		metrics.ExtractionsTotal.WithLabelValues(metrics.PathAI).Inc()
		return filter, metrics.PathAI
	}

	p.log.Warn("AI extraction failed, using rules", map[string]interface{}{
		"error":   err,
		"timeout": p.timeout.String(),
	})
	metrics.ExtractionsTotal.WithLabelValues(metrics.PathFallback).Inc()
	return Extract(text), metrics.PathFallback
}

// parseWithTimeout races the model call against the timeout. A result that
// arrives after the deadline lands in the buffered channel and is dropped.
func (p *IntentParser) parseWithTimeout(ctx context.Context, text string) (model.SearchFilter, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		filter model.SearchFilter
		err    error
	}
	done := make(chan result, 1)
	go func() {
		f, err := p.parseWithAI(ctx, text)
		done <- result{filter: f, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return model.SearchFilter{}, ErrAITimeout
		}
		return r.filter, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.SearchFilter{}, ErrAITimeout
		}
		return model.SearchFilter{}, ctx.Err()
	}
}

func (p *IntentParser) parseWithAI(ctx context.Context, text string) (model.SearchFilter, error) {
	resp, err := p.llm.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: text},
		},
		Temperature:    0.1,
		MaxTokens:      200,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return model.SearchFilter{}, fmt.Errorf("extraction request: %w", err)
	}

	content, err := resp.Content()
	if err != nil {
		return model.SearchFilter{}, err
	}

	var raw json.RawMessage
	if err := utils.ParseAIJSON(content, &raw); err != nil {
		return model.SearchFilter{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if err := validateFilterJSON(raw); err != nil {
		return model.SearchFilter{}, err
	}

	var filter model.SearchFilter
	if err := json.Unmarshal(raw, &filter); err != nil {
		return model.SearchFilter{}, fmt.Errorf("failed to decode AI filter: %w", err)
	}
	if err := normalizeAIFilter(&filter); err != nil {
		return model.SearchFilter{}, fmt.Errorf("AI response validation failed: %w", err)
	}
	return filter, nil
}

func validateFilterJSON(raw json.RawMessage) error {
	result, err := gojsonschema.Validate(filterSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("AI response does not match filter schema: %v", errs)
	}
	return nil
}

// normalizeAIFilter validates model output and brings it to the same shape the
// rule based extractor produces.
func normalizeAIFilter(f *model.SearchFilter) error {
	switch model.Category(strings.ToLower(string(f.PropertyCategory))) {
	case "", model.CategoryResidential:
		f.PropertyCategory = model.CategoryResidential
	case model.CategoryCommercial:
		f.PropertyCategory = model.CategoryCommercial
	default:
		return fmt.Errorf("invalid propertyCategory %q", f.PropertyCategory)
	}

	if f.Location != nil {
		loc := strings.TrimSpace(*f.Location)
		if loc == "" {
			f.Location = nil
		} else if canonical, ok := placeNames[strings.ToLower(loc)]; ok {
			f.Location = model.Ptr(canonical)
		} else {
			f.Location = model.Ptr(loc)
		}
	}

	if f.MinPrice != nil && *f.MinPrice <= 0 {
		return fmt.Errorf("minPrice must be positive, got %d", *f.MinPrice)
	}
	if f.MaxPrice != nil && *f.MaxPrice <= 0 {
		return fmt.Errorf("maxPrice must be positive, got %d", *f.MaxPrice)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("minPrice (%d) cannot be greater than maxPrice (%d)", *f.MinPrice, *f.MaxPrice)
	}
	if f.Beds != nil && (*f.Beds < 0 || *f.Beds > 20) {
		return fmt.Errorf("beds must be between 0 and 20")
	}
	if f.Baths != nil && (*f.Baths < 0 || *f.Baths > 20) {
		return fmt.Errorf("baths must be between 0 and 20")
	}

	if f.PropertySubType != nil {
		st := utils.NormalizeSubType(*f.PropertySubType)
		if !subTypeVocabularySet[st] {
			return fmt.Errorf("invalid propertySubType %q", *f.PropertySubType)
		}
		f.PropertySubType = model.Ptr(st)
	}
	return nil
}
