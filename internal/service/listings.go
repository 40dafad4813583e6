package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"realtyassist/internal/logger"
	"realtyassist/internal/model"
	"realtyassist/internal/provider"
	"realtyassist/internal/repository"
)

// ErrNoRepository is returned for operations that need the Postgres store
var ErrNoRepository = errors.New("listings database is not configured")

const fallbackMessage = "Live listings are temporarily unavailable. Showing featured listings instead."

// ListingRepository is the part of the Postgres repository the listings
// service uses
type ListingRepository interface {
	GetListingByID(ctx context.Context, id string) (*model.Listing, error)
	UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
	NearestListings(ctx context.Context, embedding []float32, limit int) ([]model.Listing, error)
	LogFeedback(ctx context.Context, chatID, listingID, action string) error
}

// ListingsService answers listing queries from the configured provider
type ListingsService struct {
	provider provider.ListingsProvider
	fallback provider.ListingsProvider
	repo     ListingRepository
	llm      LLMClient
	maxLimit int
	log      logger.Logger
}

// ListingsOption configures optional ListingsService collaborators
type ListingsOption func(*ListingsService)

// WithFallback serves fallback's listings when the primary provider fails
func WithFallback(p provider.ListingsProvider) ListingsOption {
	return func(s *ListingsService) { s.fallback = p }
}

// WithRepository enables lookups by id, embeddings and feedback
func WithRepository(repo ListingRepository) ListingsOption {
	return func(s *ListingsService) { s.repo = repo }
}

// WithSemanticSearch ranks free-text searches by embedding similarity.
// Needs a repository as well.
func WithSemanticSearch(llm LLMClient) ListingsOption {
	return func(s *ListingsService) { s.llm = llm }
}

// NewListingsService creates a new listings service
func NewListingsService(p provider.ListingsProvider, maxLimit int, log logger.Logger, opts ...ListingsOption) *ListingsService {
	if maxLimit <= 0 {
		maxLimit = 50
	}
	s := &ListingsService{
		provider: p,
		maxLimit: maxLimit,
		log:      log.With(map[string]interface{}{"component": "listings"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search fetches candidates, re-applies the full filter, narrows by free
// text and caps the result. A provider failure is served from the fallback
// when one is configured.
func (s *ListingsService) Search(ctx context.Context, q model.ListingsQuery) (*model.ListingsResponse, error) {
	limit := s.clampLimit(q.Limit)
	search := strings.TrimSpace(q.Search)

	if search != "" && s.semanticEnabled() {
		listings, err := s.semanticSearch(ctx, q.Filter, search, limit)
		if err == nil && len(listings) > 0 {
			return newListingsResponse(listings, model.SourceLive, ""), nil
		}
		if err != nil {
			s.log.Warn("semantic search failed, using keyword match", map[string]interface{}{"error": err})
		}
	}

	source, message := model.SourceLive, ""
	candidates, err := s.provider.Fetch(ctx, q.Filter)
	if err != nil {
		if s.fallback == nil {
			return nil, err
		}
		s.log.Warn("listings provider failed, serving fallback", map[string]interface{}{
			"provider": s.provider.Name(),
			"error":    err,
		})
		candidates, err = s.fallback.Fetch(ctx, q.Filter)
		if err != nil {
			return nil, fmt.Errorf("fallback listings: %w", err)
		}
		source, message = model.SourceFallback, fallbackMessage
	}

	results := ApplyFilter(q.Filter, candidates)
	if search != "" {
		results = matchText(results, search)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return newListingsResponse(results, source, message), nil
}

// GetListing looks a listing up by id, from the database when configured
// and otherwise from the provider's unfiltered results.
func (s *ListingsService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	if s.repo != nil {
		return s.repo.GetListingByID(ctx, id)
	}

	for _, p := range []provider.ListingsProvider{s.provider, s.fallback} {
		if p == nil {
			continue
		}
		listings, err := p.Fetch(ctx, model.SearchFilter{})
		if err != nil {
			continue
		}
		for i := range listings {
			if listings[i].ID == id {
				return &listings[i], nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

// UpdateEmbeddings stores listing embeddings
func (s *ListingsService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string, error) {
	if s.repo == nil {
		return 0, nil, ErrNoRepository
	}
	n, failures := s.repo.UpdateEmbeddings(ctx, items)
	return n, failures, nil
}

// LogFeedback records a user action on a listing
func (s *ListingsService) LogFeedback(ctx context.Context, req model.FeedbackRequest) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	return s.repo.LogFeedback(ctx, req.ChatID, req.ListingID, req.Action)
}

func (s *ListingsService) clampLimit(limit int) int {
	if limit <= 0 || limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

func (s *ListingsService) semanticEnabled() bool {
	return s.repo != nil && s.llm != nil && s.llm.IsEnabled()
}

// semanticSearch keeps similarity order; the structured filter only removes
// listings, it does not re-sort them.
func (s *ListingsService) semanticSearch(ctx context.Context, filter model.SearchFilter, text string, limit int) ([]model.Listing, error) {
	embeddings, err := s.llm.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed search text: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, ErrEmptyCompletion
	}

	nearest, err := s.repo.NearestListings(ctx, embeddings[0], limit*4)
	if err != nil {
		return nil, err
	}

	out := make([]model.Listing, 0, limit)
	for _, l := range nearest {
		if len(out) == limit {
			break
		}
		if Matches(filter, l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// matchText keeps listings whose title, address, description or features
// contain every word of search.
func matchText(listings []model.Listing, search string) []model.Listing {
	terms := strings.Fields(strings.ToLower(search))
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		haystack := strings.ToLower(strings.Join([]string{
			l.Title, l.Address, l.City, l.Description, strings.Join(l.Features, " "),
		}, " "))
		matched := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, l)
		}
	}
	return out
}

func newListingsResponse(listings []model.Listing, source, message string) *model.ListingsResponse {
	if listings == nil {
		listings = []model.Listing{}
	}
	return &model.ListingsResponse{
		Success:     true,
		Count:       len(listings),
		Listings:    listings,
		Source:      source,
		Message:     message,
		LastUpdated: time.Now().UTC(),
	}
}
