package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyassist/internal/config"
	"realtyassist/internal/logger"
	"realtyassist/internal/model"
	"realtyassist/internal/provider"
	"realtyassist/internal/repository"
)

var testAgent = config.AgentConfig{Name: "Jane Agent", Phone: "416.392.2489", Brokerage: "Acme Realty"}

type failingProvider struct{}

func (failingProvider) Name() string { return "mls" }

func (failingProvider) Fetch(context.Context, model.SearchFilter) ([]model.Listing, error) {
	return nil, provider.ErrProviderUnavailable
}

type fakeRepo struct {
	nearest   []model.Listing
	byID      map[string]model.Listing
	feedback  []string
	embedded  []model.EmbeddingItem
	nearestTo []float32
}

func (r *fakeRepo) GetListingByID(_ context.Context, id string) (*model.Listing, error) {
	l, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *fakeRepo) UpdateEmbeddings(_ context.Context, items []model.EmbeddingItem) (int, []string) {
	r.embedded = append(r.embedded, items...)
	return len(items), nil
}

func (r *fakeRepo) NearestListings(_ context.Context, embedding []float32, _ int) ([]model.Listing, error) {
	r.nearestTo = embedding
	return r.nearest, nil
}

func (r *fakeRepo) LogFeedback(_ context.Context, chatID, listingID, action string) error {
	r.feedback = append(r.feedback, chatID+"/"+listingID+"/"+action)
	return nil
}

func newStaticListings(t *testing.T, opts ...ListingsOption) *ListingsService {
	t.Helper()
	return NewListingsService(provider.NewStaticProvider(testAgent), 50, logger.NewTestLogger(t), opts...)
}

func ids(listings []model.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func TestListingsService_Search(t *testing.T) {
	svc := newStaticListings(t)

	tests := []struct {
		name  string
		query model.ListingsQuery
		want  []string
	}{
		{
			name:  "default filter, most recent first",
			query: model.ListingsQuery{Filter: model.DefaultFilter()},
			want:  []string{"sample-1", "sample-2", "sample-3"},
		},
		{
			name:  "location",
			query: model.ListingsQuery{Filter: model.SearchFilter{Location: model.Ptr("Toronto")}},
			want:  []string{"sample-1", "sample-3"},
		},
		{
			name:  "limit",
			query: model.ListingsQuery{Filter: model.DefaultFilter(), Limit: 1},
			want:  []string{"sample-1"},
		},
		{
			name:  "free text",
			query: model.ListingsQuery{Filter: model.DefaultFilter(), Search: "wraparound TERRACE"},
			want:  []string{"sample-3"},
		},
		{
			name:  "free text over features",
			query: model.ListingsQuery{Filter: model.DefaultFilter(), Search: "garage"},
			want:  []string{"sample-2"},
		},
		{
			name:  "nothing matches",
			query: model.ListingsQuery{Filter: model.SearchFilter{PropertyCategory: model.CategoryCommercial}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Search(t.Context(), tt.query)
			require.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, model.SourceLive, resp.Source)
			assert.Equal(t, len(tt.want), resp.Count)
			assert.NotNil(t, resp.Listings)
			assert.Equal(t, tt.want, ids(resp.Listings))
		})
	}
}

func TestListingsService_Fallback(t *testing.T) {
	svc := NewListingsService(failingProvider{}, 50, logger.NewTestLogger(t),
		WithFallback(provider.NewStaticProvider(testAgent)))

	resp, err := svc.Search(t.Context(), model.ListingsQuery{Filter: model.SearchFilter{Location: model.Ptr("Mississauga")}})
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, resp.Source)
	assert.Equal(t, fallbackMessage, resp.Message)
	assert.Equal(t, []string{"sample-2"}, ids(resp.Listings), "fallback listings are filtered too")
}

func TestListingsService_NoFallback(t *testing.T) {
	svc := NewListingsService(failingProvider{}, 50, logger.NewTestLogger(t))

	_, err := svc.Search(t.Context(), model.ListingsQuery{Filter: model.DefaultFilter()})
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
}

func TestListingsService_GetListing(t *testing.T) {
	t.Run("from provider", func(t *testing.T) {
		svc := newStaticListings(t)
		l, err := svc.GetListing(t.Context(), "sample-2")
		require.NoError(t, err)
		assert.Equal(t, "Modern Family Home", l.Title)

		_, err = svc.GetListing(t.Context(), "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("from fallback when provider fails", func(t *testing.T) {
		svc := NewListingsService(failingProvider{}, 50, logger.NewTestLogger(t),
			WithFallback(provider.NewStaticProvider(testAgent)))
		l, err := svc.GetListing(t.Context(), "sample-3")
		require.NoError(t, err)
		assert.Equal(t, "penthouse", l.Type)
	})

	t.Run("from repository", func(t *testing.T) {
		repo := &fakeRepo{byID: map[string]model.Listing{"db-1": {ID: "db-1", Title: "Stored"}}}
		svc := newStaticListings(t, WithRepository(repo))
		l, err := svc.GetListing(t.Context(), "db-1")
		require.NoError(t, err)
		assert.Equal(t, "Stored", l.Title)

		_, err = svc.GetListing(t.Context(), "sample-1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestListingsService_RepositoryOperations(t *testing.T) {
	svc := newStaticListings(t)
	_, _, err := svc.UpdateEmbeddings(t.Context(), []model.EmbeddingItem{{ListingID: "a", Embedding: []float32{1}}})
	assert.ErrorIs(t, err, ErrNoRepository)
	assert.ErrorIs(t, svc.LogFeedback(t.Context(), model.FeedbackRequest{}), ErrNoRepository)

	repo := &fakeRepo{}
	svc = newStaticListings(t, WithRepository(repo))
	n, failures, err := svc.UpdateEmbeddings(t.Context(), []model.EmbeddingItem{{ListingID: "a", Embedding: []float32{1}}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, failures)

	require.NoError(t, svc.LogFeedback(t.Context(), model.FeedbackRequest{ChatID: "c1", ListingID: "sample-1", Action: "click"}))
	assert.Equal(t, []string{"c1/sample-1/click"}, repo.feedback)
}

func TestListingsService_SemanticSearch(t *testing.T) {
	client, _ := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{
			"data":  []map[string]any{{"embedding": []float32{0.25, 0.5}, "index": 0}},
			"model": "test-embed",
		})
	})

	static, err := provider.NewStaticProvider(testAgent).Fetch(t.Context(), model.SearchFilter{})
	require.NoError(t, err)
	repo := &fakeRepo{nearest: []model.Listing{static[2], static[1], static[0]}}

	svc := newStaticListings(t, WithRepository(repo), WithSemanticSearch(client))
	resp, err := svc.Search(t.Context(), model.ListingsQuery{
		Filter: model.SearchFilter{Location: model.Ptr("Toronto")},
		Search: "skyline views downtown",
	})
	require.NoError(t, err)

	assert.Equal(t, []float32{0.25, 0.5}, repo.nearestTo)
	assert.Equal(t, []string{"sample-3", "sample-1"}, ids(resp.Listings), "similarity order kept")
}

func TestListingsService_SemanticSearchFailureFallsBackToKeywords(t *testing.T) {
	client, _ := newFakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	svc := newStaticListings(t, WithRepository(&fakeRepo{}), WithSemanticSearch(client))

	resp, err := svc.Search(t.Context(), model.ListingsQuery{Filter: model.DefaultFilter(), Search: "penthouse"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sample-3"}, ids(resp.Listings))
}

func TestMatchText(t *testing.T) {
	listings := []model.Listing{
		{ID: "a", Title: "Corner Condo", Features: model.JSONArray{"Pool"}},
		{ID: "b", Title: "Family Home", Description: "Large pool and garden"},
	}
	assert.Equal(t, []string{"a", "b"}, ids(matchText(listings, "pool")))
	assert.Equal(t, []string{"b"}, ids(matchText(listings, "pool garden")))
	assert.Empty(t, matchText(listings, "warehouse"))
}
