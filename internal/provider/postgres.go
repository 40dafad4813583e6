package provider

import (
	"context"
	"fmt"

	"realtyassist/internal/config"
	"realtyassist/internal/model"
)

// ListingStore is the part of the repository the Postgres provider needs
type ListingStore interface {
	FetchListings(ctx context.Context, filter model.SearchFilter, limit int) ([]model.Listing, error)
}

// PostgresProvider serves listings from the listings table
type PostgresProvider struct {
	store ListingStore
	limit int
}

// NewPostgresProvider creates a provider backed by store. limit bounds each query.
func NewPostgresProvider(store ListingStore, limit int) *PostgresProvider {
	if limit <= 0 {
		limit = 100
	}
	return &PostgresProvider{store: store, limit: limit}
}

// Name implements ListingsProvider
func (p *PostgresProvider) Name() string { return config.ProviderPostgres }

// Fetch implements ListingsProvider
func (p *PostgresProvider) Fetch(ctx context.Context, filter model.SearchFilter) ([]model.Listing, error) {
	listings, err := p.store.FetchListings(ctx, filter, p.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return listings, nil
}
