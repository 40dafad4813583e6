package provider

import (
	"context"
	"errors"
	"time"

	"realtyassist/internal/metrics"
	"realtyassist/internal/model"
)

// ErrProviderUnavailable is returned when a source could not produce any listings
var ErrProviderUnavailable = errors.New("listings provider unavailable")

// ListingsProvider is a source of candidate listings. Implementations may push
// parts of the filter down to the source; callers re-apply the full filter.
type ListingsProvider interface {
	Name() string
	Fetch(ctx context.Context, filter model.SearchFilter) ([]model.Listing, error)
}

type instrumented struct {
	next ListingsProvider
}

// WithMetrics records fetch counts and latency for p
func WithMetrics(p ListingsProvider) ListingsProvider {
	return &instrumented{next: p}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Fetch(ctx context.Context, filter model.SearchFilter) ([]model.Listing, error) {
	start := time.Now()
	listings, err := i.next.Fetch(ctx, filter)
	metrics.ListingsFetchDuration.WithLabelValues(i.next.Name()).Observe(time.Since(start).Seconds())

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(listings) == 0:
		outcome = "empty"
	}
	metrics.ListingsFetchTotal.WithLabelValues(i.next.Name(), outcome).Inc()
	return listings, err
}
