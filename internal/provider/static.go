package provider

import (
	"context"
	"time"

	"realtyassist/internal/config"
	"realtyassist/internal/model"
)

// StaticProvider serves a fixed set of sample listings. It backs the
// "static" provider setting and the fallback when a live source fails.
type StaticProvider struct {
	listings []model.Listing
}

// NewStaticProvider builds the sample listings, credited to the configured agent
func NewStaticProvider(agent config.AgentConfig) *StaticProvider {
	base := time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)
	withAgent := func(l model.Listing) model.Listing {
		l.ListingAgent = agent.Name
		l.Brokerage = agent.Brokerage
		l.Phone = agent.Phone
		l.Status = "Active"
		l.Source = config.ProviderStatic
		return l
	}

	return &StaticProvider{listings: []model.Listing{
		withAgent(model.Listing{
			ID:           "sample-1",
			MLSNumber:    "C5800001",
			Title:        "Luxury Downtown Toronto Condo",
			Address:      "88 Blue Jays Way, Toronto, ON",
			City:         "Toronto",
			Category:     model.CategoryResidential,
			Price:        model.Ptr[int64](1_650_000),
			Beds:         model.Ptr(2),
			Baths:        model.Ptr(2),
			Sqft:         model.Ptr(1400),
			Type:         "condo",
			PropertyType: "Condominium",
			Image:        "https://images.unsplash.com/photo-1545324418-cc1a3fa10c00?w=800",
			Features:     model.JSONArray{"City Views", "Concierge", "Gym", "Balcony"},
			Description:  "Bright corner suite in the Entertainment District with floor to ceiling windows and skyline views.",
			DaysOnMarket: model.Ptr(12),
			ModifiedAt:   model.Ptr(base.Add(-2 * 24 * time.Hour)),
		}),
		withAgent(model.Listing{
			ID:           "sample-2",
			MLSNumber:    "W5800002",
			Title:        "Modern Family Home",
			Address:      "123 Maple Lane, Mississauga, ON",
			City:         "Mississauga",
			Category:     model.CategoryResidential,
			Price:        model.Ptr[int64](1_850_000),
			Beds:         model.Ptr(4),
			Baths:        model.Ptr(3),
			Sqft:         model.Ptr(2800),
			Type:         "house",
			PropertyType: "Detached",
			Image:        "https://images.unsplash.com/photo-1568605114967-8130f3a36994?w=800",
			Features:     model.JSONArray{"Garage", "Renovated", "Hardwood Floors"},
			Description:  "Detached family home on a quiet street close to schools and parks, with a renovated kitchen.",
			DaysOnMarket: model.Ptr(25),
			ModifiedAt:   model.Ptr(base.Add(-5 * 24 * time.Hour)),
		}),
		withAgent(model.Listing{
			ID:           "sample-3",
			MLSNumber:    "C5800003",
			Title:        "Luxury Penthouse",
			Address:      "1 King Street West, Toronto, ON",
			City:         "Toronto",
			Category:     model.CategoryResidential,
			Price:        model.Ptr[int64](3_200_000),
			Beds:         model.Ptr(3),
			Baths:        model.Ptr(3),
			Sqft:         model.Ptr(2400),
			Type:         "penthouse",
			PropertyType: "Condominium",
			Image:        "https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800",
			Features:     model.JSONArray{"Terrace", "City Views", "Concierge", "Luxury"},
			Description:  "Full floor penthouse above the Financial District with a wraparound terrace.",
			DaysOnMarket: model.Ptr(40),
			ModifiedAt:   model.Ptr(base.Add(-9 * 24 * time.Hour)),
		}),
	}}
}

// Name implements ListingsProvider
func (p *StaticProvider) Name() string { return config.ProviderStatic }

// Fetch returns a copy of every sample listing
func (p *StaticProvider) Fetch(_ context.Context, _ model.SearchFilter) ([]model.Listing, error) {
	out := make([]model.Listing, len(p.listings))
	copy(out, p.listings)
	return out, nil
}
