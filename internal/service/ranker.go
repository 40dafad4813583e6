package service

import (
	"time"

	"realtyassist/internal/model"
)

// Match reason constants
const (
	ReasonCategoryMatch = "Category match"
	ReasonLocationMatch = "Location match"
	ReasonPriceMatch    = "Price within budget"
	ReasonBedsMatch     = "Bedrooms match"
	ReasonBathsMatch    = "Bathrooms match"
	ReasonTypeMatch     = "Property type match"
	ReasonNewlyListed   = "Newly listed"
	ReasonGeneralMatch  = "General match"
)

// newListingWindow is how recent a modification must be to count as newly listed
const newListingWindow = 7 * 24 * time.Hour

// Ranker annotates filtered listings with the reasons they matched.
type Ranker struct {
	now func() time.Time
}

// NewRanker creates a ranker using the wall clock
func NewRanker() *Ranker {
	return &Ranker{now: time.Now}
}

// Explain pairs each listing with its matched reasons, keeping order.
func (r *Ranker) Explain(filter model.SearchFilter, listings []model.Listing) []model.ListingMatch {
	matches := make([]model.ListingMatch, 0, len(listings))
	for _, l := range listings {
		matches = append(matches, model.ListingMatch{
			Listing:        l,
			MatchedReasons: r.matchedReasons(filter, l),
		})
	}
	return matches
}

func (r *Ranker) matchedReasons(filter model.SearchFilter, l model.Listing) []string {
	reasons := []string{}

	if filter.PropertyCategory != "" && ListingCategory(l) == filter.PropertyCategory {
		reasons = append(reasons, ReasonCategoryMatch)
	}
	if filter.Location != nil && locationMatches(*filter.Location, l) {
		reasons = append(reasons, ReasonLocationMatch)
	}
	if (filter.MinPrice != nil || filter.MaxPrice != nil) && l.Price != nil &&
		(filter.MinPrice == nil || *l.Price >= *filter.MinPrice) &&
		(filter.MaxPrice == nil || *l.Price <= *filter.MaxPrice) {
		reasons = append(reasons, ReasonPriceMatch)
	}
	if filter.Beds != nil && l.Beds != nil && *l.Beds >= *filter.Beds {
		reasons = append(reasons, ReasonBedsMatch)
	}
	if filter.Baths != nil && l.Baths != nil && *l.Baths >= *filter.Baths {
		reasons = append(reasons, ReasonBathsMatch)
	}
	if filter.PropertySubType != nil && Matches(model.SearchFilter{PropertySubType: filter.PropertySubType}, l) {
		reasons = append(reasons, ReasonTypeMatch)
	}
	if l.ModifiedAt != nil && r.now().Sub(*l.ModifiedAt) < newListingWindow {
		reasons = append(reasons, ReasonNewlyListed)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}
	return reasons
}
