package service

import (
	"regexp"
	"sort"
	"strings"

	"realtyassist/internal/model"
	"realtyassist/internal/utils"
)

var commercialTypeRe = regexp.MustCompile(`(?i)\b(?:commercial|business|retail|offices?|warehouses?|industrial)\b`)

// ApplyFilter returns the candidates that satisfy every set field of filter.
// The input slice is not modified. When any candidate carries a modification
// time the result is ordered most recently modified first (stable, unknown
// times last); otherwise input order is kept.
func ApplyFilter(filter model.SearchFilter, candidates []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(candidates))
	timestamped := false
	for _, l := range candidates {
		if !Matches(filter, l) {
			continue
		}
		if l.ModifiedAt != nil {
			timestamped = true
		}
		out = append(out, l)
	}

	if timestamped {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].ModifiedAt, out[j].ModifiedAt
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return a.After(*b)
		})
	}
	return out
}

// Matches reports whether a single listing satisfies filter.
func Matches(filter model.SearchFilter, l model.Listing) bool {
	if filter.PropertyCategory != "" && ListingCategory(l) != filter.PropertyCategory {
		return false
	}
	if filter.Location != nil && !locationMatches(*filter.Location, l) {
		return false
	}
	if filter.MinPrice != nil && (l.Price == nil || *l.Price < *filter.MinPrice) {
		return false
	}
	if filter.MaxPrice != nil && (l.Price == nil || *l.Price > *filter.MaxPrice) {
		return false
	}
	if filter.Beds != nil && (l.Beds == nil || *l.Beds < *filter.Beds) {
		return false
	}
	if filter.Baths != nil && (l.Baths == nil || *l.Baths < *filter.Baths) {
		return false
	}
	if filter.PropertySubType != nil && !utils.MatchSubType(*filter.PropertySubType, l.Type) {
		return false
	}
	return true
}

// ListingCategory is the listing's explicit category, or one derived from its
// sub-type and property type.
func ListingCategory(l model.Listing) model.Category {
	if l.Category != "" {
		return l.Category
	}
	if commercialTypeRe.MatchString(l.Type) || commercialTypeRe.MatchString(l.PropertyType) {
		return model.CategoryCommercial
	}
	return model.CategoryResidential
}

func locationMatches(location string, l model.Listing) bool {
	needle := strings.ToLower(strings.TrimSpace(location))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Address), needle) ||
		strings.Contains(strings.ToLower(l.City), needle)
}
