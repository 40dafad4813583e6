package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"realtyassist/internal/model"
)

func TestRanker_Explain(t *testing.T) {
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	r := &Ranker{now: func() time.Time { return now }}

	fresh := model.Listing{
		ID:         "fresh",
		City:       "Toronto",
		Category:   model.CategoryResidential,
		Price:      model.Ptr[int64](800_000),
		Beds:       model.Ptr(2),
		Type:       "condo",
		ModifiedAt: model.Ptr(now.Add(-24 * time.Hour)),
	}
	stale := model.Listing{ID: "stale", ModifiedAt: model.Ptr(now.Add(-30 * 24 * time.Hour))}

	filter := model.SearchFilter{
		PropertyCategory: model.CategoryResidential,
		Location:         model.Ptr("toronto"),
		MaxPrice:         model.Ptr[int64](900_000),
		Beds:             model.Ptr(2),
		PropertySubType:  model.Ptr("condominium"),
	}

	matches := r.Explain(filter, []model.Listing{fresh, stale})
	if assert.Len(t, matches, 2) {
		assert.Equal(t, "fresh", matches[0].ID)
		assert.Equal(t, []string{
			ReasonCategoryMatch, ReasonLocationMatch, ReasonPriceMatch,
			ReasonBedsMatch, ReasonTypeMatch, ReasonNewlyListed,
		}, matches[0].MatchedReasons)
		assert.Equal(t, []string{ReasonCategoryMatch}, matches[1].MatchedReasons, "no category means residential")
	}

	general := r.Explain(model.SearchFilter{}, []model.Listing{stale})
	assert.Equal(t, []string{ReasonGeneralMatch}, general[0].MatchedReasons)
}
