package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubType(t *testing.T) {
	cases := map[string]string{
		"Condo":              "condo",
		"condominium":        "condo",
		" Townhomes ":        "townhouse",
		"Freehold Townhouse": "townhouse",
		"apt":                "apartment",
		"Detached":           "house",
		"Loft":               "loft",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSubType(in), in)
	}
}

func TestMatchSubType(t *testing.T) {
	assert.True(t, MatchSubType("condo", "Condominium"))
	assert.True(t, MatchSubType("HOUSE", "house"))
	assert.False(t, MatchSubType("condo", "house"))
	assert.False(t, MatchSubType("condo", ""))
}

func TestInferSubType(t *testing.T) {
	tests := []struct {
		text         string
		wantSub      string
		wantProperty string
	}{
		{"Stunning penthouse condo with terrace", "penthouse", "Condominium"},
		{"Freehold town house near the lake", "townhouse", "Freehold Townhouse"},
		{"2 bed condo downtown", "condo", "Condominium"},
		{"Fully detached family home", "house", "Detached"},
		{"Retail unit on Queen St", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			sub, prop := InferSubType(tt.text)
			assert.Equal(t, tt.wantSub, sub)
			assert.Equal(t, tt.wantProperty, prop)
		})
	}
}

func TestExtractFeatures(t *testing.T) {
	got := ExtractFeatures("Luxury renovated unit with pool, gym, concierge and balcony views", 5)
	assert.Equal(t, []string{"Pool", "Gym", "Concierge", "Balcony", "City Views"}, got)

	assert.Empty(t, ExtractFeatures("plain unit", 5))
	assert.Len(t, ExtractFeatures("pool gym", 1), 1)
}
