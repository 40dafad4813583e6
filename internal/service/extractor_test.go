package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"realtyassist/internal/model"
)

func TestIsSearchIntent(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Show me condos in Toronto", true},
		{"I want to BUY a place", true},
		{"what's the price of that one?", true},
		{"anything in Richmond Hill?", true},
		{"3 bedroom please", true},
		{"between 500k and 1.2 million", true},
		{"hello there", false},
		{"How do mortgages work?", false},
		{"thank you so much!", false},
		{"condominiumish", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSearchIntent(tt.text))
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.SearchFilter
	}{
		{
			name: "condo under two million",
			text: "condos in Toronto under $2 million",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				Location:         model.Ptr("Toronto"),
				MaxPrice:         model.Ptr[int64](2_000_000),
				PropertySubType:  model.Ptr("condo"),
			},
		},
		{
			name: "houses over 800k",
			text: "houses over 800k in Mississauga",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				Location:         model.Ptr("Mississauga"),
				MinPrice:         model.Ptr[int64](800_000),
				PropertySubType:  model.Ptr("house"),
			},
		},
		{
			name: "commercial warehouse with rooms",
			text: "3 bedroom, 2 bath commercial warehouse",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryCommercial,
				Beds:             model.Ptr(3),
				Baths:            model.Ptr(2),
				PropertySubType:  model.Ptr("warehouse"),
			},
		},
		{
			name: "between range across classes",
			text: "between 500k and 1.2 million",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				MinPrice:         model.Ptr[int64](500_000),
				MaxPrice:         model.Ptr[int64](1_200_000),
			},
		},
		{
			name: "between with a single amount",
			text: "something between 900k and whatever",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				MinPrice:         model.Ptr[int64](900_000),
			},
		},
		{
			name: "lone amount defaults to ceiling",
			text: "I have $750,000 to spend",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				MaxPrice:         model.Ptr[int64](750_000),
			},
		},
		{
			name: "dollar suffix",
			text: "budget is 5000 dollars a month",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				MaxPrice:         model.Ptr[int64](5_000),
			},
		},
		{
			name: "million outranks thousand",
			text: "over 900k, ideally 1.5m",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				MinPrice:         model.Ptr[int64](1_500_000),
			},
		},
		{
			name: "multi word place keeps capitalisation",
			text: "TOWNHOMES in richmond hill",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				Location:         model.Ptr("Richmond Hill"),
				PropertySubType:  model.Ptr("townhouse"),
			},
		},
		{
			name: "first place in list order wins",
			text: "Etobicoke or Toronto",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				Location:         model.Ptr("Toronto"),
			},
		},
		{
			name: "vocabulary order wins over text order",
			text: "penthouse condo, 2br",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryResidential,
				Beds:             model.Ptr(2),
				PropertySubType:  model.Ptr("condo"),
			},
		},
		{
			name: "office space is commercial",
			text: "office space in Markham",
			want: model.SearchFilter{
				PropertyCategory: model.CategoryCommercial,
				Location:         model.Ptr("Markham"),
				PropertySubType:  model.Ptr("office"),
			},
		},
		{
			name: "no keyword",
			text: "hello, how are you?",
			want: model.DefaultFilter(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtract_NoIntentMeansDefaultFilter(t *testing.T) {
	for _, text := range []string{
		"hi",
		"what are your office hours",
		"tell me a joke",
		"can you explain land transfer tax?",
		"thanks, goodbye",
	} {
		if IsSearchIntent(text) {
			continue
		}
		assert.Equal(t, model.DefaultFilter(), Extract(text), text)
	}
}

func TestExtract_FractionalBathsIgnored(t *testing.T) {
	f := Extract("2 bed 1.5 bath condo")
	assert.Equal(t, model.Ptr(2), f.Beds)
	assert.Nil(t, f.Baths)
}

func TestExtract_OutOfRangeAmountIsAbsent(t *testing.T) {
	f := Extract("condos under 99999999999999999999 million")
	assert.Nil(t, f.MaxPrice)
	assert.Nil(t, f.MinPrice)
	assert.Equal(t, model.Ptr("condo"), f.PropertySubType)

	f = Extract("between 500k and 99999999999999999999 million")
	assert.Equal(t, model.Ptr[int64](500_000), f.MinPrice)
	assert.Nil(t, f.MaxPrice)
}
