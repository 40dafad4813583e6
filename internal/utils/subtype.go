package utils

import (
	"regexp"
	"strings"
)

// subTypeAliases maps spellings seen in messages, feeds and scraped pages to
// the canonical sub-type vocabulary.
var subTypeAliases = map[string]string{
	"condo":           "condo",
	"condos":          "condo",
	"condominium":     "condo",
	"condominiums":    "condo",
	"condo apartment": "condo",

	"house":         "house",
	"houses":        "house",
	"home":          "house",
	"detached":      "house",
	"semi-detached": "house",
	"residential":   "house",

	"townhouse":          "townhouse",
	"townhouses":         "townhouse",
	"townhome":           "townhouse",
	"townhomes":          "townhouse",
	"town house":         "townhouse",
	"freehold townhouse": "townhouse",
	"condo townhouse":    "townhouse",

	"apartment":  "apartment",
	"apartments": "apartment",
	"apt":        "apartment",

	"penthouse":  "penthouse",
	"penthouses": "penthouse",

	"retail": "retail",

	"office":  "office",
	"offices": "office",

	"warehouse":  "warehouse",
	"warehouses": "warehouse",

	"industrial": "industrial",
}

// NormalizeSubType returns the canonical sub-type for s, or s lower-cased and
// trimmed when it is not a known spelling.
func NormalizeSubType(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := subTypeAliases[key]; ok {
		return canonical
	}
	return key
}

// MatchSubType compares a requested sub-type against a listing's type,
// case-insensitively and across known aliases.
func MatchSubType(requested, actual string) bool {
	if strings.TrimSpace(actual) == "" {
		return false
	}
	return NormalizeSubType(requested) == NormalizeSubType(actual)
}

// InferSubType guesses a sub-type from free listing text. Penthouse and
// townhouse are checked before the generic terms they contain.
func InferSubType(text string) (subType, propertyType string) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "penthouse"):
		return "penthouse", "Condominium"
	case strings.Contains(t, "townhouse"), strings.Contains(t, "town house"), strings.Contains(t, "townhome"):
		return "townhouse", "Freehold Townhouse"
	case strings.Contains(t, "condo"):
		return "condo", "Condominium"
	case strings.Contains(t, "detached"), strings.Contains(t, "house"):
		return "house", "Detached"
	}
	return "", ""
}

type featureRule struct {
	re    *regexp.Regexp
	label string
}

var featureRules = []featureRule{
	{regexp.MustCompile(`\bpool\b`), "Pool"},
	{regexp.MustCompile(`\bgym\b`), "Gym"},
	{regexp.MustCompile(`\bfitness\b`), "Fitness Center"},
	{regexp.MustCompile(`\bconcierge\b`), "Concierge"},
	{regexp.MustCompile(`\bbalcon(y|ies)\b`), "Balcony"},
	{regexp.MustCompile(`\bterrace\b`), "Terrace"},
	{regexp.MustCompile(`\bgarage\b`), "Garage"},
	{regexp.MustCompile(`\bparking\b`), "Parking"},
	{regexp.MustCompile(`\bviews?\b`), "City Views"},
	{regexp.MustCompile(`\bwaterfront\b`), "Waterfront"},
	{regexp.MustCompile(`\blake\b`), "Lake Access"},
	{regexp.MustCompile(`\bupdated\b`), "Updated"},
	{regexp.MustCompile(`\brenovated\b`), "Renovated"},
	{regexp.MustCompile(`\bmodern\b`), "Modern"},
	{regexp.MustCompile(`\bluxury\b`), "Luxury"},
	{regexp.MustCompile(`\bgranite\b`), "Granite Counters"},
	{regexp.MustCompile(`\bhardwood\b`), "Hardwood Floors"},
	{regexp.MustCompile(`\bstainless\b`), "Stainless Appliances"},
}

// ExtractFeatures returns up to max feature labels mentioned in text, in a
// fixed rule order.
func ExtractFeatures(text string, max int) []string {
	t := strings.ToLower(text)
	var out []string
	for _, r := range featureRules {
		if len(out) >= max {
			break
		}
		if r.re.MatchString(t) {
			out = append(out, r.label)
		}
	}
	return out
}
