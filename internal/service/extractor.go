package service

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"realtyassist/internal/model"
)

// knownPlaces is scanned in order; the first name present in a message wins.
var knownPlaces = []string{
	"toronto",
	"mississauga",
	"oakville",
	"brampton",
	"markham",
	"vaughan",
	"richmond hill",
	"north york",
	"scarborough",
	"etobicoke",
	"burlington",
	"milton",
	"pickering",
	"ajax",
	"whitby",
	"oshawa",
}

var placeNames = map[string]string{
	"toronto":       "Toronto",
	"mississauga":   "Mississauga",
	"oakville":      "Oakville",
	"brampton":      "Brampton",
	"markham":       "Markham",
	"vaughan":       "Vaughan",
	"richmond hill": "Richmond Hill",
	"north york":    "North York",
	"scarborough":   "Scarborough",
	"etobicoke":     "Etobicoke",
	"burlington":    "Burlington",
	"milton":        "Milton",
	"pickering":     "Pickering",
	"ajax":          "Ajax",
	"whitby":        "Whitby",
	"oshawa":        "Oshawa",
}

type subTypeTerm struct {
	name string
	re   *regexp.Regexp
}

// subTypeVocabulary is checked in order, first match wins.
var subTypeVocabulary = []subTypeTerm{
	{"condo", wordRe(`condos?|condominiums?`)},
	{"house", wordRe(`houses?|detached`)},
	{"townhouse", wordRe(`townhouses?|townhomes?|town\s+houses?`)},
	{"apartment", wordRe(`apartments?|apts?`)},
	{"penthouse", wordRe(`penthouses?`)},
	{"retail", wordRe(`retail`)},
	{"office", wordRe(`offices?`)},
	{"warehouse", wordRe(`warehouses?`)},
	{"industrial", wordRe(`industrial`)},
}

var placeRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(knownPlaces))
	for i, p := range placePatterns() {
		res[i] = wordRe(p)
	}
	return res
}()

var commercialTerms = wordRe(`commercial|business(?:es)?|retail|offices?|warehouses?|industrial`)

var intentTerms = wordRe(strings.Join([]string{
	// property nouns
	`propert(?:y|ies)`, `listings?`, `homes?`, `houses?`, `condos?`, `condominiums?`,
	`apartments?`, `apts?`, `townhouses?`, `townhomes?`, `penthouses?`, `lofts?`,
	`bungalows?`, `detached`, `semi-detached`, `real\s+estate`, `mls`,
	// transaction verbs
	`buy`, `buying`, `purchase`, `purchasing`, `sell`, `selling`, `rent`, `renting`,
	`lease`, `leasing`, `invest`, `investing`,
	// domain terms
	`price[ds]?`, `pricing`, `budget`, `bedrooms?`, `beds?`, `bathrooms?`, `baths?`,
	`sq\s*ft`, `sqft`, `commercial`, `business(?:es)?`, `retail`, `offices?`,
	`warehouses?`, `industrial`,
	// neighbourhoods
	strings.Join(placePatterns(), `|`),
}, `|`))

var (
	bedsRe  = regexp.MustCompile(`(?:^|[^\d.])(\d+)\s*\+?\s*-?\s*(?:bedrooms?|beds?|bdrms?|br)\b`)
	bathsRe = regexp.MustCompile(`(?:^|[^\d.])(\d+)\s*\+?\s*-?\s*(?:bathrooms?|baths?)\b`)

	betweenRe  = wordRe(`between`)
	maxWordsRe = wordRe(`under|below|less\s+than|up\s+to|at\s+most|no\s+more\s+than|max(?:imum)?`)
	minWordsRe = wordRe(`over|above|more\s+than|at\s+least|min(?:imum)?`)
)

type priceClass struct {
	re    *regexp.Regexp
	scale float64
}

// priceClasses is ordered by priority: million, thousand, $-prefixed, dollar-suffixed.
var priceClasses = []priceClass{
	{regexp.MustCompile(`(?:\$\s*)?(\d[\d,]*(?:\.\d+)?)\s*(?:million|mil|m)\b`), 1_000_000},
	{regexp.MustCompile(`(?:\$\s*)?(\d[\d,]*(?:\.\d+)?)\s*k\b`), 1_000},
	{regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d+)?)`), 1},
	{regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(?:dollars?\b|\$)`), 1},
}

func wordRe(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + alternatives + `)\b`)
}

func placePatterns() []string {
	out := make([]string, len(knownPlaces))
	for i, p := range knownPlaces {
		out[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return out
}

// IsSearchIntent reports whether a message asks about properties at all.
// Money amounts and bedroom/bathroom counts count as domain terms, so any
// message Extract would derive a non-default filter from passes the gate.
func IsSearchIntent(text string) bool {
	t := strings.ToLower(text)
	if intentTerms.MatchString(t) || bedsRe.MatchString(t) || bathsRe.MatchString(t) {
		return true
	}
	for _, pc := range priceClasses {
		if pc.re.MatchString(t) {
			return true
		}
	}
	return false
}

// Extract derives a SearchFilter from a free-text message. It never fails:
// anything it cannot recognise is left absent, and the worst case is the
// default residential filter.
func Extract(text string) model.SearchFilter {
	t := strings.ToLower(text)
	filter := model.DefaultFilter()

	if commercialTerms.MatchString(t) {
		filter.PropertyCategory = model.CategoryCommercial
	}
	filter.Location = extractLocation(t)
	filter.MinPrice, filter.MaxPrice = extractPrice(t)
	filter.Beds = firstInt(bedsRe, t)
	filter.Baths = firstInt(bathsRe, t)

	for _, st := range subTypeVocabulary {
		if st.re.MatchString(t) {
			filter.PropertySubType = model.Ptr(st.name)
			break
		}
	}
	return filter
}

func extractLocation(t string) *string {
	for i, re := range placeRes {
		if re.MatchString(t) {
			return model.Ptr(placeNames[knownPlaces[i]])
		}
	}
	return nil
}

type moneyMention struct {
	start, end int
	class      int
	amount     int64
}

func extractPrice(t string) (lo, hi *int64) {
	mentions := moneyMentions(t)
	if len(mentions) == 0 {
		return nil, nil
	}

	if betweenRe.MatchString(t) {
		sort.SliceStable(mentions, func(i, j int) bool { return mentions[i].start < mentions[j].start })
		lo = model.Ptr(mentions[0].amount)
		if len(mentions) > 1 {
			hi = model.Ptr(mentions[1].amount)
		}
		return lo, hi
	}

	// lone bound: first mention of the highest priority class present
	best := mentions[0]
	for _, m := range mentions[1:] {
		if m.class < best.class || (m.class == best.class && m.start < best.start) {
			best = m
		}
	}
	amount := model.Ptr(best.amount)
	switch {
	case maxWordsRe.MatchString(t):
		return nil, amount
	case minWordsRe.MatchString(t):
		return amount, nil
	default:
		return nil, amount
	}
}

// moneyMentions collects non-overlapping amounts, higher priority classes
// claiming their spans first.
func moneyMentions(t string) []moneyMention {
	var out []moneyMention
	for class, pc := range priceClasses {
		for _, loc := range pc.re.FindAllStringSubmatchIndex(t, -1) {
			if overlaps(out, loc[0], loc[1]) {
				continue
			}
			amount, ok := parseAmount(t[loc[2]:loc[3]], pc.scale)
			if !ok {
				continue
			}
			out = append(out, moneyMention{start: loc[0], end: loc[1], class: class, amount: amount})
		}
	}
	return out
}

func overlaps(ms []moneyMention, start, end int) bool {
	for _, m := range ms {
		if start < m.end && m.start < end {
			return true
		}
	}
	return false
}

func parseAmount(raw string, scale float64) (int64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	amount := math.Round(v * scale)
	if amount >= math.MaxInt64 {
		return 0, false
	}
	return int64(amount), true
}

func firstInt(re *regexp.Regexp, t string) *int {
	m := re.FindStringSubmatch(t)
	if len(m) < 2 {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return model.Ptr(n)
}
