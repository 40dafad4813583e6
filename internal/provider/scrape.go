package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/sync/errgroup"

	"realtyassist/internal/config"
	"realtyassist/internal/logger"
	"realtyassist/internal/model"
	"realtyassist/internal/utils"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Selector lists are tried in order; the first card selector that matches
// anything on a page is used for the whole page.
var (
	cardSelectors = []string{
		".listing-item", ".property-item", ".featured-listing", ".property-card",
		".listing-card", ".mls-listing", ".property-listing", ".property-result",
		".search-result", ".listing-container", "[data-listing]", ".property", ".listing",
	}
	titleSelectors   = []string{".listing-title", ".property-title", ".title", "h1", "h2", "h3", "h4"}
	addressSelectors = []string{".address", ".property-address", ".listing-address", ".location", "[data-address]"}
	priceSelectors   = []string{".price", ".listing-price", ".property-price", ".cost", ".amount", ".asking-price", ".sale-price", "[data-price]"}
	descSelectors    = []string{".description", ".listing-description", ".property-description", ".summary", "p"}
)

var (
	scrapePriceRe = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+|\d+)`)
	scrapeBedsRe  = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d+)\s*(?:bedrooms?|beds?|br)\b`)
	scrapeBathsRe = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d+)\s*(?:bathrooms?|baths?|ba)\b`)
	scrapeSqftRe  = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*|\d+)\s*(?:sq\.?\s*ft|sqft|square\s*feet)`)
)

// ScrapeProvider extracts listing cards from brokerage web pages. Values a
// page does not show are left absent.
type ScrapeProvider struct {
	urls        []string
	userAgent   string
	timeout     time.Duration
	parallelism int
	log         logger.Logger
}

// NewScrapeProvider creates a scraping listings provider
func NewScrapeProvider(cfg config.ScrapeConfig, log logger.Logger) *ScrapeProvider {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	return &ScrapeProvider{
		urls:        cfg.URLs,
		userAgent:   ua,
		timeout:     cfg.Timeout,
		parallelism: parallelism,
		log:         log.With(map[string]interface{}{"provider": config.ProviderScrape}),
	}
}

// Name implements ListingsProvider
func (p *ScrapeProvider) Name() string { return config.ProviderScrape }

// Fetch scrapes every configured page in parallel and merges the cards,
// dropping duplicates by address and price. It fails only when no page
// could be scraped.
func (p *ScrapeProvider) Fetch(ctx context.Context, _ model.SearchFilter) ([]model.Listing, error) {
	pages := make([][]model.Listing, len(p.urls))
	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i, pageURL := range p.urls {
		g.Go(func() error {
			listings, err := p.scrapePage(gctx, pageURL)
			if err != nil {
				p.log.Warn("scrape failed", map[string]interface{}{"url": pageURL, "error": err})
				mu.Lock()
				failures++
				lastErr = err
				mu.Unlock()
				return nil
			}
			pages[i] = listings
			return nil
		})
	}
	_ = g.Wait()

	if len(p.urls) == 0 || failures == len(p.urls) {
		return nil, fmt.Errorf("%w: no page could be scraped: %v", ErrProviderUnavailable, lastErr)
	}

	seen := make(map[string]bool)
	var out []model.Listing
	for _, page := range pages {
		for _, l := range page {
			key := dedupeKey(l)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, l)
		}
	}
	p.log.Debug("scraped listings", map[string]interface{}{"count": len(out), "pages": len(p.urls) - failures})
	return out, nil
}

func (p *ScrapeProvider) scrapePage(ctx context.Context, pageURL string) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(p.userAgent),
		colly.AllowURLRevisit(),
	)
	if p.timeout > 0 {
		c.SetRequestTimeout(p.timeout)
	}

	var (
		listings []model.Listing
		visitErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})
	c.OnHTML("body", func(body *colly.HTMLElement) {
		for _, sel := range cardSelectors {
			body.ForEach(sel, func(_ int, el *colly.HTMLElement) {
				if l, ok := parseCard(el); ok {
					listings = append(listings, l)
				}
			})
			if len(listings) > 0 {
				return
			}
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	if visitErr != nil {
		return nil, visitErr
	}
	return listings, nil
}

func parseCard(el *colly.HTMLElement) (model.Listing, bool) {
	text := strings.Join(strings.Fields(el.Text), " ")
	title := firstText(el, titleSelectors)
	address := firstText(el, addressSelectors)
	if title == "" && address == "" {
		return model.Listing{}, false
	}
	if title == "" {
		title = address
	}

	l := model.Listing{
		Title:       title,
		Address:     address,
		Description: firstText(el, descSelectors),
		Status:      "Active",
		Source:      config.ProviderScrape,
	}

	priceText := firstText(el, priceSelectors)
	if priceText == "" {
		priceText = el.Attr("data-price")
	}
	if m := scrapePriceRe.FindStringSubmatch(priceText); len(m) > 1 {
		l.Price = parseInt64(m[1])
	} else if m := scrapePriceRe.FindStringSubmatch(text); len(m) > 1 {
		l.Price = parseInt64(m[1])
	}
	l.Beds = firstCount(scrapeBedsRe, text)
	l.Baths = firstCount(scrapeBathsRe, text)
	if m := scrapeSqftRe.FindStringSubmatch(text); len(m) > 1 {
		if n := parseInt64(m[1]); n != nil {
			l.Sqft = model.Ptr(int(*n))
		}
	}

	l.Type, l.PropertyType = utils.InferSubType(title + " " + l.Description)
	l.Features = model.JSONArray(utils.ExtractFeatures(text, 5))

	if src := el.ChildAttr("img", "src"); src != "" {
		l.Image = el.Request.AbsoluteURL(src)
	} else if src := el.ChildAttr("img", "data-src"); src != "" {
		l.Image = el.Request.AbsoluteURL(src)
	}
	if href := el.ChildAttr("a[href]", "href"); href != "" {
		l.URL = el.Request.AbsoluteURL(href)
	}

	l.ID = "scrape-" + stableID(dedupeKey(l))
	return l, true
}

func firstText(el *colly.HTMLElement, selectors []string) string {
	for _, sel := range selectors {
		if t := strings.Join(strings.Fields(el.DOM.Find(sel).First().Text()), " "); t != "" {
			return t
		}
	}
	return ""
}

func firstCount(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return model.Ptr(n)
}

func parseInt64(s string) *int64 {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return model.Ptr(n)
}

func dedupeKey(l model.Listing) string {
	price := ""
	if l.Price != nil {
		price = strconv.FormatInt(*l.Price, 10)
	}
	addr := l.Address
	if addr == "" {
		addr = l.Title
	}
	return strings.ToLower(addr) + "|" + price
}

func stableID(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(h.Sum64(), 16)
}
