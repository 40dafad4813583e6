package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"realtyassist/internal/config"
	"realtyassist/internal/logger"
	"realtyassist/internal/model"
	"realtyassist/internal/utils"
)

// MLSProvider queries a RESO Web API (OData) feed for active listings.
type MLSProvider struct {
	baseURL    string
	token      string
	pageSize   int
	fanout     int
	httpClient *http.Client
	log        logger.Logger
}

// NewMLSProvider creates an OData listings provider
func NewMLSProvider(cfg config.MLSConfig, log logger.Logger) *MLSProvider {
	fanout := cfg.PhotoFanout
	if fanout <= 0 {
		fanout = 1
	}
	return &MLSProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		pageSize:   cfg.PageSize,
		fanout:     fanout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With(map[string]interface{}{"provider": config.ProviderMLS}),
	}
}

// Name implements ListingsProvider
func (p *MLSProvider) Name() string { return config.ProviderMLS }

// resoProperty is the subset of the RESO Property resource we read
type resoProperty struct {
	ListingKey            string     `json:"ListingKey"`
	ListingID             string     `json:"ListingId"`
	UnparsedAddress       string     `json:"UnparsedAddress"`
	StreetNumber          string     `json:"StreetNumber"`
	StreetName            string     `json:"StreetName"`
	StreetSuffix          string     `json:"StreetSuffix"`
	City                  string     `json:"City"`
	ListPrice             *float64   `json:"ListPrice"`
	BedroomsTotal         *int       `json:"BedroomsTotal"`
	BathroomsTotalInteger *int       `json:"BathroomsTotalInteger"`
	LivingArea            *float64   `json:"LivingArea"`
	PropertyType          string     `json:"PropertyType"`
	PropertySubType       string     `json:"PropertySubType"`
	PublicRemarks         string     `json:"PublicRemarks"`
	ListAgentFullName     string     `json:"ListAgentFullName"`
	ListOfficeName        string     `json:"ListOfficeName"`
	ListAgentDirectPhone  string     `json:"ListAgentDirectPhone"`
	StandardStatus        string     `json:"StandardStatus"`
	DaysOnMarket          *int       `json:"DaysOnMarket"`
	ModificationTimestamp *time.Time `json:"ModificationTimestamp"`
}

type odataPage[T any] struct {
	Value []T `json:"value"`
}

type resoMedia struct {
	MediaURL string `json:"MediaURL"`
}

// Fetch queries the Property resource with the filter pushed down, then
// loads the first photo of each listing in parallel.
func (p *MLSProvider) Fetch(ctx context.Context, filter model.SearchFilter) ([]model.Listing, error) {
	query := "$filter=" + odataEscape(buildODataFilter(filter)) +
		"&$orderby=" + odataEscape("ModificationTimestamp desc") +
		"&$top=" + strconv.Itoa(p.pageSize)

	var page odataPage[resoProperty]
	if err := p.get(ctx, "/Property?"+query, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	listings := make([]model.Listing, len(page.Value))
	for i, rp := range page.Value {
		listings[i] = mapRESOProperty(rp)
	}

	p.attachPhotos(ctx, listings)
	p.log.Debug("fetched MLS listings", map[string]interface{}{"count": len(listings)})
	return listings, nil
}

// attachPhotos fills Image for every listing it can. Photo failures leave the
// image absent and never fail the fetch.
func (p *MLSProvider) attachPhotos(ctx context.Context, listings []model.Listing) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fanout)

	for i := range listings {
		key := listings[i].ID
		g.Go(func() error {
			photo, err := p.firstPhoto(gctx, key)
			if err != nil {
				p.log.Debug("photo lookup failed", map[string]interface{}{"listing": key, "error": err})
				return nil
			}
			listings[i].Image = photo
			return nil
		})
	}
	_ = g.Wait()
}

func (p *MLSProvider) firstPhoto(ctx context.Context, listingKey string) (string, error) {
	filter := fmt.Sprintf("ResourceRecordKey eq '%s' and MediaCategory eq 'Photo'", odataQuote(listingKey))
	query := "$filter=" + odataEscape(filter) + "&$orderby=Order&$top=1"

	var page odataPage[resoMedia]
	if err := p.get(ctx, "/Media?"+query, &page); err != nil {
		return "", err
	}
	if len(page.Value) == 0 {
		return "", nil
	}
	return page.Value[0].MediaURL, nil
}

func (p *MLSProvider) get(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("OData request failed with status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode OData response: %w", err)
	}
	return nil
}

// buildODataFilter pushes category, location, price and room bounds down to
// the feed. Sub-type stays client side since feeds name sub-types freely.
func buildODataFilter(filter model.SearchFilter) string {
	clauses := []string{"StandardStatus eq 'Active'"}

	switch filter.PropertyCategory {
	case model.CategoryCommercial:
		clauses = append(clauses, "PropertyType eq 'Commercial'")
	case model.CategoryResidential:
		clauses = append(clauses, "PropertyType ne 'Commercial'")
	}
	if filter.Location != nil {
		loc := odataQuote(*filter.Location)
		clauses = append(clauses, fmt.Sprintf("(contains(City,'%s') or contains(UnparsedAddress,'%s'))", loc, loc))
	}
	if filter.MinPrice != nil {
		clauses = append(clauses, fmt.Sprintf("ListPrice ge %d", *filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		clauses = append(clauses, fmt.Sprintf("ListPrice le %d", *filter.MaxPrice))
	}
	if filter.Beds != nil {
		clauses = append(clauses, fmt.Sprintf("BedroomsTotal ge %d", *filter.Beds))
	}
	if filter.Baths != nil {
		clauses = append(clauses, fmt.Sprintf("BathroomsTotalInteger ge %d", *filter.Baths))
	}
	return strings.Join(clauses, " and ")
}

func odataQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func odataEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func mapRESOProperty(rp resoProperty) model.Listing {
	address := rp.UnparsedAddress
	if address == "" {
		address = strings.Join(strings.Fields(strings.Join([]string{rp.StreetNumber, rp.StreetName, rp.StreetSuffix}, " ")), " ")
		if rp.City != "" {
			address += ", " + rp.City
		}
	}

	l := model.Listing{
		ID:           rp.ListingKey,
		MLSNumber:    rp.ListingID,
		Address:      address,
		City:         rp.City,
		Beds:         rp.BedroomsTotal,
		Baths:        rp.BathroomsTotalInteger,
		PropertyType: rp.PropertySubType,
		Description:  rp.PublicRemarks,
		ListingAgent: rp.ListAgentFullName,
		Brokerage:    rp.ListOfficeName,
		Phone:        utils.FormatPhone(rp.ListAgentDirectPhone),
		Status:       rp.StandardStatus,
		DaysOnMarket: rp.DaysOnMarket,
		Source:       config.ProviderMLS,
		ModifiedAt:   rp.ModificationTimestamp,
		Features:     model.JSONArray(utils.ExtractFeatures(rp.PublicRemarks, 5)),
	}
	if l.MLSNumber == "" {
		l.MLSNumber = rp.ListingKey
	}
	if rp.ListPrice != nil && *rp.ListPrice > 0 {
		l.Price = model.Ptr(int64(math.Round(*rp.ListPrice)))
	}
	if rp.LivingArea != nil && *rp.LivingArea > 0 {
		l.Sqft = model.Ptr(int(math.Round(*rp.LivingArea)))
	}

	if strings.Contains(strings.ToLower(rp.PropertyType), "commercial") {
		l.Category = model.CategoryCommercial
	} else {
		l.Category = model.CategoryResidential
	}

	l.Type = utils.NormalizeSubType(rp.PropertySubType)
	if sub, _ := utils.InferSubType(rp.PropertySubType); sub != "" && !knownSubType(l.Type) {
		l.Type = sub
	}

	name := rp.PropertySubType
	if name == "" {
		name = "Property"
	}
	if rp.City != "" {
		l.Title = name + " in " + rp.City
	} else {
		l.Title = name
	}
	return l
}

func knownSubType(s string) bool {
	switch s {
	case "condo", "house", "townhouse", "apartment", "penthouse", "retail", "office", "warehouse", "industrial":
		return true
	}
	return false
}
