package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyassist/internal/logger"
	"realtyassist/internal/middleware"
	"realtyassist/internal/model"
	"realtyassist/internal/repository"
	"realtyassist/internal/service"
	"realtyassist/internal/utils"
)

// ListingsHandler handles listing queries
type ListingsHandler struct {
	listingsService *service.ListingsService
	log             logger.Logger
}

// NewListingsHandler creates a new listings handler
func NewListingsHandler(listingsService *service.ListingsService, log logger.Logger) *ListingsHandler {
	return &ListingsHandler{
		listingsService: listingsService,
		log:             log.With(map[string]interface{}{"component": "listings_handler"}),
	}
}

// List handles GET /api/listings
//
// q is free text run through the extractor; explicit parameters override
// whatever it produced.
func (h *ListingsHandler) List(c *gin.Context) {
	query, err := parseListingsQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	resp, err := h.listingsService.Search(c.Request.Context(), query)
	if err != nil {
		h.log.Error("listings search failed", map[string]interface{}{
			"request_id": middleware.RequestIDFrom(c),
			"error":      err,
		})
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Listings are unavailable right now"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetListing handles GET /api/listings/:id
func (h *ListingsHandler) GetListing(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	listing, err := h.listingsService.GetListing(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get listing: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, listing)
}

func parseListingsQuery(c *gin.Context) (model.ListingsQuery, error) {
	var q model.ListingsQuery
	if text := strings.TrimSpace(c.Query("q")); text != "" {
		q.Filter = service.Extract(text)
	}
	q.Search = c.Query("search")

	if v := strings.ToLower(strings.TrimSpace(c.Query("category"))); v != "" {
		switch cat := model.Category(v); cat {
		case model.CategoryResidential, model.CategoryCommercial:
			q.Filter.PropertyCategory = cat
		default:
			return q, fmt.Errorf("category must be residential or commercial")
		}
	}
	switch v := strings.TrimSpace(c.Query("type")); {
	case strings.EqualFold(v, "all"):
		q.Filter.PropertySubType = nil
	case v != "":
		q.Filter.PropertySubType = model.Ptr(utils.NormalizeSubType(v))
	}
	if v := strings.TrimSpace(c.Query("location")); v != "" {
		q.Filter.Location = model.Ptr(v)
	}

	var err error
	if q.Filter.MinPrice, err = queryInt64(c, "minPrice", q.Filter.MinPrice); err != nil {
		return q, err
	}
	if q.Filter.MaxPrice, err = queryInt64(c, "maxPrice", q.Filter.MaxPrice); err != nil {
		return q, err
	}
	if q.Filter.Beds, err = queryInt(c, "beds", q.Filter.Beds); err != nil {
		return q, err
	}
	if q.Filter.Baths, err = queryInt(c, "baths", q.Filter.Baths); err != nil {
		return q, err
	}
	limit, err := queryInt(c, "limit", nil)
	if err != nil {
		return q, err
	}
	if limit != nil {
		q.Limit = *limit
	}
	return q, nil
}

func queryInt64(c *gin.Context, name string, current *int64) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return current, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return &v, nil
}

func queryInt(c *gin.Context, name string, current *int) (*int, error) {
	v, err := queryInt64(c, name, nil)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return current, nil
	}
	return model.Ptr(int(*v)), nil
}
