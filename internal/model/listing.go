package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Listing is one property as returned by any listings provider.
// Unknown numeric values are nil, never zero.
type Listing struct {
	ID           string     `json:"id" db:"id"`
	MLSNumber    string     `json:"mlsId,omitempty" db:"mls_number"`
	Title        string     `json:"title" db:"title"`
	Address      string     `json:"address" db:"address"`
	City         string     `json:"city,omitempty" db:"city"`
	Category     Category   `json:"category,omitempty" db:"category"`
	Price        *int64     `json:"price,omitempty" db:"price"`
	Beds         *int       `json:"beds,omitempty" db:"beds"`
	Baths        *int       `json:"baths,omitempty" db:"baths"`
	Sqft         *int       `json:"sqft,omitempty" db:"sqft"`
	Type         string     `json:"type,omitempty" db:"sub_type"`
	PropertyType string     `json:"propertyType,omitempty" db:"property_type"`
	Image        string     `json:"image,omitempty" db:"image"`
	Features     JSONArray  `json:"features,omitempty" db:"features"`
	Description  string     `json:"description,omitempty" db:"description"`
	ListingAgent string     `json:"listingAgent,omitempty" db:"listing_agent"`
	Brokerage    string     `json:"brokerage,omitempty" db:"brokerage"`
	Phone        string     `json:"phone,omitempty" db:"phone"`
	Status       string     `json:"status,omitempty" db:"status"`
	DaysOnMarket *int       `json:"daysOnMarket,omitempty" db:"days_on_market"`
	URL          string     `json:"url,omitempty" db:"url"`
	Source       string     `json:"source,omitempty" db:"source"`
	ModifiedAt   *time.Time `json:"modifiedAt,omitempty" db:"modified_at"`
}

// ListingMatch is a listing with the reasons it satisfied a filter
type ListingMatch struct {
	Listing
	MatchedReasons []string `json:"matchedReasons"`
}

// JSONArray is a text[]-like JSON column
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported features column type %T", value)
	}
}
