package model

// Category is the top level property category of a listing or filter.
type Category string

const (
	CategoryResidential Category = "residential"
	CategoryCommercial  Category = "commercial"
)

// SearchFilter is the structured query extracted from a message or built from
// request parameters. A nil field (or empty PropertyCategory) is absent and
// does not constrain results.
type SearchFilter struct {
	PropertyCategory Category `json:"propertyCategory,omitempty"`
	Location         *string  `json:"location,omitempty"`
	MinPrice         *int64   `json:"minPrice,omitempty"`
	MaxPrice         *int64   `json:"maxPrice,omitempty"`
	Beds             *int     `json:"beds,omitempty"`
	Baths            *int     `json:"baths,omitempty"`
	PropertySubType  *string  `json:"propertySubType,omitempty"`
}

// DefaultFilter is what extraction returns when nothing else is recognised.
func DefaultFilter() SearchFilter {
	return SearchFilter{PropertyCategory: CategoryResidential}
}

// IsEmpty reports whether every field is absent.
func (f SearchFilter) IsEmpty() bool {
	return f.PropertyCategory == "" && f.Location == nil && f.MinPrice == nil &&
		f.MaxPrice == nil && f.Beds == nil && f.Baths == nil && f.PropertySubType == nil
}

// Ptr returns a pointer to v. Used for building optional filter and listing fields.
func Ptr[T any](v T) *T {
	return &v
}
