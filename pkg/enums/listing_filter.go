package enums

import "fmt"

// ListingFilter selects which rows a paginated listing query returns.
type ListingFilter string

const (
	ListingFilterAll       ListingFilter = "all"
	ListingFilterActive    ListingFilter = "active"
	ListingFilterCreatedBy ListingFilter = "created_by"
	ListingFilterOwnedBy   ListingFilter = "owned_by"
)

var validListingFilters = []ListingFilter{
	ListingFilterAll,
	ListingFilterActive,
	ListingFilterCreatedBy,
	ListingFilterOwnedBy,
}

// RequiresActor reports whether the filter needs an actor argument.
func (f ListingFilter) RequiresActor() bool {
	return f == ListingFilterCreatedBy || f == ListingFilterOwnedBy
}

// IsValid reports whether the value matches a canonical listing filter.
func (f ListingFilter) IsValid() bool {
	for _, candidate := range validListingFilters {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseListingFilter converts raw input into ListingFilter.
func ParseListingFilter(value string) (ListingFilter, error) {
	for _, candidate := range validListingFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing filter %q", value)
}
