package domain

import "fmt"

// SortKey selects the ordering of search results
type SortKey string

const (
	SortByRelevance   SortKey = "relevance"
	SortByName        SortKey = "name"
	SortByDownloads   SortKey = "downloads"
	SortByRating      SortKey = "rating"
	SortByLastUpdated SortKey = "last_updated"
	SortByPublishDate SortKey = "publish_date"
)

// SortDirection selects ascending or descending order
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SearchFilter specifies a catalog query. Empty category/tag sets mean
// "no restriction", not "match nothing".
type SearchFilter struct {
	Query                string               `json:"query,omitempty"`
	Categories           []string             `json:"categories,omitempty"`
	Tags                 []string             `json:"tags,omitempty"`
	Author               string               `json:"author,omitempty"`
	MinRating            float64              `json:"min_rating,omitempty"`
	ReleaseStatuses      []ReleaseStatus      `json:"release_statuses,omitempty"`
	VerificationStatuses []VerificationStatus `json:"verification_statuses,omitempty"`
	IncludePaid          bool                 `json:"include_paid"`
	SortBy               SortKey              `json:"sort_by,omitempty"`
	SortDirection        SortDirection        `json:"sort_direction,omitempty"`
	PageSize             int                  `json:"page_size"`
	Page                 int                  `json:"page"`
}

// DefaultSearchFilter returns a filter matching everything, first page
func DefaultSearchFilter() *SearchFilter {
	return &SearchFilter{
		IncludePaid:   true,
		SortBy:        SortByRelevance,
		SortDirection: SortDescending,
		PageSize:      20,
		Page:          0,
	}
}

// Validate rejects malformed filter specifications
func (f *SearchFilter) Validate() error {
	if f.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", f.PageSize)
	}
	if f.Page < 0 {
		return fmt.Errorf("page index must not be negative, got %d", f.Page)
	}
	if f.SortBy != "" {
		switch f.SortBy {
		case SortByRelevance, SortByName, SortByDownloads, SortByRating, SortByLastUpdated, SortByPublishDate:
		default:
			return fmt.Errorf("unknown sort key: %s", f.SortBy)
		}
	}
	if f.SortDirection != "" && f.SortDirection != SortAscending && f.SortDirection != SortDescending {
		return fmt.Errorf("unknown sort direction: %s", f.SortDirection)
	}
	if f.MinRating < 0 || f.MinRating > 5 {
		return fmt.Errorf("min rating must be within [0,5], got %v", f.MinRating)
	}
	for _, s := range f.ReleaseStatuses {
		if !ValidReleaseStatus(s) {
			return fmt.Errorf("unknown release status: %s", s)
		}
	}
	return nil
}
