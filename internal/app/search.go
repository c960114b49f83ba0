package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/plugin-hub/internal/domain"
)

// SearchResult is one ordered page of matches plus the total match count
type SearchResult struct {
	Items    []*domain.PluginPackage `json:"items"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}

// SearchPlugins evaluates a filter against a catalog snapshot. It is a pure
// function: the snapshot is never mutated and repeated calls against an
// unchanged snapshot return identical pages.
func SearchPlugins(snapshot []*domain.PluginPackage, filter *domain.SearchFilter) (*SearchResult, error) {
	if filter == nil {
		filter = domain.DefaultSearchFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search filter: %w", err)
	}

	matched := make([]*domain.PluginPackage, 0, len(snapshot))
	for _, pkg := range snapshot {
		if matchesFilter(pkg, filter) {
			matched = append(matched, pkg)
		}
	}

	sortPackages(matched, filter.SortBy, filter.SortDirection)

	total := len(matched)
	start := filter.Page * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	return &SearchResult{
		Items:    matched[start:end],
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func matchesFilter(pkg *domain.PluginPackage, f *domain.SearchFilter) bool {
	if query := strings.TrimSpace(f.Query); query != "" {
		q := strings.ToLower(query)
		if !strings.Contains(strings.ToLower(pkg.Name), q) &&
			!strings.Contains(strings.ToLower(pkg.Description), q) {
			return false
		}
	}

	if len(f.Categories) > 0 && !intersects(pkg.Categories, f.Categories) {
		return false
	}
	if len(f.Tags) > 0 && !intersects(pkg.Tags, f.Tags) {
		return false
	}

	if f.Author != "" && pkg.Author != f.Author {
		return false
	}

	if f.MinRating > 0 && pkg.Rating.Average < f.MinRating {
		return false
	}

	if len(f.ReleaseStatuses) > 0 && !containsStatus(f.ReleaseStatuses, pkg.ReleaseStatus) {
		return false
	}
	if len(f.VerificationStatuses) > 0 && !containsVerification(f.VerificationStatuses, pkg.Verification) {
		return false
	}

	if pkg.Paid && !f.IncludePaid {
		return false
	}

	return true
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func containsStatus(list []domain.ReleaseStatus, s domain.ReleaseStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsVerification(list []domain.VerificationStatus, s domain.VerificationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sortPackages orders packages by the requested key. The sort is stable and
// equal keys fall back to package id so pagination stays deterministic.
func sortPackages(pkgs []*domain.PluginPackage, key domain.SortKey, dir domain.SortDirection) {
	ascending := dir == domain.SortAscending

	less := func(a, b *domain.PluginPackage) int {
		switch key {
		case domain.SortByName:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case domain.SortByDownloads:
			return compareInt64(a.Stats.Total, b.Stats.Total)
		case domain.SortByRating:
			return compareFloat64(a.Rating.Average, b.Rating.Average)
		case domain.SortByLastUpdated:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case domain.SortByPublishDate:
			return latestRelease(a).Compare(latestRelease(b))
		default: // relevance: downloads weighted by rating
			return compareFloat64(relevanceScore(a), relevanceScore(b))
		}
	}

	sort.SliceStable(pkgs, func(i, j int) bool {
		c := less(pkgs[i], pkgs[j])
		if c == 0 {
			return pkgs[i].ID < pkgs[j].ID
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
}

func relevanceScore(p *domain.PluginPackage) float64 {
	return float64(p.Stats.Total) * (1 + p.Rating.Average)
}

func latestRelease(p *domain.PluginPackage) time.Time {
	var t time.Time
	for i := range p.Versions {
		if p.Versions[i].ReleasedAt.After(t) {
			t = p.Versions[i].ReleasedAt
		}
	}
	return t
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
