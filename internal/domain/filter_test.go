package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSearchFilter(t *testing.T) {
	f := DefaultSearchFilter()

	assert.True(t, f.IncludePaid)
	assert.Equal(t, SortByRelevance, f.SortBy)
	assert.Equal(t, SortDescending, f.SortDirection)
	assert.Equal(t, 20, f.PageSize)
	assert.Equal(t, 0, f.Page)
	assert.NoError(t, f.Validate())
}

func TestSearchFilter_Validate(t *testing.T) {
	f := DefaultSearchFilter()
	f.PageSize = 0
	assert.Error(t, f.Validate())

	f = DefaultSearchFilter()
	f.Page = -1
	assert.Error(t, f.Validate())

	f = DefaultSearchFilter()
	f.SortBy = "popularity"
	assert.Error(t, f.Validate())

	f = DefaultSearchFilter()
	f.SortDirection = "sideways"
	assert.Error(t, f.Validate())

	f = DefaultSearchFilter()
	f.MinRating = 5.1
	assert.Error(t, f.Validate())

	f = DefaultSearchFilter()
	f.ReleaseStatuses = []ReleaseStatus{"nightly"}
	assert.Error(t, f.Validate())

	f = DefaultSearchFilter()
	f.ReleaseStatuses = []ReleaseStatus{ReleaseStable, ReleaseBeta}
	f.MinRating = 4.5
	f.SortBy = SortByDownloads
	f.SortDirection = SortAscending
	assert.NoError(t, f.Validate())
}
