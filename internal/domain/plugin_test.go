package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackage() *PluginPackage {
	return &PluginPackage{
		ID:     "markdown-preview",
		Name:   "Markdown Preview",
		Author: "acme",
		Versions: []PluginVersion{
			{Version: "1.0.0", ReleaseStatus: ReleaseStable, Compatibility: "*"},
			{Version: "1.2.0", ReleaseStatus: ReleaseStable, Compatibility: ">=1.0.0"},
			{Version: "2.0.0-pre", ReleaseStatus: ReleaseBeta, Compatibility: ">=2.0.0"},
		},
	}
}

func TestPluginPackage_Validate(t *testing.T) {
	pkg := testPackage()
	assert.NoError(t, pkg.Validate())

	pkg.ID = ""
	assert.Error(t, pkg.Validate())

	pkg = testPackage()
	pkg.Name = ""
	assert.Error(t, pkg.Validate())
}

func TestPluginPackage_Validate_FreePackagePrice(t *testing.T) {
	pkg := testPackage()
	pkg.Paid = false
	pkg.Price = 9.99

	assert.Error(t, pkg.Validate())

	pkg.Paid = true
	assert.NoError(t, pkg.Validate())
}

func TestPluginPackage_PriceCurrency(t *testing.T) {
	pkg := testPackage()
	pkg.Paid = true

	assert.Equal(t, DefaultCurrency, pkg.PriceCurrency())

	pkg.Currency = "USD"
	assert.Equal(t, "USD", pkg.PriceCurrency())
}

func TestPluginPackage_FindVersion(t *testing.T) {
	pkg := testPackage()

	v, found := pkg.FindVersion("1.2.0")
	require.True(t, found)
	assert.Equal(t, "1.2.0", v.Version)

	_, found = pkg.FindVersion("9.9.9")
	assert.False(t, found)
}

func TestPluginPackage_LatestVersion(t *testing.T) {
	pkg := testPackage()

	latest := pkg.LatestVersion(ReleaseStable)
	require.NotNil(t, latest)
	assert.Equal(t, "1.2.0", latest.Version)

	latest = pkg.LatestVersion()
	require.NotNil(t, latest)
	assert.Equal(t, "2.0.0-pre", latest.Version)

	latest = pkg.LatestVersion(ReleaseDeprecated)
	assert.Nil(t, latest)
}

func TestRating_Validate(t *testing.T) {
	rating := Rating{
		Average: 4.2,
		Count:   10,
		Histogram: map[int]int64{
			5: 6,
			4: 2,
			3: 1,
			1: 1,
		},
	}
	assert.NoError(t, rating.Validate())

	// no histogram is fine
	assert.NoError(t, (&Rating{Average: 4.0, Count: 3}).Validate())
}

func TestRating_Validate_BadHistogram(t *testing.T) {
	rating := Rating{Count: 2, Histogram: map[int]int64{6: 2}}
	assert.Error(t, rating.Validate())

	rating = Rating{Count: 2, Histogram: map[int]int64{5: -2}}
	assert.Error(t, rating.Validate())

	rating = Rating{Count: 5, Histogram: map[int]int64{5: 2, 4: 2}}
	assert.Error(t, rating.Validate())
}

func TestPluginVersion_Algorithm(t *testing.T) {
	v := PluginVersion{}
	assert.Equal(t, DefaultChecksumAlgorithm, v.Algorithm())

	v.ChecksumAlgorithm = "SHA1"
	assert.Equal(t, "SHA1", v.Algorithm())
}
