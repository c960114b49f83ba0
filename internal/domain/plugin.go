package domain

import (
	"fmt"
	"time"
)

// ReleaseStatus represents the release channel of a package or version
type ReleaseStatus string

const (
	ReleaseStable     ReleaseStatus = "stable"
	ReleaseBeta       ReleaseStatus = "beta"
	ReleaseAlpha      ReleaseStatus = "alpha"
	ReleaseDeprecated ReleaseStatus = "deprecated"
)

// ValidReleaseStatus checks if a release status is one of the defined values
func ValidReleaseStatus(s ReleaseStatus) bool {
	switch s {
	case ReleaseStable, ReleaseBeta, ReleaseAlpha, ReleaseDeprecated:
		return true
	}
	return false
}

// VerificationStatus represents publisher verification of a package
type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "verified"
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
)

// DefaultCurrency is used when a paid package does not declare one
const DefaultCurrency = "CNY"

// DefaultChecksumAlgorithm is assumed when a version omits the algorithm tag
const DefaultChecksumAlgorithm = "SHA256"

// PluginVersion describes one published version of a plugin. Descriptors
// are immutable once published; sync replaces whole packages rather than
// editing version lists in place.
type PluginVersion struct {
	Version           string        `json:"version"`
	ReleasedAt        time.Time     `json:"released_at"`
	Description       string        `json:"description,omitempty"`
	DownloadURL       string        `json:"download_url"`
	FileSize          int64         `json:"file_size"`
	Checksum          string        `json:"checksum"`
	ChecksumAlgorithm string        `json:"checksum_algorithm,omitempty"`
	ReleaseStatus     ReleaseStatus `json:"release_status"`
	Compatibility     string        `json:"compatibility"` // host version constraint, "*" = any
}

// Algorithm returns the checksum algorithm tag, applying the default
func (v *PluginVersion) Algorithm() string {
	if v.ChecksumAlgorithm == "" {
		return DefaultChecksumAlgorithm
	}
	return v.ChecksumAlgorithm
}

// DownloadStats aggregates download counters for a package
type DownloadStats struct {
	Total          int64      `json:"total"`
	Weekly         int64      `json:"weekly"`
	Monthly        int64      `json:"monthly"`
	LastDownloadAt *time.Time `json:"last_download_at,omitempty"`
}

// Rating aggregates user ratings with a per-star histogram keyed 1..5
type Rating struct {
	Average   float64       `json:"average"`
	Count     int64         `json:"count"`
	Histogram map[int]int64 `json:"histogram,omitempty"`
}

// Validate checks that the histogram is keyed 1..5 and sums to the count
func (r *Rating) Validate() error {
	if len(r.Histogram) == 0 {
		return nil
	}
	var sum int64
	for star, n := range r.Histogram {
		if star < 1 || star > 5 {
			return fmt.Errorf("invalid rating star: %d", star)
		}
		if n < 0 {
			return fmt.Errorf("negative rating count for star %d", star)
		}
		sum += n
	}
	if sum != r.Count {
		return fmt.Errorf("rating histogram sums to %d, expected %d", sum, r.Count)
	}
	return nil
}

// SystemRequirements describes what a package needs from the host
type SystemRequirements struct {
	Platforms      []string `json:"platforms,omitempty"`
	MinHostVersion string   `json:"min_host_version,omitempty"`
	MinMemoryMB    int64    `json:"min_memory_mb,omitempty"`
	MinDiskMB      int64    `json:"min_disk_mb,omitempty"`
	Extra          []string `json:"extra,omitempty"`
}

// PluginPackage is a remote catalog entry for one plugin
type PluginPackage struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Author         string             `json:"author"`
	Categories     []string           `json:"categories,omitempty"`
	Tags           []string           `json:"tags,omitempty"`
	RepositoryID   string             `json:"repository_id"`
	RepositoryName string             `json:"repository_name,omitempty"`
	Versions       []PluginVersion    `json:"versions"`
	Stats          DownloadStats      `json:"stats"`
	Rating         Rating             `json:"rating"`
	Description    string             `json:"description,omitempty"`
	Changelog      string             `json:"changelog,omitempty"`
	Requirements   SystemRequirements `json:"requirements"`
	ReleaseStatus  ReleaseStatus      `json:"release_status"`
	Paid           bool               `json:"paid"`
	Price          float64            `json:"price,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Verification   VerificationStatus `json:"verification"`
}

// Validate checks structural invariants of a catalog entry
func (p *PluginPackage) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("package missing id")
	}
	if p.Name == "" {
		return fmt.Errorf("package %s missing name", p.ID)
	}
	if err := p.Rating.Validate(); err != nil {
		return fmt.Errorf("package %s: %w", p.ID, err)
	}
	if !p.Paid && p.Price != 0 {
		return fmt.Errorf("package %s: price set on a free package", p.ID)
	}
	return nil
}

// PriceCurrency returns the currency code, applying the default for paid packages
func (p *PluginPackage) PriceCurrency() string {
	if p.Currency == "" {
		return DefaultCurrency
	}
	return p.Currency
}

// FindVersion returns the version descriptor matching the given version string
func (p *PluginPackage) FindVersion(version string) (*PluginVersion, bool) {
	for i := range p.Versions {
		if p.Versions[i].Version == version {
			return &p.Versions[i], true
		}
	}
	return nil, false
}

// LatestVersion returns the highest version among the given release
// statuses, or nil when none qualifies.
func (p *PluginPackage) LatestVersion(statuses ...ReleaseStatus) *PluginVersion {
	allowed := make(map[ReleaseStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var latest *PluginVersion
	for i := range p.Versions {
		v := &p.Versions[i]
		if len(allowed) > 0 && !allowed[v.ReleaseStatus] {
			continue
		}
		if latest == nil || CompareVersions(v.Version, latest.Version) > 0 {
			latest = v
		}
	}
	return latest
}
