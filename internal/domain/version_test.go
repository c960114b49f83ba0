package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2   string
		expected int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2.3", "1.2.3", 0},
		{"2.0.0", "1.9.9", 1},
		{"1.9.9", "2.0.0", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.1", "1.0.0", 1},
		{"1.0", "1.0.0", 0},
		{"1", "1.0.0", 0},
		{"v1.2.0", "1.2.0", 0},
		{"v2.0.0", "v1.0.0", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CompareVersions(tt.v1, tt.v2), "%s vs %s", tt.v1, tt.v2)
	}
}

func TestIsCompatible_Wildcard(t *testing.T) {
	assert.True(t, IsCompatible("*", "1.0.0"))
	assert.True(t, IsCompatible("", "1.0.0"))
	assert.True(t, IsCompatible("  ", "0.0.1"))
}

func TestIsCompatible_Exact(t *testing.T) {
	assert.True(t, IsCompatible("1.2.0", "1.2.0"))
	assert.True(t, IsCompatible("=1.2.0", "1.2.0"))
	assert.False(t, IsCompatible("1.2.0", "1.2.1"))
}

func TestIsCompatible_Ranges(t *testing.T) {
	assert.True(t, IsCompatible(">=1.2.0", "1.2.0"))
	assert.True(t, IsCompatible(">=1.2.0", "2.0.0"))
	assert.False(t, IsCompatible(">=1.2.0", "1.1.9"))

	assert.True(t, IsCompatible("<=2.0.0", "2.0.0"))
	assert.False(t, IsCompatible("<=2.0.0", "2.0.1"))

	assert.True(t, IsCompatible(">1.0.0", "1.0.1"))
	assert.False(t, IsCompatible(">1.0.0", "1.0.0"))

	assert.True(t, IsCompatible("<2.0.0", "1.9.9"))
	assert.False(t, IsCompatible("<2.0.0", "2.0.0"))
}

func TestIsCompatible_Caret(t *testing.T) {
	assert.True(t, IsCompatible("^1.2.0", "1.2.0"))
	assert.True(t, IsCompatible("^1.2.0", "1.9.0"))
	assert.False(t, IsCompatible("^1.2.0", "1.1.0"))
	assert.False(t, IsCompatible("^1.2.0", "2.0.0"))
}

func TestIsCompatible_Tilde(t *testing.T) {
	assert.True(t, IsCompatible("~1.2.3", "1.2.3"))
	assert.True(t, IsCompatible("~1.2.3", "1.2.9"))
	assert.False(t, IsCompatible("~1.2.3", "1.2.2"))
	assert.False(t, IsCompatible("~1.2.3", "1.3.0"))
	assert.False(t, IsCompatible("~1.2.3", "2.2.3"))
}

func TestIsCompatible_Conjunction(t *testing.T) {
	assert.True(t, IsCompatible(">=1.2.0 <2.0.0", "1.5.0"))
	assert.False(t, IsCompatible(">=1.2.0 <2.0.0", "2.0.0"))
	assert.False(t, IsCompatible(">=1.2.0 <2.0.0", "1.1.0"))
}

func TestIsCompatible_Malformed(t *testing.T) {
	// malformed expressions never match, and never panic
	assert.False(t, IsCompatible("banana", "1.0.0"))
	assert.False(t, IsCompatible(">=x.y.z", "1.0.0"))
	assert.False(t, IsCompatible("^", "1.0.0"))
	assert.False(t, IsCompatible(">=1.2.0 garbage", "1.5.0"))

	// a host version that isn't a version matches nothing but "*"
	assert.False(t, IsCompatible(">=1.0.0", "nightly"))
	assert.True(t, IsCompatible("*", "nightly"))
}
