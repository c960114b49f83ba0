package domain

import (
	"strconv"
	"strings"
)

// CompatibilityAny is the wildcard compatibility expression
const CompatibilityAny = "*"

// CompareVersions compares two semantic versions.
// Returns: 1 if v1 > v2, -1 if v1 < v2, 0 if equal.
func CompareVersions(v1, v2 string) int {
	parts1 := parseVersion(v1)
	parts2 := parseVersion(v2)

	for i := 0; i < 3; i++ {
		if parts1[i] > parts2[i] {
			return 1
		}
		if parts1[i] < parts2[i] {
			return -1
		}
	}

	return 0
}

// parseVersion parses a version string into [major, minor, patch].
// Missing components are treated as 0; a leading "v" is tolerated.
func parseVersion(version string) [3]int {
	var result [3]int
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	parts := strings.Split(version, ".")

	for i := 0; i < 3 && i < len(parts); i++ {
		num, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return result
		}
		result[i] = num
	}

	return result
}

// validVersion reports whether every dotted component is a number
func validVersion(version string) bool {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return false
	}
	parts := strings.Split(version, ".")
	if len(parts) > 3 {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(strings.TrimSpace(p)); err != nil {
			return false
		}
	}
	return true
}

// IsCompatible reports whether the host version satisfies a compatibility
// expression. "*" or an empty expression accepts any host. Otherwise the
// expression is a space-separated conjunction of constraints, each one of:
//
//	1.2.3 or =1.2.3   exact match
//	>=1.2.3  <=1.2.3  >1.2.3  <1.2.3
//	^1.2.3            same major, at least 1.2.3
//	~1.2.3            same major.minor, patch >= 3
//
// A malformed expression is treated as "no match", never as an error.
func IsCompatible(expr, hostVersion string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == CompatibilityAny {
		return true
	}
	if !validVersion(hostVersion) {
		return false
	}

	for _, constraint := range strings.Fields(expr) {
		if !matchConstraint(constraint, hostVersion) {
			return false
		}
	}
	return true
}

// matchConstraint evaluates a single constraint against the host version
func matchConstraint(constraint, host string) bool {
	switch {
	case strings.HasPrefix(constraint, ">="):
		target := constraint[2:]
		return validVersion(target) && CompareVersions(host, target) >= 0

	case strings.HasPrefix(constraint, "<="):
		target := constraint[2:]
		return validVersion(target) && CompareVersions(host, target) <= 0

	case strings.HasPrefix(constraint, ">"):
		target := constraint[1:]
		return validVersion(target) && CompareVersions(host, target) > 0

	case strings.HasPrefix(constraint, "<"):
		target := constraint[1:]
		return validVersion(target) && CompareVersions(host, target) < 0

	case strings.HasPrefix(constraint, "^"):
		target := constraint[1:]
		if !validVersion(target) {
			return false
		}
		if parseVersion(host)[0] != parseVersion(target)[0] {
			return false
		}
		return CompareVersions(host, target) >= 0

	case strings.HasPrefix(constraint, "~"):
		target := constraint[1:]
		if !validVersion(target) {
			return false
		}
		hostParts, targetParts := parseVersion(host), parseVersion(target)
		if hostParts[0] != targetParts[0] || hostParts[1] != targetParts[1] {
			return false
		}
		return hostParts[2] >= targetParts[2]

	case strings.HasPrefix(constraint, "="):
		target := constraint[1:]
		return validVersion(target) && CompareVersions(host, target) == 0

	default:
		return validVersion(constraint) && CompareVersions(host, constraint) == 0
	}
}
