package domain

import "strings"

const copySuffix = " (Copy)"

// NormalizeTitle trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for trip and item titles.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CopyTitle marks a trip title as belonging to a clone.
func CopyTitle(title string) string {
	t := NormalizeTitle(title)
	if t == "" {
		return strings.TrimSpace(copySuffix)
	}
	return t + copySuffix
}

// DefaultTripTitle names a generated trip after its destination.
func DefaultTripTitle(province, city string) string {
	dest := NormalizeTitle(city)
	if dest == "" {
		dest = NormalizeTitle(province)
	}
	if dest == "" {
		return "Trip"
	}
	return "Trip to " + dest
}
