package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeColumnName is the matching form of a column header: trimmed,
// inner whitespace collapsed, lower-cased. Display code keeps the original.
func NormalizeColumnName(input string) string {
	return strings.ToLower(NormalizeSpaces(input))
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// FindColumn returns the index of the first column, left to right, whose
// normalized name contains any of the probes. Columns listed in skip are
// ignored. Returns -1 when nothing matches.
func FindColumn(columns []string, probes []string, skip ...int) int {
	for i, c := range columns {
		if containsInt(skip, i) {
			continue
		}
		norm := NormalizeColumnName(c)
		for _, probe := range probes {
			if strings.Contains(norm, probe) {
				return i
			}
		}
	}
	return -1
}

// FindColumnExact is FindColumn with equality instead of substring matching.
func FindColumnExact(columns []string, names []string) int {
	for i, c := range columns {
		norm := NormalizeColumnName(c)
		for _, name := range names {
			if norm == name {
				return i
			}
		}
	}
	return -1
}

// SnakeLower turns a display label into a file stem: "SAN JUAN" -> "san_juan".
func SnakeLower(label string) string {
	return strings.ReplaceAll(strings.ToLower(NormalizeSpaces(label)), " ", "_")
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
