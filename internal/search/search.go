// Package search reduces a JSON value to the parts that match a term.
//
// Matching is a case-insensitive substring test against object keys and
// against the string form of primitive values. A key that matches keeps its
// whole original value; a value that matches keeps only the matching
// sub-structure. "No match" is reported through the boolean result, never
// through an error.
package search

import (
	"strings"

	"github.com/mcncl/jsonbrowse/internal/models"
)

// Filter returns the part of value matching term and whether anything
// matched. An empty term returns value unchanged.
func Filter(value models.Value, term string) (models.Value, bool) {
	if term == "" {
		return value, true
	}
	return filter(value, strings.ToLower(term))
}

// FilterOrEmpty applies Filter and substitutes an empty object for "no
// match", which renders as zero rows.
func FilterOrEmpty(value models.Value, term string) models.Value {
	if out, ok := Filter(value, term); ok {
		return out
	}
	return models.Object()
}

// Matches reports whether s contains term, ignoring case.
func Matches(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}

func filter(value models.Value, lowered string) (models.Value, bool) {
	switch value.Kind() {
	case models.KindArray:
		var kept []models.Value
		for _, item := range value.Items() {
			if out, ok := filter(item, lowered); ok {
				kept = append(kept, out)
			}
		}
		if len(kept) == 0 {
			return models.Value{}, false
		}
		return models.Array(kept...), true

	case models.KindObject:
		var kept []models.Member
		for _, m := range value.Members() {
			if strings.Contains(strings.ToLower(m.Key), lowered) {
				kept = append(kept, m)
				continue
			}
			if out, ok := filter(m.Value, lowered); ok {
				kept = append(kept, models.Member{Key: m.Key, Value: out})
			}
		}
		if len(kept) == 0 {
			return models.Value{}, false
		}
		return models.Object(kept...), true

	default:
		if strings.Contains(strings.ToLower(value.StringForm()), lowered) {
			return value, true
		}
		return models.Value{}, false
	}
}

// CountMatches counts matching keys plus matching primitive values
// anywhere in value. Descendants of a matching key are still counted.
func CountMatches(value models.Value, term string) int {
	if term == "" {
		return 0
	}
	lowered := strings.ToLower(term)
	var count func(v models.Value) int
	count = func(v models.Value) int {
		switch v.Kind() {
		case models.KindObject:
			n := 0
			for _, m := range v.Members() {
				if strings.Contains(strings.ToLower(m.Key), lowered) {
					n++
				}
				n += count(m.Value)
			}
			return n
		case models.KindArray:
			n := 0
			for _, item := range v.Items() {
				n += count(item)
			}
			return n
		default:
			if strings.Contains(strings.ToLower(v.StringForm()), lowered) {
				return 1
			}
			return 0
		}
	}
	return count(value)
}
