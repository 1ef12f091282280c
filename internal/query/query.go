// Package query implements the in-memory list filtering, searching and
// sorting shared by the trainee and appraisal list endpoints.
package query

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter is a free-text query plus multi-select facet sets. An empty facet
// slice places no restriction on that axis; a record must match every axis
// and the text query to be included.
type Filter struct {
	Query         string
	TrainingTypes []string
	Installations []string
}

// Fields describes how to read the searchable and facet values off a record.
// FoldedText fields match the query as a case-insensitive substring;
// ExactText fields (phone numbers) match without case folding.
type Fields[T any] struct {
	FoldedText   func(T) []string
	ExactText    func(T) []string
	TrainingType func(T) string
	Installation func(T) string
}

// Apply returns the ordered subset of items matching the filter. Input order
// is preserved; an empty result is a normal outcome.
func Apply[T any](items []T, f Filter, fields Fields[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Matches(item, f, fields) {
			out = append(out, item)
		}
	}
	return out
}

// Matches reports whether a single record passes the filter.
func Matches[T any](item T, f Filter, fields Fields[T]) bool {
	if !matchesQuery(item, f.Query, fields) {
		return false
	}
	if fields.TrainingType != nil && !matchesFacet(fields.TrainingType(item), f.TrainingTypes) {
		return false
	}
	if fields.Installation != nil && !matchesFacet(fields.Installation(item), f.Installations) {
		return false
	}
	return true
}

func matchesQuery[T any](item T, q string, fields Fields[T]) bool {
	if q == "" {
		return true
	}
	folded := strings.ToLower(q)
	if fields.FoldedText != nil {
		for _, field := range fields.FoldedText(item) {
			if strings.Contains(strings.ToLower(field), folded) {
				return true
			}
		}
	}
	if fields.ExactText != nil {
		for _, field := range fields.ExactText(item) {
			if strings.Contains(field, q) {
				return true
			}
		}
	}
	return false
}

func matchesFacet(value string, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if value == s {
			return true
		}
	}
	return false
}

var collator = collate.New(language.English)

// Sort orders items in place by the given key, stably: strings compare with
// locale-aware collation, numbers by numeric difference, anything else is
// treated as equal and keeps its pre-sort relative order. Call after Apply;
// sorting covers the filtered subset only.
func Sort[T any](items []T, key func(T) interface{}, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		c := compareValues(key(items[i]), key(items[j]))
		if descending {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b interface{}) int {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return collator.CompareString(as, bs)
		}
		return 0
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
