package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// normalizeKey lowercases and folds separators so "Merge-Request" and "merge_request" match.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// SortCategories orders categories by ordinal, with unknown categories last in lexical order.
func SortCategories(categories []Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		oi, oj := categories[i].Ordinal(), categories[j].Ordinal()
		switch {
		case oi < 0 && oj < 0:
			return categories[i] < categories[j]
		case oi < 0:
			return false
		case oj < 0:
			return true
		default:
			return oi < oj
		}
	})
}

// FormatCategories joins categories with a comma, or returns "none" for an empty list.
func FormatCategories(categories []Category) string {
	if len(categories) == 0 {
		return "none"
	}
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// CountsTotal sums the per-category counts of a bucket.
func CountsTotal(counts map[Category]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// BucketLabel formats a bucket start for display at the given granularity.
func BucketLabel(start time.Time, g Granularity) string {
	switch g {
	case HourGranularity:
		return start.Format("2006-01-02 15:00")
	case MonthGranularity:
		return start.Format("2006-01")
	case WeekGranularity:
		return "wk " + start.Format("2006-01-02")
	default:
		return start.Format("2006-01-02")
	}
}

// ValidateWeight rejects weights that would make a score negative or not a number.
func ValidateWeight(c Category, w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: %s has weight %v", ErrInvalidWeight, c, w)
	}
	if w < 0 {
		return fmt.Errorf("%w: %s has weight %.2f", ErrNegativeWeight, c, w)
	}
	return nil
}
