package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/pulse/schema"
)

// MaxBuckets caps the length of a series so a wide range with hourly buckets
// cannot allocate without bound.
const MaxBuckets = 10000

// ParseGranularity resolves a user supplied granularity. Empty input means daily.
func ParseGranularity(s string) (schema.Granularity, error) {
	g, ok := schema.ParseGranularity(s)
	if !ok {
		return "", fmt.Errorf("%w: %q (must be hour, day, week or month)", schema.ErrUnknownGranularity, s)
	}
	return g, nil
}

// bucketFloor returns the start of the granularity period containing t, in t's location.
// Weeks start on Monday.
func bucketFloor(t time.Time, g schema.Granularity) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch g {
	case schema.HourGranularity:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case schema.WeekGranularity:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case schema.MonthGranularity:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// bucketNext returns the start of the period after the one starting at t.
// Calendar units use AddDate so daylight saving shifts keep buckets on midnight.
func bucketNext(t time.Time, g schema.Granularity) time.Time {
	switch g {
	case schema.HourGranularity:
		return t.Add(time.Hour)
	case schema.WeekGranularity:
		return t.AddDate(0, 0, 7)
	case schema.MonthGranularity:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// bucketBounds computes contiguous bucket boundaries covering rng, independent of any events.
// The first bucket contains rng.Start and the last bucket contains rng.End.
func bucketBounds(rng schema.DateRange, g schema.Granularity) ([][2]time.Time, error) {
	var bounds [][2]time.Time
	for cur := bucketFloor(rng.Start, g); !cur.After(rng.End); {
		if len(bounds) >= MaxBuckets {
			return nil, fmt.Errorf("%w: range %s to %s exceeds %d %s buckets", schema.ErrTooManyBuckets,
				rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339), MaxBuckets, g)
		}
		next := bucketNext(cur, g)
		bounds = append(bounds, [2]time.Time{cur, next})
		cur = next
	}
	return bounds, nil
}

// Bucketize partitions events into a dense, ordered series of buckets spanning rng.
// Every bucket carries a count for every known category, zero included. An event is
// counted when it lies within rng and bucketStart <= timestamp < bucketEnd.
func Bucketize(events []schema.EventRecord, rng schema.DateRange, g schema.Granularity) ([]schema.TimeBucket, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if g == "" {
		g = schema.DayGranularity
	}
	if _, ok := schema.ValidGranularities[g]; !ok {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownGranularity, g)
	}

	bounds, err := bucketBounds(rng, g)
	if err != nil {
		return nil, err
	}

	buckets := make([]schema.TimeBucket, len(bounds))
	for i, b := range bounds {
		counts := make(map[schema.Category]int, len(schema.AllCategories))
		for _, c := range schema.AllCategories {
			counts[c] = 0
		}
		buckets[i] = schema.TimeBucket{Start: b[0], End: b[1], Counts: counts}
	}

	for _, e := range events {
		if !e.Category.IsKnown() || !rng.Contains(e.Timestamp) {
			continue
		}
		idx := sort.Search(len(buckets), func(i int) bool {
			return buckets[i].End.After(e.Timestamp)
		})
		if idx < len(buckets) && !e.Timestamp.Before(buckets[idx].Start) {
			buckets[idx].Counts[e.Category]++
		}
	}

	return buckets, nil
}
