package core

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/pulse/schema"
)

// timestampLayouts are tried in order when resolving a raw timestamp.
// GitLab returns RFC3339 with milliseconds; git log --date=iso returns the second form.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// rawItem is the common shape every raw payload is reduced to before normalization.
type rawItem struct {
	kind       string
	id         string
	timestamps []string // candidate fields in resolution order
}

// parseTimestamp resolves a raw timestamp string into an instant in UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", schema.ErrMalformedRecord)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", schema.ErrMalformedRecord, s)
}

// resolveTimestamp returns the first candidate that parses.
func resolveTimestamp(candidates []string) (time.Time, error) {
	var firstErr error
	for _, c := range candidates {
		t, err := parseTimestamp(c)
		if err == nil {
			return t, nil
		}
		if firstErr == nil && strings.TrimSpace(c) != "" {
			firstErr = err
		}
	}
	if firstErr != nil {
		return time.Time{}, firstErr
	}
	return time.Time{}, fmt.Errorf("%w: no timestamp field", schema.ErrMalformedRecord)
}

// commitItems reduces raw commits. committed_date wins over authored_date and created_at.
func commitItems(commits []schema.RawCommit) []rawItem {
	items := make([]rawItem, 0, len(commits))
	for _, c := range commits {
		items = append(items, rawItem{
			kind:       string(schema.CommitCategory),
			id:         c.ID,
			timestamps: []string{c.CommittedDate, c.AuthoredDate, c.CreatedAt},
		})
	}
	return items
}

// mergeRequestItems reduces raw merge requests. created_at wins over merged_at.
func mergeRequestItems(mrs []schema.RawMergeRequest) []rawItem {
	items := make([]rawItem, 0, len(mrs))
	for _, mr := range mrs {
		id := mr.MergeSHA
		if mr.ID != 0 {
			id = strconv.FormatInt(mr.ID, 10)
		}
		items = append(items, rawItem{
			kind:       string(schema.MergeRequestCategory),
			id:         id,
			timestamps: []string{mr.CreatedAt, mr.MergedAt},
		})
	}
	return items
}

// genericItems reduces source-agnostic raw events.
func genericItems(events []schema.RawEvent) []rawItem {
	items := make([]rawItem, 0, len(events))
	for _, e := range events {
		items = append(items, rawItem{kind: e.Kind, id: e.ID, timestamps: []string{e.Timestamp}})
	}
	return items
}

// Normalize converts raw commits and merge requests into one time-sorted event sequence.
// Records without a usable timestamp are skipped and reported; they never fail the batch.
func Normalize(projectID string, commits []schema.RawCommit, mergeRequests []schema.RawMergeRequest) ([]schema.EventRecord, schema.NormalizeReport) {
	items := append(commitItems(commits), mergeRequestItems(mergeRequests)...)
	return normalizeItems(projectID, items)
}

// NormalizeEvents converts generic raw events into one time-sorted event sequence.
// Events whose kind is not a known category are skipped and reported.
func NormalizeEvents(projectID string, events []schema.RawEvent) ([]schema.EventRecord, schema.NormalizeReport) {
	return normalizeItems(projectID, genericItems(events))
}

// NormalizeBatch normalizes every list carried by a RawBatch in one pass.
// Input order is commits, then merge requests, then generic events.
func NormalizeBatch(projectID string, batch schema.RawBatch) ([]schema.EventRecord, schema.NormalizeReport) {
	items := commitItems(batch.Commits)
	items = append(items, mergeRequestItems(batch.MergeRequests)...)
	items = append(items, genericItems(batch.Events)...)
	return normalizeItems(projectID, items)
}

// normalizeItems resolves category and timestamp for every item, then sorts the survivors
// by timestamp, category ordinal and input order.
func normalizeItems(projectID string, items []rawItem) ([]schema.EventRecord, schema.NormalizeReport) {
	report := schema.NormalizeReport{Total: len(items)}
	events := make([]schema.EventRecord, 0, len(items))

	for i, item := range items {
		category, ok := schema.ParseCategory(item.kind)
		if !ok {
			report.UnknownCategory++
			report.Warnings = append(report.Warnings, schema.RecordWarning{
				Index:  i,
				Kind:   item.kind,
				ID:     item.id,
				Reason: fmt.Sprintf("category %q is not one of %s", item.kind, schema.FormatCategories(schema.AllCategories)),
				Err:    schema.ErrUnknownCategory,
			})
			continue
		}

		ts, err := resolveTimestamp(item.timestamps)
		if err != nil {
			report.Malformed++
			report.Warnings = append(report.Warnings, schema.RecordWarning{
				Index:  i,
				Kind:   item.kind,
				ID:     item.id,
				Reason: err.Error(),
				Err:    schema.ErrMalformedRecord,
			})
			continue
		}

		events = append(events, schema.EventRecord{
			ID:        item.id,
			Category:  category,
			Timestamp: ts,
			ProjectID: projectID,
		})
	}

	// Stable sort keeps input order as the final tie-breaker.
	slices.SortStableFunc(events, func(a, b schema.EventRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Category.Ordinal(), b.Category.Ordinal())
	})

	report.Accepted = len(events)
	return events, report
}
