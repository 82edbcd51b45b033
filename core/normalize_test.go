package core

import (
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeCommitsAndMergeRequests(t *testing.T) {
	commits := []schema.RawCommit{
		{ID: "c3", CommittedDate: "2020-10-01T00:00:00Z"},
		{ID: "c1", CommittedDate: "2020-09-05T00:00:00Z"},
		{ID: "c2", AuthoredDate: "2020-09-05T00:00:00Z"},
	}
	mrs := []schema.RawMergeRequest{
		{ID: 11, CreatedAt: "2020-09-05T00:00:00Z"},
		{ID: 12, CreatedAt: "2020-09-10T00:00:00.000+02:00"},
	}

	events, report := Normalize("42", commits, mrs)
	require.Len(t, events, 5)
	assert.Equal(t, 5, report.Accepted)
	assert.Equal(t, 0, report.Skipped())

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
		assert.Equal(t, "42", e.ProjectID)
		assert.Equal(t, time.UTC, e.Timestamp.Location())
	}
	// Same instant: commits before merge requests, then input order.
	assert.Equal(t, []string{"c1", "c2", "11", "12", "c3"}, ids)
	assert.Equal(t, time.Date(2020, 9, 9, 22, 0, 0, 0, time.UTC), events[3].Timestamp)
}

func TestNormalizeTimestampResolutionOrder(t *testing.T) {
	commits := []schema.RawCommit{{
		ID:            "c",
		CommittedDate: "2020-09-07T00:00:00Z",
		AuthoredDate:  "2020-09-06T00:00:00Z",
		CreatedAt:     "2020-09-05T00:00:00Z",
	}}
	mrs := []schema.RawMergeRequest{
		{ID: 1, CreatedAt: "2020-09-01T00:00:00Z", MergedAt: "2020-09-03T00:00:00Z"},
		{ID: 2, MergedAt: "2020-09-04T00:00:00Z"},
		{MergeSHA: "abc", MergedAt: "2020-09-04T00:00:00Z"},
	}

	events, report := Normalize("p", commits, mrs)
	require.Equal(t, 4, report.Accepted)
	byID := map[string]time.Time{}
	for _, e := range events {
		byID[e.ID] = e.Timestamp
	}
	assert.Equal(t, day(2020, 9, 7), byID["c"])
	assert.Equal(t, day(2020, 9, 1), byID["1"])
	assert.Equal(t, day(2020, 9, 4), byID["2"])
	assert.Equal(t, day(2020, 9, 4), byID["abc"])
}

func TestNormalizeMalformedRecords(t *testing.T) {
	commits := []schema.RawCommit{
		{ID: "ok", CommittedDate: "2020-09-05"},
		{ID: "empty"},
		{ID: "garbage", CommittedDate: "last tuesday"},
	}

	events, report := Normalize("p", commits, nil)
	require.Len(t, events, 1)
	assert.Equal(t, day(2020, 9, 5), events[0].Timestamp)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Malformed)
	require.Len(t, report.Warnings, 2)
	assert.Equal(t, "empty", report.Warnings[0].ID)
	assert.ErrorIs(t, report.Warnings[0].Err, schema.ErrMalformedRecord)
	assert.Contains(t, report.Warnings[1].Reason, "last tuesday")
}

func TestNormalizeEventsUnknownCategory(t *testing.T) {
	raw := []schema.RawEvent{
		{Kind: "commit", ID: "a", Timestamp: "2020-09-05T10:00:00Z"},
		{Kind: "issue", ID: "b", Timestamp: "2020-09-05T10:00:00Z"},
		{Kind: "mr", ID: "c", Timestamp: "2020-09-05T09:00:00Z"},
		{Kind: "pipeline", ID: "d", Timestamp: "bogus"},
	}

	events, report := NormalizeEvents("p", raw)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].ID)
	assert.Equal(t, schema.MergeRequestCategory, events[0].Category)
	assert.Equal(t, "a", events[1].ID)

	// Category is checked before the timestamp, so "pipeline" counts as unknown.
	assert.Equal(t, 2, report.UnknownCategory)
	assert.Equal(t, 0, report.Malformed)
	for _, w := range report.Warnings {
		assert.ErrorIs(t, w.Err, schema.ErrUnknownCategory)
	}
}

func TestNormalizeBatchOrder(t *testing.T) {
	batch := schema.RawBatch{
		Commits:       []schema.RawCommit{{ID: "c", CommittedDate: "2020-09-05T00:00:00Z"}},
		MergeRequests: []schema.RawMergeRequest{{ID: 1, CreatedAt: "2020-09-05T00:00:00Z"}},
		Events:        []schema.RawEvent{{Kind: "commit", ID: "e", Timestamp: "2020-09-05T00:00:00Z"}},
	}
	events, report := NormalizeBatch("p", batch)
	require.Len(t, events, 3)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []string{"c", "e", "1"}, []string{events[0].ID, events[1].ID, events[2].ID})
}

func TestNormalizeEmpty(t *testing.T) {
	events, report := Normalize("p", nil, nil)
	assert.Empty(t, events)
	assert.Equal(t, 0, report.Total)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{
		"2020-09-05T10:00:00Z",
		"2020-09-05T10:00:00.123+00:00",
		"2020-09-05 10:00:00 +0000",
		"2020-09-05T10:00:00",
	} {
		ts, err := parseTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, 10, ts.Hour(), s)
	}
	_, err := parseTimestamp("  ")
	assert.ErrorIs(t, err, schema.ErrMalformedRecord)
}

// FuzzNormalizeEvents checks that arbitrary raw input never panics and the report balances.
func FuzzNormalizeEvents(f *testing.F) {
	f.Add("commit", "2020-09-05T10:00:00Z")
	f.Add("merge_request", "2020-09-05")
	f.Add("unknown", "")
	f.Add("mr", "not a date")

	f.Fuzz(func(t *testing.T, kind, ts string) {
		events, report := NormalizeEvents("p", []schema.RawEvent{{Kind: kind, ID: "x", Timestamp: ts}})
		if report.Accepted+report.Skipped() != report.Total {
			t.Fatalf("report does not balance: %+v", report)
		}
		if len(events) != report.Accepted {
			t.Fatalf("accepted %d but returned %d events", report.Accepted, len(events))
		}
	})
}
