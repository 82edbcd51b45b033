// Package schema has the models, enums and errors shared by all parts of pulse.
package schema

import (
	"fmt"
	"time"
)

// EventRecord is a normalized collaboration event with a resolved timestamp and category.
// Values are treated as immutable once produced by the normalizer.
type EventRecord struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	ProjectID string    `json:"project_id"`
}

// DateRange bounds scoring and bucketization. Both ends are inclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate returns ErrInvalidRange when End is before Start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t lies within [Start, End].
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// CategoryScore is the derived score of one category for one scoring invocation.
type CategoryScore struct {
	Category Category `json:"category"`
	Value    float64  `json:"value"`
	Count    int      `json:"count"`  // Events of this category within range
	Weight   float64  `json:"weight"` // Weight applied to Count
}

// TimeBucket holds per-category counts for the half-open interval [Start, End).
type TimeBucket struct {
	Start  time.Time        `json:"bucket_start"`
	End    time.Time        `json:"bucket_end"`
	Counts map[Category]int `json:"counts"`
}

// VisibleBucket is a TimeBucket filtered through a panel's toggle state.
// Disabled categories are absent from Counts rather than zeroed.
type VisibleBucket struct {
	Start  time.Time        `json:"bucket_start"`
	End    time.Time        `json:"bucket_end"`
	Counts map[Category]int `json:"counts"`
}

// PanelToggleState is a snapshot of the categories enabled on one graph panel.
type PanelToggleState struct {
	PanelID string     `json:"panel_id"`
	Enabled []Category `json:"enabled"`
}

// IsEnabled reports whether the category is enabled in this snapshot.
func (s PanelToggleState) IsEnabled(c Category) bool {
	for _, e := range s.Enabled {
		if e == c {
			return true
		}
	}
	return false
}

// Project holds the metadata of the analyzed project as reported by the source.
type Project struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	NameWithNamespace string `json:"name_with_namespace"`
	WebURL            string `json:"web_url"`
}

// DisplayName prefers the namespaced name, then the plain name, then the ID.
func (p Project) DisplayName() string {
	switch {
	case p.NameWithNamespace != "":
		return p.NameWithNamespace
	case p.Name != "":
		return p.Name
	default:
		return p.ID
	}
}

// RecordWarning describes one raw record that was skipped during normalization.
type RecordWarning struct {
	Index  int    `json:"index"`  // Position within the combined raw input
	Kind   string `json:"kind"`   // Raw kind as supplied by the source
	ID     string `json:"id"`     // Raw identifier, if any
	Reason string `json:"reason"` // Human readable reason
	Err    error  `json:"-"`      // ErrMalformedRecord or ErrUnknownCategory
}

// NormalizeReport summarizes the data quality of one normalization pass.
type NormalizeReport struct {
	Total           int             `json:"total"`
	Accepted        int             `json:"accepted"`
	Malformed       int             `json:"malformed"`
	UnknownCategory int             `json:"unknown_category"`
	Warnings        []RecordWarning `json:"warnings,omitempty"`
}

// Skipped returns the number of records dropped for any reason.
func (r NormalizeReport) Skipped() int {
	return r.Malformed + r.UnknownCategory
}
