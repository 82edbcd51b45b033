package contract

import (
	"testing"
	"time"
)

// FuzzParseDateInput ensures arbitrary date input never panics.
func FuzzParseDateInput(f *testing.F) {
	for _, seed := range []string{"2020-09-05", "2020-09-05T10:00:00Z", "3 days ago", "now", "", "99999999 years ago"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		got, err := ParseDateInput(s, fixedNow, time.UTC)
		if err == nil && got.IsZero() && s != "" {
			t.Logf("zero time parsed from %q", s)
		}
	})
}

// FuzzParseLookbackDuration ensures parsed lookbacks are always positive.
func FuzzParseLookbackDuration(f *testing.F) {
	for _, seed := range []string{"14 days", "1h", "0 weeks", "abc"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		d, err := ParseLookbackDuration(s)
		if err == nil && d <= 0 {
			t.Errorf("non-positive lookback %v from %q", d, s)
		}
	})
}
