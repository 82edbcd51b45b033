package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2020, time.September, 30, 12, 0, 0, 0, time.UTC)

func TestParseRelativeTime(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    time.Time
		expectError bool
	}{
		{name: "plural months mixed case", input: "3 MoNtHs AgO", expected: fixedNow.AddDate(0, -3, 0)},
		{name: "singular week", input: "1 Week Ago", expected: fixedNow.AddDate(0, 0, -7)},
		{name: "days upper case", input: "14 DAYS AGO", expected: fixedNow.AddDate(0, 0, -14)},
		{name: "hours", input: "6 hours ago", expected: fixedNow.Add(-6 * time.Hour)},
		{name: "missing ago", input: "2 years", expectError: true},
		{name: "bad unit", input: "4 decades ago", expectError: true},
		{name: "non-numeric value", input: "one year ago", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, fixedNow)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDateInput(t *testing.T) {
	t.Run("date only is midnight in location", func(t *testing.T) {
		got, err := ParseDateInput("2020-09-05", fixedNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2020, 9, 5, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("rfc3339 keeps offset", func(t *testing.T) {
		got, err := ParseDateInput("2020-09-05T10:00:00+02:00", fixedNow, time.UTC)
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2020, 9, 5, 8, 0, 0, 0, time.UTC)))
	})

	t.Run("now", func(t *testing.T) {
		got, err := ParseDateInput("NOW", fixedNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, fixedNow, got)
	})

	t.Run("relative", func(t *testing.T) {
		got, err := ParseDateInput("2 weeks ago", fixedNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, fixedNow.AddDate(0, 0, -14), got)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDateInput("yesterday-ish", fixedNow, time.UTC)
		assert.Error(t, err)
	})
}

func TestParseLookbackDuration(t *testing.T) {
	tests := []struct {
		input       string
		expected    time.Duration
		expectError bool
	}{
		{input: "14 days", expected: 14 * 24 * time.Hour},
		{input: "1 week", expected: 7 * 24 * time.Hour},
		{input: "2months", expected: 60 * 24 * time.Hour},
		{input: "336h", expected: 336 * time.Hour},
		{input: "30s", expected: 30 * time.Second},
		{input: "0 days", expectError: true},
		{input: "-5h", expectError: true},
		{input: "soon", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLookbackDuration(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
