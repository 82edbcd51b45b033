package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPlainLabel(t *testing.T) {
	assert.Equal(t, HighValue, GetPlainLabel(75))
	assert.Equal(t, HighValue, GetPlainLabel(HighActivityScore))
	assert.Equal(t, ModerateValue, GetPlainLabel(12))
	assert.Equal(t, LowValue, GetPlainLabel(0.5))
	assert.Equal(t, IdleValue, GetPlainLabel(0))
}

func TestGetColorLabelContainsText(t *testing.T) {
	for _, score := range []float64{0, 3, 20, 90} {
		assert.Contains(t, GetColorLabel(score), GetPlainLabel(score))
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		assert.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		assert.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseBoolString("")
	assert.Error(t, err)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "group/pr...", TruncateText("group/project-name", 11))
	assert.Equal(t, "short", TruncateText("short", 11))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 3))
}

func TestDBFilePathsDiffer(t *testing.T) {
	assert.NotEqual(t, GetCacheDBFilePath(), GetAnalysisDBFilePath())
	assert.Contains(t, GetCacheDBFilePath(), ".pulse_cache.db")
}
