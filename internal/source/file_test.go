package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSourceBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"commits": [{"id": "c1", "committed_date": "2020-09-05T10:00:00Z"}],
		"merge_requests": [{"id": 9, "created_at": "2020-09-10T00:00:00Z"}]
	}`), 0o600))

	batch, err := NewFileSource(path).Fetch(context.Background(), "42", testRange)
	require.NoError(t, err)
	assert.Equal(t, "42", batch.Project.ID)
	assert.Len(t, batch.Commits, 1)
	assert.Len(t, batch.MergeRequests, 1)
	assert.Equal(t, 2, batch.Size())
}

func TestFileSourceEventArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"kind": "commit", "id": "c1", "timestamp": "2020-09-05"},
		{"kind": "issue", "id": "i1", "timestamp": "2020-09-06"}
	]`), 0o600))

	batch, err := NewFileSource(path).Fetch(context.Background(), "42", testRange)
	require.NoError(t, err)
	assert.Len(t, batch.Events, 2)
	assert.Equal(t, "issue", batch.Events[1].Kind)
}

func TestFileSourceErrors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Fetch(context.Background(), "42", testRange)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = NewFileSource(path).Fetch(context.Background(), "42", testRange)
	assert.Error(t, err)
}
