package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/huangsam/pulse/internal/gitclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func logRecord(fields ...string) string {
	return strings.Join(fields, gitclient.FieldSep) + gitclient.RecordSep + "\n"
}

func TestLocalGitSourceFetch(t *testing.T) {
	client := &gitclient.MockGitClient{}
	ctx := context.Background()
	out := logRecord("aaaaaaaaaaaa", "p0", "Ada", "ada@example.com", "2020-09-05T09:00:00Z", "2020-09-05T10:00:00Z", "Fix bug") +
		logRecord("bbbbbbbbbbbb", "p1 p2", "Bob", "bob@example.com", "2020-09-10T09:00:00Z", "2020-09-10T10:00:00Z", "Merge branch 'x'")

	client.On("GetRepoRoot", ctx, "/repo/sub").Return("/repo", nil)
	client.On("GetCommitLog", ctx, "/repo", testRange.Start, testRange.End).Return([]byte(out), nil)

	src := NewLocalGitSource(client, "/repo/sub")
	batch, err := src.Fetch(ctx, "", testRange)
	require.NoError(t, err)

	assert.Equal(t, "repo", batch.Project.ID)
	require.Len(t, batch.Commits, 1)
	assert.Equal(t, "aaaaaaaa", batch.Commits[0].ShortID)
	assert.Equal(t, "2020-09-05T10:00:00Z", batch.Commits[0].CommittedDate)
	require.Len(t, batch.MergeRequests, 1)
	assert.Equal(t, "2020-09-10T10:00:00Z", batch.MergeRequests[0].MergedAt)
	assert.Empty(t, batch.MergeRequests[0].CreatedAt)
	assert.Equal(t, "bbbbbbbbbbbb", batch.MergeRequests[0].MergeSHA)
	assert.Equal(t, "git", src.Name())
	client.AssertExpectations(t)
}

func TestLocalGitSourceNotARepo(t *testing.T) {
	client := &gitclient.MockGitClient{}
	client.On("GetRepoRoot", mock.Anything, "/tmp").Return("", errors.New("not a git repository"))

	_, err := NewLocalGitSource(client, "/tmp").Fetch(context.Background(), "x", testRange)
	assert.ErrorContains(t, err, "not a git repository")
}
