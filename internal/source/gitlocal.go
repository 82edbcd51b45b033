package source

import (
	"context"
	"path/filepath"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/gitclient"
	"github.com/huangsam/pulse/schema"
)

// LocalGitSource reads activity from a local clone. Regular commits become commits,
// and merge commits stand in for merge requests with their merge time.
type LocalGitSource struct {
	client   gitclient.GitClient
	repoPath string
}

var _ contract.EventSource = &LocalGitSource{} // Compile-time check

// NewLocalGitSource creates a source over the repository at repoPath.
func NewLocalGitSource(client gitclient.GitClient, repoPath string) *LocalGitSource {
	return &LocalGitSource{client: client, repoPath: repoPath}
}

// Name implements the EventSource interface.
func (s *LocalGitSource) Name() string {
	return string(schema.GitSource)
}

// Fetch implements the EventSource interface. The projectID only labels the batch;
// the repository is always the one configured at construction.
func (s *LocalGitSource) Fetch(ctx context.Context, projectID string, rng schema.DateRange) (schema.RawBatch, error) {
	root, err := s.client.GetRepoRoot(ctx, s.repoPath)
	if err != nil {
		return schema.RawBatch{}, err
	}

	out, err := s.client.GetCommitLog(ctx, root, rng.Start, rng.End)
	if err != nil {
		return schema.RawBatch{}, err
	}

	name := filepath.Base(root)
	if projectID == "" {
		projectID = name
	}
	batch := schema.RawBatch{
		Project: schema.Project{ID: projectID, Name: name, WebURL: "file://" + filepath.ToSlash(root)},
	}

	for _, e := range gitclient.ParseCommitLog(out) {
		if e.IsMerge() {
			batch.MergeRequests = append(batch.MergeRequests, schema.RawMergeRequest{
				Title:    e.Subject,
				State:    "merged",
				MergedAt: e.CommittedDate,
				Author:   schema.RawAuthor{Name: e.AuthorName, Username: e.AuthorEmail},
				MergeSHA: e.Hash,
			})
			continue
		}
		batch.Commits = append(batch.Commits, schema.RawCommit{
			ID:            e.Hash,
			ShortID:       shortHash(e.Hash),
			Title:         e.Subject,
			AuthorName:    e.AuthorName,
			AuthorEmail:   e.AuthorEmail,
			AuthoredDate:  e.AuthoredDate,
			CommittedDate: e.CommittedDate,
		})
	}
	return batch, nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
