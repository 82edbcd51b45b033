// Package source has the fetch collaborators that supply raw activity to the engine.
package source

import (
	"fmt"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/gitclient"
	"github.com/huangsam/pulse/schema"
)

// sharedProjects is reused across GitLab clients so repeated runs in one process
// (serve, mcp) skip the project lookup.
var sharedProjects = NewProjectCache(0)

// New returns the EventSource selected by the config.
func New(cfg *contract.Config) (contract.EventSource, error) {
	switch cfg.Source {
	case schema.GitLabSource, "":
		return NewGitLabClient(cfg.GitLabURL, cfg.GitLabToken, cfg.Timeout, sharedProjects), nil
	case schema.GitSource:
		return NewLocalGitSource(gitclient.NewLocalGitClient(), cfg.RepoPath), nil
	case schema.FileSource:
		return NewFileSource(cfg.InputFile), nil
	default:
		return nil, fmt.Errorf("unsupported source: %s", cfg.Source)
	}
}
