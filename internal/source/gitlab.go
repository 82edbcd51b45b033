package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"golang.org/x/sync/errgroup"
)

// Paging limits for the GitLab REST API.
const (
	perPage  = 100
	maxPages = 1000
)

// gitlabProject is the subset of the project payload we keep.
type gitlabProject struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	NameWithNamespace string `json:"name_with_namespace"`
	WebURL            string `json:"web_url"`
}

// GitLabClient fetches project metadata, commits and merge requests from the GitLab REST API.
type GitLabClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	projects   *ProjectCache
}

var _ contract.EventSource = &GitLabClient{} // Compile-time check

// NewGitLabClient creates a client for the GitLab instance at baseURL (e.g., https://gitlab.com).
func NewGitLabClient(baseURL, token string, timeout time.Duration, projects *ProjectCache) *GitLabClient {
	if timeout <= 0 {
		timeout = contract.DefaultTimeout
	}
	return &GitLabClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		projects:   projects,
	}
}

// Name implements the EventSource interface.
func (c *GitLabClient) Name() string {
	return string(schema.GitLabSource)
}

// Fetch implements the EventSource interface. Project, commits and merge requests
// are requested concurrently with the same range; the first failure cancels the rest.
func (c *GitLabClient) Fetch(ctx context.Context, projectID string, rng schema.DateRange) (schema.RawBatch, error) {
	if projectID == "" {
		return schema.RawBatch{}, fmt.Errorf("gitlab source requires a project id or path")
	}

	var batch schema.RawBatch
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		project, err := c.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		batch.Project = project
		return nil
	})

	g.Go(func() error {
		commits, err := c.ListCommits(ctx, projectID, rng)
		if err != nil {
			return err
		}
		batch.Commits = commits
		return nil
	})

	g.Go(func() error {
		mrs, err := c.ListMergeRequests(ctx, projectID, rng)
		if err != nil {
			return err
		}
		batch.MergeRequests = mrs
		return nil
	})

	if err := g.Wait(); err != nil {
		return schema.RawBatch{}, err
	}
	return batch, nil
}

// projectPath returns the API path of a project; namespaced paths are URL-encoded.
func (c *GitLabClient) projectPath(projectID string) string {
	return c.baseURL + "/api/v4/projects/" + url.PathEscape(projectID)
}

// doRequest makes an authenticated GET request to the GitLab API
func (c *GitLabClient) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pulse")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		reset := resp.Header.Get("RateLimit-Reset")
		_ = resp.Body.Close()
		return nil, fmt.Errorf("rate limit exceeded, resets at: %s", reset)
	}

	return resp, nil
}

// readErrorAndClose reads an error body and closes it.
func readErrorAndClose(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("gitlab API error %d: %s", resp.StatusCode, string(body))
}

// readAndClose decodes the body and closes it. Use in paginated loops
// instead of defer resp.Body.Close() to avoid leaking connections.
func readAndClose(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetProject returns the project metadata, served from the cache when fresh.
func (c *GitLabClient) GetProject(ctx context.Context, projectID string) (schema.Project, error) {
	if c.projects != nil {
		if p, found := c.projects.Get(projectID); found {
			return p, nil
		}
	}

	resp, err := c.doRequest(ctx, c.projectPath(projectID))
	if err != nil {
		return schema.Project{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return schema.Project{}, fmt.Errorf("project %q not found", projectID)
	}
	if resp.StatusCode != http.StatusOK {
		return schema.Project{}, readErrorAndClose(resp)
	}

	var gp gitlabProject
	if err := readAndClose(resp, &gp); err != nil {
		return schema.Project{}, err
	}

	project := schema.Project{
		ID:                strconv.FormatInt(gp.ID, 10),
		Name:              gp.Name,
		NameWithNamespace: gp.NameWithNamespace,
		WebURL:            gp.WebURL,
	}
	if c.projects != nil {
		c.projects.Put(projectID, project)
	}
	return project, nil
}

// ListCommits returns every commit of the default branch created within rng.
func (c *GitLabClient) ListCommits(ctx context.Context, projectID string, rng schema.DateRange) ([]schema.RawCommit, error) {
	q := url.Values{}
	q.Set("since", rng.Start.UTC().Format(time.RFC3339))
	q.Set("until", rng.End.UTC().Format(time.RFC3339))
	return listPaged[schema.RawCommit](ctx, c, c.projectPath(projectID)+"/repository/commits", q)
}

// ListMergeRequests returns every merge request created within rng, in any state.
func (c *GitLabClient) ListMergeRequests(ctx context.Context, projectID string, rng schema.DateRange) ([]schema.RawMergeRequest, error) {
	q := url.Values{}
	q.Set("created_after", rng.Start.UTC().Format(time.RFC3339))
	q.Set("created_before", rng.End.UTC().Format(time.RFC3339))
	q.Set("state", "all")
	q.Set("order_by", "created_at")
	q.Set("sort", "asc")
	return listPaged[schema.RawMergeRequest](ctx, c, c.projectPath(projectID)+"/merge_requests", q)
}

// listPaged follows X-Next-Page until the last page and concatenates the results.
func listPaged[T any](ctx context.Context, c *GitLabClient, endpoint string, q url.Values) ([]T, error) {
	var all []T
	q.Set("per_page", strconv.Itoa(perPage))
	page := "1"

	for range maxPages {
		q.Set("page", page)
		resp, err := c.doRequest(ctx, endpoint+"?"+q.Encode())
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, readErrorAndClose(resp)
		}

		var items []T
		next := resp.Header.Get("X-Next-Page")
		if err := readAndClose(resp, &items); err != nil {
			return nil, err
		}
		all = append(all, items...)

		if next == "" || len(items) == 0 {
			return all, nil
		}
		page = next
	}

	return nil, fmt.Errorf("pagination exceeded %d pages for %s", maxPages, endpoint)
}

// ProjectCache stores project metadata in memory with automatic expiration.
type ProjectCache struct {
	mu       sync.RWMutex
	projects map[string]cachedProject
	ttl      time.Duration
}

type cachedProject struct {
	project  schema.Project
	cachedAt time.Time
}

// NewProjectCache creates a new project cache. A zero ttl defaults to five minutes.
func NewProjectCache(ttl time.Duration) *ProjectCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &ProjectCache{projects: make(map[string]cachedProject), ttl: ttl}
}

// Put adds or updates a project in the cache.
func (pc *ProjectCache) Put(key string, p schema.Project) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.projects[key] = cachedProject{project: p, cachedAt: time.Now()}
}

// Get retrieves a project from the cache if it has not expired.
func (pc *ProjectCache) Get(key string) (schema.Project, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	entry, ok := pc.projects[key]
	if !ok || time.Since(entry.cachedAt) > pc.ttl {
		return schema.Project{}, false
	}
	return entry.project, true
}
