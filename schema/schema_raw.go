package schema

// RawCommit mirrors the commit payload returned by the GitLab commits API.
type RawCommit struct {
	ID            string `json:"id"`
	ShortID       string `json:"short_id"`
	Title         string `json:"title"`
	AuthorName    string `json:"author_name"`
	AuthorEmail   string `json:"author_email"`
	AuthoredDate  string `json:"authored_date"`
	CommittedDate string `json:"committed_date"`
	CreatedAt     string `json:"created_at"`
	WebURL        string `json:"web_url"`
}

// RawAuthor is the nested author object of a merge request payload.
type RawAuthor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// RawMergeRequest mirrors the merge request payload returned by the GitLab API.
type RawMergeRequest struct {
	ID        int64     `json:"id"`
	IID       int64     `json:"iid"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	MergedAt  string    `json:"merged_at"`
	Author    RawAuthor `json:"author"`
	WebURL    string    `json:"web_url"`
	MergeSHA  string    `json:"merge_commit_sha"`
}

// RawEvent is the source-agnostic raw shape used for mixed feeds.
// Kind is matched against the known categories during normalization.
type RawEvent struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

// RawBatch is everything a source returns for one project and range.
type RawBatch struct {
	Project       Project           `json:"project"`
	Commits       []RawCommit       `json:"commits"`
	MergeRequests []RawMergeRequest `json:"merge_requests"`
	Events        []RawEvent        `json:"events,omitempty"`
}

// Size returns the number of raw records in the batch.
func (b RawBatch) Size() int {
	return len(b.Commits) + len(b.MergeRequests) + len(b.Events)
}
