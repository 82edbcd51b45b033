// Package gitclient has the git client used by the local repository source.
package gitclient

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"
)

// Field and record separators used in the log format. They never appear in commit subjects.
const (
	FieldSep  = "\x1f"
	RecordSep = "\x1e"
)

// logFormat emits hash, parents, author name, author email, author date, committer date and subject.
var logFormat = "--pretty=format:" + strings.Join([]string{"%H", "%P", "%an", "%ae", "%aI", "%cI", "%s"}, FieldSep) + RecordSep

// GitClient defines the git operations needed to read activity from a local repository.
// This allows the source to be tested without needing a real git executable.
type GitClient interface {
	// Run executes a git command in repoPath and returns its stdout.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetCommitLog returns the formatted log of all commits committed within [startTime, endTime].
	GetCommitLog(ctx context.Context, repoPath string, startTime, endTime time.Time) ([]byte, error)

	// GetRepoRoot returns the top-level directory of the repository containing contextPath.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)
}

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run implements the GitClient interface.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s. If this is not a Git repository, verify the path or run 'git init'", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetCommitLog implements the GitClient interface.
func (c *LocalGitClient) GetCommitLog(ctx context.Context, repoPath string, startTime, endTime time.Time) ([]byte, error) {
	args := []string{"log", "--all", logFormat}
	if !startTime.IsZero() {
		args = append(args, "--since="+startTime.Format(time.RFC3339))
	}
	if !endTime.IsZero() {
		args = append(args, "--until="+endTime.Format(time.RFC3339))
	}
	return c.Run(ctx, repoPath, args...)
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// LogEntry is one parsed record of GetCommitLog output.
type LogEntry struct {
	Hash          string
	Parents       []string
	AuthorName    string
	AuthorEmail   string
	AuthoredDate  string
	CommittedDate string
	Subject       string
}

// IsMerge reports whether the commit has more than one parent.
func (e LogEntry) IsMerge() bool {
	return len(e.Parents) > 1
}

// ParseCommitLog splits GetCommitLog output into entries. Records with too few
// fields are skipped rather than failing the whole log.
func ParseCommitLog(out []byte) []LogEntry {
	var entries []LogEntry
	for record := range strings.SplitSeq(string(out), RecordSep) {
		record = strings.TrimLeft(record, "\r\n")
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, FieldSep, 7)
		if len(fields) < 7 {
			continue
		}
		entries = append(entries, LogEntry{
			Hash:          fields[0],
			Parents:       strings.Fields(fields[1]),
			AuthorName:    fields[2],
			AuthorEmail:   fields[3],
			AuthoredDate:  fields[4],
			CommittedDate: fields[5],
			Subject:       strings.TrimRight(fields[6], "\r\n"),
		})
	}
	return entries
}

// --- MockGitClient Implementation ---

// MockGitClient is an autogenerated mock type for the GitClient type.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetCommitLog implements the GitClient interface.
func (m *MockGitClient) GetCommitLog(ctx context.Context, repoPath string, startTime, endTime time.Time) ([]byte, error) {
	ret := m.Called(ctx, repoPath, startTime, endTime)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	root, _ := ret.Get(0).(string)
	return root, ret.Error(1)
}
