//go:build integration

// Package integration contains integration tests for pulse.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/csv"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verifySince = "2000-01-01T00:00:00Z"

// TestScoreVerification scores this repository and checks the counts against git rev-list.
func TestScoreVerification(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	repoPath, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		t.Skip("not inside a git repository")
	}
	verifyRepo(t, strings.TrimSpace(string(repoPath)))
}

// TestExternalRepoVerification clones a small public repo and runs verification
func TestExternalRepoVerification(t *testing.T) {
	testRepoDir := filepath.Join(t.TempDir(), "go-homedir")
	cloneCmd := exec.Command("git", "clone", "https://github.com/mitchellh/go-homedir", testRepoDir)
	if err := cloneCmd.Run(); err != nil {
		t.Skipf("failed to clone test repo: %v", err)
	}
	verifyRepo(t, testRepoDir)
}

// verifyRepo compares the commit and merge request counts pulse reports with git.
func verifyRepo(t *testing.T, repoDir string) {
	out, err := runPulse(t, "score", "--source", "git", "--repo", repoDir,
		"--start", verifySince, "--output", "csv", "--cache-backend", "none")
	require.NoError(t, err)

	counts := parseScoreCSV(t, out)
	assert.Equal(t, gitCount(t, repoDir, "--no-merges"), counts["commit"], "commit count mismatch")
	assert.Equal(t, gitCount(t, repoDir, "--merges"), counts["merge_request"], "merge request count mismatch")
}

// parseScoreCSV maps category to count from the score CSV output.
func parseScoreCSV(t *testing.T, output string) map[string]int {
	t.Helper()
	// Skip warnings printed before the CSV header.
	if i := strings.Index(output, "project_id,"); i > 0 {
		output = output[i:]
	}
	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	counts := make(map[string]int)
	for _, rec := range records[1:] {
		n, err := strconv.Atoi(rec[2])
		require.NoError(t, err)
		counts[rec[1]] = n
	}
	return counts
}

func gitCount(t *testing.T, repoDir, filter string) int {
	t.Helper()
	cmd := exec.Command("git", "rev-list", "--all", filter, "--count", "--since="+verifySince)
	cmd.Dir = repoDir
	out, err := cmd.Output()
	require.NoError(t, err)
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	require.NoError(t, err)
	return n
}
