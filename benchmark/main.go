// Package main measures pulse CLI latency with and without the fetch cache.
// Each command runs several times per repository; with the cache enabled the
// first successful run is treated as cold and the rest are averaged as warm.
//
// Prerequisites:
// - pulse binary installed and available in PATH
// - Local Git repositories cloned under the base directory
//
// Usage: go run ./benchmark [repo-base-dir] [repo...]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the no-cache average, the cold run and the warm average of one command.
type BenchmarkResult struct {
	Repository  string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase    string
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Lookback    string
	TestRepos   []string
}

// commands maps each benchmarked command to the line printed on success.
var commands = []struct {
	name       string
	args       []string
	completion string
}{
	{"score", []string{"score"}, "Scoring completed in"},
	{"series-day", []string{"series", "--granularity", "day"}, "Bucketized"},
	{"series-week", []string{"series", "--granularity", "week", "--toggle", "A:merge_request"}, "Bucketized"},
}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s [repo-base-dir] [repo...]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoBase:    os.Args[1],
		Timeout:     5 * time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Lookback:    "1 year",
		TestRepos:   []string{"csv-parser", "fd", "git", "kubernetes"},
	}
	if len(os.Args) > 2 {
		config.TestRepos = os.Args[2:]
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	if output, err := exec.Command("pulse", "cache", "clear").CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}
	printSummary(results)
}

// checkPrerequisites verifies that the pulse binary and test repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("pulse"); err != nil {
		return errors.New("pulse binary not found in PATH")
	}
	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}
	return nil
}

func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.TestRepos), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		for _, c := range commands {
			fmt.Printf("Running %s on %s\n", c.name, repo)
			_, noCache := runPhase(config, repoPath, c.args, c.completion, "none", config.NoCacheRuns)
			cold, warm := runPhase(config, repoPath, c.args, c.completion, "sqlite", config.CacheRuns)
			fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCache, cold, warm)
			results = append(results, BenchmarkResult{
				Repository:  repo,
				Command:     c.name,
				NoCacheTime: noCache,
				ColdTime:    cold,
				WarmTime:    warm,
			})
		}
	}
	return results
}

// runPhase runs one command numRuns times and returns the first time and the average of the others.
// With the cache disabled every run is cold, so callers use only the average.
func runPhase(config BenchmarkConfig, repoPath string, args []string, completion, cacheBackend string, numRuns int) (string, string) {
	full := append([]string{}, args...)
	full = append(full, "--source", "git", "--repo", repoPath, "--lookback", config.Lookback, "--cache-backend", cacheBackend, "--color", "no")

	var times []float64
	for range numRuns {
		if d, ok := runOnce(config.Timeout, full, completion); ok {
			times = append(times, d.Seconds())
		}
	}
	if len(times) == 0 {
		return "TIMEOUT", "TIMEOUT"
	}

	cold := fmt.Sprintf("%.3fs", times[0])
	rest := times
	if cacheBackend != "none" && len(times) > 1 {
		rest = times[1:]
	}
	var sum float64
	for _, t := range rest {
		sum += t
	}
	return cold, fmt.Sprintf("%.3fs", sum/float64(len(rest)))
}

func runOnce(timeout time.Duration, args []string, completion string) (time.Duration, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	output, err := exec.CommandContext(ctx, "pulse", args...).CombinedOutput()
	if err != nil || !strings.Contains(string(output), completion) {
		return 0, false
	}
	return time.Since(start), true
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	filename := fmt.Sprintf("/tmp/pulse_benchmark_%s.csv", time.Now().Format("20060102_150405"))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"repo", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Repository, r.Command, r.NoCacheTime, r.ColdTime, r.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, c := range commands {
		fmt.Printf("%s:\n", c.name)
		for _, r := range results {
			if r.Command == c.name {
				fmt.Printf("  %-12s: No-cache: %s, Cold: %s, Warm: %s\n", r.Repository, r.NoCacheTime, r.ColdTime, r.WarmTime)
			}
		}
	}
}
