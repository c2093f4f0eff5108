package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect fetch
	// behavior, keep the CLI flags in internal/cli/fetch.go in sync.
	Search  Search
	Output  Output
	Runtime Runtime
}

type Search struct {
	// Query is the code search term (required positional argument).
	Query string

	// Hostname is the GitLab instance to search (see --hostname).
	// Must match a host configured for the glab CLI.
	Hostname string

	// Group optionally scopes the search to a group path (see --group).
	Group string
}

type Output struct {
	// Dir is the output directory for downloaded files, metadata.json and
	// download.log (see --out-dir). Empty means a query-derived default under
	// the system temp directory, stable across runs so downloads can resume.
	Dir string

	// Quiet suppresses the live progress line and the final summary (see --quiet).
	Quiet bool
}

type Runtime struct {
	// Workers is the number of parallel download workers (see --workers).
	// Must be between 1 and 50.
	Workers int

	// MaxRetries is how many times a rate-limited or transient request is
	// retried before giving up (see --max-retries). Must be >= 0.
	MaxRetries int

	// Timeout is the global timeout for the whole run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// Verbose enables per-request HTTP diagnostics on stderr.
	Verbose bool
}

const (
	MinWorkers = 1
	MaxWorkers = 50
)

func New() *Config {
	return &Config{
		Runtime: Runtime{
			Workers:    10,
			MaxRetries: 3,
			Timeout:    30 * time.Minute,
		},
	}
}

func (c *Config) Validate() error {
	c.Search.Query = strings.TrimSpace(c.Search.Query)
	if c.Search.Query == "" {
		return errors.New("a search query is required")
	}

	host, err := normalizeHostname(c.Search.Hostname)
	if err != nil {
		return fmt.Errorf("invalid --hostname value: %w", err)
	}
	if host == "" {
		return errors.New("--hostname is required")
	}
	c.Search.Hostname = host

	c.Search.Group = strings.Trim(strings.TrimSpace(c.Search.Group), "/")

	if c.Runtime.Workers < MinWorkers || c.Runtime.Workers > MaxWorkers {
		return fmt.Errorf("--workers must be between %d and %d, got %d", MinWorkers, MaxWorkers, c.Runtime.Workers)
	}
	if c.Runtime.MaxRetries < 0 {
		return errors.New("--max-retries must be >= 0")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	if c.Output.Dir != "" {
		c.Output.Dir = filepath.Clean(c.Output.Dir)
	}

	return nil
}

// OutputDir returns the effective output directory. When --out-dir is not
// given, the directory is derived from the query alone (no timestamp) so a
// re-run of the same query resumes into the same place.
func (c *Config) OutputDir(tempDir string) string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return filepath.Join(tempDir, "gitlab-search-"+SlugifyQuery(c.Search.Query))
}

var querySlugPattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SlugifyQuery reduces a search query to a filesystem-safe directory token.
func SlugifyQuery(query string) string {
	slug := querySlugPattern.ReplaceAllString(query, "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "query"
	}
	return strings.ToLower(slug)
}

func normalizeHostname(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a bare host, or a URL like https://gitlab.example.com.
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimSuffix(raw, "/")
	if raw == "" || strings.ContainsAny(raw, "/ \t") {
		return "", fmt.Errorf("%q", raw)
	}
	return strings.ToLower(raw), nil
}
