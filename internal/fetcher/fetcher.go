package fetcher

import (
	"context"
	"fmt"
	"strconv"

	gl "glabgrab/internal/gitlab"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/sync/errgroup"
)

// DefaultWarmConcurrency bounds the project pre-fetch phase. It is deliberately
// independent of the download worker count: resolving projects is cheap and
// front-loading it keeps downloads from stalling on cache misses.
const DefaultWarmConcurrency = 10

// ProjectRecord is the resolved identity of one project. Created once per
// distinct id for the lifetime of the run and shared read-only by every hit
// that references the project.
type ProjectRecord struct {
	ID            int
	Path          string
	DefaultBranch string
}

// resolution is what the cache stores: the record or the terminal error,
// so every caller for an id observes the same outcome.
type resolution struct {
	record *ProjectRecord
	err    error
}

// Fetcher resolves project ids to ProjectRecords with deduplication:
// concurrent lookups for the same unresolved id collapse into a single API
// call, and results (including failures) are cached for the run.
type Fetcher struct {
	client *gl.Client
	retry  *gl.RetryPolicy
	group  Group
	cache  *Cache

	// WarmConcurrency overrides DefaultWarmConcurrency when > 0.
	WarmConcurrency int
}

func NewFetcher(client *gl.Client, retry *gl.RetryPolicy) *Fetcher {
	return &Fetcher{
		client: client,
		retry:  retry,
		cache:  NewCache(),
	}
}

// Resolve returns the ProjectRecord for projectID, performing at most one
// network lookup per id regardless of caller concurrency.
func (f *Fetcher) Resolve(ctx context.Context, projectID int) (*ProjectRecord, error) {
	if f == nil || f.client == nil || f.client.API == nil {
		return nil, fmt.Errorf("Resolve: nil client (use NewFetcher)")
	}
	if f.retry == nil {
		return nil, fmt.Errorf("Resolve: nil retry policy (use NewFetcher)")
	}
	if projectID <= 0 {
		return nil, fmt.Errorf("Resolve: invalid project id %d", projectID)
	}

	key := strconv.Itoa(projectID)

	// Cache lookup
	if val, ok := f.cache.Get(key); ok {
		res := val.(resolution)
		return res.record, res.err
	}

	// Single-flight (dedupe concurrent identical requests)
	val, _, _ := f.group.Do(key, func() (interface{}, error) {
		rec, err := f.lookup(ctx, projectID)
		res := resolution{record: rec, err: err}
		f.cache.Set(key, res)
		return res, nil
	})

	res := val.(resolution)
	return res.record, res.err
}

func (f *Fetcher) lookup(ctx context.Context, projectID int) (*ProjectRecord, error) {
	var project *gitlab.Project
	_, err := f.retry.Do(ctx, func() error {
		p, _, err := f.client.API.Projects.GetProject(projectID, nil, gitlab.WithContext(ctx))
		if err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve project %d: %w", projectID, err)
	}

	return &ProjectRecord{
		ID:            project.ID,
		Path:          project.PathWithNamespace,
		DefaultBranch: project.DefaultBranch,
	}, nil
}

// Warm pre-resolves a set of project ids with bounded concurrency. Individual
// resolution failures are cached and surface later per hit; Warm only fails on
// context cancellation.
func (f *Fetcher) Warm(ctx context.Context, projectIDs []int) error {
	limit := f.WarmConcurrency
	if limit <= 0 {
		limit = DefaultWarmConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range projectIDs {
		id := id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, _ = f.Resolve(ctx, id)
			return nil
		})
	}
	return g.Wait()
}
