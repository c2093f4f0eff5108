package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"glabgrab/internal/fetcher"
	gl "glabgrab/internal/gitlab"
	"glabgrab/internal/output"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// Scheduler is the bounded worker pool that turns enumerated hits into
// downloaded files and terminal outcomes.
type Scheduler struct {
	client   *gl.Client
	retry    *gl.RetryPolicy
	projects *fetcher.Fetcher
	ledger   *Ledger
	outDir   string
	workers  int
}

func NewScheduler(client *gl.Client, retry *gl.RetryPolicy, projects *fetcher.Fetcher, ledger *Ledger, outDir string, workers int) (*Scheduler, error) {
	if client == nil || client.API == nil {
		return nil, errors.New("scheduler: nil client")
	}
	if retry == nil {
		return nil, errors.New("scheduler: nil retry policy")
	}
	if projects == nil {
		return nil, errors.New("scheduler: nil project fetcher")
	}
	if ledger == nil {
		return nil, errors.New("scheduler: nil ledger")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("scheduler: workers must be >= 1, got %d", workers)
	}
	return &Scheduler{
		client:   client,
		retry:    retry,
		projects: projects,
		ledger:   ledger,
		outDir:   outDir,
		workers:  workers,
	}, nil
}

// Run consumes hits until the channel closes, with s.workers concurrent
// workers. Every hit produces exactly one outcome, forwarded synchronously to
// record before the worker takes its next hit, so an interrupted run never
// loses an outcome that was produced.
func (s *Scheduler) Run(ctx context.Context, hits <-chan output.Hit, record func(output.Outcome)) {
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hit := range hits {
				if ctx.Err() != nil {
					return
				}
				record(s.process(ctx, hit))
			}
		}()
	}
	wg.Wait()
}

func (s *Scheduler) process(ctx context.Context, hit output.Hit) output.Outcome {
	// Resolution is a cache read for pre-warmed projects; a cached failure
	// fails every hit of that project without touching the network again.
	project, err := s.projects.Resolve(ctx, hit.ProjectID)
	if err != nil {
		return output.Outcome{
			Hit:       hit,
			Status:    output.StatusFailed,
			ErrorKind: output.ErrKindProjectResolution,
			Err:       err,
		}
	}
	hit.ProjectPath = project.Path

	ref := hit.Ref
	if ref == "" {
		ref = project.DefaultBranch
	}

	localName := LocalFilename(project.Path, hit.FilePath)
	dest := filepath.Join(s.outDir, localName)

	skipped := output.Outcome{
		Hit:           hit,
		ProjectPath:   project.Path,
		Status:        output.StatusSkipped,
		LocalFilename: localName,
		SkipReason:    output.SkipReasonAlreadyDownloaded,
	}
	if !s.ledger.Reserve(project.Path, hit.FilePath) {
		return skipped
	}
	if _, statErr := os.Stat(dest); statErr == nil {
		// Present from a prior run that lost its metadata; keep the
		// reservation so duplicate hits skip too.
		return skipped
	}

	content, attempts, err := s.fetchRaw(ctx, hit.ProjectID, hit.FilePath, ref)
	if err != nil {
		s.ledger.Release(project.Path, hit.FilePath)
		return output.Outcome{
			Hit:         hit,
			ProjectPath: project.Path,
			Status:      output.StatusFailed,
			ErrorKind:   failureKind(err),
			Err:         err,
			Attempts:    attempts,
		}
	}

	if err := writeFileAtomic(s.outDir, dest, content); err != nil {
		s.ledger.Release(project.Path, hit.FilePath)
		return output.Outcome{
			Hit:         hit,
			ProjectPath: project.Path,
			Status:      output.StatusFailed,
			ErrorKind:   output.ErrKindLocalWrite,
			Err:         err,
			Attempts:    attempts,
		}
	}

	return output.Outcome{
		Hit:           hit,
		ProjectPath:   project.Path,
		Status:        output.StatusSuccess,
		LocalFilename: localName,
		Bytes:         int64(len(content)),
		Attempts:      attempts,
	}
}

// fetchRaw downloads the raw file content. Content is opaque bytes; no text
// encoding is assumed.
func (s *Scheduler) fetchRaw(ctx context.Context, projectID int, filePath, ref string) (content []byte, attempts int, err error) {
	opt := &gitlab.GetRawFileOptions{}
	if ref != "" {
		opt.Ref = gitlab.Ptr(ref)
	}
	attempts, err = s.retry.Do(ctx, func() error {
		raw, _, ferr := s.client.API.RepositoryFiles.GetRawFile(projectID, filePath, opt, gitlab.WithContext(ctx))
		if ferr != nil {
			return ferr
		}
		content = raw
		return nil
	})
	if err != nil {
		return nil, attempts, fmt.Errorf("fetch %s@%s: %w", filePath, ref, err)
	}
	return content, attempts, nil
}

// writeFileAtomic writes via a temp file and rename so a crashed run never
// leaves a half-written file that a later run would skip.
func writeFileAtomic(dir, dest string, content []byte) error {
	tmp, err := os.CreateTemp(dir, ".glabgrab-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// failureKind maps a download error into the outcome taxonomy.
func failureKind(err error) output.ErrorKind {
	if errors.Is(err, gl.ErrRetryExhausted) && gl.Classify(err) == gl.ClassRateLimit {
		return output.ErrKindRateLimitExhausted
	}
	if gl.IsMalformed(err) {
		return output.ErrKindMalformedResponse
	}
	return output.ErrKindNetwork
}
