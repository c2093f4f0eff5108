package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"glabgrab/internal/config"
	"glabgrab/internal/fetcher"
	gl "glabgrab/internal/gitlab"
	"glabgrab/internal/output"
)

func exitCodeForRun(fatal bool, counts output.Counts) int {
	// Exit code contract:
	// 0 = clean run, every hit downloaded or skipped
	// 1 = completed with failed downloads
	// 3 = fatal error (run aborted; partial artifacts remain valid)
	if fatal {
		return 3
	}
	if counts.Failed > 0 {
		return 1
	}
	return 0
}

// Engine wires the enumerator, project cache, scheduler and accounting into
// one run of the fetch pipeline.
type Engine struct {
	Client  *gl.Client
	Console *output.Console
}

func NewEngine(client *gl.Client, console *output.Console) *Engine {
	return &Engine{Client: client, Console: console}
}

// Run executes the pipeline and returns the process exit code.
//
// Phases overlap: downloads of already-enumerated hits proceed while later
// pages are still being fetched. Before a page's hits reach the download
// pool, the distinct projects that page references are pre-resolved so the
// workers hit a warm cache.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	start := time.Now()

	outDir := cfg.OutputDir(os.TempDir())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: create output directory: %v\n", err)
		return exitCodeForRun(true, output.Counts{})
	}

	runLog, err := output.OpenRunLog(outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open run log: %v\n", err)
		return exitCodeForRun(true, output.Counts{})
	}
	defer runLog.Close()

	e.Console.Header(cfg.Search.Query, cfg.Search.Hostname, cfg.Search.Group, outDir, cfg.Runtime.Workers)
	runLog.Logger.Info().
		Str("event", "run.started").
		Str("query", cfg.Search.Query).
		Str("hostname", cfg.Search.Hostname).
		Str("group", cfg.Search.Group).
		Int("workers", cfg.Runtime.Workers).
		Int("max_retries", cfg.Runtime.MaxRetries).
		Send()

	retry := gl.NewRetryPolicy(cfg.Runtime.MaxRetries, runLog.Logger)
	projects := fetcher.NewFetcher(e.Client, retry)
	accountant := output.NewAccountant()

	ledger := NewLedger()
	priorRecords, err := output.LoadMetadata(outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read prior metadata: %v\n", err)
		return exitCodeForRun(true, output.Counts{})
	}
	ledger.Seed(priorRecords)
	if n := len(priorRecords); n > 0 {
		e.Console.Printf("Resuming: %d files already recorded in %s\n", n, outDir)
	}

	enum, err := NewEnumerator(e.Client, retry, cfg.Search.Query, cfg.Search.Group)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForRun(true, output.Counts{})
	}

	sched, err := NewScheduler(e.Client, retry, projects, ledger, outDir, cfg.Runtime.Workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForRun(true, output.Counts{})
	}

	record := func(o output.Outcome) {
		counts := accountant.Record(o)
		runLog.Outcome(o)
		e.Console.Progress(counts)
	}

	pagesCh, enumErrCh := enum.Enumerate(ctx)

	// Feed pages into the download queue, pre-warming the project cache for
	// each page's not-yet-seen projects before its hits are enqueued.
	hitsCh := make(chan output.Hit)
	go func() {
		defer close(hitsCh)
		seen := make(map[int]struct{})
		for page := range pagesCh {
			accountant.AddTotal(len(page.Hits))
			runLog.Logger.Info().
				Str("event", "search.page").
				Int("page", page.Number).
				Int("hits", len(page.Hits)).
				Send()

			var fresh []int
			for _, hit := range page.Hits {
				if _, ok := seen[hit.ProjectID]; !ok {
					seen[hit.ProjectID] = struct{}{}
					fresh = append(fresh, hit.ProjectID)
				}
			}
			if err := projects.Warm(ctx, fresh); err != nil {
				return
			}

			for _, hit := range page.Hits {
				select {
				case hitsCh <- hit:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	sched.Run(ctx, hitsCh, record)

	// Enumeration errors are fatal for the run; hits that were already queued
	// have drained above and their outcomes stay persisted.
	var fatalErr error
	for err := range enumErrCh {
		if err != nil {
			fatalErr = err
		}
	}

	records := accountant.Records()
	allRecords := append(append([]output.MetadataRecord{}, priorRecords...), records...)
	if err := output.WriteMetadata(outDir, allRecords); err != nil {
		fmt.Fprintf(os.Stderr, "Error: write metadata: %v\n", err)
		if fatalErr == nil {
			fatalErr = err
		}
	}

	counts := accountant.Counts()
	runLog.Logger.Info().
		Str("event", "run.finished").
		Int("total", counts.Total).
		Int("success", counts.Success).
		Int("skipped", counts.Skipped).
		Int("failed", counts.Failed).
		Dur("elapsed", time.Since(start)).
		Send()
	if fatalErr != nil {
		runLog.Logger.Error().
			Str("event", "run.aborted").
			Str("error", fatalErr.Error()).
			Send()
	}

	e.Console.Summary(counts, outDir, time.Since(start), fatalErr)
	return exitCodeForRun(fatalErr != nil, counts)
}
