package engine

import (
	"context"
	"errors"
	"fmt"

	gl "glabgrab/internal/gitlab"
	"glabgrab/internal/output"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const defaultSearchPageSize = 100

// ErrMalformedPage marks an enumeration payload the client could not decode.
// It is fatal for the whole run: guessing at a broken search contract could
// silently miss results.
var ErrMalformedPage = errors.New("malformed search page")

// Page is one page of blob-search hits.
type Page struct {
	Number int
	Hits   []output.Hit
}

// Enumerator paginates the blob search endpoint, globally or scoped to one
// group, as a lazy sequence of pages. The sequence is restartable only by
// calling Enumerate again from page 1; resumability lives in the ledger, not
// here.
type Enumerator struct {
	client   *gl.Client
	retry    *gl.RetryPolicy
	query    string
	group    string
	pageSize int
}

func NewEnumerator(client *gl.Client, retry *gl.RetryPolicy, query, group string) (*Enumerator, error) {
	if client == nil || client.API == nil {
		return nil, errors.New("enumerator: nil client")
	}
	if retry == nil {
		return nil, errors.New("enumerator: nil retry policy")
	}
	if query == "" {
		return nil, errors.New("enumerator: empty query")
	}
	return &Enumerator{
		client:   client,
		retry:    retry,
		query:    query,
		group:    group,
		pageSize: defaultSearchPageSize,
	}, nil
}

// Enumerate streams pages until the API reports the end, an error occurs, or
// the context is canceled.
//
// Channel semantics:
//   - One Page is sent per fetched page, in order.
//   - Both channels are closed reliably when enumeration stops.
//   - The error channel carries at most one error; a decode failure is
//     wrapped in ErrMalformedPage.
func (e *Enumerator) Enumerate(ctx context.Context) (<-chan Page, <-chan error) {
	pagesCh := make(chan Page)
	errCh := make(chan error, 1)

	go func() {
		defer close(pagesCh)
		defer close(errCh)

		trySendErr := func(err error) {
			if err == nil {
				return
			}
			select {
			case errCh <- err:
			default:
			}
		}

		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				trySendErr(err)
				return
			}

			blobs, next, err := e.fetchPage(ctx, page)
			if err != nil {
				if gl.IsMalformed(err) {
					err = fmt.Errorf("%w: %v", ErrMalformedPage, err)
				}
				trySendErr(err)
				return
			}

			hits := make([]output.Hit, 0, len(blobs))
			for _, b := range blobs {
				path := b.Path
				if path == "" {
					path = b.Filename
				}
				hits = append(hits, output.Hit{
					ProjectID: b.ProjectID,
					FilePath:  path,
					Ref:       b.Ref,
				})
			}

			if len(hits) > 0 {
				select {
				case pagesCh <- Page{Number: page, Hits: hits}:
				case <-ctx.Done():
					trySendErr(ctx.Err())
					return
				}
			}

			if next == 0 || len(blobs) < e.pageSize {
				return
			}
		}
	}()

	return pagesCh, errCh
}

func (e *Enumerator) fetchPage(ctx context.Context, page int) (blobs []*gitlab.Blob, nextPage int, err error) {
	opt := &gitlab.SearchOptions{
		ListOptions: gitlab.ListOptions{
			Page:    page,
			PerPage: e.pageSize,
		},
	}

	_, err = e.retry.Do(ctx, func() error {
		var (
			res  []*gitlab.Blob
			resp *gitlab.Response
			ferr error
		)
		if e.group != "" {
			res, resp, ferr = e.client.API.Search.BlobsByGroup(e.group, e.query, opt, gitlab.WithContext(ctx))
		} else {
			res, resp, ferr = e.client.API.Search.Blobs(e.query, opt, gitlab.WithContext(ctx))
		}
		if ferr != nil {
			return ferr
		}
		blobs = res
		nextPage = resp.NextPage
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search page %d: %w", page, err)
	}
	return blobs, nextPage, nil
}
