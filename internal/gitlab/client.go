package gitlab

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// Client bundles the GitLab API client with the HTTP client it rides on.
type Client struct {
	API  *gitlab.Client
	HTTP *http.Client
}

type options struct {
	verbose bool
	// writer controls where verbose HTTP logs are written (typically stderr) so
	// the progress line on stdout stays clean and tests can capture logs.
	writer  io.Writer
	baseURL string
}

type Option func(*options)

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

// WithBaseURL overrides the API base URL derived from the hostname.
// Intended for tests that point the client at a local server.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	w    io.Writer
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.w != nil {
		_, _ = fmt.Fprintf(t.w, "[verbose] gitlab api: %s %s\n", req.Method, req.URL.String())
	}
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if t.w != nil {
		if err != nil {
			_, _ = fmt.Fprintf(t.w, "[verbose] gitlab api: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			_, _ = fmt.Fprintf(t.w, "[verbose] gitlab api: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

// NewClient builds an authenticated API client for one GitLab host.
//
// The library's built-in retry loop is disabled: backoff belongs to the retry
// policy in this package so attempt counts stay observable.
func NewClient(hostname string, cred Credential, opts ...Option) (*Client, error) {
	if hostname == "" {
		return nil, fmt.Errorf("gitlab client: hostname is required")
	}
	if cred.Token == "" {
		return nil, fmt.Errorf("gitlab client: token is required")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.writer == nil {
		o.writer = os.Stderr
	}

	transport := http.DefaultTransport
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, w: o.writer}
	}
	hc := &http.Client{Transport: transport}

	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = "https://" + hostname
	}

	copts := []gitlab.ClientOptionFunc{
		gitlab.WithBaseURL(baseURL),
		gitlab.WithHTTPClient(hc),
		gitlab.WithoutRetries(),
	}

	var (
		api *gitlab.Client
		err error
	)
	if cred.OAuth {
		api, err = gitlab.NewOAuthClient(cred.Token, copts...)
	} else {
		api, err = gitlab.NewClient(cred.Token, copts...)
	}
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}

	return &Client{
		API:  api,
		HTTP: hc,
	}, nil
}
