package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gl "glabgrab/internal/gitlab"

	"github.com/rs/zerolog"
)

// newTestClient points an API client at a local server so tests never touch
// the network.
func newTestClient(t *testing.T, handler http.Handler) *gl.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gl.NewClient("gitlab.test", gl.Credential{Token: "tok"}, gl.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func newTestRetry(maxRetries int) *gl.RetryPolicy {
	return &gl.RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Log:        zerolog.Nop(),
	}
}
