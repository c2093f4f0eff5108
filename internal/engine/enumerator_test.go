package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"glabgrab/internal/output"
)

// searchBlob mirrors the wire shape of one blob-search hit.
type searchBlob struct {
	ProjectID int    `json:"project_id"`
	Path      string `json:"path,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Ref       string `json:"ref,omitempty"`
}

func writeBlobs(t *testing.T, w http.ResponseWriter, nextPage string, blobs []searchBlob) {
	t.Helper()
	if nextPage != "" {
		w.Header().Set("X-Next-Page", nextPage)
	}
	if err := json.NewEncoder(w).Encode(blobs); err != nil {
		t.Errorf("encode blobs: %v", err)
	}
}

func collect(t *testing.T, enum *Enumerator, ctx context.Context) ([]Page, error) {
	t.Helper()
	pagesCh, errCh := enum.Enumerate(ctx)
	var pages []Page
	for p := range pagesCh {
		pages = append(pages, p)
	}
	return pages, <-errCh
}

func TestEnumerate_SinglePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("scope"); got != "blobs" {
			t.Errorf("scope = %q, want blobs", got)
		}
		if got := r.URL.Query().Get("search"); got != "Widget" {
			t.Errorf("search = %q, want Widget", got)
		}
		writeBlobs(t, w, "", []searchBlob{
			{ProjectID: 1, Path: "src/widget.go", Ref: "main"},
			{ProjectID: 2, Filename: "widget_test.go", Ref: "master"},
		})
	})

	enum, err := NewEnumerator(newTestClient(t, mux), newTestRetry(0), "Widget", "")
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}

	pages, enumErr := collect(t, enum, context.Background())
	if enumErr != nil {
		t.Fatalf("Enumerate: %v", enumErr)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	want := []output.Hit{
		{ProjectID: 1, FilePath: "src/widget.go", Ref: "main"},
		{ProjectID: 2, FilePath: "widget_test.go", Ref: "master"},
	}
	if len(pages[0].Hits) != len(want) {
		t.Fatalf("got %d hits, want %d", len(pages[0].Hits), len(want))
	}
	for i, hit := range pages[0].Hits {
		if hit != want[i] {
			t.Errorf("hit[%d] = %+v, want %+v", i, hit, want[i])
		}
	}
}

func TestEnumerate_MultiplePagesInOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/search", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			writeBlobs(t, w, "2", []searchBlob{
				{ProjectID: 1, Path: "a.go", Ref: "main"},
				{ProjectID: 1, Path: "b.go", Ref: "main"},
			})
		case "2":
			writeBlobs(t, w, "", []searchBlob{
				{ProjectID: 2, Path: "c.go", Ref: "main"},
			})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	enum, err := NewEnumerator(newTestClient(t, mux), newTestRetry(0), "Widget", "")
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	enum.pageSize = 2

	pages, enumErr := collect(t, enum, context.Background())
	if enumErr != nil {
		t.Fatalf("Enumerate: %v", enumErr)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].Number != 1 || pages[1].Number != 2 {
		t.Errorf("page numbers = %d, %d; want 1, 2", pages[0].Number, pages[1].Number)
	}
	if len(pages[0].Hits) != 2 || len(pages[1].Hits) != 1 {
		t.Errorf("hit counts = %d, %d; want 2, 1", len(pages[0].Hits), len(pages[1].Hits))
	}
}

func TestEnumerate_MalformedPageIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/search", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			writeBlobs(t, w, "2", []searchBlob{
				{ProjectID: 1, Path: "a.go", Ref: "main"},
				{ProjectID: 1, Path: "b.go", Ref: "main"},
			})
		default:
			fmt.Fprint(w, `{"this is": not json`)
		}
	})

	enum, err := NewEnumerator(newTestClient(t, mux), newTestRetry(0), "Widget", "")
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	enum.pageSize = 2

	pages, enumErr := collect(t, enum, context.Background())
	if len(pages) != 1 {
		t.Errorf("got %d pages before the failure, want 1", len(pages))
	}
	if !errors.Is(enumErr, ErrMalformedPage) {
		t.Errorf("err = %v, want ErrMalformedPage", enumErr)
	}
}

func TestEnumerate_GroupScoped(t *testing.T) {
	var hitGroupEndpoint bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/groups/platform/-/search", func(w http.ResponseWriter, r *http.Request) {
		hitGroupEndpoint = true
		writeBlobs(t, w, "", []searchBlob{{ProjectID: 3, Path: "x.go", Ref: "main"}})
	})

	enum, err := NewEnumerator(newTestClient(t, mux), newTestRetry(0), "Widget", "platform")
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}

	pages, enumErr := collect(t, enum, context.Background())
	if enumErr != nil {
		t.Fatalf("Enumerate: %v", enumErr)
	}
	if !hitGroupEndpoint {
		t.Error("group search endpoint was never called")
	}
	if len(pages) != 1 || len(pages[0].Hits) != 1 {
		t.Fatalf("pages = %+v", pages)
	}
}

func TestEnumerate_PermanentAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"401 Unauthorized"}`, http.StatusUnauthorized)
	})

	enum, err := NewEnumerator(newTestClient(t, mux), newTestRetry(2), "Widget", "")
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}

	pages, enumErr := collect(t, enum, context.Background())
	if len(pages) != 0 {
		t.Errorf("got %d pages, want 0", len(pages))
	}
	if enumErr == nil {
		t.Fatal("expected an enumeration error")
	}
	if errors.Is(enumErr, ErrMalformedPage) {
		t.Error("auth failure must not be reported as a malformed page")
	}
}

func TestNewEnumerator_Validation(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	if _, err := NewEnumerator(nil, newTestRetry(0), "q", ""); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := NewEnumerator(client, nil, "q", ""); err == nil {
		t.Error("expected error for nil retry policy")
	}
	if _, err := NewEnumerator(client, newTestRetry(0), "", ""); err == nil {
		t.Error("expected error for empty query")
	}
}
