package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/time/rate"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := gdrive.NewService(context.Background(),
		option.WithEndpoint(ts.URL),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("creating stub drive service: %v", err)
	}

	opts = append(opts, WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	return NewClientWithService(svc, "folder123", opts...)
}

func TestList_PaginatesAndParses(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{
				"files": [{"id": "f1", "name": "a.pdf", "webViewLink": "https://drive.example/f1", "modifiedTime": "2024-03-01T10:00:00Z"}],
				"nextPageToken": "tok"
			}`)
			return
		}
		fmt.Fprint(w, `{"files": [{"id": "f2", "name": "b.pdf"}]}`)
	})

	files, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("files = %d, want 2 across pages", len(files))
	}
	if files[0].ID != "f1" || files[1].ID != "f2" {
		t.Errorf("IDs = %q, %q", files[0].ID, files[1].ID)
	}
	if files[0].ViewURL != "https://drive.example/f1" {
		t.Errorf("ViewURL = %q", files[0].ViewURL)
	}
	if files[0].Modified.IsZero() {
		t.Error("Modified not parsed")
	}
	if !files[1].Modified.IsZero() {
		t.Error("missing modifiedTime should stay zero")
	}

	if len(queries) != 2 {
		t.Fatalf("requests = %d, want 2", len(queries))
	}
	for _, q := range queries {
		if !strings.Contains(q, "'folder123' in parents") {
			t.Errorf("query %q missing folder clause", q)
		}
		if !strings.Contains(q, "mimeType = 'application/pdf'") {
			t.Errorf("query %q missing MIME clause", q)
		}
		if !strings.Contains(q, "trashed = false") {
			t.Errorf("query %q missing trashed clause", q)
		}
	}
}

func TestList_RespectsMaxFiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"files": [{"id": "f1", "name": "a.pdf"}, {"id": "f2", "name": "b.pdf"}, {"id": "f3", "name": "c.pdf"}],
			"nextPageToken": "more"
		}`)
	}, WithMaxFiles(2))

	files, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %d, want cap of 2", len(files))
	}
}

func TestList_CustomMimeType(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files": []}`)
	}, WithMimeType("application/epub+zip"))

	if _, err := c.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(query, "application/epub+zip") {
		t.Errorf("query = %q, want custom MIME type", query)
	}
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "f1", "name": "a.pdf"}`)
			return
		}
		fmt.Fprint(w, "%PDF-1.4 stub body")
	})

	dir := t.TempDir()
	path, err := c.Download(context.Background(), "f1", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if filepath.Base(path) != "f1.pdf" {
		t.Errorf("path = %q, want ID-derived name", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-1.4") {
		t.Errorf("content = %q", data)
	}
}

func TestList_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 500}}`, http.StatusInternalServerError)
	})

	if _, err := c.List(context.Background()); err == nil {
		t.Fatal("List succeeded against a failing backend")
	}
}
