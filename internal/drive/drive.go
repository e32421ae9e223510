// Package drive lists and downloads documents from the Google Drive folder
// backing the document store.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	// DefaultMimeType restricts listings to PDFs.
	DefaultMimeType = "application/pdf"

	// DefaultMaxFiles caps one run's listing.
	DefaultMaxFiles = 1000

	// listPageSize is the per-page size for folder listings.
	listPageSize = 100

	// requestsPerSecond stays inside Drive's default per-user quota.
	requestsPerSecond = 5
)

// ErrNotFound indicates the requested file does not exist or is out of reach.
var ErrNotFound = errors.New("file not found")

// File is one document in the store.
type File struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	ViewURL  string    `json:"view_url,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}

// Client is a rate-limited wrapper over the Drive v3 API, scoped to one
// folder.
type Client struct {
	svc      *gdrive.Service
	limiter  *rate.Limiter
	folderID string
	mimeType string
	maxFiles int
}

// Option configures a Client.
type Option func(*Client)

// WithMimeType restricts listings to one MIME type. Empty lists everything.
func WithMimeType(mimeType string) Option {
	return func(c *Client) {
		c.mimeType = mimeType
	}
}

// WithMaxFiles caps how many files List returns.
func WithMaxFiles(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxFiles = n
		}
	}
}

// WithLimiter replaces the default rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient builds a Drive client for one folder. credentialsFile may be
// empty when the environment supplies application default credentials.
func NewClient(ctx context.Context, folderID, credentialsFile string, opts ...Option) (*Client, error) {
	var svcOpts []option.ClientOption
	if credentialsFile != "" {
		svcOpts = append(svcOpts, option.WithCredentialsFile(credentialsFile))
	}
	svcOpts = append(svcOpts, option.WithScopes(gdrive.DriveReadonlyScope))

	svc, err := gdrive.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return NewClientWithService(svc, folderID, opts...), nil
}

// NewClientWithService wraps an existing Drive service. Tests use it to
// point the client at a stub endpoint.
func NewClientWithService(svc *gdrive.Service, folderID string, opts ...Option) *Client {
	c := &Client{
		svc:      svc,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		folderID: folderID,
		mimeType: DefaultMimeType,
		maxFiles: DefaultMaxFiles,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the folder's files ordered by name, paging until exhaustion
// or the configured cap.
func (c *Client) List(ctx context.Context) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", c.folderID)
	if c.mimeType != "" {
		query += fmt.Sprintf(" and mimeType = '%s'", c.mimeType)
	}

	var files []File
	pageToken := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		call := c.svc.Files.List().
			Q(query).
			OrderBy("name").
			PageSize(listPageSize).
			Fields("nextPageToken, files(id, name, webViewLink, modifiedTime)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing folder %s: %w", c.folderID, err)
		}

		for _, f := range page.Files {
			files = append(files, File{
				ID:       f.Id,
				Name:     f.Name,
				ViewURL:  f.WebViewLink,
				Modified: parseModified(f.ModifiedTime),
			})
			if len(files) >= c.maxFiles {
				return files, nil
			}
		}

		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// Download streams one file into dir and returns the local path. The file
// is named by its store ID so concurrent records can never collide.
func (c *Client) Download(ctx context.Context, fileID, dir string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return "", fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return "", fmt.Errorf("downloading %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	path := filepath.Join(dir, fileID+".pdf")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// parseModified parses Drive's RFC 3339 modified time, tolerating absence.
func parseModified(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
