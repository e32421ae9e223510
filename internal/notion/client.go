// Package notion publishes citation records into a Notion database.
//
// The database schema is introspected at run time and records are mapped
// onto whatever properties exist, so users keep full control over their
// database layout. Writes are idempotent: an existing page is found by a
// chain of identity properties and updated in place.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"
)

const (
	// Notion's public API allows an average of three requests per second.
	requestsPerSecond = 3

	// queryPageSize is 1 because identity lookups only need the first hit.
	queryPageSize = 1

	childPageSize      = 100
	maxBlocksPerAppend = 100
	maxRichTextLen     = 2000
)

// ErrSchemaUnavailable means the database could not be introspected. There
// is nothing to map onto, so the run aborts.
var ErrSchemaUnavailable = errors.New("database schema unavailable")

// ErrNotFound means the page or block no longer exists.
var ErrNotFound = errors.New("not found")

// APIError carries the status and code from a failed Notion request.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
}

// wrapError converts the library's error type into ours, keeping the
// operation name for context.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		wrapped := &APIError{
			StatusCode: apiErr.Status,
			Code:       string(apiErr.Code),
			Message:    apiErr.Message,
		}
		if apiErr.Status == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %w", op, ErrNotFound, wrapped)
		}
		return fmt.Errorf("%s: %w", op, wrapped)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Client wraps the Notion API for one target database.
type Client struct {
	api        *notionapi.Client
	limiter    *rate.Limiter
	databaseID notionapi.DatabaseID
}

type clientConfig struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*clientConfig)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithLimiter replaces the default rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *clientConfig) {
		c.limiter = l
	}
}

// NewClient builds a client for the given integration token and database.
func NewClient(apiKey, databaseID string, opts ...Option) *Client {
	cfg := clientConfig{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var apiOpts []notionapi.ClientOption
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, notionapi.WithHTTPClient(cfg.httpClient))
	}

	return &Client{
		api:        notionapi.NewClient(notionapi.Token(apiKey), apiOpts...),
		limiter:    cfg.limiter,
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}
