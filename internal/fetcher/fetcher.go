// Package fetcher downloads the tender feed and normalizes its entries.
package fetcher

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/sethvargo/go-retry"

	"tenderbot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses the configured tender feed. Transient
// failures (network errors, non-2xx responses) are retried with
// exponential backoff; exhausting all attempts surfaces an error that
// aborts the caller's scan pass.
type Fetcher struct {
	client    HTTPClient
	url       string
	timeout   time.Duration
	retries   uint64
	backoff   time.Duration
	sanitizer *bluemonday.Policy
}

// New creates a Fetcher for the given feed URL with default retry
// policy (3 attempts, 2s base backoff doubling per attempt).
func New(client HTTPClient, feedURL string) *Fetcher {
	return &Fetcher{
		client:    client,
		url:       feedURL,
		timeout:   10 * time.Second,
		retries:   2,
		backoff:   2 * time.Second,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// SetRetryPolicy overrides the attempt count and base backoff delay.
func (f *Fetcher) SetRetryPolicy(attempts int, base time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	f.retries = uint64(attempts - 1)
	f.backoff = base
}

// Fetch downloads the feed and returns its normalized entries.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.FeedEntry, error) {
	var body []byte
	b := retry.WithMaxRetries(f.retries, retry.NewExponential(f.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", "TenderBot/3.0")

		resp, err := f.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("http get: %w", err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read body: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]model.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		e, ok := f.normalize(item)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// normalize converts a raw feed item into a FeedEntry. Items without a
// usable identifier are dropped. A timestamp string that is present
// but unparseable is replaced with the current time so the entry is
// delivered rather than silently skipped.
func (f *Fetcher) normalize(item *gofeed.Item) (model.FeedEntry, bool) {
	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id == "" {
		return model.FeedEntry{}, false
	}
	return model.FeedEntry{
		ID:          id,
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Summary:     f.stripHTML(item.Description),
		PublishedAt: normalizeTime(item.Published, item.PublishedParsed),
		UpdatedAt:   normalizeTime(item.Updated, item.UpdatedParsed),
	}, true
}

// stripHTML reduces feed-supplied markup to plain text.
func (f *Fetcher) stripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(f.sanitizer.Sanitize(s)))
}

func normalizeTime(raw string, parsed *time.Time) *time.Time {
	if parsed != nil {
		t := parsed.UTC()
		return &t
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	now := time.Now().UTC()
	return &now
}
