// Package ingest implements the per-feed import procedure: fetch, parse,
// normalize, upsert, log, publish.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultFetchTimeout = 15 * time.Second

// TransportError wraps any fetch-level failure: timeout, connection error,
// or non-success status. It is handled inside the import procedure as a
// whole-feed failure and never reaches the queue.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Fetcher retrieves feed documents over HTTP with a bounded timeout.
// Retries happen at the task level, never here.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch issues a GET to the feed URL and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: err}
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: feedURL, Err: fmt.Errorf("bad HTTP response: %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: fmt.Errorf("unable to read response body: %w", err)}
	}

	return body, nil
}
