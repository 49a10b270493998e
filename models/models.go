package models

import (
	"encoding/json"
	"time"
)

// Feed is a registered feed source. The importer only reads this set;
// registration happens through the HTTP API or the seed command.
type Feed struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Job is the canonical, deduplicated representation of a single listing.
// ExternalID is derived from the raw item and is unique across the store.
type Job struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"externalId"`
	FeedURL     string     `json:"feedUrl"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Raw         string     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ImportLog is the immutable audit record of one import attempt.
// TotalImported is always NewJobs + UpdatedJobs.
type ImportLog struct {
	ID            int64     `json:"id"`
	FeedURL       string    `json:"feedUrl"`
	Timestamp     time.Time `json:"timestamp"`
	TotalFetched  int       `json:"totalFetched"`
	TotalImported int       `json:"totalImported"`
	NewJobs       int       `json:"newJobs"`
	UpdatedJobs   int       `json:"updatedJobs"`
	FailedJobs    int       `json:"failedJobs"`
	Failures      []string  `json:"failures"`
}

// ImportTask is the queue payload for "import this one feed now".
// Attempt starts at 1 and is incremented by the queue on every redelivery.
type ImportTask struct {
	URL        string    `json:"url"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Attempt    int       `json:"attempt"`
}

// ImportFailedEvent is published when a task fails terminally, i.e. after
// retry exhaustion. No import log exists for these.
type ImportFailedEvent struct {
	FeedURL string `json:"feedUrl"`
	Error   string `json:"error"`
}

// RunEvent is a pub/sub message relayed to connected observers.
type RunEvent struct {
	Channel string
	Payload json.RawMessage
}

// Stats aggregates store counters for the dashboard.
type Stats struct {
	TotalFeeds    int64      `json:"totalFeeds"`
	TotalJobs     int64      `json:"totalJobs"`
	TotalImports  int64      `json:"totalImports"`
	TotalFailures int64      `json:"totalFailures"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
}
