package ingest

import (
	"errors"
	"strings"
	"time"

	"jobwire/models"
)

// ErrMissingExternalID marks an item for which no stable identifier could be
// derived. The exact message is recorded in the run log's failure list.
var ErrMissingExternalID = errors.New("Missing externalId")

// ExternalID derives the dedup key from an item via an ordered fallback
// chain: guid, link, id, title. The first non-empty value wins.
func ExternalID(item RawItem) string {
	for _, candidate := range []string{item.GUID, item.Link, item.ID, item.Title} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return ""
}

// BuildRecord maps one raw item onto the canonical record. Field fallbacks:
// description from content:encoded or description, company from author or
// company, location from location or job_location. An unparseable pubDate is
// tolerated and leaves PublishedAt unset.
func BuildRecord(feedURL string, item RawItem) (models.Job, error) {
	externalID := ExternalID(item)
	if externalID == "" {
		return models.Job{}, ErrMissingExternalID
	}

	job := models.Job{
		ExternalID:  externalID,
		FeedURL:     feedURL,
		Title:       strings.TrimSpace(item.Title),
		Description: firstNonEmpty(item.Content, item.Description),
		Company:     firstNonEmpty(item.Author, item.Company),
		Location:    firstNonEmpty(item.Location, item.JobLocation),
		Raw:         item.Raw,
	}

	if item.PubDate != "" {
		if t, err := parseTime(item.PubDate); err == nil {
			job.PublishedAt = &t
		}
	}

	return job, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// parseTime tries multiple formats one after another until one works or all
// fail. Feed publishers are wildly inconsistent about date formats.
func parseTime(value string) (time.Time, error) {
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05Z",
		time.RFC822,
		"02 Jan 2006 15:04 MST",           // RFC822 with 4 digit year
		"02 Jan 2006 15:04:05 MST",        // RFC822 with 4 digit year and seconds
		"Mon, _2 Jan 2006 15:04:05 MST",   // RFC1123 with 1-2 digit days
		"Mon, _2 Jan 2006 15:04:05 -0700", // RFC1123 with numeric time zone and with 1-2 digit days
		"Mon, _2 Jan 2006",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, strings.TrimSpace(value)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unable to parse time")
}
