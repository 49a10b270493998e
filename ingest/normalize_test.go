package ingest_test

import (
	"testing"
	"time"

	"jobwire/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalIDFallbackChain(t *testing.T) {
	tests := []struct {
		name     string
		item     ingest.RawItem
		expected string
	}{
		{
			name:     "guid wins over everything",
			item:     ingest.RawItem{GUID: "g-1", Link: "l-1", ID: "i-1", Title: "t-1"},
			expected: "g-1",
		},
		{
			name:     "link when guid missing",
			item:     ingest.RawItem{Link: "l-1", ID: "i-1", Title: "t-1"},
			expected: "l-1",
		},
		{
			name:     "id when guid and link missing",
			item:     ingest.RawItem{ID: "i-1", Title: "t-1"},
			expected: "i-1",
		},
		{
			name:     "title as last resort",
			item:     ingest.RawItem{Title: "t-1"},
			expected: "t-1",
		},
		{
			name:     "whitespace-only values are skipped",
			item:     ingest.RawItem{GUID: "   ", Link: "\n", Title: "t-1"},
			expected: "t-1",
		},
		{
			name:     "nothing usable",
			item:     ingest.RawItem{Description: "only a description"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ingest.ExternalID(tt.item))
		})
	}
}

func TestBuildRecordFieldFallbacks(t *testing.T) {
	job, err := ingest.BuildRecord("http://feed.example.org/rss", ingest.RawItem{
		GUID:        "j-1",
		Title:       " Backend Engineer ",
		Description: "plain description",
		Content:     "rich content",
		Company:     "Fallback Co",
		Author:      "Acme Inc",
		JobLocation: "Berlin",
		PubDate:     "Fri, 03 Jan 2014 22:45:00 GMT",
		Raw:         "<title>Backend Engineer</title>",
	})
	require.NoError(t, err)

	assert.Equal(t, "j-1", job.ExternalID)
	assert.Equal(t, "http://feed.example.org/rss", job.FeedURL)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, "rich content", job.Description, "content:encoded wins over description")
	assert.Equal(t, "Acme Inc", job.Company, "author wins over company")
	assert.Equal(t, "Berlin", job.Location, "job_location used when location missing")
	assert.Equal(t, "<title>Backend Engineer</title>", job.Raw)

	require.NotNil(t, job.PublishedAt)
	assert.True(t, job.PublishedAt.Equal(time.Date(2014, 1, 3, 22, 45, 0, 0, time.UTC)))
}

func TestBuildRecordSecondaryFallbacks(t *testing.T) {
	job, err := ingest.BuildRecord("http://feed.example.org/rss", ingest.RawItem{
		GUID:        "j-2",
		Description: "plain description",
		Company:     "Fallback Co",
		Location:    "Remote",
	})
	require.NoError(t, err)
	assert.Equal(t, "plain description", job.Description)
	assert.Equal(t, "Fallback Co", job.Company)
	assert.Equal(t, "Remote", job.Location)
	assert.Nil(t, job.PublishedAt)
}

func TestBuildRecordMissingExternalID(t *testing.T) {
	_, err := ingest.BuildRecord("http://feed.example.org/rss", ingest.RawItem{
		Description: "item with no identifiers at all",
	})
	assert.ErrorIs(t, err, ingest.ErrMissingExternalID)
	assert.EqualError(t, err, "Missing externalId")
}

func TestBuildRecordUnparseableDateIsTolerated(t *testing.T) {
	job, err := ingest.BuildRecord("http://feed.example.org/rss", ingest.RawItem{
		GUID:    "j-3",
		PubDate: "sometime last week",
	})
	require.NoError(t, err)
	assert.Nil(t, job.PublishedAt)
}

func TestBuildRecordDateFormats(t *testing.T) {
	formats := []string{
		"Fri, 03 Jan 2014 22:45:00 GMT",
		"2014-01-03T22:45:00Z",
		"2014-01-03T22:45:00-00:00",
		"Fri, 3 Jan 2014 22:45:00 GMT",
		"2014-01-03",
	}
	for _, value := range formats {
		job, err := ingest.BuildRecord("http://feed.example.org/rss", ingest.RawItem{
			GUID:    "j-4",
			PubDate: value,
		})
		require.NoError(t, err)
		assert.NotNilf(t, job.PublishedAt, "format %q should parse", value)
	}
}
