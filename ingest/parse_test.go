package ingest_test

import (
	"testing"

	"jobwire/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemsDialects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		titles []string
	}{
		{
			name: "classic rss channel",
			body: `<?xml version='1.0' encoding='UTF-8'?>
<rss version="2.0">
  <channel>
    <title>Jobs</title>
    <item>
      <title>Backend Engineer</title>
      <link>http://example.org/jobs/1</link>
    </item>
    <item>
      <title>SRE</title>
      <link>http://example.org/jobs/2</link>
    </item>
  </channel>
</rss>`,
			titles: []string{"Backend Engineer", "SRE"},
		},
		{
			name: "bare channel without rss wrapper",
			body: `<?xml version='1.0' encoding='UTF-8'?>
<channel>
  <title>Jobs</title>
  <item>
    <title>Data Engineer</title>
    <guid>job-77</guid>
  </item>
</channel>`,
			titles: []string{"Data Engineer"},
		},
		{
			name: "flat item container",
			body: `<jobs>
  <item><title>Designer</title><id>d-1</id></item>
  <item><title>PM</title><id>p-1</id></item>
</jobs>`,
			titles: []string{"Designer", "PM"},
		},
		{
			name: "single bare item document",
			body: `<?xml version='1.0'?>
<item>
  <title>Solo Listing</title>
  <guid>solo-1</guid>
</item>`,
			titles: []string{"Solo Listing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ingest.ParseItems([]byte(tt.body))
			require.NoError(t, err)
			require.Len(t, items, len(tt.titles))
			for i, title := range tt.titles {
				assert.Equal(t, title, items[i].Title)
			}
		})
	}
}

func TestParseItemsEmptyFeedIsNotAnError(t *testing.T) {
	body := `<?xml version='1.0' encoding='UTF-8'?>
<rss version="2.0">
  <channel>
    <title>No jobs today</title>
  </channel>
</rss>`

	items, err := ingest.ParseItems([]byte(body))
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseItemsMalformedDocument(t *testing.T) {
	_, err := ingest.ParseItems([]byte(`<rss><channel><item><title>broken`))
	assert.Error(t, err)
}

func TestParseItemsLaxDecoding(t *testing.T) {
	// Declared legacy charset plus a bare HTML entity, both common in
	// real-world feeds.
	body := `<?xml version='1.0' encoding='ISO-8859-1'?>
<rss version="2.0">
  <channel>
    <item>
      <title>Senior&nbsp;Engineer</title>
      <link>http://example.org/jobs/9</link>
    </item>
  </channel>
</rss>`

	items, err := ingest.ParseItems([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Senior\u00a0Engineer", items[0].Title)
}

func TestParseItemsFieldBinding(t *testing.T) {
	body := `<?xml version='1.0' encoding='UTF-8'?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <item>
      <guid>abc-123</guid>
      <link>http://example.org/jobs/3</link>
      <title>Platform Engineer</title>
      <description>short text</description>
      <content:encoded>long rich text</content:encoded>
      <author>Acme Inc</author>
      <job_location>Berlin</job_location>
      <pubDate>Fri, 03 Jan 2014 22:45:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	items, err := ingest.ParseItems([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "abc-123", item.GUID)
	assert.Equal(t, "http://example.org/jobs/3", item.Link)
	assert.Equal(t, "Platform Engineer", item.Title)
	assert.Equal(t, "short text", item.Description)
	assert.Equal(t, "long rich text", item.Content)
	assert.Equal(t, "Acme Inc", item.Author)
	assert.Equal(t, "Berlin", item.JobLocation)
	assert.Equal(t, "Fri, 03 Jan 2014 22:45:00 GMT", item.PubDate)
	assert.Contains(t, item.Raw, "<guid>abc-123</guid>")
}
