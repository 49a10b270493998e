package ingest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobwire/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<rss></rss>"))
	}))
	defer ts.Close()

	body, err := ingest.NewFetcher(5 * time.Second).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "<rss></rss>", string(body))
}

func TestFetchNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := ingest.NewFetcher(5 * time.Second).Fetch(context.Background(), ts.URL)
	require.Error(t, err)

	var transportErr *ingest.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, ts.URL, transportErr.URL)
}

func TestFetchTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	_, err := ingest.NewFetcher(50 * time.Millisecond).Fetch(context.Background(), ts.URL)
	require.Error(t, err)

	var transportErr *ingest.TransportError
	assert.ErrorAs(t, err, &transportErr)
}
