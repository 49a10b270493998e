package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobwire/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu        sync.Mutex
	completed []models.ImportLog
	failed    []models.ImportFailedEvent
}

func (p *recordingPublisher) RunCompleted(_ context.Context, runLog models.ImportLog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, runLog)
}

func (p *recordingPublisher) RunFailed(_ context.Context, feedURL string, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, models.ImportFailedEvent{FeedURL: feedURL, Error: cause.Error()})
}

func (p *recordingPublisher) failedEvents() []models.ImportFailedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ImportFailedEvent(nil), p.failed...)
}

func TestNextRetryDoublesFromBase(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 8 * time.Second},
	}

	for _, tt := range tests {
		delay, ok := NextRetry(tt.attempt, 10, time.Second)
		require.True(t, ok)
		assert.Equalf(t, tt.want, delay, "attempt %d", tt.attempt)
	}
}

func TestNextRetryCustomBase(t *testing.T) {
	delay, ok := NextRetry(2, 5, 250*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, delay)
}

func TestNextRetryExhaustsAtAttemptLimit(t *testing.T) {
	_, ok := NextRetry(3, 3, time.Second)
	assert.False(t, ok)

	_, ok = NextRetry(4, 3, time.Second)
	assert.False(t, ok)
}

// With 3 attempts and a 1s base, a handler that throws on attempts 1 and 2
// and succeeds on attempt 3 completes with exactly 3 invocations, the
// retries delayed 1s then 2s.
func TestFlakyHandlerCompletesWithinAttemptLimit(t *testing.T) {
	const maxAttempts = 3

	invocations := 0
	handler := func() error {
		invocations++
		if invocations < 3 {
			return errors.New("boom")
		}
		return nil
	}

	var delays []time.Duration
	attempt := 1
	for {
		if err := handler(); err == nil {
			break
		}
		delay, ok := NextRetry(attempt, maxAttempts, time.Second)
		require.True(t, ok, "attempts should not exhaust before the third try")
		delays = append(delays, delay)
		attempt++
	}

	assert.Equal(t, 3, invocations)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

// Exhaustion publishes import:failed and nothing else; in particular no run
// log exists for the attempt, which is the queue's side of the intentional
// log-on-handled / notify-on-unhandled asymmetry.
func TestHandleFailureExhaustionPublishesFailureEvent(t *testing.T) {
	publisher := &recordingPublisher{}
	q := New(nil, publisher, Options{MaxAttempts: 3, BackoffBase: time.Second})

	task := models.ImportTask{URL: "http://feed.example.org/rss", Attempt: 3}
	requeued := q.handleFailure(context.Background(), task, errors.New("fetch exploded"))

	assert.False(t, requeued)
	failed := publisher.failedEvents()
	require.Len(t, failed, 1)
	assert.Equal(t, "http://feed.example.org/rss", failed[0].FeedURL)
	assert.Equal(t, "fetch exploded", failed[0].Error)
	assert.Empty(t, publisher.completed)
}

func TestNewAppliesDefaults(t *testing.T) {
	q := New(nil, &recordingPublisher{}, Options{})
	assert.Equal(t, 5, q.opts.Concurrency)
	assert.Equal(t, 3, q.opts.MaxAttempts)
	assert.Equal(t, time.Second, q.opts.BackoffBase)
}
