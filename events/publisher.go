// Package events publishes run-lifecycle events on the Redis pub/sub bus.
// Delivery is fire-and-forget: publish errors are logged, never returned to
// the import pipeline.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"jobwire/models"
)

// Pub/sub channel names, shared with the observer gateway.
const (
	ChannelCompleted = "import:completed"
	ChannelUpdate    = "import:update"
	ChannelFailed    = "import:failed"
)

// Channels lists every channel the gateway should subscribe to.
func Channels() []string {
	return []string{ChannelCompleted, ChannelUpdate, ChannelFailed}
}

// Publisher broadcasts run outcomes to observers. It is constructed once at
// startup and passed by reference into the worker and scheduler wiring.
type Publisher interface {
	// RunCompleted publishes the persisted run summary, including handled
	// whole-feed failures. Sent on both the detailed and the summary channel.
	RunCompleted(ctx context.Context, runLog models.ImportLog)

	// RunFailed publishes a terminal task failure for which no run log
	// exists (retry exhaustion or an error escaping the import procedure).
	RunFailed(ctx context.Context, feedURL string, cause error)
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) RunCompleted(ctx context.Context, runLog models.ImportLog) {
	payload, err := json.Marshal(runLog)
	if err != nil {
		log.WithFields(log.Fields{
			"feedUrl": runLog.FeedURL,
			"error":   err,
		}).Error("Error marshalling run summary")
		return
	}

	p.publish(ctx, ChannelCompleted, payload)
	p.publish(ctx, ChannelUpdate, payload)
}

func (p *RedisPublisher) RunFailed(ctx context.Context, feedURL string, cause error) {
	payload, err := json.Marshal(models.ImportFailedEvent{
		FeedURL: feedURL,
		Error:   cause.Error(),
	})
	if err != nil {
		log.WithFields(log.Fields{
			"feedUrl": feedURL,
			"error":   err,
		}).Error("Error marshalling failure event")
		return
	}

	p.publish(ctx, ChannelFailed, payload)
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, payload []byte) {
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.WithFields(log.Fields{
			"channel": channel,
			"error":   err,
		}).Warn("Publish failed, observers will miss this event")
	}
}
