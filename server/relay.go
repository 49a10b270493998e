package server

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"jobwire/events"
	"jobwire/models"
)

// Relay subscribes to the import pub/sub channels and feeds every message
// into the broadcaster until ctx is cancelled. Messages that are not valid
// JSON are dropped rather than forwarded to clients.
func Relay(ctx context.Context, rdb *redis.Client, bc *Broadcaster) {
	pubsub := rdb.Subscribe(ctx, events.Channels()...)
	defer pubsub.Close()

	log.WithFields(log.Fields{"channels": events.Channels()}).Info("Relaying run events to observers")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				log.WithFields(log.Fields{"channel": msg.Channel}).Warn("Dropping malformed event payload")
				continue
			}
			bc.Broadcast(models.RunEvent{
				Channel: msg.Channel,
				Payload: json.RawMessage(msg.Payload),
			})
		}
	}
}
