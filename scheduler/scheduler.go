// Package scheduler wires up the cron job that periodically enqueues one
// import task per registered feed source.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"jobwire/models"
)

// Registry is the read-only view of the feed source set. The scheduler
// never mutates it.
type Registry interface {
	ListFeeds(ctx context.Context) ([]models.Feed, error)
}

// Enqueuer accepts one import task per feed URL.
type Enqueuer interface {
	Enqueue(ctx context.Context, url string) error
}

// Scheduler wraps robfig/cron and manages the enqueue loop. No per-source
// state is carried across ticks; a source enqueued twice before being
// processed is harmless because the downstream upsert is idempotent.
type Scheduler struct {
	cron     *cron.Cron
	registry Registry
	queue    Enqueuer
	spec     string
}

func New(registry Registry, queue Enqueuer, spec string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		registry: registry,
		queue:    queue,
		spec:     spec,
	}
}

// Start registers the cron entry and starts ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{"spec": s.spec}).Info("Scheduler started")
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info("Scheduler stopped")
}

// tick enumerates the current feed set and enqueues one task per source.
// A registry read failure skips the whole tick; the next tick retries
// independently.
func (s *Scheduler) tick(ctx context.Context) {
	feeds, err := s.registry.ListFeeds(ctx)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Skipping tick, feed registry read failed")
		return
	}

	enqueued := 0
	for _, feed := range feeds {
		if err := s.queue.Enqueue(ctx, feed.URL); err != nil {
			log.WithFields(log.Fields{"url": feed.URL, "error": err}).Error("Enqueue failed")
			continue
		}
		enqueued++
	}

	log.WithFields(log.Fields{"enqueued": enqueued, "feeds": len(feeds)}).Info("Enqueued import tasks")
}
