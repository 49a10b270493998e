// Package queue is the durable, at-least-once import task queue on Redis.
//
// Pending tasks live on a list and are claimed with BLMOVE onto a processing
// list, where they stay until the attempt finishes; tasks a dead worker left
// in flight are moved back to pending at startup. Failed tasks are parked on
// a sorted set scored by their ready time and promoted back onto the pending
// list by a background loop. The retry counter travels inside the task
// payload, so the queue alone owns the retry policy.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"jobwire/events"
	"jobwire/models"
)

const (
	pendingKey    = "jobwire:import:pending"
	processingKey = "jobwire:import:processing"
	delayedKey    = "jobwire:import:delayed"

	promoteInterval = 500 * time.Millisecond
	popTimeout      = 5 * time.Second
	promoteBatch    = 100
)

// Handler runs one import attempt to completion or failure. A returned error
// triggers redelivery under the retry policy, whatever its cause.
type Handler func(ctx context.Context, task models.ImportTask) error

// Options configures delivery. Zero values fall back to the defaults used by
// the original deployment: 5 worker slots, 3 attempts, 1s backoff base.
type Options struct {
	Concurrency int
	MaxAttempts int
	BackoffBase time.Duration
}

type Queue struct {
	rdb       *redis.Client
	publisher events.Publisher
	opts      Options
}

func New(rdb *redis.Client, publisher events.Publisher, opts Options) *Queue {
	if opts.Concurrency < 1 {
		opts.Concurrency = 5
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	return &Queue{rdb: rdb, publisher: publisher, opts: opts}
}

// Enqueue pushes a first-attempt task for the given feed URL. Enqueuing the
// same URL twice before it is processed is tolerated; the downstream upsert
// is idempotent.
func (q *Queue) Enqueue(ctx context.Context, url string) error {
	task := models.ImportTask{URL: url, EnqueuedAt: time.Now().UTC(), Attempt: 1}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, pendingKey, payload).Err()
}

// Run consumes tasks with opts.Concurrency worker slots plus the promotion
// loop for delayed retries, blocking until ctx is cancelled. Cancellation
// stops the pulling of new tasks; attempts already in flight run to
// completion, including their retry bookkeeping.
func (q *Queue) Run(ctx context.Context, handler Handler) {
	q.recoverProcessing(ctx)
	go q.promoteLoop(ctx)

	var wg sync.WaitGroup
	for i := 0; i < q.opts.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.worker(ctx, id, handler)
		}(i)
	}
	wg.Wait()
}

func (q *Queue) worker(ctx context.Context, id int, handler Handler) {
	log.WithFields(log.Fields{"worker": id}).Info("Worker slot started")

	for {
		if ctx.Err() != nil {
			log.WithFields(log.Fields{"worker": id}).Info("Worker slot shutting down")
			return
		}

		payload, err := q.rdb.BLMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT", popTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // pop timeout, queue empty
			}
			if ctx.Err() != nil {
				return
			}
			log.WithFields(log.Fields{"worker": id, "error": err}).Error("BLMOVE failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// The attempt and its retry bookkeeping must survive shutdown, so
		// they run detached from the run context's cancellation.
		taskCtx := context.WithoutCancel(ctx)

		var task models.ImportTask
		if err := json.Unmarshal([]byte(payload), &task); err != nil {
			log.WithFields(log.Fields{"worker": id, "error": err}).Error("Dropping malformed task payload")
			q.ack(taskCtx, id, payload)
			continue
		}
		if task.Attempt < 1 {
			task.Attempt = 1
		}

		if err := handler(taskCtx, task); err != nil {
			q.handleFailure(taskCtx, task, err)
		}
		q.ack(taskCtx, id, payload)
	}
}

// ack removes a claimed task from the processing list. On failure the task
// is requeued at the next startup and redelivered; the import is idempotent.
func (q *Queue) ack(ctx context.Context, id int, payload string) {
	if err := q.rdb.LRem(ctx, processingKey, 1, payload).Err(); err != nil {
		log.WithFields(log.Fields{"worker": id, "error": err}).Error("Unable to ack task, it may be redelivered")
	}
}

// recoverProcessing moves tasks a previous run left in flight back onto the
// pending list. A recovered task that did in fact complete is simply
// redelivered; duplicates are tolerated.
func (q *Queue) recoverProcessing(ctx context.Context) {
	recovered := 0
	for {
		if err := q.rdb.LMove(ctx, processingKey, pendingKey, "RIGHT", "LEFT").Err(); err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.WithFields(log.Fields{"error": err}).Error("Unable to recover in-flight tasks")
			}
			break
		}
		recovered++
	}
	if recovered > 0 {
		log.WithFields(log.Fields{"recovered": recovered}).Info("Requeued in-flight tasks from previous run")
	}
}

// handleFailure applies the retry policy: park the task for redelivery with
// backoff, or, once attempts are exhausted, publish import:failed and drop
// it. No run log exists for exhausted tasks; the failure event is the only
// observable trace.
func (q *Queue) handleFailure(ctx context.Context, task models.ImportTask, cause error) bool {
	delay, ok := NextRetry(task.Attempt, q.opts.MaxAttempts, q.opts.BackoffBase)
	if !ok {
		log.WithFields(log.Fields{
			"url":      task.URL,
			"attempts": task.Attempt,
			"error":    cause,
		}).Error("Task failed permanently, retries exhausted")
		q.publisher.RunFailed(ctx, task.URL, cause)
		return false
	}

	task.Attempt++
	payload, err := json.Marshal(task)
	if err != nil {
		log.WithFields(log.Fields{"url": task.URL, "error": err}).Error("Unable to marshal retry task")
		return false
	}

	readyAt := time.Now().Add(delay)
	if err := q.rdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: payload,
	}).Err(); err != nil {
		log.WithFields(log.Fields{"url": task.URL, "error": err}).Error("Unable to park task for retry")
		return false
	}

	log.WithFields(log.Fields{
		"url":     task.URL,
		"attempt": task.Attempt,
		"delay":   delay,
		"error":   cause,
	}).Warn("Task failed, retry scheduled")
	return true
}

func (q *Queue) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.promoteDue(ctx)
		}
	}
}

// promoteDue moves tasks whose backoff has elapsed back onto the pending
// list. ZREM acts as the claim, so concurrent promoters (multiple worker
// processes) cannot duplicate a task.
func (q *Queue) promoteDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: promoteBatch,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			log.WithFields(log.Fields{"error": err}).Error("Unable to read delayed tasks")
		}
		return
	}

	for _, member := range members {
		removed, err := q.rdb.ZRem(ctx, delayedKey, member).Result()
		if err != nil || removed == 0 {
			continue // claimed by another promoter or transient error
		}
		if err := q.rdb.LPush(ctx, pendingKey, member).Err(); err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Unable to promote delayed task")
		}
	}
}
