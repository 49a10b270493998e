package ingest

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"jobwire/events"
	"jobwire/models"
)

// Store is the slice of the durable store the importer mutates.
type Store interface {
	// UpsertJobs performs one batched idempotent upsert keyed by ExternalID
	// and reports how many records were inserted and how many updated.
	// Records with unchanged content count toward neither.
	UpsertJobs(ctx context.Context, jobs []models.Job) (inserted, updated int, err error)

	// InsertImportLog persists one immutable run record and fills in its id.
	InsertImportLog(ctx context.Context, runLog *models.ImportLog) error
}

// Importer runs the import procedure for a single feed URL. Instances are
// safe for concurrent use; worker slots share one Importer.
type Importer struct {
	fetcher   *Fetcher
	store     Store
	publisher events.Publisher
}

func NewImporter(fetcher *Fetcher, store Store, publisher events.Publisher) *Importer {
	return &Importer{fetcher: fetcher, store: store, publisher: publisher}
}

// ImportFeed executes one import attempt to completion: fetch, parse,
// normalize, upsert, then always log and publish.
//
// Any error from fetch, parse, or the batched upsert is handled here as a
// whole-feed failure: FailedJobs is overwritten with TotalFetched, the
// message is appended to Failures, and the run is still logged and published
// as a completed run. Only an error from the logging step itself escapes to
// the caller, handing the attempt back to the queue's retry policy.
func (imp *Importer) ImportFeed(ctx context.Context, feedURL string) (*models.ImportLog, error) {
	runLog := &models.ImportLog{
		FeedURL:   feedURL,
		Timestamp: time.Now().UTC(),
		Failures:  []string{},
	}

	if err := imp.run(ctx, feedURL, runLog); err != nil {
		log.WithFields(log.Fields{
			"feedUrl": feedURL,
			"error":   err,
		}).Error("Import failed for whole feed")

		runLog.FailedJobs = runLog.TotalFetched
		runLog.Failures = append(runLog.Failures, err.Error())
	}

	// Derived, never independently tracked.
	runLog.TotalImported = runLog.NewJobs + runLog.UpdatedJobs

	if err := imp.store.InsertImportLog(ctx, runLog); err != nil {
		return nil, fmt.Errorf("persist run log for %s: %w", feedURL, err)
	}

	imp.publisher.RunCompleted(ctx, *runLog)

	log.WithFields(log.Fields{
		"feedUrl":  feedURL,
		"fetched":  runLog.TotalFetched,
		"imported": runLog.TotalImported,
		"new":      runLog.NewJobs,
		"updated":  runLog.UpdatedJobs,
		"failed":   runLog.FailedJobs,
	}).Info("Import run complete")

	return runLog, nil
}

func (imp *Importer) run(ctx context.Context, feedURL string, runLog *models.ImportLog) error {
	body, err := imp.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return err
	}

	items, err := ParseItems(body)
	if err != nil {
		return fmt.Errorf("unable to parse feed: %w", err)
	}
	if len(items) == 0 {
		log.WithFields(log.Fields{"feedUrl": feedURL}).Warn("No items found in feed")
		return nil
	}

	runLog.TotalFetched = len(items)

	records := make([]models.Job, 0, len(items))
	for _, item := range items {
		record, err := BuildRecord(feedURL, item)
		if err != nil {
			// Per-item failure: record it and keep going with the rest.
			runLog.FailedJobs++
			runLog.Failures = append(runLog.Failures, err.Error())
			continue
		}
		records = append(records, record)
	}

	inserted, updated, err := imp.store.UpsertJobs(ctx, records)
	if err != nil {
		return err
	}
	runLog.NewJobs = inserted
	runLog.UpdatedJobs = updated

	return nil
}
