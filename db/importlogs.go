package db

import (
	"context"
	"fmt"

	"jobwire/models"
)

// InsertImportLog persists one immutable run record and fills in its id.
// Rows in import_logs are never updated or deleted by the pipeline.
func (d *DB) InsertImportLog(ctx context.Context, runLog *models.ImportLog) error {
	err := d.pool.QueryRow(ctx,
		`INSERT INTO import_logs
			(feed_url, timestamp, total_fetched, total_imported, new_jobs, updated_jobs, failed_jobs, failures)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		runLog.FeedURL, runLog.Timestamp, runLog.TotalFetched, runLog.TotalImported,
		runLog.NewJobs, runLog.UpdatedJobs, runLog.FailedJobs, runLog.Failures,
	).Scan(&runLog.ID)
	if err != nil {
		return fmt.Errorf("insert import log: %w", err)
	}
	return nil
}

// ListImportLogs returns the most recent run records, newest first.
func (d *DB) ListImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := d.pool.Query(ctx,
		`SELECT id, feed_url, timestamp, total_fetched, total_imported,
		        new_jobs, updated_jobs, failed_jobs, failures
		 FROM import_logs
		 ORDER BY timestamp DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query import logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ImportLog
	for rows.Next() {
		var l models.ImportLog
		if err := rows.Scan(
			&l.ID, &l.FeedURL, &l.Timestamp, &l.TotalFetched, &l.TotalImported,
			&l.NewJobs, &l.UpdatedJobs, &l.FailedJobs, &l.Failures,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

// GetStats aggregates store counters for the dashboard cards.
func (d *DB) GetStats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := d.pool.QueryRow(ctx,
		`SELECT
			(SELECT count(*) FROM feeds),
			(SELECT count(*) FROM jobs),
			(SELECT count(*) FROM import_logs),
			(SELECT coalesce(sum(failed_jobs), 0) FROM import_logs),
			(SELECT max(timestamp) FROM import_logs)`,
	).Scan(&stats.TotalFeeds, &stats.TotalJobs, &stats.TotalImports,
		&stats.TotalFailures, &stats.LastRunAt)
	if err != nil {
		return models.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}
