package db

import (
	"context"
	"errors"
	"fmt"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"jobwire/models"
)

// One statement per record; the WHERE clause makes no-op updates skip the
// row entirely, and xmax = 0 distinguishes a fresh insert from an update.
// Unchanged records therefore return no row at all.
const upsertJobSQL = `
	INSERT INTO jobs (external_id, feed_url, title, description, company, location, published_at, raw, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (external_id) DO UPDATE SET
		feed_url = EXCLUDED.feed_url,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		company = EXCLUDED.company,
		location = EXCLUDED.location,
		published_at = EXCLUDED.published_at,
		raw = EXCLUDED.raw,
		updated_at = now()
	WHERE (jobs.feed_url, jobs.title, jobs.description, jobs.company, jobs.location, jobs.published_at, jobs.raw)
		IS DISTINCT FROM
		(EXCLUDED.feed_url, EXCLUDED.title, EXCLUDED.description, EXCLUDED.company, EXCLUDED.location, EXCLUDED.published_at, EXCLUDED.raw)
	RETURNING (xmax = 0) AS inserted`

// UpsertJobs writes all records in a single batch round trip and classifies
// each as inserted, updated, or unchanged. Concurrent upserts on the same
// external_id resolve last-write-wins.
func (d *DB) UpsertJobs(ctx context.Context, jobs []models.Job) (inserted, updated int, err error) {
	if len(jobs) == 0 {
		return 0, 0, nil
	}

	batch := &pgx.Batch{}
	for _, j := range jobs {
		batch.Queue(upsertJobSQL,
			j.ExternalID, j.FeedURL, j.Title, j.Description,
			j.Company, j.Location, j.PublishedAt, j.Raw)
	}

	results := d.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range jobs {
		var wasInsert bool
		scanErr := results.QueryRow().Scan(&wasInsert)
		switch {
		case errors.Is(scanErr, pgx.ErrNoRows):
			// Unchanged content, counted as neither new nor updated.
		case scanErr != nil:
			return inserted, updated, fmt.Errorf("upsert jobs: %w", scanErr)
		case wasInsert:
			inserted++
		default:
			updated++
		}
	}

	return inserted, updated, nil
}

// JobFilter narrows the job listing.
type JobFilter struct {
	FeedURL string
	Search  string // matches title or company, case-insensitive
	Limit   int
	Offset  int
}

// ListJobs returns canonical job records, most recently published first.
func (d *DB) ListJobs(ctx context.Context, filter JobFilter) ([]models.Job, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "external_id", "feed_url", "title", "description",
		"company", "location", "published_at", "created_at", "updated_at").
		From("jobs")

	if filter.FeedURL != "" {
		sb.Where(sb.Equal("feed_url", filter.FeedURL))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		sb.Where(sb.Or(
			sb.ILike("title", pattern),
			sb.ILike("company", pattern),
		))
	}

	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}
	sb.OrderBy("published_at DESC NULLS LAST", "id DESC").
		Limit(limit).
		Offset(filter.Offset)

	query, args := sb.Build()
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(
			&j.ID, &j.ExternalID, &j.FeedURL, &j.Title, &j.Description,
			&j.Company, &j.Location, &j.PublishedAt, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		jobs = append(jobs, j)
	}

	return jobs, rows.Err()
}
