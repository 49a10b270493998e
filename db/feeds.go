package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobwire/models"
)

// ListFeeds returns every registered feed source, newest first.
func (d *DB) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, url, created_at FROM feeds ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []models.Feed
	for rows.Next() {
		var f models.Feed
		if err := rows.Scan(&f.ID, &f.URL, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		feeds = append(feeds, f)
	}

	return feeds, rows.Err()
}

// CreateFeed registers a feed URL. Returns the stored row and whether it was
// newly created; re-registering an existing URL is not an error.
func (d *DB) CreateFeed(ctx context.Context, url string) (models.Feed, bool, error) {
	var f models.Feed
	err := d.pool.QueryRow(ctx,
		`INSERT INTO feeds (url) VALUES ($1)
		 ON CONFLICT (url) DO NOTHING
		 RETURNING id, url, created_at`,
		url,
	).Scan(&f.ID, &f.URL, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = d.pool.QueryRow(ctx,
			`SELECT id, url, created_at FROM feeds WHERE url = $1`,
			url,
		).Scan(&f.ID, &f.URL, &f.CreatedAt)
		if err != nil {
			return models.Feed{}, false, fmt.Errorf("select feed: %w", err)
		}
		return f, false, nil
	}
	if err != nil {
		return models.Feed{}, false, fmt.Errorf("insert feed: %w", err)
	}
	return f, true, nil
}

// DeleteFeed removes a feed source. Existing jobs and import logs are kept;
// they are audit data, not registry state.
func (d *DB) DeleteFeed(ctx context.Context, id int64) (bool, error) {
	tag, err := d.pool.Exec(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete feed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SeedFeeds upserts a batch of feed URLs and reports how many were new.
func (d *DB) SeedFeeds(ctx context.Context, urls []string) (int, error) {
	var added int
	for _, url := range urls {
		tag, err := d.pool.Exec(ctx,
			`INSERT INTO feeds (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`,
			url,
		)
		if err != nil {
			return added, fmt.Errorf("seed feed %q: %w", url, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}
