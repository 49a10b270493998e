// Package config holds the runtime configuration collected from CLI flags
// and environment variables, plus the TOML seed-file loader.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all runtime configuration for jobwire.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Listen      string

	// CronSpec controls how often the scheduler enqueues imports.
	CronSpec string

	// Concurrency is the number of worker slots consuming the queue.
	Concurrency int

	// MaxAttempts and BackoffBase define the queue retry policy: a task is
	// delivered at most MaxAttempts times, with delays of BackoffBase
	// doubling after each failed attempt.
	MaxAttempts int
	BackoffBase time.Duration

	FetchTimeout time.Duration
}

// Validate fails fast on missing or nonsensical values so a misconfigured
// process dies at startup instead of mid-import.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be a positive integer, got %d", c.Concurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("attempts must be a positive integer, got %d", c.MaxAttempts)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff base must be positive, got %s", c.BackoffBase)
	}
	return nil
}

// SeedFile is the TOML file consumed by the seed command. Seeding is the
// explicit way to load feed URLs in bulk; the feeds table remains the only
// authoritative registry.
type SeedFile struct {
	Feeds []string `toml:"feeds"`
}

func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}

	var seed SeedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("error parsing seed file: %w", err)
	}

	return &seed, nil
}
