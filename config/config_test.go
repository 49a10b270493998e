package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobwire/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		DatabaseURL:  "postgres://localhost:5432/jobwire",
		RedisURL:     "redis://localhost:6379",
		Listen:       ":3001",
		CronSpec:     "0 * * * *",
		Concurrency:  5,
		MaxAttempts:  3,
		BackoffBase:  time.Second,
		FetchTimeout: 15 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *config.Config) {},
		},
		{
			name:    "missing database URL",
			mutate:  func(c *config.Config) { c.DatabaseURL = "" },
			wantErr: "database URL",
		},
		{
			name:    "missing redis URL",
			mutate:  func(c *config.Config) { c.RedisURL = "" },
			wantErr: "redis URL",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *config.Config) { c.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *config.Config) { c.MaxAttempts = 0 },
			wantErr: "attempts",
		},
		{
			name:    "negative backoff",
			mutate:  func(c *config.Config) { c.BackoffBase = -time.Second },
			wantErr: "backoff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.toml")
	content := `feeds = [
  "https://jobs.example.com/rss",
  "https://boards.example.org/feed.xml",
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	seed, err := config.LoadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://jobs.example.com/rss",
		"https://boards.example.org/feed.xml",
	}, seed.Feeds)
}

func TestLoadSeedFileMissing(t *testing.T) {
	_, err := config.LoadSeedFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
