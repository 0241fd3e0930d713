package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playstore-scraper/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APPS", "REVIEW_COUNT", "MAX_RETRIES", "MIN_REVIEWS", "PLAY_PROVIDER", "REVIEW_SORT", "BACKOFF_BASE_MS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultApps(), cfg.Apps)
	assert.Equal(t, 500, cfg.ReviewCount)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BackoffBase)
	assert.Equal(t, 1200, cfg.MinReviews)
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, "et", cfg.Country)
	assert.Equal(t, "newest", cfg.Sort)
	assert.Equal(t, "data/raw", cfg.OutputDir)
	assert.Equal(t, "logs/scraper.log", cfg.LogFile)
	assert.False(t, cfg.PostgresOn)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APPS", "Awash Bank=com.awash.mobile; Dashen Bank=com.cr2.amolelight")
	t.Setenv("REVIEW_COUNT", "50")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("POSTGRES_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []models.AppSource{
		{Label: "Awash Bank", AppID: "com.awash.mobile"},
		{Label: "Dashen Bank", AppID: "com.cr2.amolelight"},
	}, cfg.Apps)
	assert.Equal(t, 50, cfg.ReviewCount)
	assert.Equal(t, 3, cfg.MaxRetries, "unparsable values fall back to the default")
	assert.True(t, cfg.PostgresOn)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Apps:        DefaultApps(),
			ReviewCount: 500,
			MaxRetries:  3,
			Provider:    "http",
			Sort:        "newest",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"duplicate label", func(c *Config) {
			c.Apps = append(c.Apps, models.AppSource{Label: "Dashen Bank", AppID: "com.other"})
		}, "duplicate app label"},
		{"duplicate id", func(c *Config) {
			c.Apps = append(c.Apps, models.AppSource{Label: "Other", AppID: "com.cr2.amolelight"})
		}, "duplicate app id"},
		{"no apps", func(c *Config) { c.Apps = nil }, "at least one app"},
		{"zero count", func(c *Config) { c.ReviewCount = 0 }, "REVIEW_COUNT"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "MAX_RETRIES"},
		{"bad provider", func(c *Config) { c.Provider = "grpc" }, "PLAY_PROVIDER"},
		{"bad sort", func(c *Config) { c.Sort = "oldest" }, "REVIEW_SORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseAppsRejectsMalformed(t *testing.T) {
	_, err := ParseApps("no-equals-sign")
	assert.Error(t, err)

	_, err = ParseApps(" ; ")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := &Config{
		PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u",
		PostgresPass: "p", PostgresDB: "reviews", PostgresSSL: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=reviews sslmode=disable", c.DSN())
}
