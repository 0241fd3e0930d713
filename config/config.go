package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"playstore-scraper/models"
)

// DefaultApps is the reference deployment: three Ethiopian mobile banking apps.
func DefaultApps() []models.AppSource {
	return []models.AppSource{
		{Label: "Commercial Bank of Ethiopia", AppID: "com.combanketh.mobilebanking"},
		{Label: "Bank of Abyssinia", AppID: "com.boa.boaMobileBanking"},
		{Label: "Dashen Bank", AppID: "com.cr2.amolelight"},
	}
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Apps []models.AppSource

	ReviewCount int
	MaxRetries  int
	BackoffBase time.Duration
	Lang        string
	Country     string
	Sort        string
	MinReviews  int
	SampleSize  int

	Provider     string
	PlayBaseURL  string
	RatePerSec   float64
	HTTPTimeout  time.Duration
	ChromeBin    string
	LogFile      string
	LogLevel     string
	OutputDir    string
	MetricsFile  string
	SQLitePath   string
	PostgresOn   bool
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	apps := DefaultApps()
	if raw := os.Getenv("APPS"); raw != "" {
		parsed, err := ParseApps(raw)
		if err != nil {
			return nil, err
		}
		apps = parsed
	}

	cfg := &Config{
		Apps: apps,

		ReviewCount: getEnvInt("REVIEW_COUNT", 500),
		MaxRetries:  getEnvInt("MAX_RETRIES", 3),
		BackoffBase: time.Duration(getEnvInt("BACKOFF_BASE_MS", 1000)) * time.Millisecond,
		Lang:        getEnv("REVIEW_LANG", "en"),
		Country:     getEnv("REVIEW_COUNTRY", "et"),
		Sort:        getEnv("REVIEW_SORT", "newest"),
		MinReviews:  getEnvInt("MIN_REVIEWS", 1200),
		SampleSize:  getEnvInt("SAMPLE_SIZE", 5),

		Provider:    getEnv("PLAY_PROVIDER", "http"),
		PlayBaseURL: getEnv("PLAY_BASE_URL", "https://play.google.com"),
		RatePerSec:  getEnvFloat("PLAY_RATE_PER_SEC", 2),
		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 30)) * time.Second,
		ChromeBin:   getEnv("CHROME_BIN", ""),
		LogFile:     getEnv("LOG_FILE", "logs/scraper.log"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		OutputDir:   getEnv("OUTPUT_DIR", "data/raw"),
		MetricsFile: getEnv("METRICS_FILE", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		PostgresOn:   getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost: getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnv("POSTGRES_PORT", "5432"),
		PostgresUser: getEnv("POSTGRES_USER", "scraper"),
		PostgresPass: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:   getEnv("POSTGRES_DB", "reviews_db"),
		PostgresSSL:  getEnv("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	if len(c.Apps) == 0 {
		return fmt.Errorf("at least one app is required")
	}
	labels := make(map[string]struct{}, len(c.Apps))
	ids := make(map[string]struct{}, len(c.Apps))
	for _, a := range c.Apps {
		if a.Label == "" || a.AppID == "" {
			return fmt.Errorf("app entry %q=%q: label and id are required", a.Label, a.AppID)
		}
		if _, dup := labels[a.Label]; dup {
			return fmt.Errorf("duplicate app label %q", a.Label)
		}
		if _, dup := ids[a.AppID]; dup {
			return fmt.Errorf("duplicate app id %q", a.AppID)
		}
		labels[a.Label] = struct{}{}
		ids[a.AppID] = struct{}{}
	}

	if c.ReviewCount <= 0 {
		return fmt.Errorf("REVIEW_COUNT must be positive, got %d", c.ReviewCount)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("MAX_RETRIES must be positive, got %d", c.MaxRetries)
	}
	if c.BackoffBase < 0 {
		return fmt.Errorf("BACKOFF_BASE_MS must not be negative")
	}
	switch c.Provider {
	case "http", "browser":
	default:
		return fmt.Errorf("PLAY_PROVIDER must be 'http' or 'browser', got %q", c.Provider)
	}
	switch c.Sort {
	case "newest", "relevant", "rating":
	default:
		return fmt.Errorf("REVIEW_SORT must be 'newest', 'relevant' or 'rating', got %q", c.Sort)
	}
	return nil
}

// ParseApps parses "Label=app.id;Other Label=other.id".
func ParseApps(raw string) ([]models.AppSource, error) {
	var apps []models.AppSource
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		label, id, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("config: APPS entry %q: expected Label=app.id", entry)
		}
		apps = append(apps, models.AppSource{
			Label: strings.TrimSpace(label),
			AppID: strings.TrimSpace(id),
		})
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("config: APPS is set but lists no apps")
	}
	return apps, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPass +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSL
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
