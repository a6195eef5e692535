package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"

	"estatemap/internal/models"
)

type Config struct {
	// Store selects and configures the persistent store
	Store struct {
		// Backend is "mongo" or "sqlite"
		Backend string `env:"STORE_BACKEND" envDefault:"mongo"`

		MongoURI      string `env:"MONGODB_CONNECTION_STRING" envDefault:"mongodb://localhost:27017"`
		MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"prop_main"`

		SQLitePath string `env:"SQLITE_PATH" envDefault:"database/estatemap.db"`

		// RedisAddr enables the read-through cache for stored requests when set
		RedisAddr     string `env:"REDIS_ADDR"`
		RedisPassword string `env:"REDIS_PASSWORD"`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
		RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"place_requests"`
	}

	Places struct {
		APIKey  string `env:"GOOGLE_API_KEY"`
		BaseURL string `env:"PLACES_BASE_URL" envDefault:"https://places.googleapis.com/v1"`

		// Timeout applies to every live Places call
		Timeout time.Duration `env:"PLACES_HTTP_TIMEOUT" envDefault:"10s"`

		// TierTablePath overrides the built-in tier tables with a TOML file
		TierTablePath string `env:"PLACES_TIER_TABLE"`
	}

	Quota struct {
		// Timezone anchors the monthly quota window
		Timezone string `env:"QUOTA_TIMEZONE" envDefault:"UTC"`
	}

	Photos struct {
		// BlobDir is where downloaded place photos are written
		BlobDir     string `env:"PHOTO_BLOB_DIR" envDefault:"blobs"`
		BlobBaseURL string `env:"PHOTO_BLOB_BASE_URL" envDefault:"file://blobs"`
		MaxPerPlace int    `env:"PHOTO_MAX_PER_PLACE" envDefault:"3"`
	}

	Mapping struct {
		// Region selects the region profile used to build queries
		Region string `env:"MAP_REGION" envDefault:"hong_kong"`

		// Maximum number of properties to load per batch
		BatchSize int `env:"MAP_BATCH_SIZE" envDefault:"50"`

		// Maximum number of batches per run, 0 runs until nothing is pending
		MaxBatches int `env:"MAP_MAX_BATCHES" envDefault:"0"`

		// AllowedPrimaryTypes restricts picked places, empty allows all
		AllowedPrimaryTypes []string `env:"MAP_ALLOWED_PRIMARY_TYPES" envSeparator:","`

		DownloadPhotos bool `env:"MAP_DOWNLOAD_PHOTOS" envDefault:"false"`

		LockPath string `env:"MAP_LOCK_PATH" envDefault:"estatemap.lock"`

		// Interval between scheduled runs under serve, 0 disables them
		ScheduleInterval time.Duration `env:"MAP_SCHEDULE_INTERVAL" envDefault:"0"`
	}

	// BatchProcessing configures property imports
	BatchProcessing struct {
		// Maximum number of properties written per batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of batches buffered between reader and writer
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"10"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries
		RetryDelay time.Duration `env:"BATCH_RETRY_DELAY" envDefault:"5s"`
	}

	API struct {
		Port           string   `env:"API_PORT" envDefault:"5250"`
		AllowedOrigins []string `env:"API_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "mongo", "sqlite":
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return fmt.Errorf("invalid quota timezone %q: %w", c.Quota.Timezone, err)
	}
	if GetRegionByName(c.Mapping.Region) == nil {
		return fmt.Errorf("unknown region: %s", c.Mapping.Region)
	}
	if c.Mapping.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Mapping.BatchSize)
	}
	if c.Mapping.ScheduleInterval < 0 {
		return fmt.Errorf("schedule interval must not be negative, got %s", c.Mapping.ScheduleInterval)
	}
	if c.BatchProcessing.MaxBatchSize <= 0 || c.BatchProcessing.QueueSize <= 0 {
		return fmt.Errorf("batch size and queue size must be positive")
	}
	if c.Photos.MaxPerPlace < 0 || c.Photos.MaxPerPlace > models.MaxPhotoBlobs {
		return fmt.Errorf("photo limit must be between 0 and %d, got %d", models.MaxPhotoBlobs, c.Photos.MaxPerPlace)
	}
	return nil
}

// QuotaLocation returns the timezone of the quota window
func (c *Config) QuotaLocation() *time.Location {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
