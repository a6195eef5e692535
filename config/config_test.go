package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.Store.Backend)
	assert.Equal(t, "prop_main", cfg.Store.MongoDatabase)
	assert.Equal(t, 10*time.Second, cfg.Places.Timeout)
	assert.Equal(t, "UTC", cfg.Quota.Timezone)
	assert.Equal(t, 3, cfg.Photos.MaxPerPlace)
	assert.Equal(t, 50, cfg.Mapping.BatchSize)
	assert.Equal(t, "hong_kong", cfg.Mapping.Region)
	assert.Empty(t, cfg.Mapping.AllowedPrimaryTypes)
	assert.Zero(t, cfg.Mapping.ScheduleInterval)
	assert.Equal(t, 100, cfg.BatchProcessing.MaxBatchSize)
	assert.Equal(t, 5*time.Second, cfg.BatchProcessing.RetryDelay)
	assert.Equal(t, time.UTC, cfg.QuotaLocation())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("PLACES_HTTP_TIMEOUT", "3s")
	t.Setenv("QUOTA_TIMEZONE", "Asia/Hong_Kong")
	t.Setenv("MAP_ALLOWED_PRIMARY_TYPES", "apartment_building,condominium_complex")
	t.Setenv("MAP_BATCH_SIZE", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 3*time.Second, cfg.Places.Timeout)
	assert.Equal(t, []string{"apartment_building", "condominium_complex"}, cfg.Mapping.AllowedPrimaryTypes)
	assert.Equal(t, 10, cfg.Mapping.BatchSize)
	assert.Equal(t, "Asia/Hong_Kong", cfg.QuotaLocation().String())
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Unknown backend", key: "STORE_BACKEND", value: "postgres"},
		{name: "Bad timezone", key: "QUOTA_TIMEZONE", value: "Mars/Olympus"},
		{name: "Unknown region", key: "MAP_REGION", value: "atlantis"},
		{name: "Zero batch size", key: "MAP_BATCH_SIZE", value: "0"},
		{name: "Negative schedule", key: "MAP_SCHEDULE_INTERVAL", value: "-1m"},
		{name: "Zero import queue", key: "BATCH_QUEUE_SIZE", value: "0"},
		{name: "Too many photos", key: "PHOTO_MAX_PER_PLACE", value: "4"},
		{name: "Negative photos", key: "PHOTO_MAX_PER_PLACE", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
