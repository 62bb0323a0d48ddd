package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{"PORT", "NOTIFY_COOLDOWN", "DROP_THRESHOLD", "MIN_PSU_WATTAGE", "EMAIL_PORT", "ALLOCATION_MODE", "REDIS_URL"} {
			t.Setenv(key, "")
		}

		cfg := Load()
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 24*time.Hour, cfg.NotifyCooldown)
		assert.Equal(t, "0.05", cfg.DropThreshold.String())
		assert.Equal(t, "450", cfg.MinPSUWattage.String())
		assert.Equal(t, 587, cfg.EmailPort)
		assert.Equal(t, "random", cfg.AllocationMode)
		assert.Empty(t, cfg.RedisURL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("NOTIFY_COOLDOWN", "6h")
		t.Setenv("DROP_THRESHOLD", "0.1")
		t.Setenv("MIN_PSU_WATTAGE", "550")
		t.Setenv("ALLOCATION_MODE", "midpoint")
		t.Setenv("ALLOCATION_SEED", "42")
		t.Setenv("STRICT_CASE", "true")
		t.Setenv("PRICE_FEED_RETAILERS", "amazon.com, newegg.com,,")

		cfg := Load()
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, 6*time.Hour, cfg.NotifyCooldown)
		assert.Equal(t, "0.1", cfg.DropThreshold.String())
		assert.Equal(t, "550", cfg.MinPSUWattage.String())
		assert.Equal(t, "midpoint", cfg.AllocationMode)
		assert.Equal(t, int64(42), cfg.AllocationSeed)
		assert.True(t, cfg.StrictCase)
		assert.Equal(t, []string{"amazon.com", "newegg.com"}, cfg.PriceFeedRetailers)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("NOTIFY_COOLDOWN", "soon")
		t.Setenv("DROP_THRESHOLD", "-1")
		t.Setenv("EMAIL_PORT", "smtp")

		cfg := Load()
		assert.Equal(t, 24*time.Hour, cfg.NotifyCooldown)
		assert.Equal(t, "0.05", cfg.DropThreshold.String())
		assert.Equal(t, 587, cfg.EmailPort)
	})
}
