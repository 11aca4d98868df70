package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "NC", cfg.OrderCodePrefix)
	assert.Equal(t, 4, cfg.OrderCodeDigits)
	assert.Equal(t, 5, cfg.OrderCodeMaxAttempts)
	assert.False(t, cfg.OrderStrictTransitions)
	assert.Equal(t, time.UTC, cfg.OrderLocation)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, 5*time.Second, cfg.DBStatementTimeout)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"KAFKA_BROKERS":            "k1:9092, k2:9092",
		"ORDER_STRICT_TRANSITIONS": "true",
		"ORDER_TIMEZONE":           "Asia/Phnom_Penh",
		"ORDER_CODE_DIGITS":        "6",
		"ADMIN_BASE_URL":           "https://shop.example.com/",
		"RESERVATION_TTL":          "30m",
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.OrderStrictTransitions)
	assert.Equal(t, "Asia/Phnom_Penh", cfg.OrderLocation.String())
	assert.Equal(t, 6, cfg.OrderCodeDigits)
	assert.Equal(t, "https://shop.example.com", cfg.AdminBaseURL)
	assert.Equal(t, 30*time.Minute, cfg.ReservationTTL)
}

func TestFromLookup_InvalidValuesAreReported(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"ORDER_CODE_DIGITS":        "four",
		"ORDER_CODE_MAX_ATTEMPTS":  "0",
		"ORDER_STRICT_TRANSITIONS": "maybe",
		"RESERVATION_TTL":          "soon",
		"ORDER_TIMEZONE":           "Mars/Olympus",
	}))

	require.Error(t, err)
	for _, key := range []string{"ORDER_CODE_DIGITS", "ORDER_CODE_MAX_ATTEMPTS", "ORDER_STRICT_TRANSITIONS", "RESERVATION_TTL", "ORDER_TIMEZONE"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestConfig_ValidateAPI(t *testing.T) {
	cfg := &Config{}
	assert.EqualError(t, cfg.ValidateAPI(), "JWT_SECRET environment variable is required")

	cfg.JWTSecret = "short"
	assert.EqualError(t, cfg.ValidateAPI(), "JWT_SECRET must be at least 32 characters long")

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.ValidateAPI())
}
