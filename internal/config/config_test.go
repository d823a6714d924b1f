package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDecodesTypedSettings(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.host", "0.0.0.0")
	viper.Set("server.port", 9000)
	viper.Set("redis.addr", "redis:6379")
	viper.Set("redis.timeout", "3s")
	viper.Set("admission.protected_prefixes", "/api/contact,/api/admin")
	viper.Set("admission.contact_path", "/api/contact")
	viper.Set("admission.abuse_threshold", 50)
	viper.Set("admission.abuse_window", "1m")
	viper.Set("admission.ban_ttl", "24h")
	viper.Set("admission.per_address.capacity", 4)
	viper.Set("admission.per_address.window", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3*time.Second, cfg.Redis.Timeout)

	// Comma-separated strings decode into slices
	assert.Equal(t, []string{"/api/contact", "/api/admin"}, cfg.Admission.ProtectedPrefixes)

	assert.Equal(t, int64(50), cfg.Admission.AbuseThreshold)
	assert.Equal(t, time.Minute, cfg.Admission.AbuseWindow)
	assert.Equal(t, 24*time.Hour, cfg.Admission.BanTTL)
	assert.Equal(t, int64(4), cfg.Admission.PerAddress.Capacity)
	assert.Equal(t, 24*time.Hour, cfg.Admission.PerAddress.Window)
}

func TestLoadListValuesPassThrough(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("admission.protected_prefixes", []string{"/api/contact"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/contact"}, cfg.Admission.ProtectedPrefixes)
}

func TestDefaultStorePath(t *testing.T) {
	path := DefaultStorePath()
	assert.Contains(t, path, "sitegate")
}
