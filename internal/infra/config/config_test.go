package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/harvest?sslmode=disable")
	t.Setenv("RAWFILE_KEY", strings.Repeat("ab", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.MinRequestInterval)
	assert.Equal(t, 10*time.Minute, cfg.PendingRepoll)
	assert.Equal(t, "harvest.ready", cfg.KafkaTopic)
	assert.Empty(t, cfg.Release51Cutover)
	assert.Len(t, cfg.RawFileKey, 32)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_HARVEST_RETRIES", "3")
	t.Setenv("RELEASE_51_CUTOVER", "2025-01")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CONSORTIA", "1,2")
	t.Setenv("MIN_REQUEST_INTERVAL", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "2025-01", cfg.Release51Cutover)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []int64{1, 2}, cfg.Consortia)
	assert.Zero(t, cfg.MinRequestInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"short key":   {"RAWFILE_KEY", "abcd"},
		"bad cutover": {"RELEASE_51_CUTOVER", "2025/01"},
		"zero retry":  {"MAX_HARVEST_RETRIES", "0"},
		"bad timeout": {"HTTP_TIMEOUT", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
