package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("POSE_PROVIDER", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "gemini", cfg.Estimator.Provider)
	assert.Equal(t, 20.0, cfg.Estimator.ScoreTolerance)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_HOST", "db")
	t.Setenv("POSE_TOLERANCE_PX", "12.5")
	t.Setenv("LIVE_INTERVAL", "250ms")
	t.Setenv("MQTT_QOS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 12.5, cfg.Estimator.ScoreTolerance)
	assert.Equal(t, 250*time.Millisecond, cfg.Live.Interval)
	assert.Equal(t, 0, cfg.MQTT.QoS)
}

func TestNewLoggerFormatsTime(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "development").Info("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, entry["time"])
	assert.Contains(t, entry, "source")
}
