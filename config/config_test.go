package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 10.0, cfg.Stream.TargetFPS)
	assert.Equal(t, 1280, cfg.Stream.MaxWidth)
	assert.Equal(t, 85, cfg.Stream.JPEGQuality)
	assert.Equal(t, 10*time.Second, cfg.Stream.FetchTimeout)
	assert.Equal(t, 30*time.Second, cfg.Track.LivenessWindow)
	assert.Equal(t, 100.0, cfg.Track.MatchRadius)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SNAPSHOT_URL", "https://example.com/readImage.asp")
	t.Setenv("TARGET_FPS", "2")
	t.Setenv("MAX_WIDTH", "640")
	t.Setenv("JPEG_QUALITY", "70")
	t.Setenv("LIVENESS_WINDOW_SECONDS", "45")
	t.Setenv("MATCH_RADIUS_PX", "60")
	t.Setenv("LISTEN_ADDR", ":9090")

	cfg := Load()

	assert.Equal(t, "https://example.com/readImage.asp", cfg.Stream.SnapshotURL)
	assert.Equal(t, 2.0, cfg.Stream.TargetFPS)
	assert.Equal(t, 640, cfg.Stream.MaxWidth)
	assert.Equal(t, 70, cfg.Stream.JPEGQuality)
	assert.Equal(t, 45*time.Second, cfg.Track.LivenessWindow)
	assert.Equal(t, 60.0, cfg.Track.MatchRadius)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("TARGET_FPS", "not-a-number")
	t.Setenv("MAX_WIDTH", "-5")

	cfg := Load()

	assert.Equal(t, 10.0, cfg.Stream.TargetFPS)
	assert.Equal(t, 1280, cfg.Stream.MaxWidth)
}

func TestPublishInterval(t *testing.T) {
	c := StreamConfig{TargetFPS: 10}
	assert.Equal(t, 100*time.Millisecond, c.PublishInterval())

	c.TargetFPS = 0
	assert.Equal(t, time.Second, c.PublishInterval())
}
