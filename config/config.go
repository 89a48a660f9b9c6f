package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every runtime-tunable parameter of the live frame core.
// All values come from the environment; see Load for defaults.
type Config struct {
	Stream StreamConfig
	Track  TrackConfig
	OpenAI OpenAIConfig
	Server ServerConfig
}

type StreamConfig struct {
	URL          string        // HLS (or any FFmpeg-readable) stream URL
	SnapshotURL  string        // still-image endpoint, polled when set
	TargetFPS    float64       // publish rate cap
	MaxWidth     int           // downscale frames wider than this (0 disables)
	JPEGQuality  int           // 1..100 for every encoded response
	FetchTimeout time.Duration // per snapshot HTTP fetch
}

type TrackConfig struct {
	LivenessWindow time.Duration // identity excluded from results after this much silence
	MatchRadius    float64       // max centroid distance in pixels to rematch
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type ServerConfig struct {
	Addr string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Stream: StreamConfig{
			URL:          os.Getenv("STREAM_URL"),
			SnapshotURL:  os.Getenv("SNAPSHOT_URL"),
			TargetFPS:    envFloat("TARGET_FPS", 10),
			MaxWidth:     envInt("MAX_WIDTH", 1280),
			JPEGQuality:  envInt("JPEG_QUALITY", 85),
			FetchTimeout: time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Track: TrackConfig{
			LivenessWindow: time.Duration(envInt("LIVENESS_WINDOW_SECONDS", 30)) * time.Second,
			MatchRadius:    envFloat("MATCH_RADIUS_PX", 100),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  envString("OPENAI_MODEL", "gpt-4o"),
		},
		Server: ServerConfig{
			Addr: envString("LISTEN_ADDR", ":8080"),
		},
	}
}

// PublishInterval converts the FPS cap into the pacing delay used by the reader.
func (c StreamConfig) PublishInterval() time.Duration {
	if c.TargetFPS <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / c.TargetFPS)
}
