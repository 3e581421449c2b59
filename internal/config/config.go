// Package config defines the per-component configuration structs for the
// recording toolchain and assembles them into a single top-level Config
// loadable from a YAML file. Each component owns its own Config type and
// Default*Config constructor; this package does not reach into component
// internals, it only aggregates.
package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of "trace", "debug", "info", "warn", "error".
	Level string `json:"level" yaml:"level"`
	// Format is "json" or "text".
	Format string `json:"format" yaml:"format"`
	// AddSource adds the calling source file/line to each log record.
	AddSource bool `json:"add_source" yaml:"add_source"`
	// TimeFormat overrides the timestamp layout. Empty uses slog's default.
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

// DefaultLoggingConfig returns sensible defaults for LoggingConfig.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "json",
	}
}

// SourceConfig configures the byte source (local file or HTTP).
type SourceConfig struct {
	// URL is the resource to read: a local path, or an http(s):// URL.
	URL string `json:"url" yaml:"url"`
	// Headers are extra HTTP request headers (ignored for local files).
	Headers map[string]string `json:"headers" yaml:"headers"`
	// Timeout bounds a single HTTP request. Zero means the HTTP client default.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
	// Proxy configures outbound proxying. Empty Type disables proxying.
	Proxy ProxyConfig `json:"proxy" yaml:"proxy"`
}

// ProxyConfig configures how the byte source dials outbound connections.
type ProxyConfig struct {
	// Type is one of "", "system", "http", "https", "socks5". "" disables
	// proxying entirely; "system" honors HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
	Type string `json:"type" yaml:"type"`
	// URL is the proxy endpoint, required when Type is http/https/socks5.
	URL string `json:"url" yaml:"url"`
	// Username/Password supply optional proxy basic auth.
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// DefaultSourceConfig returns sensible defaults for SourceConfig.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		TimeoutSeconds: 30,
	}
}

// WriterConfig configures the output writer task shared by every format
// strategy.
type WriterConfig struct {
	// OutputDir is the sandbox root all written files are resolved under.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// FilenameTemplate is expanded per spec.md §6 placeholders.
	FilenameTemplate string `json:"filename_template" yaml:"filename_template"`
	// MaxSizeBytes rotates the current file once exceeded. Zero disables.
	MaxSizeBytes int64 `json:"max_size_bytes" yaml:"max_size_bytes"`
	// MaxDurationSeconds rotates the current file once exceeded. Zero disables.
	MaxDurationSeconds int64 `json:"max_duration_seconds" yaml:"max_duration_seconds"`
}

// DefaultWriterConfig returns sensible defaults for WriterConfig.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		FilenameTemplate: "%Y%m%d_%H%M%S_%t",
	}
}

// TimestampConfig tunes the timestamp-continuity operator.
type TimestampConfig struct {
	// BackwardToleranceMS is the largest backward jump treated as jitter
	// rather than a discontinuity.
	BackwardToleranceMS int64 `json:"backward_tolerance_ms" yaml:"backward_tolerance_ms"`
	// ForwardJumpMS is the smallest forward jump treated as a stream
	// restart requiring a continuity offset.
	ForwardJumpMS int64 `json:"forward_jump_ms" yaml:"forward_jump_ms"`
}

// DefaultTimestampConfig returns the defaults resolved for the open question
// on continuity tuning: zero tolerance backward, a one-minute forward jump
// threshold.
func DefaultTimestampConfig() TimestampConfig {
	return TimestampConfig{
		BackwardToleranceMS: 0,
		ForwardJumpMS:       60_000,
	}
}

// HLSConfig configures the HLS acquisition engine.
type HLSConfig struct {
	// MaxConcurrentFetches bounds the scheduler's in-flight segment fetches.
	MaxConcurrentFetches int `json:"max_concurrent_fetches" yaml:"max_concurrent_fetches"`
	// PlaylistRefreshIntervalSeconds polls a live media playlist at this
	// cadence when the server does not advertise one.
	PlaylistRefreshIntervalSeconds int `json:"playlist_refresh_interval_seconds" yaml:"playlist_refresh_interval_seconds"`
	// StallTimeoutSeconds fails acquisition if no new segment appears for
	// this long.
	StallTimeoutSeconds int `json:"stall_timeout_seconds" yaml:"stall_timeout_seconds"`
	// SegmentCacheTTLSeconds bounds how long fetched segment bytes and keys
	// are retained in the process-wide cache.
	SegmentCacheTTLSeconds int `json:"segment_cache_ttl_seconds" yaml:"segment_cache_ttl_seconds"`
}

// DefaultHLSConfig returns sensible defaults for HLSConfig.
func DefaultHLSConfig() HLSConfig {
	return HLSConfig{
		MaxConcurrentFetches:           4,
		PlaylistRefreshIntervalSeconds: 4,
		StallTimeoutSeconds:            30,
		SegmentCacheTTLSeconds:         60,
	}
}

// Config is the top-level assembly of every component's configuration.
type Config struct {
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Source    SourceConfig    `json:"source" yaml:"source"`
	Writer    WriterConfig    `json:"writer" yaml:"writer"`
	Timestamp TimestampConfig `json:"timestamp" yaml:"timestamp"`
	HLS       HLSConfig       `json:"hls" yaml:"hls"`
}

// DefaultConfig returns a Config populated from every component's defaults.
func DefaultConfig() Config {
	return Config{
		Logging:   DefaultLoggingConfig(),
		Source:    DefaultSourceConfig(),
		Writer:    DefaultWriterConfig(),
		Timestamp: DefaultTimestampConfig(),
		HLS:       DefaultHLSConfig(),
	}
}

// LoadFile reads and parses a YAML config file, starting from DefaultConfig
// so unspecified fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}
