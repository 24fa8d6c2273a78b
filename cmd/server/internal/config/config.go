// Package config loads and validates the scribe-audio service configuration.
// Values come from an optional YAML file overridden by environment variables,
// so container deployments can tune everything without rebuilding.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the unified service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	ASR    ASRConfig    `yaml:"asr"`
	Audio  AudioConfig  `yaml:"audio"`
	Health HealthConfig `yaml:"health"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Env  string `yaml:"env"`  // dev, staging, production
	Port string `yaml:"port"` // listen port
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // optional rotated log file path
}

// ASRConfig holds settings for the external speech-to-text service.
type ASRConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// SegmentTimeout bounds a single segment transcription call,
	// including internal retries.
	SegmentTimeout time.Duration `yaml:"segment_timeout"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the delay between attempts. Tests use zero.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// MaxConcurrent caps simultaneous segment transcription calls.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// AudioConfig holds upload and segmentation limits.
type AudioConfig struct {
	// MaxUploadBytes rejects requests before any processing starts.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// MaxSegmentBytes is the single-upload ceiling of the ASR service.
	MaxSegmentBytes int64 `yaml:"max_segment_bytes"`

	// SegmentMarginBytes is headroom kept under the ceiling per segment
	// to absorb container/encoding overhead.
	SegmentMarginBytes int64 `yaml:"segment_margin_bytes"`

	// FFmpegPath locates the ffmpeg binary used to split compressed audio.
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// HealthConfig holds ASR health check and degradation settings.
type HealthConfig struct {
	CheckInterval     time.Duration `yaml:"check_interval"`
	FailThreshold     int           `yaml:"fail_threshold"`
	EnableDegradation bool          `yaml:"enable_degradation"`
}

// DefaultConfig returns the built-in defaults. The 25 MiB segment ceiling is
// a property of the downstream transcription API.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Env:  "dev",
			Port: "8000",
		},
		Log: LogConfig{
			Level: "info",
		},
		ASR: ASRConfig{
			APIURL:         "https://api.groq.com/openai/v1",
			Model:          "whisper-large-v3",
			SegmentTimeout: 2 * time.Minute,
			MaxRetries:     2,
			RetryBackoff:   2 * time.Second,
			MaxConcurrent:  2,
		},
		Audio: AudioConfig{
			MaxUploadBytes:     500 * 1024 * 1024,
			MaxSegmentBytes:    25 * 1024 * 1024,
			SegmentMarginBytes: 1 * 1024 * 1024,
			FFmpegPath:         "ffmpeg",
		},
		Health: HealthConfig{
			CheckInterval:     5 * time.Minute,
			FailThreshold:     3,
			EnableDegradation: true,
		},
	}
}

// LoadConfig builds the configuration: defaults, then the YAML file named by
// SCRIBE_CONFIG (when set), then environment variable overrides.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := strings.TrimSpace(os.Getenv("SCRIBE_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Env, "ENV")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")
	setString(&cfg.ASR.APIURL, "ASR_API_URL")
	setString(&cfg.ASR.APIKey, "ASR_API_KEY")
	setString(&cfg.ASR.Model, "ASR_MODEL")
	setDuration(&cfg.ASR.SegmentTimeout, "ASR_SEGMENT_TIMEOUT")
	setInt(&cfg.ASR.MaxRetries, "ASR_MAX_RETRIES")
	setDuration(&cfg.ASR.RetryBackoff, "ASR_RETRY_BACKOFF")
	setInt(&cfg.ASR.MaxConcurrent, "ASR_MAX_CONCURRENT")
	setInt64(&cfg.Audio.MaxUploadBytes, "MAX_UPLOAD_BYTES")
	setInt64(&cfg.Audio.MaxSegmentBytes, "MAX_SEGMENT_BYTES")
	setInt64(&cfg.Audio.SegmentMarginBytes, "SEGMENT_MARGIN_BYTES")
	setString(&cfg.Audio.FFmpegPath, "FFMPEG_PATH")
	setDuration(&cfg.Health.CheckInterval, "HEALTH_CHECK_INTERVAL")
	setInt(&cfg.Health.FailThreshold, "HEALTH_CHECK_FAIL_THRESHOLD")
	setBool(&cfg.Health.EnableDegradation, "ENABLE_DEGRADATION")
}

// ValidateConfig verifies the configuration and reports every problem found.
func ValidateConfig(cfg *Config) error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errs = append(errs, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	if cfg.ASR.APIURL == "" {
		errs = append(errs, "ASR_API_URL is required")
	}
	if cfg.Server.Env == "production" && cfg.ASR.APIKey == "" {
		errs = append(errs, "ASR_API_KEY is required in production environment")
	}
	if cfg.ASR.SegmentTimeout <= 0 {
		errs = append(errs, "ASR_SEGMENT_TIMEOUT must be positive")
	}
	if cfg.ASR.MaxRetries < 0 {
		errs = append(errs, "ASR_MAX_RETRIES cannot be negative")
	}
	if cfg.ASR.MaxConcurrent < 1 {
		errs = append(errs, "ASR_MAX_CONCURRENT must be at least 1")
	}

	if cfg.Audio.MaxSegmentBytes <= 0 {
		errs = append(errs, "MAX_SEGMENT_BYTES must be positive")
	}
	if cfg.Audio.SegmentMarginBytes < 0 {
		errs = append(errs, "SEGMENT_MARGIN_BYTES cannot be negative")
	}
	if cfg.Audio.SegmentMarginBytes >= cfg.Audio.MaxSegmentBytes {
		errs = append(errs, "SEGMENT_MARGIN_BYTES must be smaller than MAX_SEGMENT_BYTES")
	}
	if cfg.Audio.MaxUploadBytes < cfg.Audio.MaxSegmentBytes {
		errs = append(errs, "MAX_UPLOAD_BYTES must be at least MAX_SEGMENT_BYTES")
	}

	if cfg.Health.CheckInterval <= 0 {
		errs = append(errs, "HEALTH_CHECK_INTERVAL must be positive")
	}
	if cfg.Health.FailThreshold < 1 {
		errs = append(errs, "HEALTH_CHECK_FAIL_THRESHOLD must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetServerAddr returns the listen address for the HTTP server.
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// PrintConfig renders the loaded configuration with secrets masked.
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Logging:
    - Level: %s
    - File: %s
  ASR:
    - API URL: %s
    - API Key: %s
    - Model: %s
    - Segment Timeout: %s
    - Max Retries: %d
    - Retry Backoff: %s
    - Max Concurrent: %d
  Audio:
    - Max Upload: %d bytes
    - Segment Ceiling: %d bytes
    - Segment Margin: %d bytes
    - FFmpeg: %s
  Health:
    - Check Interval: %s
    - Fail Threshold: %d
    - Degradation: %t`,
		c.Server.Env,
		c.Server.Port,
		c.Log.Level,
		c.Log.File,
		c.ASR.APIURL,
		maskSecret(c.ASR.APIKey),
		c.ASR.Model,
		c.ASR.SegmentTimeout,
		c.ASR.MaxRetries,
		c.ASR.RetryBackoff,
		c.ASR.MaxConcurrent,
		c.Audio.MaxUploadBytes,
		c.Audio.MaxSegmentBytes,
		c.Audio.SegmentMarginBytes,
		c.Audio.FFmpegPath,
		c.Health.CheckInterval,
		c.Health.FailThreshold,
		c.Health.EnableDegradation,
	)
}

// Helpers

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

func setInt64(dst *int64, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if value := strings.ToLower(strings.TrimSpace(os.Getenv(key))); value != "" {
		*dst = value == "true" || value == "1"
	}
}

// maskSecret hides sensitive values in printed configuration.
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}
