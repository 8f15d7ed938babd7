// Package config provides the configuration schema, loader, and hot-reload
// watcher for the woohoo scream challenge.
package config

import (
	"time"

	"github.com/MrWong99/woohoo/pkg/audio"
	"github.com/MrWong99/woohoo/pkg/capture"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr   = ":8080"
	DefaultResultTTL    = 15 * time.Minute
	DefaultClaimTimeout = 10 * time.Second
	DefaultDisplayMax   = 1300
	DefaultStrategy     = "rms"
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	Challenge ChallengeConfig `yaml:"challenge"`
	Capture   CaptureConfig   `yaml:"capture"`
	Claim     ClaimConfig     `yaml:"claim"`
	Server    ServerConfig    `yaml:"server"`
}

// ChallengeConfig tunes scoring and the capture graph.
type ChallengeConfig struct {
	// Duration is the capture window. Default: 10s.
	Duration time.Duration `yaml:"duration"`

	// Strategy selects the scorer: "rms" or "average". Default: rms.
	Strategy string `yaml:"strategy"`

	// FrameRate is the number of snapshots per second. Default: 60.
	FrameRate int `yaml:"frame_rate"`

	// HighPassHz is the high-pass cutoff. Nil keeps the 400 Hz default;
	// an explicit 0 disables the filter.
	HighPassHz *float64 `yaml:"highpass_hz"`

	// FFTSize is the analyser window in samples. Default: 2048 for "rms",
	// 256 for "average".
	FFTSize int `yaml:"fft_size"`

	// Smoothing is the frequency-domain time constant. Nil keeps the
	// strategy default: 0.6 for "rms", 0.8 for "average".
	Smoothing *float64 `yaml:"smoothing"`

	// DisplayMax is the score that fills the meter. Default: 1300.
	DisplayMax int `yaml:"display_max"`
}

// CaptureConfig selects the local microphone used by "woohoo record".
type CaptureConfig struct {
	// DeviceID is the hex device ID from "woohoo devices". Empty selects the
	// system default.
	DeviceID string `yaml:"device_id"`

	// SampleRate in Hz. Default: 48000.
	SampleRate int `yaml:"sample_rate"`
}

// ClaimConfig points at the reward API.
type ClaimConfig struct {
	// BaseURL of the reward API, e.g. "https://api.example.com/api". Empty
	// disables submissions.
	BaseURL string `yaml:"base_url"`

	// FallbackURLs are tried in order when BaseURL is unhealthy.
	FallbackURLs []string `yaml:"fallback_urls"`

	// Timeout bounds each request. Default: 10s.
	Timeout time.Duration `yaml:"timeout"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the per-endpoint circuit breaker. Zero values keep
// the breaker defaults.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// ServerConfig holds settings for "woohoo serve".
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on. Default: ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// ResultTTL is how long a finished attempt can be claimed. Default: 15m.
	ResultTTL time.Duration `yaml:"result_ttl"`

	// AllowedOrigins are accepted WebSocket origins in addition to the
	// request host. Patterns follow path.Match.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// SubmitAttempts records every finished browser attempt with the reward
	// API, claimed or not.
	SubmitAttempts bool `yaml:"submit_attempts"`

	// TLS enables HTTPS. Browsers only grant microphone access on secure
	// origins.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds the certificate pair for HTTPS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.Challenge.Duration == 0 {
		c.Challenge.Duration = 10 * time.Second
	}
	if c.Challenge.Strategy == "" {
		c.Challenge.Strategy = DefaultStrategy
	}
	if c.Challenge.FrameRate == 0 {
		c.Challenge.FrameRate = 60
	}
	if c.Challenge.FFTSize == 0 {
		c.Challenge.FFTSize = capture.DefaultConfigFor(c.Challenge.Domain()).FFTSize
	}
	if c.Challenge.DisplayMax == 0 {
		c.Challenge.DisplayMax = DefaultDisplayMax
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 48000
	}
	if c.Claim.Timeout == 0 {
		c.Claim.Timeout = DefaultClaimTimeout
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.ResultTTL == 0 {
		c.Server.ResultTTL = DefaultResultTTL
	}
}

// Domain returns the analyser domain of the configured strategy. Unknown
// strategies report the time domain; Validate rejects them.
func (c ChallengeConfig) Domain() audio.Domain {
	s, err := loudness.StrategyByName(c.Strategy)
	if err != nil {
		return audio.DomainTime
	}
	return s.Domain()
}

// SessionConfig builds the capture configuration, starting from the
// defaults of the strategy's domain.
func (c ChallengeConfig) SessionConfig() capture.Config {
	sc := capture.DefaultConfigFor(c.Domain())
	sc.Duration = c.Duration
	sc.FrameInterval = c.FrameInterval()
	if c.FFTSize != 0 {
		sc.FFTSize = c.FFTSize
	}
	if c.HighPassHz != nil {
		sc.HighPassHz = *c.HighPassHz
	}
	if c.Smoothing != nil {
		sc.Smoothing = *c.Smoothing
	}
	return sc
}

// FrameInterval converts FrameRate into a ticker period.
func (c ChallengeConfig) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FrameRate)
}
