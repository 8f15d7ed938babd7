package capture

import (
	"math"
	"testing"
	"time"

	"github.com/MrWong99/woohoo/pkg/audio"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Duration != 10*time.Second {
		t.Errorf("Duration = %v, want 10s", cfg.Duration)
	}
	if cfg.FFTSize != 2048 || cfg.Smoothing != 0.6 {
		t.Errorf("FFTSize/Smoothing = %d/%.1f, want 2048/0.6", cfg.FFTSize, cfg.Smoothing)
	}
	if cfg.HighPassHz != 400 || math.Abs(cfg.HighPassQ-1/math.Sqrt2) > 1e-12 {
		t.Errorf("HighPass = %.0f Hz q=%.4f", cfg.HighPassHz, cfg.HighPassQ)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDefaultConfigFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain    audio.Domain
		fft       int
		smoothing float64
	}{
		{audio.DomainTime, 2048, 0.6},
		{audio.DomainFrequency, 256, 0.8},
	}
	for _, tt := range tests {
		cfg := DefaultConfigFor(tt.domain)
		if cfg.Domain != tt.domain || cfg.FFTSize != tt.fft || cfg.Smoothing != tt.smoothing {
			t.Errorf("DefaultConfigFor(%v) = domain %v fft %d smoothing %.1f", tt.domain, cfg.Domain, cfg.FFTSize, cfg.Smoothing)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate(%v): %v", tt.domain, err)
		}
	}

	// An unset window follows the domain.
	if got := (Config{Domain: audio.DomainFrequency}).withDefaults().FFTSize; got != 256 {
		t.Errorf("withDefaults FFTSize = %d, want 256", got)
	}
}

func TestConfig_WithDefaultsKeepsDisabledFilter(t *testing.T) {
	t.Parallel()

	cfg := Config{Domain: audio.DomainFrequency}.withDefaults()
	if cfg.HighPassHz != 0 {
		t.Errorf("HighPassHz = %.0f, want 0 (disabled)", cfg.HighPassHz)
	}
	if cfg.Duration != 10*time.Second || cfg.FFTSize != 2048 || cfg.FrameInterval != time.Second/60 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Domain != audio.DomainFrequency {
		t.Errorf("Domain overwritten: %v", cfg.Domain)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative duration", func(c *Config) { c.Duration = -time.Second }},
		{"bad domain", func(c *Config) { c.Domain = audio.Domain(7) }},
		{"bad fft size", func(c *Config) { c.FFTSize = 1000 }},
		{"smoothing too high", func(c *Config) { c.Smoothing = 1 }},
		{"negative cutoff", func(c *Config) { c.HighPassHz = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGraph_DropsMalformedFrames(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.FFTSize = 32
	cfg.HighPassHz = 0
	g, err := newGraph(cfg, 48000)
	if err != nil {
		t.Fatal(err)
	}

	g.push(audio.AudioFrame{Data: []byte{1, 2, 3}, Channels: 1})
	g.push(audio.AudioFrame{Data: make([]byte, 12), Channels: 3})
	for i, b := range g.snapshot() {
		if b != 128 {
			t.Fatalf("snapshot[%d] = %d after malformed frames, want 128", i, b)
		}
	}

	// Stereo is averaged to mono.
	g.push(audio.AudioFrame{Data: audio.EncodePCM16([]float64{0.5, 0.5}), Channels: 2})
	snap := g.snapshot()
	if snap[len(snap)-1] != 192 {
		t.Errorf("latest byte = %d, want 192", snap[len(snap)-1])
	}

	g.disconnect()
	g.push(audio.AudioFrame{Data: audio.EncodePCM16([]float64{1}), Channels: 1})
	for i, b := range g.snapshot() {
		if b != 128 {
			t.Fatalf("snapshot[%d] = %d after disconnect, want 128", i, b)
		}
	}
}
