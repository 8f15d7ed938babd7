package capture

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MrWong99/woohoo/pkg/audio"
)

// Config tunes a [Session]. Use [DefaultConfig] as the starting point; zero
// durations and sizes are replaced with defaults, but a zero HighPassHz
// disables the filter.
type Config struct {
	// Duration is the fixed capture window. Default: 10s.
	Duration time.Duration

	// FrameInterval is the sampling tick. Default: 1/60 s.
	FrameInterval time.Duration

	// Domain selects time-domain or frequency-domain snapshots.
	Domain audio.Domain

	// FFTSize is the analyser window in samples, a power of two in
	// [32, 32768]. Snapshots hold FFTSize/2 values. Default: 2048 for the
	// time domain, 256 for the frequency domain.
	FFTSize int

	// Smoothing is the analyser's averaging constant between consecutive
	// frequency snapshots, in [0, 1). Default via DefaultConfigFor: 0.6 for
	// the time domain, 0.8 for the frequency domain.
	Smoothing float64

	// HighPassHz is the cutoff of the voice-isolation filter; 0 disables it.
	HighPassHz float64

	// HighPassQ is the filter quality factor. Default: 1/√2.
	HighPassQ float64
}

// DefaultConfig returns a 10 second time-domain session with the 400 Hz
// high-pass filter enabled.
func DefaultConfig() Config {
	return Config{
		Duration:      10 * time.Second,
		FrameInterval: time.Second / 60,
		Domain:        audio.DomainTime,
		FFTSize:       2048,
		Smoothing:     0.6,
		HighPassHz:    400,
		HighPassQ:     math.Sqrt2 / 2,
	}
}

// DefaultConfigFor returns [DefaultConfig] tuned for domain. Frequency-bin
// averaging is calibrated against a small, heavily smoothed analyser.
func DefaultConfigFor(domain audio.Domain) Config {
	c := DefaultConfig()
	c.Domain = domain
	if domain == audio.DomainFrequency {
		c.FFTSize = 256
		c.Smoothing = 0.8
	}
	return c
}

// withDefaults fills zero-valued fields except HighPassHz and Smoothing,
// where zero is meaningful.
func (c Config) withDefaults() Config {
	d := DefaultConfigFor(c.Domain)
	if c.Duration <= 0 {
		c.Duration = d.Duration
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	if c.FFTSize == 0 {
		c.FFTSize = d.FFTSize
	}
	if c.HighPassQ <= 0 {
		c.HighPassQ = d.HighPassQ
	}
	return c
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration %v must not be negative", c.Duration))
	}
	if c.FrameInterval < 0 {
		errs = append(errs, fmt.Errorf("frame interval %v must not be negative", c.FrameInterval))
	}
	if c.Domain != audio.DomainTime && c.Domain != audio.DomainFrequency {
		errs = append(errs, fmt.Errorf("domain %d is invalid", c.Domain))
	}
	if c.FFTSize != 0 && !validFFTSize(c.FFTSize) {
		errs = append(errs, fmt.Errorf("fft size %d must be a power of two in [%d, %d]", c.FFTSize, minFFTSize, maxFFTSize))
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		errs = append(errs, fmt.Errorf("smoothing %.2f is out of range [0, 1)", c.Smoothing))
	}
	if c.HighPassHz < 0 {
		errs = append(errs, fmt.Errorf("high-pass cutoff %.1f Hz must not be negative", c.HighPassHz))
	}
	return errors.Join(errs...)
}
