// Package malgo captures from a local microphone through miniaudio
// (github.com/gen2brain/malgo).
//
// Builds without cgo, or with the noaudio tag, get a stub whose Open fails
// with [capture.ErrDeviceUnavailable].
package malgo

import "time"

const (
	// DefaultSampleRate is the capture rate requested from the device.
	DefaultSampleRate = 48000

	// DefaultPeriod is the device callback period.
	DefaultPeriod = 20 * time.Millisecond

	// frameBuffer is the number of device periods buffered between the
	// device thread and the session goroutine.
	frameBuffer = 32
)

// Device describes one capture device.
type Device struct {
	// ID is the hex-encoded miniaudio device id, accepted by Source.DeviceID.
	ID        string
	Name      string
	IsDefault bool
}

// Source opens a mono S16 capture stream on a local device.
type Source struct {
	// DeviceID selects a device from [ListDevices]; empty uses the system
	// default.
	DeviceID string

	// SampleRate defaults to [DefaultSampleRate].
	SampleRate int

	// Period defaults to [DefaultPeriod].
	Period time.Duration
}

func (s *Source) sampleRate() int {
	if s.SampleRate > 0 {
		return s.SampleRate
	}
	return DefaultSampleRate
}

func (s *Source) period() time.Duration {
	if s.Period > 0 {
		return s.Period
	}
	return DefaultPeriod
}
