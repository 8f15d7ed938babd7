// Package audio defines the shared vocabulary for audio flowing into the
// scream challenge: raw PCM frames delivered by a capture source and the
// domain of the analyser snapshots derived from them.
//
// Sources (local microphone, browser WebSocket, test mocks) all produce
// [AudioFrame] values. The capture graph decodes them with [DecodePCM16] and
// reduces multi-channel input with [MonoConverter] before filtering.
package audio

import "time"

// AudioFrame is a chunk of little-endian int16 PCM as delivered by a capture
// source. Frames are consumed immediately by the capture graph and never
// retained.
type AudioFrame struct {
	// Data holds interleaved little-endian int16 samples.
	Data []byte

	// SampleRate in Hz (48000 for the local microphone, browser-reported for
	// WebSocket sources).
	SampleRate int

	// Channels is 1 for mono or 2 for interleaved stereo.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Domain selects which representation the analyser produces for each sample.
type Domain int

const (
	// DomainTime yields unsigned 8-bit amplitudes centred on [TimeDomainBias].
	DomainTime Domain = iota

	// DomainFrequency yields bin magnitudes scaled to 0..255.
	DomainFrequency
)

// TimeDomainBias is the zero-crossing value of an unsigned 8-bit
// time-domain snapshot.
const TimeDomainBias = 128

// String returns the configuration name of the domain.
func (d Domain) String() string {
	switch d {
	case DomainTime:
		return "time"
	case DomainFrequency:
		return "frequency"
	default:
		return "unknown"
	}
}
