package audio

import (
	"log/slog"
	"sync"
)

// MonoConverter reduces frames to mono and validates PCM alignment. It logs a
// warning the first time it sees a misaligned or unsupported frame.
// Create one per stream; not designed for shared use across goroutines.
type MonoConverter struct {
	warnedCorrupt  sync.Once
	warnedChannels sync.Once
}

// Convert returns the mono PCM payload of frame. Frames with an odd byte
// count or more than two channels yield nil so that callers can drop them.
func (c *MonoConverter) Convert(frame AudioFrame) []byte {
	if len(frame.Data)%2 != 0 {
		c.warnedCorrupt.Do(func() {
			slog.Warn("audio: odd byte count in PCM data, dropping frame",
				"bytes", len(frame.Data),
				"sampleRate", frame.SampleRate,
				"channels", frame.Channels,
			)
		})
		return nil
	}

	switch frame.Channels {
	case 0, 1:
		return frame.Data
	case 2:
		return StereoToMono(frame.Data)
	default:
		c.warnedChannels.Do(func() {
			slog.Warn("audio: unsupported channel count, dropping frames",
				"channels", frame.Channels,
			)
		})
		return nil
	}
}

// DecodePCM16 appends the samples of little-endian int16 PCM to dst as
// floats in [-1, 1) and returns the extended slice. A trailing odd byte is
// ignored.
func DecodePCM16(dst []float64, pcm []byte) []float64 {
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		dst = append(dst, float64(s)/32768)
	}
	return dst
}

// EncodePCM16 converts float samples to little-endian int16 PCM, clamping
// each sample to the int16 range.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, x := range samples {
		v := x * 32768
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		s := int16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono output.
// Uses int32 arithmetic to prevent overflow and clamps to int16 range.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		lSample := int32(int16(pcm[i*4]) | int16(pcm[i*4+1])<<8)
		rSample := int32(int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8)
		avg := (lSample + rSample) / 2

		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}

		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}
