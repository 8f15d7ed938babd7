package loudness

import (
	"math"

	"github.com/MrWong99/woohoo/pkg/audio"
)

// dBFS clamp range and the epsilon that keeps log10 finite on silence.
const (
	MinDBFS     = -60.0
	MaxDBFS     = 0.0
	dbfsEpsilon = 1e-9
)

// RMS returns the root-mean-square of an unsigned 8-bit time-domain buffer,
// normalising each value to [-1, 1] around [audio.TimeDomainBias]. An empty
// buffer yields 0.
func RMS(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, b := range buf {
		v := (float64(b) - audio.TimeDomainBias) / audio.TimeDomainBias
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(buf)))
	if math.IsNaN(rms) {
		return 0
	}
	return rms
}

// DBFS converts an RMS value to decibels relative to full scale, clamped to
// [MinDBFS, MaxDBFS].
func DBFS(rms float64) float64 {
	if math.IsNaN(rms) || rms < 0 {
		rms = 0
	}
	db := 20 * math.Log10(rms+dbfsEpsilon)
	return math.Max(MinDBFS, math.Min(MaxDBFS, db))
}
