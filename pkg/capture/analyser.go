package capture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/MrWong99/woohoo/pkg/audio"
)

const (
	minFFTSize = 32
	maxFFTSize = 32768

	// Byte mapping range for frequency snapshots.
	minDecibels = -100.0
	maxDecibels = -30.0
)

func validFFTSize(n int) bool {
	return n >= minFFTSize && n <= maxFFTSize && n&(n-1) == 0
}

// Analyser keeps the most recent FFTSize samples of the filtered signal and
// renders them as unsigned 8-bit time-domain or frequency-domain snapshots.
// Not safe for concurrent use.
type Analyser struct {
	size      int
	smoothing float64

	ring []float64
	pos  int

	fft      *fourier.FFT
	frame    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyser creates an analyser with the given window size and smoothing
// constant.
func NewAnalyser(fftSize int, smoothing float64) (*Analyser, error) {
	if !validFFTSize(fftSize) {
		return nil, fmt.Errorf("capture: analyser: fft size %d must be a power of two in [%d, %d]", fftSize, minFFTSize, maxFFTSize)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("capture: analyser: smoothing %.2f is out of range [0, 1)", smoothing)
	}
	return &Analyser{
		size:      fftSize,
		smoothing: smoothing,
		ring:      make([]float64, fftSize),
		fft:       fourier.NewFFT(fftSize),
		frame:     make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		smoothed:  make([]float64, fftSize/2),
	}, nil
}

// FFTSize returns the window length in samples.
func (a *Analyser) FFTSize() int { return a.size }

// FrequencyBinCount returns FFTSize/2, the length of a snapshot.
func (a *Analyser) FrequencyBinCount() int { return a.size / 2 }

// Write appends samples to the window, discarding the oldest.
func (a *Analyser) Write(samples []float64) {
	if len(samples) >= a.size {
		copy(a.ring, samples[len(samples)-a.size:])
		a.pos = 0
		return
	}
	for _, x := range samples {
		a.ring[a.pos] = x
		a.pos++
		if a.pos == a.size {
			a.pos = 0
		}
	}
}

// window copies the ring into a.frame in chronological order.
func (a *Analyser) window() []float64 {
	n := copy(a.frame, a.ring[a.pos:])
	copy(a.frame[n:], a.ring[:a.pos])
	return a.frame
}

// TimeDomainBytes fills dst with the latest len(dst) samples (at most
// FFTSize) as 128*(1+x), clamped to 0..255.
func (a *Analyser) TimeDomainBytes(dst []byte) {
	w := a.window()
	n := min(len(dst), len(w))
	w = w[len(w)-n:]
	for i, x := range w {
		v := math.Floor(audio.TimeDomainBias * (1 + x))
		dst[i] = byte(max(0, min(255, v)))
	}
}

// FrequencyBytes fills dst (at most FrequencyBinCount values) with
// Blackman-windowed magnitudes, smoothed against the previous call and
// mapped from [-100, -30] dB onto 0..255.
func (a *Analyser) FrequencyBytes(dst []byte) {
	w := window.Blackman(a.window())
	a.coeffs = a.fft.Coefficients(a.coeffs, w)

	scale := 1 / float64(a.size)
	for k := range a.smoothed {
		c := a.coeffs[k]
		mag := math.Hypot(real(c), imag(c)) * scale
		s := a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s
	}

	n := min(len(dst), len(a.smoothed))
	rng := maxDecibels - minDecibels
	for k := range n {
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(255 / rng * (db - minDecibels))
		if math.IsNaN(v) {
			v = 0
		}
		dst[k] = byte(max(0, min(255, v)))
	}
}

// Reset zeroes the window and the smoothing history.
func (a *Analyser) Reset() {
	clear(a.ring)
	clear(a.smoothed)
	a.pos = 0
}
